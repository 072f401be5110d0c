package monitor

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dimfeld/httptreemux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	lapp "github.com/attractor-ml/l96tune/pkg/app"
	lconfig "github.com/attractor-ml/l96tune/pkg/config"
)

type Config struct {
	Enabled           bool          `env:"MONITOR_ENABLED" envDefault:"true"`
	Port              int           `env:"MONITOR_HTTP_PORT" envDefault:"3000"`
	ReadTimeout       time.Duration `env:"MONITOR_HTTP_READ_TIMEOUT" envDefault:"60s"`
	ReadHeaderTimeout time.Duration `env:"MONITOR_HTTP_READ_HEADER_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"MONITOR_HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout       time.Duration `env:"MONITOR_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := lconfig.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Instance serves read-only study progress over HTTP from the snapshot
// cache.
type Instance struct {
	config      *Config
	snapshotter *Snapshotter
	router      *httptreemux.TreeMux
	server      *http.Server
}

func NewInstance(cfg *Config, snapshotter *Snapshotter, app *lapp.Instance) *Instance {
	router := httptreemux.New()
	router.RedirectTrailingSlash = false

	instance := &Instance{
		config:      cfg,
		snapshotter: snapshotter,
		router:      router,
		server: &http.Server{
			Handler:           router,
			Addr:              ":" + strconv.Itoa(cfg.Port),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}

	router.GET("/status", instance.handleStatus)
	router.GET("/studies/:name", instance.handleStudy)

	app.AddCloseFunc(func() error {
		ctx, cancel := lapp.BackgroundTimeoutContextDuration(5 * time.Second)
		defer cancel()
		return instance.server.Shutdown(ctx)
	})

	return instance
}

func (instance *Instance) Start() {
	go func() {
		log.Printf("monitor listening on %s", instance.server.Addr)
		if err := instance.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("monitor server stopped: %s", err)
		}
	}()
}

type statusResponse struct {
	Status  string   `json:"status"`
	Studies []string `json:"studies"`
}

func (instance *Instance) handleStatus(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	studies := instance.snapshotter.Studies()
	sort.Strings(studies)
	writeJSON(w, http.StatusOK, &statusResponse{Status: "ok", Studies: studies})
}

func (instance *Instance) handleStudy(w http.ResponseWriter, r *http.Request, params map[string]string) {
	snapshot := instance.snapshotter.Snapshot(params["name"])
	if snapshot == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "study not found"})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %s", err)
	}
}
