package lsql

import (
	"path/filepath"
	"strings"
	"time"

	lconfig "github.com/attractor-ml/l96tune/pkg/config"
)

type Config struct {
	Engine       string        `env:"SQL_DB_ENGINE" envDefault:"sqlite"`
	DatabaseName string        `env:"SQL_DB_NAME" envDefault:"study"`
	Address      string        `env:"SQL_DB_ADDRESS" envDefault:""`
	MaxLifetime  time.Duration `env:"SQL_DB_MAX_LIFETIME" envDefault:"30m"`
	MaxIdleConns int           `env:"SQL_DB_MAX_IDLE_CONNS" envDefault:"1"`
	MaxOpenConns int           `env:"SQL_DB_MAX_OPEN_CONNS" envDefault:"1"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewStudyConfig returns the configuration for the study store, one SQLite
// file per study under the checkpoint root.
func NewStudyConfig(checkpointRoot string, studyName string) *Config {
	return &Config{
		Engine:       "sqlite3",
		DatabaseName: studyName,
		Address:      filepath.Join(checkpointRoot, studyName, "study.db"),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	}
}

func (cfg *Config) FullAddress() string {
	switch strings.ToLower(cfg.Engine) {
	case "sqlite", "sqlite3":
		if cfg.Address != "" {
			return cfg.Address
		}
		return ":memory:"
	default:
		return ""
	}
}
