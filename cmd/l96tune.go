package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/attractor-ml/l96tune/internal/config"
	"github.com/attractor-ml/l96tune/internal/dataset"
	"github.com/attractor-ml/l96tune/internal/db"
	sqlitemig "github.com/attractor-ml/l96tune/internal/migrations/sqlite"
	"github.com/attractor-ml/l96tune/internal/monitor"
	"github.com/attractor-ml/l96tune/internal/objective"
	"github.com/attractor-ml/l96tune/internal/search"
	"github.com/attractor-ml/l96tune/pkg/app"
	"github.com/attractor-ml/l96tune/pkg/reconciler"
	lsql "github.com/attractor-ml/l96tune/pkg/sql"
	lmigration "github.com/attractor-ml/l96tune/pkg/sql/migration"
)

type dependencies struct {
	cfg             *config.Config
	app             *app.Instance
	database        db.Database
	migration       *lmigration.Migration
	datasetCfg      *dataset.Config
	fixed           *objective.FixedConfig
	monitorCfg      *monitor.Config
	monitor         *monitor.Instance
	snapshotManager *reconciler.Manager[int64]
}

func NewStoreConfig(cfg *config.Config) *lsql.Config {
	return lsql.NewStudyConfig(cfg.CheckpointRoot, cfg.StudyName)
}

func NewMigration(appCfg *config.Config, cfg *lsql.Config) (*lmigration.Migration, error) {
	if appCfg.Migrate {
		return lmigration.NewMigration(cfg, map[string]lmigration.MigrationSet{"sqlite": lmigration.MigrationSet{AssetNames: sqlitemig.AssetNames, Asset: sqlitemig.Asset}})
	}
	return nil, nil
}

func NewSnapshotManager(appInstance *app.Instance, snapshotter *monitor.Snapshotter) (*reconciler.Manager[int64], error) {
	cfg, err := reconciler.NewConfig(10*time.Second, 1, 16)
	if err != nil {
		return nil, err
	}
	return reconciler.NewManager[int64](appInstance.Context(), cfg, snapshotter), nil
}

func newDependencies(app *app.Instance, cfg *config.Config, database db.Database,
	migration *lmigration.Migration, datasetCfg *dataset.Config, fixed *objective.FixedConfig,
	monitorCfg *monitor.Config, monitorInstance *monitor.Instance,
	snapshotManager *reconciler.Manager[int64]) *dependencies {
	return &dependencies{
		cfg:             cfg,
		app:             app,
		database:        database,
		migration:       migration,
		datasetCfg:      datasetCfg,
		fixed:           fixed,
		monitorCfg:      monitorCfg,
		monitor:         monitorInstance,
		snapshotManager: snapshotManager,
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetReportCaller(true)
	deps, err := InitializeDependencies()
	if err != nil {
		log.Fatalf("failed to initialize app: %v", err)
	}

	if deps.cfg.Migrate {
		if err := deps.migration.Run(deps.cfg.MigrationVersion); err != nil {
			panic(err)
		}
	}

	// The dataset is built once and shared read-only across every trial.
	bundle, err := dataset.Build(deps.datasetCfg)
	if err != nil {
		log.Fatalf("failed to build dataset: %v", err)
	}

	deps.snapshotManager.Start()
	defer deps.snapshotManager.Finish()

	if deps.monitorCfg.Enabled {
		deps.monitor.Start()
	}

	ctx := deps.app.Context()
	pruner := search.NewMedianPruner(deps.database.Observations(), deps.cfg.PrunerWarmupSteps, deps.cfg.PrunerMinPriorTrials)
	study, err := search.CreateOrResume(ctx, deps.database, deps.cfg.StudyName, deps.cfg.Direction,
		search.DefaultSpace(), search.NewSampler(deps.cfg.SearchSeed), pruner)
	if err != nil {
		log.Fatalf("failed to open study: %v", err)
	}

	evaluator := objective.NewEvaluator(bundle, *deps.fixed, deps.cfg.CheckpointRoot, deps.cfg.StudyName, afero.NewOsFs())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer deps.app.Stop(false)
		return study.Run(ctx, evaluator, deps.cfg.Trials)
	})

	if err := group.Wait(); err != nil {
		log.Printf("study run stopped: %v", err)
	}

	summary, err := study.Summary(context.Background())
	if err != nil {
		log.Printf("failed to summarize study: %v", err)
	} else {
		log.Printf("study %s: %d complete, %d pruned, %d failed",
			deps.cfg.StudyName, summary.Complete, summary.Pruned, summary.Failed)
		if summary.Failures != nil {
			log.Printf("recorded failures: %v", summary.Failures)
		}
		if summary.Best != nil {
			log.Printf("best trial %d with value %.6f params %s",
				summary.Best.Record.Number, *summary.Best.Record.Value, summary.Best.Record.Params)
		}
	}

	deps.app.WaitForFinish()
}
