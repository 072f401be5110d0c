package config

import (
	lconfig "github.com/attractor-ml/l96tune/pkg/config"

	"github.com/attractor-ml/l96tune/internal/db"
)

// Config is the top level application configuration: which study to run,
// how many trials it should hold, and where its artifacts live.
type Config struct {
	StudyName      string       `env:"STUDY_NAME" envDefault:"l96-gnn"`
	Direction      db.Direction `env:"STUDY_DIRECTION" envDefault:"minimize"`
	Trials         int64        `env:"STUDY_TRIALS" envDefault:"20"`
	CheckpointRoot string       `env:"CHECKPOINT_ROOT" envDefault:"checkpoints"`
	SearchSeed     int64        `env:"SEARCH_SEED" envDefault:"0"`

	// Median pruning thresholds.
	PrunerWarmupSteps    int64 `env:"PRUNER_WARMUP_STEPS" envDefault:"10"`
	PrunerMinPriorTrials int   `env:"PRUNER_MIN_PRIOR_TRIALS" envDefault:"4"`

	Migrate          bool  `env:"MIGRATE" envDefault:"true"`
	MigrationVersion *uint `env:"MIGRATION_VERSION"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
