package dataset

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	lconfig "github.com/attractor-ml/l96tune/pkg/config"
)

// Config fully determines a dataset: the same configuration and seed always
// produce an identical Bundle.
type Config struct {
	NSamples    int `json:"n_samples" env:"DATASET_N_SAMPLES" envDefault:"10000"`
	InputSteps  int `json:"input_steps" env:"DATASET_INPUT_STEPS" envDefault:"1"`
	OutputSteps int `json:"output_steps" env:"DATASET_OUTPUT_STEPS" envDefault:"4"`
	OutputDelay int `json:"output_delay" env:"DATASET_OUTPUT_DELAY" envDefault:"8"`

	// SampleBuffer spaces consecutive samples; negative values overlap them.
	SampleBuffer int `json:"sample_buffer" env:"DATASET_SAMPLE_BUFFER" envDefault:"0"`

	Timestep          float64 `json:"timestep" env:"DATASET_TIMESTEP" envDefault:"0.005"`
	TimeResolution    int     `json:"time_resolution" env:"DATASET_TIME_RESOLUTION" envDefault:"120"`
	InitBufferSamples int     `json:"init_buffer_samples" env:"DATASET_INIT_BUFFER_SAMPLES" envDefault:"100"`

	TrainPct float64 `json:"train_pct" env:"DATASET_TRAIN_PCT" envDefault:"0.7"`
	ValPct   float64 `json:"val_pct" env:"DATASET_VAL_PCT" envDefault:"0.15"`
	TestPct  float64 `json:"test_pct" env:"DATASET_TEST_PCT" envDefault:"0.15"`

	// Lorenz-96 simulation constants.
	K int     `json:"K" env:"DATASET_K" envDefault:"36"`
	F float64 `json:"F" env:"DATASET_F" envDefault:"8"`
	C float64 `json:"c" env:"DATASET_C" envDefault:"10"`
	B float64 `json:"b" env:"DATASET_B" envDefault:"10"`
	H float64 `json:"h" env:"DATASET_H" envDefault:"1"`

	Seed                int64 `json:"seed" env:"DATASET_SEED" envDefault:"42"`
	Normalize           bool  `json:"normalize" env:"DATASET_NORMALIZE" envDefault:"true"`
	FullyConnectedEdges bool  `json:"fully_connected_edges" env:"DATASET_FULLY_CONNECTED_EDGES" envDefault:"false"`
}

// NewConfigFromEnv loads the dataset configuration from the environment,
// optionally starting from a YAML file named by DATASET_CONFIG_FILE.
func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	if file := os.Getenv("DATASET_CONFIG_FILE"); file != "" {
		if err := lconfig.LoadStaticYamlConfig(file, afero.NewOsFs(), &cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to load dataset config file %s", file)
		}
	}
	if err := lconfig.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

const splitSumTolerance = 1e-9

// Validate rejects configurations that cannot produce a well formed dataset.
// These are study-setup failures: nothing should run against a corrupt split.
func (cfg *Config) Validate() error {
	if cfg.NSamples <= 0 {
		return errors.Errorf("n_samples must be positive, got %d", cfg.NSamples)
	}
	if cfg.InputSteps <= 0 {
		return errors.Errorf("input_steps must be positive, got %d", cfg.InputSteps)
	}
	if cfg.OutputSteps <= 0 {
		return errors.Errorf("output_steps must be positive, got %d", cfg.OutputSteps)
	}
	if cfg.OutputDelay < 0 {
		return errors.Errorf("output_delay must not be negative, got %d", cfg.OutputDelay)
	}
	if cfg.Timestep <= 0 {
		return errors.Errorf("timestep must be positive, got %f", cfg.Timestep)
	}
	if cfg.TimeResolution <= 0 {
		return errors.Errorf("time_resolution must be positive, got %d", cfg.TimeResolution)
	}
	if cfg.InitBufferSamples < 0 {
		return errors.Errorf("init_buffer_samples must not be negative, got %d", cfg.InitBufferSamples)
	}
	if cfg.K < 4 {
		return errors.Errorf("K must be at least 4 for the coupling stencil, got %d", cfg.K)
	}
	if cfg.SampleStride() < 1 {
		return errors.Errorf("sample_buffer %d is too negative: samples would not advance in time", cfg.SampleBuffer)
	}
	for _, pct := range []float64{cfg.TrainPct, cfg.ValPct, cfg.TestPct} {
		if pct < 0 || pct > 1 {
			return errors.Errorf("split fractions must be in [0, 1], got %f", pct)
		}
	}
	if math.Abs(cfg.TrainPct+cfg.ValPct+cfg.TestPct-1.0) > splitSumTolerance {
		return errors.Errorf("split fractions must sum to 1, got %f",
			cfg.TrainPct+cfg.ValPct+cfg.TestPct)
	}
	if cfg.TrainSamples() < 1 {
		return errors.Errorf("train split is empty: train_pct %f of %d samples rounds to zero",
			cfg.TrainPct, cfg.NSamples)
	}
	return nil
}

// TrainSamples is the number of samples the chronological split assigns to
// the train split.
func (cfg *Config) TrainSamples() int {
	return int(math.Round(cfg.TrainPct * float64(cfg.NSamples)))
}

// SampleStride is the number of recorded steps between the starts of two
// consecutive samples.
func (cfg *Config) SampleStride() int {
	return cfg.InputSteps + cfg.SampleBuffer
}

// WindowSteps is the number of recorded steps a single sample spans.
func (cfg *Config) WindowSteps() int {
	return cfg.InputSteps + cfg.OutputDelay + cfg.OutputSteps
}
