package objective

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/attractor-ml/l96tune/internal/dataset"
	"github.com/attractor-ml/l96tune/internal/gnn"
	"github.com/attractor-ml/l96tune/internal/search"
	lconfig "github.com/attractor-ml/l96tune/pkg/config"
)

// FixedConfig holds the training settings that are not searched over and
// therefore identical for every trial of a study.
type FixedConfig struct {
	Epochs          int   `json:"epochs" env:"TRAIN_EPOCHS" envDefault:"100"`
	LogEvery        int   `json:"log_every" env:"TRAIN_LOG_EVERY" envDefault:"10"`
	EvalEvery       int   `json:"eval_every" env:"TRAIN_EVAL_EVERY" envDefault:"5"`
	CheckpointEvery int   `json:"checkpoint_every" env:"TRAIN_CHECKPOINT_EVERY" envDefault:"10"`
	MaxCheckpoints  int   `json:"max_checkpoints" env:"TRAIN_MAX_CHECKPOINTS" envDefault:"2"`
	OutputHorizon   int   `json:"output_horizon" env:"TRAIN_OUTPUT_HORIZON" envDefault:"1"`
	Seed            int64 `json:"seed" env:"TRAIN_SEED" envDefault:"0"`
}

func NewFixedConfigFromEnv() (*FixedConfig, error) {
	var cfg FixedConfig
	if err := lconfig.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TrainFunc is the external training routine the evaluator delegates to.
type TrainFunc func(ctx context.Context, cfg *gnn.Config, bundle *dataset.Bundle, workdir string, fs afero.Fs, reporter gnn.Reporter) (*gnn.Result, error)

// Evaluator turns a sampled trial proposal into a training configuration,
// runs training in the trial's working directory, and scores the trial by
// its final validation loss.
type Evaluator struct {
	bundle    *dataset.Bundle
	fixed     FixedConfig
	root      string
	studyName string
	fs        afero.Fs
	train     TrainFunc
}

func NewEvaluator(bundle *dataset.Bundle, fixed FixedConfig, checkpointRoot string, studyName string, fs afero.Fs) *Evaluator {
	return &Evaluator{
		bundle:    bundle,
		fixed:     fixed,
		root:      checkpointRoot,
		studyName: studyName,
		fs:        fs,
		train:     gnn.TrainAndEvaluate,
	}
}

var _ search.Objective = &Evaluator{}

// Evaluate builds the full training configuration and validates it before
// delegating: a field the training loop would dereference must never be
// missing at that point. Validation failures fail the trial, not the study.
func (e *Evaluator) Evaluate(ctx context.Context, trial *search.TrialHandle) (float64, error) {
	cfg := e.trainingConfig(trial.Trial)
	if err := cfg.Validate(); err != nil {
		return 0, errors.Wrap(err, "incomplete training config")
	}

	workdir := filepath.Join(e.root, e.studyName, fmt.Sprintf("trial_%d", trial.Trial.Record.Number))
	if err := e.fs.MkdirAll(workdir, 0755); err != nil {
		return 0, errors.Wrapf(err, "failed to create trial directory %s", workdir)
	}

	log.Printf("trial %d: %s", trial.Trial.Record.Number, trial.Trial.Record.Params)
	result, err := e.train(ctx, cfg, e.bundle, workdir, e.fs, trial)
	if err != nil {
		return 0, err
	}
	if result.Pruned {
		return 0, search.ErrTrialPruned
	}
	return result.FinalMetrics["val_mse"], nil
}

func (e *Evaluator) trainingConfig(trial *search.Trial) *gnn.Config {
	params := trial.Params
	return &gnn.Config{
		Optimizer:       params.Optimizer,
		LearningRate:    params.LearningRate,
		Momentum:        params.Momentum,
		DropoutRate:     params.DropoutRate,
		Activation:      params.Activation,
		EdgeWidth:       params.EdgeWidth(),
		NodeWidth:       params.NodeWidth(),
		Epochs:          e.fixed.Epochs,
		LogEvery:        e.fixed.LogEvery,
		EvalEvery:       e.fixed.EvalEvery,
		CheckpointEvery: e.fixed.CheckpointEvery,
		MaxCheckpoints:  e.fixed.MaxCheckpoints,
		OutputHorizon:   e.fixed.OutputHorizon,
		Seed:            e.fixed.Seed + trial.Record.Number,
	}
}
