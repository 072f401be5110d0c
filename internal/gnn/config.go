package gnn

import (
	"github.com/pkg/errors"
)

const (
	OptimizerAdam = "adam"
	OptimizerSGD  = "sgd"

	ActivationRelu      = "relu"
	ActivationElu       = "elu"
	ActivationLeakyRelu = "leaky_relu"
)

// Config is the complete training configuration for one trial. Every field
// the training loop dereferences is checked by Validate before training
// starts; an incomplete config is a trial failure, never a mid-training
// crash.
type Config struct {
	Optimizer    string
	LearningRate float64
	// Momentum is only meaningful for sgd and must be nil for adam.
	Momentum    *float64
	DropoutRate float64
	Activation  string

	// Feature widths for the edge and node MLPs, already mapped through the
	// power-of-two transform.
	EdgeWidth int
	NodeWidth int

	Epochs          int
	LogEvery        int
	EvalEvery       int
	CheckpointEvery int
	// MaxCheckpoints is the checkpoint retention count.
	MaxCheckpoints int

	// OutputHorizon is the number of rollout steps scored per sample.
	OutputHorizon int

	Seed int64
}

func (cfg *Config) Validate() error {
	switch cfg.Optimizer {
	case OptimizerAdam:
		if cfg.Momentum != nil {
			return errors.New("momentum must not be set for the adam optimizer")
		}
	case OptimizerSGD:
		if cfg.Momentum == nil {
			return errors.New("momentum is required for the sgd optimizer")
		}
		if *cfg.Momentum < 0 || *cfg.Momentum >= 1 {
			return errors.Errorf("momentum must be in [0, 1), got %f", *cfg.Momentum)
		}
	case "":
		return errors.New("optimizer is required")
	default:
		return errors.Errorf("unsupported optimizer: %s", cfg.Optimizer)
	}

	if cfg.LearningRate <= 0 {
		return errors.Errorf("learning_rate must be positive, got %f", cfg.LearningRate)
	}
	if cfg.DropoutRate < 0 || cfg.DropoutRate > 0.6 {
		return errors.Errorf("dropout_rate must be in [0, 0.6], got %f", cfg.DropoutRate)
	}

	switch cfg.Activation {
	case ActivationRelu, ActivationElu, ActivationLeakyRelu:
	case "":
		return errors.New("activation is required")
	default:
		return errors.Errorf("unsupported activation: %s", cfg.Activation)
	}

	if cfg.EdgeWidth <= 0 {
		return errors.Errorf("edge feature width must be positive, got %d", cfg.EdgeWidth)
	}
	if cfg.NodeWidth <= 0 {
		return errors.Errorf("node feature width must be positive, got %d", cfg.NodeWidth)
	}
	if cfg.Epochs <= 0 {
		return errors.Errorf("epochs must be positive, got %d", cfg.Epochs)
	}
	if cfg.LogEvery <= 0 {
		return errors.Errorf("log_every must be positive, got %d", cfg.LogEvery)
	}
	if cfg.EvalEvery <= 0 {
		return errors.Errorf("eval_every must be positive, got %d", cfg.EvalEvery)
	}
	if cfg.CheckpointEvery <= 0 {
		return errors.Errorf("checkpoint_every must be positive, got %d", cfg.CheckpointEvery)
	}
	if cfg.MaxCheckpoints <= 0 {
		return errors.Errorf("checkpoint retention count must be positive, got %d", cfg.MaxCheckpoints)
	}
	if cfg.OutputHorizon <= 0 {
		return errors.Errorf("output_horizon must be positive, got %d", cfg.OutputHorizon)
	}
	return nil
}
