package gnn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Optimizer:       OptimizerAdam,
		LearningRate:    1e-3,
		DropoutRate:     0.1,
		Activation:      ActivationRelu,
		EdgeWidth:       8,
		NodeWidth:       8,
		Epochs:          10,
		LogEvery:        1,
		EvalEvery:       2,
		CheckpointEvery: 5,
		MaxCheckpoints:  2,
		OutputHorizon:   1,
		Seed:            7,
	}
}

func TestValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestMomentumRules(t *testing.T) {
	momentum := 0.9

	cfg := validConfig()
	cfg.Momentum = &momentum
	assert.Error(t, cfg.Validate(), "adam must reject momentum")

	cfg = validConfig()
	cfg.Optimizer = OptimizerSGD
	assert.Error(t, cfg.Validate(), "sgd requires momentum")

	cfg.Momentum = &momentum
	assert.NoError(t, cfg.Validate())

	tooHigh := 1.0
	cfg.Momentum = &tooHigh
	assert.Error(t, cfg.Validate())
}

func TestIncompleteConfigRejected(t *testing.T) {
	breakers := map[string]func(*Config){
		"optimizer":          func(c *Config) { c.Optimizer = "" },
		"learning rate":      func(c *Config) { c.LearningRate = 0 },
		"dropout":            func(c *Config) { c.DropoutRate = 0.7 },
		"activation":         func(c *Config) { c.Activation = "tanh" },
		"edge width":         func(c *Config) { c.EdgeWidth = 0 },
		"node width":         func(c *Config) { c.NodeWidth = 0 },
		"epochs":             func(c *Config) { c.Epochs = 0 },
		"log cadence":        func(c *Config) { c.LogEvery = 0 },
		"eval cadence":       func(c *Config) { c.EvalEvery = 0 },
		"checkpoint cadence": func(c *Config) { c.CheckpointEvery = 0 },
		"retention":          func(c *Config) { c.MaxCheckpoints = 0 },
		"horizon":            func(c *Config) { c.OutputHorizon = 0 },
	}
	for name, breaker := range breakers {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			breaker(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
