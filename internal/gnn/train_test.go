package gnn

import (
	"context"
	"math/rand"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attractor-ml/l96tune/internal/dataset"
)

func tinyBundle(t *testing.T) *dataset.Bundle {
	cfg := &dataset.Config{
		NSamples:          20,
		InputSteps:        1,
		OutputSteps:       2,
		OutputDelay:       1,
		Timestep:          0.005,
		TimeResolution:    2,
		InitBufferSamples: 1,
		TrainPct:          0.7,
		ValPct:            0.15,
		TestPct:           0.15,
		K:                 8,
		F:                 8,
		C:                 10,
		B:                 10,
		H:                 1,
		Seed:              13,
		Normalize:         true,
	}
	bundle, err := dataset.Build(cfg)
	require.NoError(t, err)
	return bundle
}

type recordingReporter struct {
	steps   []int64
	values  []float64
	pruneAt int64
}

func (r *recordingReporter) Report(_ context.Context, step int64, value float64) (bool, error) {
	r.steps = append(r.steps, step)
	r.values = append(r.values, value)
	return r.pruneAt > 0 && step >= r.pruneAt, nil
}

func TestTrainAndEvaluate(t *testing.T) {
	bundle := tinyBundle(t)
	cfg := validConfig()
	cfg.Epochs = 4
	cfg.EvalEvery = 2
	cfg.CheckpointEvery = 2
	cfg.OutputHorizon = 2

	reporter := &recordingReporter{}
	result, err := TrainAndEvaluate(context.Background(), cfg, bundle, "trial_0", afero.NewMemMapFs(), reporter)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Epochs)
	assert.False(t, result.Pruned)
	assert.Equal(t, []int64{2, 4}, reporter.steps)
	for _, key := range []string{"train_mse", "val_mse", "test_mse"} {
		assert.Contains(t, result.FinalMetrics, key)
		assert.GreaterOrEqual(t, result.FinalMetrics[key], 0.0)
	}
}

func TestTrainingReducesLoss(t *testing.T) {
	bundle := tinyBundle(t)
	cfg := validConfig()
	cfg.Epochs = 30
	cfg.EvalEvery = 1
	cfg.DropoutRate = 0
	cfg.OutputHorizon = 1

	reporter := &recordingReporter{}
	result, err := TrainAndEvaluate(context.Background(), cfg, bundle, "trial_0", afero.NewMemMapFs(), reporter)
	require.NoError(t, err)
	require.NotEmpty(t, reporter.values)
	assert.Less(t, result.FinalMetrics["train_mse"], reporter.values[0])
}

func TestPruneStopsTraining(t *testing.T) {
	bundle := tinyBundle(t)
	cfg := validConfig()
	cfg.Epochs = 10
	cfg.EvalEvery = 1
	cfg.OutputHorizon = 1

	reporter := &recordingReporter{pruneAt: 3}
	result, err := TrainAndEvaluate(context.Background(), cfg, bundle, "trial_0", afero.NewMemMapFs(), reporter)
	require.NoError(t, err)
	assert.True(t, result.Pruned)
	assert.Equal(t, 3, result.Epochs)
}

func TestResumeFromCheckpoint(t *testing.T) {
	bundle := tinyBundle(t)
	fs := afero.NewMemMapFs()

	cfg := validConfig()
	cfg.Epochs = 2
	cfg.EvalEvery = 10
	cfg.CheckpointEvery = 1
	cfg.OutputHorizon = 1

	first, err := TrainAndEvaluate(context.Background(), cfg, bundle, "trial_0", fs, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Epochs)

	cfg.Epochs = 4
	second, err := TrainAndEvaluate(context.Background(), cfg, bundle, "trial_0", fs, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, second.Epochs)
}

func TestHorizonBeyondTargetsRejected(t *testing.T) {
	bundle := tinyBundle(t)
	cfg := validConfig()
	cfg.OutputHorizon = bundle.Config.OutputSteps + 1

	_, err := TrainAndEvaluate(context.Background(), cfg, bundle, "trial_0", afero.NewMemMapFs(), nil)
	assert.Error(t, err)
}

func TestBackwardMatchesNumericalGradient(t *testing.T) {
	bundle := tinyBundle(t)
	cfg := validConfig()
	cfg.EdgeWidth = 4
	cfg.NodeWidth = 4
	cfg.Activation = ActivationElu

	rng := rand.New(rand.NewSource(5))
	model, err := NewModel(cfg, bundle.Topology, rng)
	require.NoError(t, err)

	sample := bundle.Splits[dataset.SplitTrain].Samples[0]
	input := sample.Inputs[0]
	targets := sample.Targets[0].Nodes

	cache := model.Forward(input, 0, nil)
	model.Backward(cache, targets)
	analytic := make([]float64, len(model.Grads()))
	copy(analytic, model.Grads())

	const eps = 1e-6
	params := model.Params()
	for _, i := range []int{0, len(params) / 2, len(params) - 1} {
		orig := params[i]
		params[i] = orig + eps
		plus := Loss(model.Forward(input, 0, nil).outputs, targets)
		params[i] = orig - eps
		minus := Loss(model.Forward(input, 0, nil).outputs, targets)
		params[i] = orig

		numeric := (plus - minus) / (2 * eps)
		assert.InDelta(t, numeric, analytic[i], 1e-4)
	}
}
