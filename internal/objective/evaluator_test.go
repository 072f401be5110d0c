package objective

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attractor-ml/l96tune/internal/dataset"
	"github.com/attractor-ml/l96tune/internal/db"
	"github.com/attractor-ml/l96tune/internal/gnn"
	"github.com/attractor-ml/l96tune/internal/search"
)

func testFixedConfig() FixedConfig {
	return FixedConfig{
		Epochs:          4,
		LogEvery:        1,
		EvalEvery:       2,
		CheckpointEvery: 2,
		MaxCheckpoints:  2,
		OutputHorizon:   1,
		Seed:            9,
	}
}

func testBundle() *dataset.Bundle {
	return &dataset.Bundle{
		Config:   dataset.Config{OutputSteps: 2},
		Topology: dataset.NewTopology(6, false),
	}
}

func newStudy(t *testing.T, database db.Database) *search.Study {
	study, err := search.CreateOrResume(context.Background(), database, "obj-test", db.DirectionMinimize, search.DefaultSpace(), search.NewSampler(2), search.NopPruner{})
	require.NoError(t, err)
	return study
}

func TestEvaluatorBuildsConfigFromProposal(t *testing.T) {
	database := db.NewDatabaseMock()
	study := newStudy(t, database)

	fs := afero.NewMemMapFs()
	evaluator := NewEvaluator(testBundle(), testFixedConfig(), "ckpt", "obj-test", fs)

	var seen *gnn.Config
	evaluator.train = func(_ context.Context, cfg *gnn.Config, _ *dataset.Bundle, workdir string, _ afero.Fs, _ gnn.Reporter) (*gnn.Result, error) {
		seen = cfg
		assert.Equal(t, "ckpt/obj-test/trial_0", workdir)
		return &gnn.Result{FinalMetrics: map[string]float64{"val_mse": 0.5}}, nil
	}

	require.NoError(t, study.Run(context.Background(), evaluator, 1))
	require.NotNil(t, seen)

	trial, err := database.Trials().GetTrial(context.Background(), study.Record().Id, 0)
	require.NoError(t, err)
	require.NotNil(t, trial.Value)
	assert.Equal(t, 0.5, *trial.Value)
	assert.Equal(t, db.TrialStateComplete, trial.State)

	params, err := search.UnmarshalParams(trial.Params)
	require.NoError(t, err)
	assert.Equal(t, params.Optimizer, seen.Optimizer)
	assert.Equal(t, params.EdgeWidth(), seen.EdgeWidth)
	assert.Equal(t, params.NodeWidth(), seen.NodeWidth)
	assert.Equal(t, testFixedConfig().Epochs, seen.Epochs)

	exists, err := afero.DirExists(fs, "ckpt/obj-test/trial_0")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMissingRetentionFailsTrialNotStudy(t *testing.T) {
	database := db.NewDatabaseMock()
	study := newStudy(t, database)

	fixed := testFixedConfig()
	fixed.MaxCheckpoints = 0
	broken := NewEvaluator(testBundle(), fixed, "ckpt", "obj-test", afero.NewMemMapFs())
	trained := 0
	broken.train = func(context.Context, *gnn.Config, *dataset.Bundle, string, afero.Fs, gnn.Reporter) (*gnn.Result, error) {
		trained++
		return &gnn.Result{FinalMetrics: map[string]float64{"val_mse": 1}}, nil
	}

	require.NoError(t, study.Run(context.Background(), broken, 3))
	assert.Zero(t, trained, "incomplete config must be caught before training starts")

	failed, err := database.Trials().ListTrialsByState(context.Background(), study.Record().Id, []db.TrialState{db.TrialStateFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 3, "remaining trial budget still executes")
	for _, trial := range failed {
		require.NotNil(t, trial.Failure)
		assert.Contains(t, *trial.Failure, "incomplete training config")
	}
}

func TestPrunedResultMapsToPrunedState(t *testing.T) {
	database := db.NewDatabaseMock()
	study := newStudy(t, database)

	evaluator := NewEvaluator(testBundle(), testFixedConfig(), "ckpt", "obj-test", afero.NewMemMapFs())
	evaluator.train = func(context.Context, *gnn.Config, *dataset.Bundle, string, afero.Fs, gnn.Reporter) (*gnn.Result, error) {
		return &gnn.Result{Pruned: true}, nil
	}

	require.NoError(t, study.Run(context.Background(), evaluator, 1))

	pruned, err := database.Trials().CountTrialsByState(context.Background(), study.Record().Id, []db.TrialState{db.TrialStatePruned})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
}
