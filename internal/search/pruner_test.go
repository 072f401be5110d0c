package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attractor-ml/l96tune/internal/db"
)

func seedCompletedTrial(t *testing.T, database *db.DatabaseMock, studyId int64, number int64, steps map[int64]float64) {
	ctx := context.Background()
	trial, err := database.Trials().CreateTrial(ctx, &db.Trial{
		StudyId: studyId,
		Number:  number,
		State:   db.TrialStateRunning,
	})
	require.NoError(t, err)
	for step, value := range steps {
		_, err := database.Observations().CreateObservation(ctx, &db.Observation{
			TrialId: trial.Id,
			Step:    step,
			Value:   value,
		})
		require.NoError(t, err)
	}
	final := steps[maxStep(steps)]
	require.NoError(t, database.Trials().FinishTrial(ctx, trial.Id, db.TrialStateComplete, &final, nil, time.Now()))
}

func maxStep(steps map[int64]float64) int64 {
	var max int64
	for step := range steps {
		if step > max {
			max = step
		}
	}
	return max
}

func TestMedianPrunerQuietDuringWarmup(t *testing.T) {
	database := db.NewDatabaseMock()
	study := &db.Study{Id: 1, Direction: db.DirectionMinimize}
	pruner := NewMedianPruner(database.Observations(), 2, 1)

	seedCompletedTrial(t, database, 1, 0, map[int64]float64{1: 0.1, 2: 0.1})

	prune, err := pruner.ShouldPrune(context.Background(), study, 99, 2, 100)
	require.NoError(t, err)
	assert.False(t, prune, "step within warmup must never prune")
}

func TestMedianPrunerNeedsPriorTrials(t *testing.T) {
	database := db.NewDatabaseMock()
	study := &db.Study{Id: 1, Direction: db.DirectionMinimize}
	pruner := NewMedianPruner(database.Observations(), 0, 3)

	seedCompletedTrial(t, database, 1, 0, map[int64]float64{5: 0.1})
	seedCompletedTrial(t, database, 1, 1, map[int64]float64{5: 0.2})

	prune, err := pruner.ShouldPrune(context.Background(), study, 99, 5, 100)
	require.NoError(t, err)
	assert.False(t, prune)
}

func TestMedianPrunerComparesAgainstMedian(t *testing.T) {
	database := db.NewDatabaseMock()
	study := &db.Study{Id: 1, Direction: db.DirectionMinimize}
	pruner := NewMedianPruner(database.Observations(), 0, 3)

	seedCompletedTrial(t, database, 1, 0, map[int64]float64{5: 0.1})
	seedCompletedTrial(t, database, 1, 1, map[int64]float64{5: 0.2})
	seedCompletedTrial(t, database, 1, 2, map[int64]float64{5: 0.3})

	prune, err := pruner.ShouldPrune(context.Background(), study, 99, 5, 0.25)
	require.NoError(t, err)
	assert.True(t, prune, "worse than median must prune")

	prune, err = pruner.ShouldPrune(context.Background(), study, 99, 5, 0.15)
	require.NoError(t, err)
	assert.False(t, prune, "better than median must survive")
}

func TestMedianPrunerRespectsDirection(t *testing.T) {
	database := db.NewDatabaseMock()
	study := &db.Study{Id: 1, Direction: db.DirectionMaximize}
	pruner := NewMedianPruner(database.Observations(), 0, 1)

	seedCompletedTrial(t, database, 1, 0, map[int64]float64{5: 0.5})

	prune, err := pruner.ShouldPrune(context.Background(), study, 99, 5, 0.4)
	require.NoError(t, err)
	assert.True(t, prune, "below median is pruned when maximizing")
}
