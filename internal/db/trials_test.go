package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGeneratedStatesAreTerminal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := TrialStateGenerator().Draw(t, "state")
		assert.True(t, state.Terminal())
		assert.Contains(t, TerminalTrialStates, state)
	})
}

func TestRunningIsNotTerminal(t *testing.T) {
	assert.False(t, TrialStateRunning.Terminal())
	assert.NotContains(t, TerminalTrialStates, TrialStateRunning)
}

func TestCountsPartitionTerminalTrials(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		database := NewDatabaseMock()

		count := rapid.IntRange(0, 20).Draw(t, "count")
		seen := map[int64]bool{}
		created := 0
		for i := 0; i < count; i++ {
			trial := TrialGenerator(1).Draw(t, "trial")
			if seen[trial.Number] {
				continue
			}
			seen[trial.Number] = true

			stored, err := database.Trials().CreateTrial(ctx, trial)
			require.NoError(t, err)
			require.NoError(t, database.Trials().FinishTrial(ctx, stored.Id, trial.State, trial.Value, trial.Failure, time.Now()))
			created++
		}

		total, err := database.Trials().CountTrialsByState(ctx, 1, TerminalTrialStates)
		require.NoError(t, err)
		assert.Equal(t, int64(created), total)

		var sum int64
		for _, state := range TerminalTrialStates {
			n, err := database.Trials().CountTrialsByState(ctx, 1, []TrialState{state})
			require.NoError(t, err)
			sum += n
		}
		assert.Equal(t, total, sum)
	})
}
