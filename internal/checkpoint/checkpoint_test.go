package checkpoint

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Epoch  int       `json:"epoch"`
	Params []float64 `json:"params"`
}

func TestSaveAndLatest(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewStore(fs, "work/trial_0", 3)
	require.NoError(t, err)

	var restored testState
	_, ok, err := store.Latest(&restored)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(1, &testState{Epoch: 1, Params: []float64{0.5}}))
	require.NoError(t, store.Save(2, &testState{Epoch: 2, Params: []float64{0.25, 0.75}}))

	epoch, ok, err := store.Latest(&restored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, epoch)
	assert.Equal(t, []float64{0.25, 0.75}, restored.Params)
}

func TestRetentionPrunesOldest(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewStore(fs, "work", 2)
	require.NoError(t, err)

	for epoch := 1; epoch <= 5; epoch++ {
		require.NoError(t, store.Save(epoch, &testState{Epoch: epoch}))
	}

	epochs, err := store.epochs()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, epochs)
}

func TestInvalidRetention(t *testing.T) {
	_, err := NewStore(afero.NewMemMapFs(), "work", 0)
	assert.Error(t, err)
}
