package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMomentumOnlyForSGD(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		params := NewSampler(seed).Sample(DefaultSpace())
		if params.Optimizer == "sgd" {
			require.NotNil(t, params.Momentum)
			assert.GreaterOrEqual(t, *params.Momentum, 0.0)
			assert.Less(t, *params.Momentum, 1.0)
		} else {
			assert.Nil(t, params.Momentum)
		}
	})
}

func TestSampledValuesInDomain(t *testing.T) {
	space := DefaultSpace()
	sampler := NewSampler(3)
	for i := 0; i < 200; i++ {
		params := sampler.Sample(space)
		assert.Contains(t, space.Optimizer.Choices, params.Optimizer)
		assert.Contains(t, space.Activation.Choices, params.Activation)
		assert.GreaterOrEqual(t, params.LearningRate, space.LearningRate.Low)
		assert.Less(t, params.LearningRate, space.LearningRate.High)
		assert.GreaterOrEqual(t, params.DropoutRate, 0.0)
		assert.LessOrEqual(t, params.DropoutRate, 0.6)
		assert.GreaterOrEqual(t, params.EdgeWidthExp, space.EdgeWidthExp.Low)
		assert.LessOrEqual(t, params.EdgeWidthExp, space.EdgeWidthExp.High)
	}
}

func TestSamplerDeterministic(t *testing.T) {
	a := NewSampler(11)
	b := NewSampler(11)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Sample(DefaultSpace()), b.Sample(DefaultSpace()))
	}
}

func TestWidthsArePowersOfTwo(t *testing.T) {
	params := &Params{EdgeWidthExp: 5, NodeWidthExp: 3}
	assert.Equal(t, 32, params.EdgeWidth())
	assert.Equal(t, 8, params.NodeWidth())
}

func TestParamsRoundTrip(t *testing.T) {
	params := NewSampler(7).Sample(DefaultSpace())
	encoded, err := params.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalParams(encoded)
	require.NoError(t, err)
	assert.Equal(t, params, decoded)
}
