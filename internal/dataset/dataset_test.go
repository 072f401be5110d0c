package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func smallConfig() *Config {
	return &Config{
		NSamples:          6,
		InputSteps:        1,
		OutputSteps:       2,
		OutputDelay:       1,
		Timestep:          0.005,
		TimeResolution:    2,
		InitBufferSamples: 3,
		TrainPct:          0.5,
		ValPct:            0.25,
		TestPct:           0.25,
		K:                 8,
		F:                 8,
		C:                 10,
		B:                 10,
		H:                 1,
		Seed:              7,
		Normalize:         true,
	}
}

func TestBuildDeterministic(t *testing.T) {
	cfg := smallConfig()

	first, err := Build(cfg)
	require.NoError(t, err)
	second, err := Build(cfg)
	require.NoError(t, err)

	assert.Equal(t, first.Norm, second.Norm)
	assert.Equal(t, first.Topology, second.Topology)
	for _, name := range SplitNames {
		assert.Equal(t, first.Splits[name], second.Splits[name], "split %s differs between builds", name)
	}
}

func TestBuildDifferentSeedsDiffer(t *testing.T) {
	cfg := smallConfig()
	first, err := Build(cfg)
	require.NoError(t, err)

	cfg.Seed = 8
	second, err := Build(cfg)
	require.NoError(t, err)

	assert.NotEqual(t,
		first.Splits[SplitTrain].Samples[0].Inputs[0].Nodes,
		second.Splits[SplitTrain].Samples[0].Inputs[0].Nodes)
}

func TestSplitFractionsMustSumToOne(t *testing.T) {
	cfg := smallConfig()
	cfg.TrainPct = 0.5
	cfg.ValPct = 0.5
	cfg.TestPct = 0.5

	_, err := Build(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")
}

func TestEmptyTrainSplitRejected(t *testing.T) {
	cfg := smallConfig()
	cfg.NSamples = 4
	cfg.TrainPct = 0.1
	cfg.ValPct = 0.45
	cfg.TestPct = 0.45

	_, err := Build(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train split is empty")
}

func TestSampleBufferTooNegative(t *testing.T) {
	cfg := smallConfig()
	cfg.SampleBuffer = -cfg.InputSteps

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample_buffer")
}

func TestNegativeSampleBufferOverlapsSamples(t *testing.T) {
	cfg := smallConfig()
	cfg.InputSteps = 2
	cfg.SampleBuffer = -1
	cfg.Normalize = false

	bundle, err := Build(cfg)
	require.NoError(t, err)

	train := bundle.Splits[SplitTrain].Samples
	require.GreaterOrEqual(t, len(train), 2)
	// With stride 1, the second input step of one sample is the first input
	// step of the next.
	assert.Equal(t, train[0].Inputs[1].Nodes, train[1].Inputs[0].Nodes)
}

func TestObservedTensorShapes(t *testing.T) {
	cfg := smallConfig()
	cfg.K = 36
	cfg.InputSteps = 1
	cfg.OutputDelay = 8
	cfg.OutputSteps = 4
	cfg.TimeResolution = 120
	cfg.FullyConnectedEdges = false

	bundle, err := Build(cfg)
	require.NoError(t, err)

	sample := bundle.Splits[SplitTrain].Samples[0]
	require.Len(t, sample.Inputs, 1)
	assert.Len(t, sample.Inputs[0].Nodes, 36)
	assert.Len(t, sample.Inputs[0].Nodes[0], 2)
	require.Len(t, sample.Targets, 4)

	assert.Equal(t, 180, bundle.Topology.NumEdges())
	assert.Len(t, bundle.Topology.EdgeFeatures[0], 1)
}

func TestFullyConnectedTopology(t *testing.T) {
	topo := NewTopology(6, true)
	assert.Equal(t, 36, topo.NumEdges())
}

func TestStencilTopologyReceivers(t *testing.T) {
	topo := NewTopology(8, false)
	assert.Equal(t, 8*len(stencilOffsets), topo.NumEdges())

	counts := make(map[int]int)
	for _, recv := range topo.Receivers {
		counts[recv]++
	}
	for node, count := range counts {
		assert.Equal(t, len(stencilOffsets), count, "node %d has wrong in-degree", node)
	}
}

func TestSplitSizesCoverAllSamples(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := smallConfig()
		cfg.NSamples = rapid.IntRange(4, 24).Draw(rt, "nSamples")
		cfg.Seed = rapid.Int64().Draw(rt, "seed")
		cfg.Normalize = false

		bundle, err := Build(cfg)
		if err != nil {
			rt.Fatalf("build failed: %v", err)
		}

		total := 0
		for _, name := range SplitNames {
			total += len(bundle.Splits[name].Samples)
		}
		if total != cfg.NSamples {
			rt.Fatalf("splits cover %d samples, want %d", total, cfg.NSamples)
		}
	})
}

func TestNormalizationRoundTrip(t *testing.T) {
	cfg := smallConfig()
	bundle, err := Build(cfg)
	require.NoError(t, err)
	require.NotNil(t, bundle.Norm)

	value := bundle.Splits[SplitTrain].Samples[0].Inputs[0].Nodes[0][0]
	raw := bundle.Norm.Denormalize(0, value)
	renorm := (raw - bundle.Norm.Mean[0]) / bundle.Norm.Std[0]
	assert.InDelta(t, value, renorm, 1e-12)
}
