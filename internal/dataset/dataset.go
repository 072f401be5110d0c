package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

const (
	SplitTrain = "train"
	SplitVal   = "val"
	SplitTest  = "test"
)

var SplitNames = []string{SplitTrain, SplitVal, SplitTest}

type Split struct {
	Samples []Sample
}

// Bundle is the dataset shared read-only across every trial of a study.
type Bundle struct {
	Config   Config
	Topology *Topology
	Splits   map[string]*Split
	Norm     *Normalization
}

// Build simulates the system once and assembles the split samples. The result
// depends only on cfg, including the seed.
func Build(cfg *Config) (*Bundle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid dataset config")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	s := initialState(cfg, rng)

	// Discard the initial transient before recording anything.
	for i := 0; i < cfg.InitBufferSamples; i++ {
		advance(cfg, s)
	}

	stride := cfg.SampleStride()
	window := cfg.WindowSteps()
	totalSteps := (cfg.NSamples-1)*stride + window

	log.Printf("simulating %d recorded steps for %d samples (K=%d)", totalSteps, cfg.NSamples, cfg.K)

	steps := make([][][]float64, totalSteps)
	for i := 0; i < totalSteps; i++ {
		steps[i] = nodeFeatures(s)
		advance(cfg, s)
	}

	nTrain := cfg.TrainSamples()
	nVal := int(math.Round(cfg.ValPct * float64(cfg.NSamples)))
	if nTrain+nVal > cfg.NSamples {
		nVal = cfg.NSamples - nTrain
	}

	var norm *Normalization
	if cfg.Normalize {
		// Fit on the steps the train split can see, then normalize every
		// recorded step exactly once. Overlapping samples share step slices,
		// so normalization must happen before the windows are cut. Validate
		// guarantees the train split is non-empty.
		trainSteps := (nTrain-1)*stride + window
		norm = fitNormalization(steps[:trainSteps])
		norm.apply(steps)
	}

	topo := NewTopology(cfg.K, cfg.FullyConnectedEdges)
	globals := []float64{cfg.F}

	samples := make([]Sample, cfg.NSamples)
	for n := 0; n < cfg.NSamples; n++ {
		start := n * stride
		sample := Sample{}
		for i := 0; i < cfg.InputSteps; i++ {
			sample.Inputs = append(sample.Inputs, Graph{Nodes: steps[start+i], Globals: globals})
		}
		targetStart := start + cfg.InputSteps + cfg.OutputDelay
		for i := 0; i < cfg.OutputSteps; i++ {
			sample.Targets = append(sample.Targets, Graph{Nodes: steps[targetStart+i], Globals: globals})
		}
		samples[n] = sample
	}

	// Chronological split: train on the past, validate and test on the future.
	return &Bundle{
		Config:   *cfg,
		Topology: topo,
		Norm:     norm,
		Splits: map[string]*Split{
			SplitTrain: {Samples: samples[:nTrain]},
			SplitVal:   {Samples: samples[nTrain : nTrain+nVal]},
			SplitTest:  {Samples: samples[nTrain+nVal:]},
		},
	}, nil
}

// Normalization holds per-channel statistics fitted on the train split.
type Normalization struct {
	Mean []float64
	Std  []float64
}

func fitNormalization(steps [][][]float64) *Normalization {
	if len(steps) == 0 {
		return &Normalization{Mean: []float64{0, 0}, Std: []float64{1, 1}}
	}

	channels := len(steps[0][0])
	norm := &Normalization{
		Mean: make([]float64, channels),
		Std:  make([]float64, channels),
	}

	for c := 0; c < channels; c++ {
		var values []float64
		for _, step := range steps {
			for _, node := range step {
				values = append(values, node[c])
			}
		}
		mean, std := stat.MeanStdDev(values, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		norm.Mean[c] = mean
		norm.Std[c] = std
	}
	return norm
}

func (n *Normalization) apply(steps [][][]float64) {
	for _, step := range steps {
		for _, node := range step {
			for c := range node {
				node[c] = (node[c] - n.Mean[c]) / n.Std[c]
			}
		}
	}
}

// Denormalize maps a normalized channel value back to physical units.
func (n *Normalization) Denormalize(channel int, value float64) float64 {
	return value*n.Std[channel] + n.Mean[channel]
}
