package search

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Categorical picks uniformly from a fixed set of choices.
type Categorical struct {
	Choices []string
}

func (c Categorical) Sample(rng *rand.Rand) string {
	return c.Choices[rng.Intn(len(c.Choices))]
}

// Uniform samples a float in [Low, High).
type Uniform struct {
	Low  float64
	High float64
}

func (u Uniform) Sample(rng *rand.Rand) float64 {
	return u.Low + rng.Float64()*(u.High-u.Low)
}

// LogUniform samples log-uniformly in [Low, High), for scale parameters like
// learning rates.
type LogUniform struct {
	Low  float64
	High float64
}

func (u LogUniform) Sample(rng *rand.Rand) float64 {
	lo := math.Log(u.Low)
	hi := math.Log(u.High)
	return math.Exp(lo + rng.Float64()*(hi-lo))
}

// IntRange samples an integer in [Low, High] inclusive.
type IntRange struct {
	Low  int
	High int
}

func (r IntRange) Sample(rng *rand.Rand) int {
	return r.Low + rng.Intn(r.High-r.Low+1)
}

// Space declares the domain of every tunable hyperparameter. Momentum is
// conditional: it is only drawn when the sampled optimizer is sgd.
type Space struct {
	Optimizer    Categorical
	LearningRate LogUniform
	Momentum     Uniform
	DropoutRate  Uniform
	Activation   Categorical
	// Feature widths are sampled as exponents and mapped through 2^n.
	EdgeWidthExp IntRange
	NodeWidthExp IntRange
}

func DefaultSpace() *Space {
	return &Space{
		Optimizer:    Categorical{Choices: []string{"adam", "sgd"}},
		LearningRate: LogUniform{Low: 1e-5, High: 1e-1},
		Momentum:     Uniform{Low: 0, High: 1},
		DropoutRate:  Uniform{Low: 0, High: 0.6},
		Activation:   Categorical{Choices: []string{"relu", "elu", "leaky_relu"}},
		EdgeWidthExp: IntRange{Low: 3, High: 7},
		NodeWidthExp: IntRange{Low: 3, High: 7},
	}
}

func (s *Space) Validate() error {
	if len(s.Optimizer.Choices) == 0 {
		return errors.New("optimizer choices must not be empty")
	}
	if len(s.Activation.Choices) == 0 {
		return errors.New("activation choices must not be empty")
	}
	if s.LearningRate.Low <= 0 || s.LearningRate.High <= s.LearningRate.Low {
		return errors.Errorf("learning rate range (%g, %g) is not a valid log-uniform domain", s.LearningRate.Low, s.LearningRate.High)
	}
	if s.Momentum.High <= s.Momentum.Low {
		return errors.Errorf("momentum range (%g, %g) is empty", s.Momentum.Low, s.Momentum.High)
	}
	if s.DropoutRate.High <= s.DropoutRate.Low {
		return errors.Errorf("dropout range (%g, %g) is empty", s.DropoutRate.Low, s.DropoutRate.High)
	}
	if s.EdgeWidthExp.High < s.EdgeWidthExp.Low || s.EdgeWidthExp.Low < 1 {
		return errors.Errorf("edge width exponent range [%d, %d] is invalid", s.EdgeWidthExp.Low, s.EdgeWidthExp.High)
	}
	if s.NodeWidthExp.High < s.NodeWidthExp.Low || s.NodeWidthExp.Low < 1 {
		return errors.Errorf("node width exponent range [%d, %d] is invalid", s.NodeWidthExp.Low, s.NodeWidthExp.High)
	}
	return nil
}
