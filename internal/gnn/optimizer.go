package gnn

import (
	"math"

	"github.com/pkg/errors"
)

// Optimizer updates a flat parameter vector in place from a gradient vector
// of the same length.
type Optimizer interface {
	Step(params, grads []float64)
}

func newOptimizer(cfg *Config, size int) (Optimizer, error) {
	switch cfg.Optimizer {
	case OptimizerAdam:
		return newAdam(cfg.LearningRate, size), nil
	case OptimizerSGD:
		return newSGD(cfg.LearningRate, *cfg.Momentum, size), nil
	default:
		return nil, errors.Errorf("unsupported optimizer: %s", cfg.Optimizer)
	}
}

type adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64

	t int
	m []float64
	v []float64
}

func newAdam(lr float64, size int) *adam {
	return &adam{
		lr:      lr,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-8,
		m:       make([]float64, size),
		v:       make([]float64, size),
	}
}

func (a *adam) Step(params, grads []float64) {
	a.t++
	correction1 := 1 - math.Pow(a.beta1, float64(a.t))
	correction2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i := range params {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*grads[i]
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*grads[i]*grads[i]
		mHat := a.m[i] / correction1
		vHat := a.v[i] / correction2
		params[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.epsilon)
	}
}

type sgd struct {
	lr       float64
	momentum float64
	velocity []float64
}

func newSGD(lr, momentum float64, size int) *sgd {
	return &sgd{
		lr:       lr,
		momentum: momentum,
		velocity: make([]float64, size),
	}
}

func (s *sgd) Step(params, grads []float64) {
	for i := range params {
		s.velocity[i] = s.momentum*s.velocity[i] + grads[i]
		params[i] -= s.lr * s.velocity[i]
	}
}
