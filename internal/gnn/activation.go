package gnn

import (
	"math"

	"github.com/pkg/errors"
)

const leakySlope = 0.01

type activation struct {
	apply func(float64) float64
	grad  func(pre float64) float64
}

func newActivation(name string) (*activation, error) {
	switch name {
	case ActivationRelu:
		return &activation{
			apply: func(x float64) float64 {
				if x > 0 {
					return x
				}
				return 0
			},
			grad: func(pre float64) float64 {
				if pre > 0 {
					return 1
				}
				return 0
			},
		}, nil
	case ActivationElu:
		return &activation{
			apply: func(x float64) float64 {
				if x > 0 {
					return x
				}
				return math.Exp(x) - 1
			},
			grad: func(pre float64) float64 {
				if pre > 0 {
					return 1
				}
				return math.Exp(pre)
			},
		}, nil
	case ActivationLeakyRelu:
		return &activation{
			apply: func(x float64) float64 {
				if x > 0 {
					return x
				}
				return leakySlope * x
			},
			grad: func(pre float64) float64 {
				if pre > 0 {
					return 1
				}
				return leakySlope
			},
		}, nil
	default:
		return nil, errors.Errorf("unsupported activation: %s", name)
	}
}
