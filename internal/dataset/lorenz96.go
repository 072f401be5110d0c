package dataset

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// fastPerSlow is the number of fast Y variables coupled to each slow X
// variable in the two-tier system.
const fastPerSlow = 10

// state holds one instant of the two-tier Lorenz-96 system: K slow variables
// and K*fastPerSlow fast variables, Y stored row-major by slow index.
type state struct {
	X []float64
	Y []float64
}

func newState(k int) *state {
	return &state{
		X: make([]float64, k),
		Y: make([]float64, k*fastPerSlow),
	}
}

// initialState perturbs a rest state around F with small noise so that runs
// with the same seed are bit-identical.
func initialState(cfg *Config, rng *rand.Rand) *state {
	s := newState(cfg.K)
	for k := range s.X {
		s.X[k] = cfg.F * (0.5 + 0.1*rng.NormFloat64())
	}
	for j := range s.Y {
		s.Y[j] = 0.1 * rng.NormFloat64()
	}
	return s
}

// derivative evaluates the two-tier Lorenz-96 tendency:
//
//	dX_k/dt = X_{k-1} (X_{k+1} - X_{k-2}) - X_k + F - (h c / b) sum_j Y_{j,k}
//	dY_{j,k}/dt = -c b Y_{j+1,k} (Y_{j+2,k} - Y_{j-1,k}) - c Y_{j,k} + (h c / b) X_k
//
// with both index dimensions periodic.
func derivative(cfg *Config, s *state, out *state) {
	k := cfg.K
	coupling := cfg.H * cfg.C / cfg.B

	for i := 0; i < k; i++ {
		ySum := floats.Sum(s.Y[i*fastPerSlow : (i+1)*fastPerSlow])
		out.X[i] = s.X[(i-1+k)%k]*(s.X[(i+1)%k]-s.X[(i-2+k)%k]) - s.X[i] + cfg.F - coupling*ySum
	}

	n := k * fastPerSlow
	for j := 0; j < n; j++ {
		slow := j / fastPerSlow
		out.Y[j] = -cfg.C*cfg.B*s.Y[(j+1)%n]*(s.Y[(j+2)%n]-s.Y[(j-1+n)%n]) - cfg.C*s.Y[j] + coupling*s.X[slow]
	}
}

// rk4Step advances the state in place by dt using classic Runge-Kutta.
func rk4Step(cfg *Config, s *state, dt float64) {
	k1 := newState(cfg.K)
	k2 := newState(cfg.K)
	k3 := newState(cfg.K)
	k4 := newState(cfg.K)
	tmp := newState(cfg.K)

	derivative(cfg, s, k1)

	addScaled(tmp, s, k1, dt/2)
	derivative(cfg, tmp, k2)

	addScaled(tmp, s, k2, dt/2)
	derivative(cfg, tmp, k3)

	addScaled(tmp, s, k3, dt)
	derivative(cfg, tmp, k4)

	for i := range s.X {
		s.X[i] += dt / 6 * (k1.X[i] + 2*k2.X[i] + 2*k3.X[i] + k4.X[i])
	}
	for j := range s.Y {
		s.Y[j] += dt / 6 * (k1.Y[j] + 2*k2.Y[j] + 2*k3.Y[j] + k4.Y[j])
	}
}

func addScaled(dst, base, delta *state, scale float64) {
	copy(dst.X, base.X)
	copy(dst.Y, base.Y)
	floats.AddScaled(dst.X, scale, delta.X)
	floats.AddScaled(dst.Y, scale, delta.Y)
}

// advance integrates the state forward by one recorded step, i.e.
// TimeResolution RK4 substeps of size Timestep/TimeResolution.
func advance(cfg *Config, s *state) {
	dt := cfg.Timestep / float64(cfg.TimeResolution)
	for i := 0; i < cfg.TimeResolution; i++ {
		rk4Step(cfg, s, dt)
	}
}

// nodeFeatures projects a state onto per-node features: the slow variable and
// the mean of its coupled fast variables.
func nodeFeatures(s *state) [][]float64 {
	k := len(s.X)
	features := make([][]float64, k)
	for i := 0; i < k; i++ {
		yMean := stat.Mean(s.Y[i*fastPerSlow:(i+1)*fastPerSlow], nil)
		features[i] = []float64{s.X[i], yMean}
	}
	return features
}
