package gnn

// average keeps a running mean without holding individual values.
type average struct {
	sum   float64
	count int
}

func (a *average) add(v float64) {
	a.sum += v
	a.count++
}

func (a *average) value() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

func (a *average) reset() {
	a.sum = 0
	a.count = 0
}
