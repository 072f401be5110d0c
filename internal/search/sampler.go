package search

import (
	"encoding/json"
	"math/rand"

	"github.com/pkg/errors"
)

// Params is one sampled trial proposal. It is stored on the trial row as
// JSON so a resumed study can show the exact configuration of past trials.
type Params struct {
	Optimizer    string   `json:"optimizer"`
	LearningRate float64  `json:"learning_rate"`
	Momentum     *float64 `json:"momentum,omitempty"`
	DropoutRate  float64  `json:"dropout_rate"`
	Activation   string   `json:"activation"`
	EdgeWidthExp int      `json:"edge_width_exp"`
	NodeWidthExp int      `json:"node_width_exp"`
}

// EdgeWidth maps the sampled exponent to the actual feature width.
func (p *Params) EdgeWidth() int {
	return 1 << p.EdgeWidthExp
}

func (p *Params) NodeWidth() int {
	return 1 << p.NodeWidthExp
}

func (p *Params) Marshal() (string, error) {
	out, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize trial params")
	}
	return string(out), nil
}

func UnmarshalParams(raw string) (*Params, error) {
	var p Params
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, errors.Wrap(err, "failed to parse trial params")
	}
	return &p, nil
}

// Sampler draws independent proposals from a Space. A fixed seed makes the
// proposal sequence reproducible.
type Sampler struct {
	rng *rand.Rand
}

func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample draws one proposal. Momentum is drawn if and only if the sampled
// optimizer is sgd.
func (s *Sampler) Sample(space *Space) *Params {
	p := &Params{
		Optimizer:    space.Optimizer.Sample(s.rng),
		LearningRate: space.LearningRate.Sample(s.rng),
		DropoutRate:  space.DropoutRate.Sample(s.rng),
		Activation:   space.Activation.Sample(s.rng),
		EdgeWidthExp: space.EdgeWidthExp.Sample(s.rng),
		NodeWidthExp: space.NodeWidthExp.Sample(s.rng),
	}
	if p.Optimizer == "sgd" {
		momentum := space.Momentum.Sample(s.rng)
		p.Momentum = &momentum
	}
	return p
}
