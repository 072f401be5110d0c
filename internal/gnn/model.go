package gnn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/attractor-ml/l96tune/internal/dataset"
)

const (
	nodeInDim   = 2
	edgeInDim   = 1
	globalInDim = 1
	nodeOutDim  = 2
)

// Model is a single message-passing block over the Lorenz-96 graph: an edge
// MLP computes messages from sender, receiver and edge features, messages are
// mean-aggregated per receiver, and a node MLP maps the aggregate back to
// node space. All parameters live in one flat slice so optimizers can treat
// them uniformly.
type Model struct {
	topo *dataset.Topology
	act  *activation

	edgeWidth int
	nodeWidth int

	params []float64
	grads  []float64

	// views into params
	w1, b1 []float64
	w2, b2 []float64
	w3, b3 []float64

	// views into grads, same layout
	gw1, gb1 []float64
	gw2, gb2 []float64
	gw3, gb3 []float64

	inDegree []float64
}

func edgeInputDim() int { return 2*nodeInDim + edgeInDim }

func nodeInputDim(edgeWidth int) int {
	return nodeInDim + edgeWidth + globalInDim
}

func paramCount(edgeWidth, nodeWidth int) int {
	return edgeWidth*edgeInputDim() + edgeWidth +
		nodeWidth*nodeInputDim(edgeWidth) + nodeWidth +
		nodeOutDim*nodeWidth + nodeOutDim
}

func NewModel(cfg *Config, topo *dataset.Topology, rng *rand.Rand) (*Model, error) {
	act, err := newActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}

	m := &Model{
		topo:      topo,
		act:       act,
		edgeWidth: cfg.EdgeWidth,
		nodeWidth: cfg.NodeWidth,
		params:    make([]float64, paramCount(cfg.EdgeWidth, cfg.NodeWidth)),
		grads:     make([]float64, paramCount(cfg.EdgeWidth, cfg.NodeWidth)),
	}
	m.sliceViews()
	m.initialize(rng)

	m.inDegree = make([]float64, topo.K)
	for _, recv := range topo.Receivers {
		m.inDegree[recv]++
	}
	return m, nil
}

func (m *Model) sliceViews() {
	offset := 0
	cut := func(n int) (p, g []float64) {
		p = m.params[offset : offset+n]
		g = m.grads[offset : offset+n]
		offset += n
		return p, g
	}

	m.w1, m.gw1 = cut(m.edgeWidth * edgeInputDim())
	m.b1, m.gb1 = cut(m.edgeWidth)
	m.w2, m.gw2 = cut(m.nodeWidth * nodeInputDim(m.edgeWidth))
	m.b2, m.gb2 = cut(m.nodeWidth)
	m.w3, m.gw3 = cut(nodeOutDim * m.nodeWidth)
	m.b3, m.gb3 = cut(nodeOutDim)
}

// initialize uses He-style scaling on the weight matrices; biases start at
// zero.
func (m *Model) initialize(rng *rand.Rand) {
	initMatrix := func(w []float64, fanIn int) {
		scale := math.Sqrt(2.0 / float64(fanIn))
		for i := range w {
			w[i] = rng.NormFloat64() * scale
		}
	}
	initMatrix(m.w1, edgeInputDim())
	initMatrix(m.w2, nodeInputDim(m.edgeWidth))
	initMatrix(m.w3, m.nodeWidth)
}

// Params exposes the flat parameter vector for optimizers and checkpoints.
func (m *Model) Params() []float64 {
	return m.params
}

// SetParams restores a checkpointed parameter vector.
func (m *Model) SetParams(params []float64) bool {
	if len(params) != len(m.params) {
		return false
	}
	copy(m.params, params)
	return true
}

// forwardCache keeps every intermediate needed by Backward.
type forwardCache struct {
	nodes [][]float64

	edgeInputs [][]float64
	edgePre    [][]float64
	edgeOut    [][]float64

	aggregates [][]float64
	nodeInputs [][]float64
	nodePre    [][]float64
	nodeHidden [][]float64

	dropoutMask [][]float64

	outputs [][]float64
}

// Forward runs one message-passing step. When dropRate > 0 and rng is
// non-nil, inverted dropout is applied to the node hidden layer.
func (m *Model) Forward(g dataset.Graph, dropRate float64, rng *rand.Rand) *forwardCache {
	topo := m.topo
	cache := &forwardCache{nodes: g.Nodes}

	edgeIn := edgeInputDim()
	cache.edgeInputs = make([][]float64, topo.NumEdges())
	cache.edgePre = make([][]float64, topo.NumEdges())
	cache.edgeOut = make([][]float64, topo.NumEdges())
	for e := 0; e < topo.NumEdges(); e++ {
		input := make([]float64, 0, edgeIn)
		input = append(input, g.Nodes[topo.Senders[e]]...)
		input = append(input, g.Nodes[topo.Receivers[e]]...)
		input = append(input, topo.EdgeFeatures[e]...)
		cache.edgeInputs[e] = input

		pre := make([]float64, m.edgeWidth)
		out := make([]float64, m.edgeWidth)
		for i := 0; i < m.edgeWidth; i++ {
			row := m.w1[i*edgeIn : (i+1)*edgeIn]
			pre[i] = floats.Dot(row, input) + m.b1[i]
			out[i] = m.act.apply(pre[i])
		}
		cache.edgePre[e] = pre
		cache.edgeOut[e] = out
	}

	cache.aggregates = make([][]float64, topo.K)
	for k := 0; k < topo.K; k++ {
		cache.aggregates[k] = make([]float64, m.edgeWidth)
	}
	for e := 0; e < topo.NumEdges(); e++ {
		recv := topo.Receivers[e]
		floats.AddScaled(cache.aggregates[recv], 1/m.inDegree[recv], cache.edgeOut[e])
	}

	nodeIn := nodeInputDim(m.edgeWidth)
	cache.nodeInputs = make([][]float64, topo.K)
	cache.nodePre = make([][]float64, topo.K)
	cache.nodeHidden = make([][]float64, topo.K)
	cache.outputs = make([][]float64, topo.K)
	if dropRate > 0 && rng != nil {
		cache.dropoutMask = make([][]float64, topo.K)
	}
	for k := 0; k < topo.K; k++ {
		input := make([]float64, 0, nodeIn)
		input = append(input, g.Nodes[k]...)
		input = append(input, cache.aggregates[k]...)
		input = append(input, g.Globals...)
		cache.nodeInputs[k] = input

		pre := make([]float64, m.nodeWidth)
		hidden := make([]float64, m.nodeWidth)
		for i := 0; i < m.nodeWidth; i++ {
			row := m.w2[i*nodeIn : (i+1)*nodeIn]
			pre[i] = floats.Dot(row, input) + m.b2[i]
			hidden[i] = m.act.apply(pre[i])
		}
		cache.nodePre[k] = pre

		if cache.dropoutMask != nil {
			mask := make([]float64, m.nodeWidth)
			keep := 1 - dropRate
			for i := range mask {
				if rng.Float64() < keep {
					mask[i] = 1 / keep
				}
			}
			cache.dropoutMask[k] = mask
			for i := range hidden {
				hidden[i] *= mask[i]
			}
		}
		cache.nodeHidden[k] = hidden

		out := make([]float64, nodeOutDim)
		for i := 0; i < nodeOutDim; i++ {
			row := m.w3[i*m.nodeWidth : (i+1)*m.nodeWidth]
			out[i] = floats.Dot(row, hidden) + m.b3[i]
		}
		cache.outputs[k] = out
	}

	return cache
}

// Loss is the mean squared error on the slow-variable channel, matching the
// objective the search minimizes.
func Loss(outputs [][]float64, targets [][]float64) float64 {
	var sum float64
	for k := range outputs {
		diff := outputs[k][0] - targets[k][0]
		sum += diff * diff
	}
	return sum / float64(len(outputs))
}

// Backward accumulates parameter gradients for the MSE loss against targets.
// Gradients are zeroed first, so one Backward call per optimizer step.
func (m *Model) Backward(cache *forwardCache, targets [][]float64) {
	for i := range m.grads {
		m.grads[i] = 0
	}

	topo := m.topo
	nodeIn := nodeInputDim(m.edgeWidth)
	edgeIn := edgeInputDim()

	dAggregates := make([][]float64, topo.K)

	for k := 0; k < topo.K; k++ {
		dOut := make([]float64, nodeOutDim)
		dOut[0] = 2 * (cache.outputs[k][0] - targets[k][0]) / float64(topo.K)

		dHidden := make([]float64, m.nodeWidth)
		for i := 0; i < nodeOutDim; i++ {
			row := m.w3[i*m.nodeWidth : (i+1)*m.nodeWidth]
			gRow := m.gw3[i*m.nodeWidth : (i+1)*m.nodeWidth]
			floats.AddScaled(gRow, dOut[i], cache.nodeHidden[k])
			m.gb3[i] += dOut[i]
			floats.AddScaled(dHidden, dOut[i], row)
		}

		if cache.dropoutMask != nil {
			for i := range dHidden {
				dHidden[i] *= cache.dropoutMask[k][i]
			}
		}

		dInput := make([]float64, nodeIn)
		for i := 0; i < m.nodeWidth; i++ {
			dPre := dHidden[i] * m.act.grad(cache.nodePre[k][i])
			gRow := m.gw2[i*nodeIn : (i+1)*nodeIn]
			floats.AddScaled(gRow, dPre, cache.nodeInputs[k])
			m.gb2[i] += dPre
			row := m.w2[i*nodeIn : (i+1)*nodeIn]
			floats.AddScaled(dInput, dPre, row)
		}

		dAggregates[k] = dInput[nodeInDim : nodeInDim+m.edgeWidth]
	}

	for e := 0; e < topo.NumEdges(); e++ {
		recv := topo.Receivers[e]
		scale := 1 / m.inDegree[recv]
		for i := 0; i < m.edgeWidth; i++ {
			dPre := scale * dAggregates[recv][i] * m.act.grad(cache.edgePre[e][i])
			if dPre == 0 {
				continue
			}
			gRow := m.gw1[i*edgeIn : (i+1)*edgeIn]
			floats.AddScaled(gRow, dPre, cache.edgeInputs[e])
			m.gb1[i] += dPre
		}
	}
}

// Grads exposes the flat gradient vector accumulated by Backward.
func (m *Model) Grads() []float64 {
	return m.grads
}
