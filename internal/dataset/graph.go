package dataset

// Topology is the static graph structure shared by every sample in a bundle.
// Senders[i] -> Receivers[i] is edge i; EdgeFeatures is E x 1.
type Topology struct {
	K            int
	Senders      []int
	Receivers    []int
	EdgeFeatures [][]float64
}

// stencilOffsets are the ring neighbourhoods that appear in the Lorenz-96
// slow-variable tendency, plus the self edge.
var stencilOffsets = []int{-2, -1, 0, 1, 2}

// NewTopology builds the edge set: the coupling stencil by default (K*5
// edges), or all ordered pairs including self loops when fullyConnected.
func NewTopology(k int, fullyConnected bool) *Topology {
	topo := &Topology{K: k}

	if fullyConnected {
		for recv := 0; recv < k; recv++ {
			for send := 0; send < k; send++ {
				topo.addEdge(send, recv, float64(ringOffset(send, recv, k)))
			}
		}
		return topo
	}

	for recv := 0; recv < k; recv++ {
		for _, offset := range stencilOffsets {
			send := ((recv+offset)%k + k) % k
			topo.addEdge(send, recv, float64(offset))
		}
	}
	return topo
}

func (t *Topology) addEdge(send, recv int, feature float64) {
	t.Senders = append(t.Senders, send)
	t.Receivers = append(t.Receivers, recv)
	t.EdgeFeatures = append(t.EdgeFeatures, []float64{feature})
}

func (t *Topology) NumEdges() int {
	return len(t.Senders)
}

// ringOffset is the signed shortest distance from send to recv on the ring.
func ringOffset(send, recv, k int) int {
	d := ((send-recv)%k + k) % k
	if d > k/2 {
		d -= k
	}
	return d
}

// Graph is one recorded step: per-node features (K x 2) over the shared
// topology, with the forcing constant as the single global feature.
type Graph struct {
	Nodes   [][]float64
	Globals []float64
}

// Sample pairs an input window with its target window. Targets start
// OutputDelay recorded steps after the last input step.
type Sample struct {
	Inputs  []Graph
	Targets []Graph
}
