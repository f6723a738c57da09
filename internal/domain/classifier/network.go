package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// probClip keeps log terms of the loss finite.
const probClip = 1e-7

// Layer is a dense layer. W is row-major with Out rows of In weights.
type Layer struct {
	In  int       `json:"in"`
	Out int       `json:"out"`
	W   []float64 `json:"w"`
	B   []float64 `json:"b"`
}

func (l *Layer) row(o int) []float64 { return l.W[o*l.In : (o+1)*l.In] }

// newLayer uses Glorot-uniform weights and zero biases.
func newLayer(in, out int, rng *rand.Rand) Layer {
	l := Layer{In: in, Out: out, W: make([]float64, in*out), B: make([]float64, out)}
	limit := math.Sqrt(6 / float64(in+out))
	for i := range l.W {
		l.W[i] = (rng.Float64()*2 - 1) * limit
	}
	return l
}

func buildLayers(in int, hidden []int, rng *rand.Rand) []Layer {
	layers := make([]Layer, 0, len(hidden)+1)
	prev := in
	for _, h := range hidden {
		layers = append(layers, newLayer(prev, h, rng))
		prev = h
	}
	return append(layers, newLayer(prev, 1, rng))
}

// forward fills acts[i+1] from acts[i] for every layer. acts[0] is the input.
// Hidden layers use ReLU, the output layer a sigmoid.
func forward(layers []Layer, acts [][]float64) float64 {
	last := len(layers) - 1
	for i := range layers {
		l := &layers[i]
		in, out := acts[i], acts[i+1]
		for o := 0; o < l.Out; o++ {
			z := floats.Dot(l.row(o), in) + l.B[o]
			if i == last {
				out[o] = sigmoid(z)
			} else {
				out[o] = math.Max(0, z)
			}
		}
	}
	return acts[len(layers)][0]
}

// workspace holds per-sample buffers reused across a pass.
type workspace struct {
	acts   [][]float64
	deltas [][]float64
}

func newWorkspace(layers []Layer) *workspace {
	ws := &workspace{
		acts:   make([][]float64, len(layers)+1),
		deltas: make([][]float64, len(layers)),
	}
	for i, l := range layers {
		ws.acts[i+1] = make([]float64, l.Out)
		ws.deltas[i] = make([]float64, l.Out)
	}
	return ws
}

// predict runs a forward pass for x.
func (ws *workspace) predict(layers []Layer, x []float64) float64 {
	ws.acts[0] = x
	return forward(layers, ws.acts)
}

// backward accumulates the gradient of the BCE loss for one sample with
// label y into grads. It must follow predict on the same input.
func (ws *workspace) backward(layers []Layer, grads []Layer, y float64) {
	last := len(layers) - 1
	ws.deltas[last][0] = ws.acts[last+1][0] - y

	for i := last; i >= 0; i-- {
		l, g := &layers[i], &grads[i]
		delta, in := ws.deltas[i], ws.acts[i]
		for o := 0; o < l.Out; o++ {
			if delta[o] == 0 {
				continue
			}
			floats.AddScaled(g.row(o), delta[o], in)
			g.B[o] += delta[o]
		}
		if i == 0 {
			break
		}
		prev := ws.deltas[i-1]
		for j := range prev {
			prev[j] = 0
		}
		for o := 0; o < l.Out; o++ {
			if delta[o] != 0 {
				floats.AddScaled(prev, delta[o], l.row(o))
			}
		}
		for j, a := range in {
			if a <= 0 {
				prev[j] = 0
			}
		}
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func bce(p, y float64) float64 {
	p = math.Min(math.Max(p, probClip), 1-probClip)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

func zeroLike(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = Layer{In: l.In, Out: l.Out, W: make([]float64, len(l.W)), B: make([]float64, len(l.B))}
	}
	return out
}

func resetLayers(layers []Layer) {
	for i := range layers {
		clear(layers[i].W)
		clear(layers[i].B)
	}
}

func cloneLayers(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = Layer{In: l.In, Out: l.Out, W: append([]float64(nil), l.W...), B: append([]float64(nil), l.B...)}
	}
	return out
}
