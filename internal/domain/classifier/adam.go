package classifier

import "math"

// adam keeps first and second moment estimates shaped like the network.
type adam struct {
	lr   float64
	step int
	m, v []Layer
}

func newAdam(layers []Layer, lr float64) *adam {
	return &adam{lr: lr, m: zeroLike(layers), v: zeroLike(layers)}
}

// apply updates layers in place using grads averaged over n samples.
func (a *adam) apply(layers, grads []Layer, n int) {
	a.step++
	t := float64(a.step)
	lrT := a.lr * math.Sqrt(1-math.Pow(adamBeta2, t)) / (1 - math.Pow(adamBeta1, t))
	scale := 1 / float64(n)

	for i := range layers {
		update(layers[i].W, grads[i].W, a.m[i].W, a.v[i].W, scale, lrT)
		update(layers[i].B, grads[i].B, a.m[i].B, a.v[i].B, scale, lrT)
	}
}

func update(w, g, m, v []float64, scale, lrT float64) {
	for j := range w {
		gj := g[j] * scale
		m[j] = adamBeta1*m[j] + (1-adamBeta1)*gj
		v[j] = adamBeta2*v[j] + (1-adamBeta2)*gj*gj
		w[j] -= lrT * m[j] / (math.Sqrt(v[j]) + adamEpsilon)
	}
}
