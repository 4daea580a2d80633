package forecasting

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// mlp is a single-hidden-layer tanh network trained on mean squared error.
type mlp struct {
	w1 *mat.Dense // inputs x hidden
	b1 []float64
	w2 *mat.Dense // hidden x outputs
	b2 []float64
}

func newMLP(inputs, hidden, outputs int, rng *rand.Rand) *mlp {
	return &mlp{
		w1: xavier(inputs, hidden, rng),
		b1: make([]float64, hidden),
		w2: xavier(hidden, outputs, rng),
		b2: make([]float64, outputs),
	}
}

func xavier(rows, cols int, rng *rand.Rand) *mat.Dense {
	limit := math.Sqrt(6 / float64(rows+cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (2*rng.Float64() - 1) * limit
	}
	return mat.NewDense(rows, cols, data)
}

// forward returns the hidden activations and the outputs for every row of x.
func (n *mlp) forward(x mat.Matrix) (*mat.Dense, *mat.Dense) {
	rows, _ := x.Dims()
	_, hidden := n.w1.Dims()
	_, outputs := n.w2.Dims()

	h := mat.NewDense(rows, hidden, nil)
	h.Mul(x, n.w1)
	addBias(h, n.b1)
	h.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, h)

	y := mat.NewDense(rows, outputs, nil)
	y.Mul(h, n.w2)
	addBias(y, n.b2)
	return h, y
}

// train runs cfg.Epochs passes of shuffled mini-batch Adam and returns the
// last epoch's mean loss.
func (n *mlp) train(x, t *mat.Dense, cfg SequenceConfig, rng *rand.Rand) (float64, error) {
	rows, cols := x.Dims()
	_, outs := t.Dims()
	batch := min(cfg.BatchSize, rows)

	opt := newAdam(cfg.LearningRate, n.w1.RawMatrix().Data, n.b1, n.w2.RawMatrix().Data, n.b2)
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	xb := mat.NewDense(batch, cols, nil)
	tb := mat.NewDense(batch, outs, nil)

	var loss float64
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		rng.Shuffle(rows, func(i, j int) { order[i], order[j] = order[j], order[i] })

		loss = 0
		for start := 0; start < rows; start += batch {
			size := min(batch, rows-start)
			bx := xb.Slice(0, size, 0, cols).(*mat.Dense)
			bt := tb.Slice(0, size, 0, outs).(*mat.Dense)
			for r := 0; r < size; r++ {
				bx.SetRow(r, x.RawRowView(order[start+r]))
				bt.SetRow(r, t.RawRowView(order[start+r]))
			}
			loss += n.step(bx, bt, opt) * float64(size)
		}
		loss /= float64(rows)

		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return loss, fmt.Errorf("non-finite loss at epoch %d", epoch+1)
		}
	}
	return loss, nil
}

// step does one forward/backward pass and applies the update. Returns batch MSE.
func (n *mlp) step(x, t *mat.Dense, opt *adam) float64 {
	rows, outs := t.Dims()
	h, y := n.forward(x)

	var dy mat.Dense
	dy.Sub(y, t)
	var sq float64
	for r := 0; r < rows; r++ {
		row := dy.RawRowView(r)
		sq += floats.Dot(row, row)
	}
	count := float64(rows * outs)
	dy.Scale(2/count, &dy)

	var gw2 mat.Dense
	gw2.Mul(h.T(), &dy)
	gb2 := colSums(&dy)

	var dh mat.Dense
	dh.Mul(&dy, n.w2.T())
	dh.Apply(func(i, j int, v float64) float64 {
		a := h.At(i, j)
		return v * (1 - a*a)
	}, &dh)

	var gw1 mat.Dense
	gw1.Mul(x.T(), &dh)
	gb1 := colSums(&dh)

	opt.update(gw1.RawMatrix().Data, gb1, gw2.RawMatrix().Data, gb2)
	return sq / count
}

func addBias(m *mat.Dense, b []float64) {
	rows, _ := m.Dims()
	for r := 0; r < rows; r++ {
		floats.Add(m.RawRowView(r), b)
	}
}

func colSums(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, cols)
	for r := 0; r < rows; r++ {
		floats.Add(out, m.RawRowView(r))
	}
	return out
}

// adam updates parameter slices in place.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	params, m, v          [][]float64
}

func newAdam(lr float64, params ...[]float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8, params: params}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

func (a *adam) update(grads ...[]float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))

	for i, g := range grads {
		p, m, v := a.params[i], a.m[i], a.v[i]
		for j := range p {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g[j]
			v[j] = a.beta2*v[j] + (1-a.beta2)*g[j]*g[j]
			p[j] -= a.lr * (m[j] / c1) / (math.Sqrt(v[j]/c2) + a.eps)
		}
	}
}
