package forecasting

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/services/features"
	"TravelFX/pkg/util"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const SequenceModelName = "sequence"

// minWindows is the fewest training windows a series must yield before the
// input/output chunks are shrunk to fit it.
const minWindows = 8

type SequenceConfig struct {
	InputChunk   int // lagged days fed to the network
	OutputChunk  int // days predicted per forward pass
	HiddenSize   int
	Epochs       int
	BatchSize    int
	LearningRate float64
}

// DefaultSequenceConfig mirrors the production defaults.
func DefaultSequenceConfig() SequenceConfig {
	return SequenceConfig{
		InputChunk:   365,
		OutputChunk:  180,
		HiddenSize:   64,
		Epochs:       50,
		BatchSize:    64,
		LearningRate: 1e-3,
	}
}

// SequenceModel maps a window of past scaled rates plus calendar covariates of
// the days ahead to a whole chunk of future rates. Quantile bands come from the
// empirical spread of its own training residuals.
type SequenceModel struct {
	lifecycle
	cfg SequenceConfig
	rng *rand.Rand

	scaler   features.MinMax
	in, out  int
	net      *mlp
	lower    []float64 // per-step 10th percentile residual, scaled units
	upper    []float64 // per-step 90th percentile residual, scaled units
	window   []float64 // last `in` scaled observations
	lastDate time.Time
	loss     float64
}

// NewSequenceModel builds an untrained model. The rng drives weight init and
// shuffling, so a fixed seed gives reproducible forecasts.
func NewSequenceModel(cfg SequenceConfig, rng *rand.Rand) *SequenceModel {
	def := DefaultSequenceConfig()
	if cfg.InputChunk <= 0 {
		cfg.InputChunk = def.InputChunk
	}
	if cfg.OutputChunk <= 0 {
		cfg.OutputChunk = def.OutputChunk
	}
	if cfg.HiddenSize <= 0 {
		cfg.HiddenSize = def.HiddenSize
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(42, 42))
	}
	return &SequenceModel{cfg: cfg, rng: rng}
}

func (m *SequenceModel) Name() string { return SequenceModelName }

// Loss is the final-epoch training MSE in scaled units.
func (m *SequenceModel) Loss() float64 { return m.loss }

func (m *SequenceModel) Train(series *models.HistoricalSeries) error {
	m.beginTraining()
	m.net = nil
	return m.finishTraining(m.fit(series))
}

func (m *SequenceModel) fit(series *models.HistoricalSeries) error {
	if series == nil || series.Len() < 3 {
		return models.NewError(models.KindTrainingFailed, "sequence model needs at least 3 points")
	}
	values := series.Values()
	if !features.AllFinite(values) {
		return models.NewError(models.KindTrainingFailed, "series contains non-finite values")
	}

	scaler, ok := features.FitMinMax(values)
	if !ok {
		return models.NewError(models.KindTrainingFailed, "series is constant at %.6g; cannot scale", values[0])
	}
	scaled := scaler.Transform(values)

	in, out := m.chunkSizes(len(scaled))
	x, t := buildWindows(scaled, series.Dates(), in, out)
	if rows, _ := x.Dims(); rows < 2 {
		return models.NewError(models.KindTrainingFailed, "series of %d points yields too few training windows", len(scaled))
	}

	_, cols := x.Dims()
	net := newMLP(cols, m.cfg.HiddenSize, out, m.rng)
	loss, err := net.train(x, t, m.cfg, m.rng)
	if err != nil {
		return models.WrapError(models.KindTrainingFailed, err, "sequence model diverged")
	}

	lower, upper := residualBands(net, x, t)

	m.scaler = scaler
	m.in, m.out = in, out
	m.net = net
	m.lower, m.upper = lower, upper
	m.window = append([]float64(nil), scaled[len(scaled)-in:]...)
	m.lastDate = series.Last().Date
	m.loss = loss
	return nil
}

// chunkSizes shrinks the configured chunks for series too short to yield
// minWindows training windows.
func (m *SequenceModel) chunkSizes(n int) (int, int) {
	in, out := m.cfg.InputChunk, m.cfg.OutputChunk
	if in+out+minWindows-1 <= n {
		return in, out
	}
	in = max(1, min(in, n/3))
	out = max(1, min(out, n/3))
	return in, out
}

func (m *SequenceModel) Predict(horizonDays int) ([]models.DailyForecast, error) {
	if err := m.requireTrained(m.Name(), horizonDays); err != nil {
		return nil, err
	}

	window := append([]float64(nil), m.window...)
	out := make([]models.DailyForecast, 0, horizonDays)
	cursor := m.lastDate

	for len(out) < horizonDays {
		start := util.AddDays(cursor, 1)
		row := make([]float64, 0, m.in+features.CalendarWidth*m.out)
		row = append(row, window...)
		row = features.AppendCalendar(row, start, m.out)

		_, y := m.net.forward(mat.NewDense(1, len(row), row))
		pred := append([]float64(nil), y.RawRowView(0)...)

		for k := 0; k < m.out && len(out) < horizonDays; k++ {
			mid := pred[k]
			out = append(out, models.DailyForecast{
				Date: util.AddDays(start, k),
				P10:  clampNonNegative(m.scaler.Inverse(mid + math.Min(m.lower[k], 0))),
				P50:  clampNonNegative(m.scaler.Inverse(mid)),
				P90:  clampNonNegative(m.scaler.Inverse(mid + math.Max(m.upper[k], 0))),
			})
		}

		if m.out >= m.in {
			window = pred[m.out-m.in:]
		} else {
			window = append(window[m.out:], pred...)
		}
		cursor = util.AddDays(start, m.out-1)
	}
	return out, nil
}

// buildWindows lays out one row per training window: in lagged values followed
// by the calendar encoding of each target day. Targets are the next out values.
func buildWindows(scaled []float64, dates []time.Time, in, out int) (*mat.Dense, *mat.Dense) {
	rows := len(scaled) - in - out + 1
	if rows < 1 {
		return mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil)
	}
	cols := in + features.CalendarWidth*out

	x := mat.NewDense(rows, cols, nil)
	t := mat.NewDense(rows, out, nil)
	row := make([]float64, 0, cols)
	for s := 0; s < rows; s++ {
		row = append(row[:0], scaled[s:s+in]...)
		row = features.AppendCalendar(row, dates[s+in], out)
		x.SetRow(s, row)
		t.SetRow(s, scaled[s+in:s+in+out])
	}
	return x, t
}

// residualBands returns per-step empirical 10th and 90th percentiles of
// target minus prediction over the training windows.
func residualBands(net *mlp, x, t *mat.Dense) ([]float64, []float64) {
	_, pred := net.forward(x)
	rows, outs := t.Dims()

	lower := make([]float64, outs)
	upper := make([]float64, outs)
	res := make([]float64, rows)
	for k := 0; k < outs; k++ {
		for r := 0; r < rows; r++ {
			res[r] = t.At(r, k) - pred.At(r, k)
		}
		sort.Float64s(res)
		lower[k] = stat.Quantile(0.1, stat.Empirical, res, nil)
		upper[k] = stat.Quantile(0.9, stat.Empirical, res, nil)
	}
	return lower, upper
}
