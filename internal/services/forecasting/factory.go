package forecasting

import (
	"fmt"
	"math/rand/v2"

	"TravelFX/internal/domain/service"
)

// FactoryConfig selects and parameterizes the model built for each request.
type FactoryConfig struct {
	Model    string // trend or sequence
	Trend    TrendConfig
	Sequence SequenceConfig
	// Seed fixes the trend noise stream; 0 draws a fresh seed per model.
	Seed uint64
	// SequenceSeed fixes weight init and shuffling of the sequence model.
	SequenceSeed uint64
}

// Factory builds a fresh model per request so no fitted state is shared.
type Factory struct {
	cfg FactoryConfig
}

func NewFactory(cfg FactoryConfig) (*Factory, error) {
	switch cfg.Model {
	case TrendModelName, SequenceModelName:
	case "":
		cfg.Model = TrendModelName
	default:
		return nil, fmt.Errorf("unknown forecast model %q", cfg.Model)
	}
	return &Factory{cfg: cfg}, nil
}

// Model returns the configured model kind, untrained.
func (f *Factory) Model() service.ForecastModel {
	if f.cfg.Model == SequenceModelName {
		return NewSequenceModel(f.cfg.Sequence, f.rng(f.cfg.SequenceSeed))
	}
	return f.Trend()
}

// Trend returns an untrained TrendModel regardless of the configured kind; the
// degraded cross-rate path always uses it.
func (f *Factory) Trend() *TrendModel {
	return NewTrendModel(f.cfg.Trend, f.rng(f.cfg.Seed))
}

func (f *Factory) rng(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
