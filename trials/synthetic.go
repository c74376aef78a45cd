package trials

import (
	"fmt"
	"math"
	"math/rand"
)

// SyntheticConfig controls NewSyntheticTrialSet. Zero fields get the
// defaults noted on each field.
type SyntheticConfig struct {
	// NumChannels per trial (default 3).
	NumChannels int

	// TimeLens gives each trial its own time length; its length sets the
	// number of trials. Required, at least one entry.
	TimeLens []int

	// NumClasses for the labels (default 2).
	NumClasses int

	// Kind selects scalar or per-time-step labels (default ScalarLabels).
	Kind LabelKind

	// Seed for the generator. If zero, a fixed seed (1) is used so the
	// output stays reproducible by default.
	Seed int64
}

// NewSyntheticTrialSet produces a deterministic trial set of noisy
// sinusoids for examples and tests. The same config always produces the
// same data.
func NewSyntheticTrialSet(cfg SyntheticConfig) (*TrialSet, error) {
	if len(cfg.TimeLens) == 0 {
		return nil, fmt.Errorf("synthetic trial set needs at least one entry in TimeLens")
	}
	if cfg.NumChannels == 0 {
		cfg.NumChannels = 3
	}
	if cfg.NumClasses == 0 {
		cfg.NumClasses = 2
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	x := make([]Trial, len(cfg.TimeLens))
	y := make([]Label, len(cfg.TimeLens))
	for i, n := range cfg.TimeLens {
		if n <= 0 {
			return nil, fmt.Errorf("trial %d has non-positive time length %d", i, n)
		}
		class := rng.Intn(cfg.NumClasses)
		freq := 0.02 + 0.01*float64(class)
		data := make([][]float32, cfg.NumChannels)
		for c := range data {
			phase := rng.Float64() * 2 * math.Pi
			ch := make([]float32, n)
			for t := range ch {
				ch[t] = float32(math.Sin(2*math.Pi*freq*float64(t)+phase)) + float32(rng.NormFloat64())*0.1
			}
			data[c] = ch
		}
		x[i] = Trial{Data: data}

		switch cfg.Kind {
		case SequenceLabels:
			vals := make([]int, n)
			for t := range vals {
				vals[t] = class
			}
			y[i] = Label{Values: vals}
		default:
			y[i] = Label{Value: class}
		}
	}
	return NewTrialSet(x, y, cfg.Kind)
}
