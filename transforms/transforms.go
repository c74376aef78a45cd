// Package transforms holds in-place signal transforms applied to trial
// data before windowing, such as standardization and rescaling.
package transforms

import (
	"fmt"
	"math"

	"github.com/blaxe05/braindecode/trials"
)

// Zscore standardizes each channel of the trial in place: subtract the
// channel mean, divide by the channel standard deviation. A constant
// channel has zero deviation and cannot be standardized; that is
// reported as an error and the trial is left partially transformed only
// up to the offending channel.
func Zscore(tr trials.Trial) error {
	for c, ch := range tr.Data {
		if len(ch) == 0 {
			continue
		}
		var sum float64
		for _, v := range ch {
			sum += float64(v)
		}
		mean := sum / float64(len(ch))

		var sq float64
		for _, v := range ch {
			d := float64(v) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(ch)))
		if std == 0 {
			return fmt.Errorf("channel %d is constant, cannot zscore", c)
		}
		for t := range ch {
			ch[t] = float32((float64(ch[t]) - mean) / std)
		}
	}
	return nil
}

// Scale multiplies every sample of the trial by factor, in place.
func Scale(tr trials.Trial, factor float32) {
	for _, ch := range tr.Data {
		for t := range ch {
			ch[t] *= factor
		}
	}
}

// ZscoreAll applies Zscore to every trial of the set, stopping at the
// first failure.
func ZscoreAll(ts *trials.TrialSet) error {
	for i, tr := range ts.X {
		if err := Zscore(tr); err != nil {
			return fmt.Errorf("trial %d: %w", i, err)
		}
	}
	return nil
}

// ScaleAll applies Scale to every trial of the set.
func ScaleAll(ts *trials.TrialSet, factor float32) {
	for _, tr := range ts.X {
		Scale(tr, factor)
	}
}
