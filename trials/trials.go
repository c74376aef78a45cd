package trials

import "fmt"

// This file provides the in-memory trial data model consumed by the crop
// iterator. A trial is a multi-channel time-series (channels x time), with
// either one label for the whole trial or one label per time step.
//
// The split between the two label kinds is decided once, when the TrialSet
// is built, so downstream code can switch on LabelKind instead of probing
// values at batch-build time.

// LabelKind discriminates the two label layouts a trial set can carry.
type LabelKind int

const (
	// ScalarLabels means one class label per trial.
	ScalarLabels LabelKind = iota

	// SequenceLabels means one class label per time step of each trial.
	SequenceLabels
)

func (k LabelKind) String() string {
	switch k {
	case ScalarLabels:
		return "scalar"
	case SequenceLabels:
		return "sequence"
	default:
		return fmt.Sprintf("LabelKind(%d)", int(k))
	}
}

// Trial is one recording trial: Data[channel][t], every channel the same
// length.
type Trial struct {
	Data [][]float32
}

// NumChannels returns the number of channels in the trial.
func (tr Trial) NumChannels() int {
	return len(tr.Data)
}

// TimeLen returns the number of time steps in the trial. Zero-channel
// trials have length zero.
func (tr Trial) TimeLen() int {
	if len(tr.Data) == 0 {
		return 0
	}
	return len(tr.Data[0])
}

// Label is the tagged label variant for one trial. Exactly one of Value
// or Values is meaningful, selected by the owning TrialSet's Kind.
type Label struct {
	// Value is the trial's class when the set uses ScalarLabels.
	Value int

	// Values holds one class per time step when the set uses
	// SequenceLabels. Length equals the trial's TimeLen.
	Values []int
}

// TrialSet is an ordered collection of trials with parallel labels. X and
// Y always have equal length; the label layout is fixed by Kind for the
// whole set. Trial data is read-only as far as the iterator packages are
// concerned; TrialSet does not copy it.
type TrialSet struct {
	X    []Trial
	Y    []Label
	Kind LabelKind
}

// NewTrialSet validates and assembles a trial set. It checks that:
//   - X and y are parallel (same length),
//   - every trial's channels all have the same time length,
//   - for SequenceLabels, every label sequence matches its trial's length.
//
// Any violation returns an error immediately; a TrialSet that was built
// successfully is structurally sound for the crop iterator.
func NewTrialSet(x []Trial, y []Label, kind LabelKind) (*TrialSet, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("trials and labels are not parallel: %d trials, %d labels", len(x), len(y))
	}
	for i, tr := range x {
		for c, ch := range tr.Data {
			if len(ch) != tr.TimeLen() {
				return nil, fmt.Errorf("trial %d channel %d has %d samples, want %d", i, c, len(ch), tr.TimeLen())
			}
		}
		if kind == SequenceLabels {
			if len(y[i].Values) != tr.TimeLen() {
				return nil, fmt.Errorf("trial %d label sequence has %d entries, want %d", i, len(y[i].Values), tr.TimeLen())
			}
		}
	}
	return &TrialSet{X: x, Y: y, Kind: kind}, nil
}

// Len returns the number of trials in the set.
func (ts *TrialSet) Len() int {
	return len(ts.X)
}
