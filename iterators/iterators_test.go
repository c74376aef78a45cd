package iterators

import (
	"errors"
	"io"
	"testing"

	"github.com/blaxe05/braindecode/trials"
)

// rampTrialSet builds trials whose samples encode their own position
// (trial*1000 + channel*100 + t), so slices can be checked exactly.
func rampTrialSet(t *testing.T, timeLens []int, nChannels int, kind trials.LabelKind) *trials.TrialSet {
	t.Helper()
	x := make([]trials.Trial, len(timeLens))
	y := make([]trials.Label, len(timeLens))
	for i, n := range timeLens {
		data := make([][]float32, nChannels)
		for c := range data {
			ch := make([]float32, n)
			for s := range ch {
				ch[s] = float32(i*1000 + c*100 + s)
			}
			data[c] = ch
		}
		x[i] = trials.Trial{Data: data}
		if kind == trials.SequenceLabels {
			vals := make([]int, n)
			for s := range vals {
				vals[s] = s
			}
			y[i] = trials.Label{Values: vals}
		} else {
			y[i] = trials.Label{Value: i % 2}
		}
	}
	ts, err := trials.NewTrialSet(x, y, kind)
	if err != nil {
		t.Fatalf("NewTrialSet failed: %v", err)
	}
	return ts
}

func collectBatches(t *testing.T, s *BatchStream) []*Batch {
	t.Helper()
	var out []*Batch
	for {
		b, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, b)
	}
}

func batchesEqual(a, b []*Batch) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Dims != b[i].Dims || len(a[i].X) != len(b[i].X) || len(a[i].Y) != len(b[i].Y) {
			return false
		}
		for j := range a[i].X {
			if a[i].X[j] != b[i].X[j] {
				return false
			}
		}
		for j := range a[i].Y {
			if a[i].Y[j] != b[i].Y[j] {
				return false
			}
		}
	}
	return true
}

func TestGetBatchesShapesAndContent(t *testing.T) {
	ts := rampTrialSet(t, []int{100}, 1, trials.ScalarLabels)
	it, err := New(4, 50, 10, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	stream, err := it.GetBatches(ts, false)
	if err != nil {
		t.Fatalf("GetBatches failed: %v", err)
	}
	// 100/50/10 plans six crops, so batch size 4 gives groups of 4 and 2.
	if stream.NumBatches() != 2 {
		t.Fatalf("got %d batches, want 2", stream.NumBatches())
	}

	batches := collectBatches(t, stream)
	if got := batches[0].Dims; got != [4]int{4, 1, 50, 1} {
		t.Errorf("first batch dims are %v, want [4 1 50 1]", got)
	}
	if got := batches[1].Dims; got != [4]int{2, 1, 50, 1} {
		t.Errorf("second batch dims are %v, want [2 1 50 1]", got)
	}

	// Unshuffled, the first crop is the trial's window [0, 50).
	for s := 0; s < 50; s++ {
		if batches[0].X[s] != float32(s) {
			t.Fatalf("first crop sample %d is %v, want %d", s, batches[0].X[s], s)
		}
	}
	for _, b := range batches {
		for _, v := range b.Y {
			if v != 0 {
				t.Errorf("scalar label is %d, want 0", v)
			}
		}
	}
}

func TestSequenceLabelsSlicedToPredictedRange(t *testing.T) {
	ts := rampTrialSet(t, []int{100}, 2, trials.SequenceLabels)
	it, err := New(8, 50, 10, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	stream, err := it.GetBatches(ts, false)
	if err != nil {
		t.Fatalf("GetBatches failed: %v", err)
	}
	batches := collectBatches(t, stream)
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}

	b := batches[0]
	if b.YDims[0] != 6 || b.YDims[1] != 10 {
		t.Fatalf("label dims are %v, want [6 10]", b.YDims)
	}
	// Crop k has window stop 50+10k; its labels are the trailing ten
	// time indices of that window.
	for k := 0; k < 6; k++ {
		stop := 50 + 10*k
		for j := 0; j < 10; j++ {
			if got := b.Y[k*10+j]; got != stop-10+j {
				t.Fatalf("crop %d label %d is %d, want %d", k, j, got, stop-10+j)
			}
		}
	}
}

func TestShuffleDeterminismAndReset(t *testing.T) {
	ts := rampTrialSet(t, []int{100, 90, 120}, 3, trials.ScalarLabels)

	it1, _ := New(5, 50, 10, 99)
	it2, _ := New(5, 50, 10, 99)

	s1, err := it1.GetBatches(ts, true)
	if err != nil {
		t.Fatalf("GetBatches failed: %v", err)
	}
	s2, err := it2.GetBatches(ts, true)
	if err != nil {
		t.Fatalf("GetBatches failed: %v", err)
	}
	first1 := collectBatches(t, s1)
	first2 := collectBatches(t, s2)
	if !batchesEqual(first1, first2) {
		t.Fatal("same seed produced different batch sequences")
	}

	// A second epoch consumes generator state and reorders.
	s1, _ = it1.GetBatches(ts, true)
	second := collectBatches(t, s1)
	if batchesEqual(first1, second) {
		t.Error("second epoch repeated the first epoch's order")
	}

	// ResetRNG replays from the original seed.
	it1.ResetRNG()
	s1, _ = it1.GetBatches(ts, true)
	replay := collectBatches(t, s1)
	if !batchesEqual(first1, replay) {
		t.Error("ResetRNG did not reproduce the first epoch")
	}
}

func TestGetBatchesReplansEveryCall(t *testing.T) {
	ts := rampTrialSet(t, []int{100, 90}, 2, trials.ScalarLabels)
	it, _ := New(4, 50, 10, 0)

	a := collectBatches(t, mustBatches(t, it, ts, false))
	b := collectBatches(t, mustBatches(t, it, ts, false))
	if !batchesEqual(a, b) {
		t.Error("unshuffled epochs differ; plan should be re-derived identically")
	}
}

func mustBatches(t *testing.T, it *CropsFromTrialsIterator, ts *trials.TrialSet, shuffle bool) *BatchStream {
	t.Helper()
	s, err := it.GetBatches(ts, shuffle)
	if err != nil {
		t.Fatalf("GetBatches failed: %v", err)
	}
	return s
}

func TestEmptyTrialSetYieldsNoBatches(t *testing.T) {
	ts, err := trials.NewTrialSet(nil, nil, trials.ScalarLabels)
	if err != nil {
		t.Fatalf("NewTrialSet failed: %v", err)
	}
	it, _ := New(4, 50, 10, 0)
	stream, err := it.GetBatches(ts, true)
	if err != nil {
		t.Fatalf("GetBatches failed: %v", err)
	}
	if stream.NumBatches() != 0 {
		t.Errorf("got %d batches, want 0", stream.NumBatches())
	}
	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next returned %v, want io.EOF", err)
	}
}

func TestGetBatchesRejectsShortTrial(t *testing.T) {
	ts := rampTrialSet(t, []int{100, 30}, 1, trials.ScalarLabels)
	it, _ := New(4, 50, 10, 0)
	if _, err := it.GetBatches(ts, false); err == nil {
		t.Error("expected error for trial shorter than input time length")
	}
}

func TestGetBatchesRejectsChannelMismatch(t *testing.T) {
	x := []trials.Trial{
		{Data: [][]float32{make([]float32, 60), make([]float32, 60)}},
		{Data: [][]float32{make([]float32, 60)}},
	}
	y := []trials.Label{{Value: 0}, {Value: 1}}
	ts, err := trials.NewTrialSet(x, y, trials.ScalarLabels)
	if err != nil {
		t.Fatalf("NewTrialSet failed: %v", err)
	}
	it, _ := New(4, 50, 10, 0)
	if _, err := it.GetBatches(ts, false); err == nil {
		t.Error("expected error for mismatched channel counts")
	}
}

func TestBatchAlwaysHasFourAxes(t *testing.T) {
	ts := rampTrialSet(t, []int{80, 64}, 4, trials.ScalarLabels)
	it, _ := New(3, 64, 8, 0)
	for _, b := range collectBatches(t, mustBatches(t, it, ts, false)) {
		if b.Dims[3] != 1 {
			t.Errorf("trailing axis is %d, want 1", b.Dims[3])
		}
		if b.Dims[1] != 4 || b.Dims[2] != 64 {
			t.Errorf("dims are %v, want channels 4 and time 64", b.Dims)
		}
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(0, 50, 10, 0); err == nil {
		t.Error("expected error for batch size 0")
	}
	if _, err := New(4, 0, 10, 0); err == nil {
		t.Error("expected error for input time length 0")
	}
	if _, err := New(4, 50, 60, 0); err == nil {
		t.Error("expected error for nPredsPerInput > inputTimeLength")
	}
	if _, err := New(4, 50, 0, 0); err == nil {
		t.Error("expected error for nPredsPerInput 0")
	}
}

func TestTensorBatchesDrivesAnEpoch(t *testing.T) {
	ts := rampTrialSet(t, []int{100, 90}, 2, trials.ScalarLabels)
	it, _ := New(4, 50, 10, 0)
	tb := NewTensorBatches(it, ts, false)

	want := mustBatches(t, it, ts, false).NumBatches()
	n := 0
	for {
		_, inputs, labels, err := tb.Yield()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Yield failed: %v", err)
		}
		if len(inputs) != 1 || len(labels) != 1 {
			t.Fatalf("Yield returned %d inputs and %d labels, want 1 and 1", len(inputs), len(labels))
		}
		n++
	}
	if n != want {
		t.Errorf("epoch yielded %d batches, want %d", n, want)
	}

	// Reset starts a fresh epoch.
	tb.Reset()
	if _, _, _, err := tb.Yield(); err != nil {
		t.Fatalf("Yield after Reset failed: %v", err)
	}
}
