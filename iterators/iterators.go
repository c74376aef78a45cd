package iterators

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/blaxe05/braindecode/trials"
)

// DefaultSeed seeds the iterator's random generator when the caller does
// not pick a seed. The value folds the historical (2017, 6, 28) default
// into a single source value.
const DefaultSeed int64 = 20170628

// CropsFromTrialsIterator cuts crops out of trials so that every sample
// past the receptive field of the network is predicted by some crop, and
// groups the crops into balanced batches.
//
// If the receptive field size (InputTimeLength - NPredsPerInput + 1) is
// not a divisor of a trial's length, some samples near the trial end are
// predicted by two crops; evaluation code that needs unique predictions
// removes the overlap itself.
//
// An iterator instance is not safe for concurrent use: its random
// generator is unsynchronized. Give each consumer its own iterator, or
// guard a shared one with a lock.
type CropsFromTrialsIterator struct {
	// BatchSize is the number of crops per batch (the last batch of an
	// epoch may hold fewer).
	BatchSize int

	// InputTimeLength is the time length the network needs per input.
	InputTimeLength int

	// NPredsPerInput is the number of predictions the network makes per
	// input of InputTimeLength samples.
	NPredsPerInput int

	seed int64
	rng  *rand.Rand
}

// New creates a crop iterator. seed may be zero to use DefaultSeed; the
// seed governs only the shuffle order of batches, never which crops are
// produced.
func New(batchSize, inputTimeLength, nPredsPerInput int, seed int64) (*CropsFromTrialsIterator, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", batchSize)
	}
	if inputTimeLength < 1 {
		return nil, fmt.Errorf("input time length must be >= 1, got %d", inputTimeLength)
	}
	if nPredsPerInput < 1 || nPredsPerInput > inputTimeLength {
		return nil, fmt.Errorf("need 1 <= nPredsPerInput <= inputTimeLength, got %d and %d", nPredsPerInput, inputTimeLength)
	}
	if seed == 0 {
		seed = DefaultSeed
	}
	return &CropsFromTrialsIterator{
		BatchSize:       batchSize,
		InputTimeLength: inputTimeLength,
		NPredsPerInput:  nPredsPerInput,
		seed:            seed,
		rng:             rand.New(rand.NewSource(seed)),
	}, nil
}

// ResetRNG reinitializes the random generator from the original seed, so
// the shuffle orders of subsequent GetBatches calls replay from the
// start.
func (it *CropsFromTrialsIterator) ResetRNG() {
	it.rng = rand.New(rand.NewSource(it.seed))
}

// cropRef addresses one crop: a window into one trial of the set.
type cropRef struct {
	trial int
	win   Window
}

// GetBatches plans crops over the whole trial set and returns a lazy
// stream of batches, one per index partition. The plan is derived fresh
// on every call (nothing is cached between calls); when shuffle is true
// the partition order consumes the iterator's generator state.
//
// Every trial must be at least InputTimeLength samples long and all
// trials must share a channel count; violations are reported immediately
// and no batches are produced.
func (it *CropsFromTrialsIterator) GetBatches(ts *trials.TrialSet, shuffle bool) (*BatchStream, error) {
	// Start predicting at the end of the receptive field, so the first
	// sample of the trial corresponds to the first prediction.
	trialStart := it.InputTimeLength - it.NPredsPerInput

	starts := make([]int, ts.Len())
	stops := make([]int, ts.Len())
	nChannels := 0
	for i, tr := range ts.X {
		if tr.TimeLen() < it.InputTimeLength {
			return nil, fmt.Errorf("input length %d of trial %d is smaller than the input time length %d", tr.TimeLen(), i, it.InputTimeLength)
		}
		if i == 0 {
			nChannels = tr.NumChannels()
		} else if tr.NumChannels() != nChannels {
			return nil, fmt.Errorf("trial %d has %d channels, want %d", i, tr.NumChannels(), nChannels)
		}
		starts[i] = trialStart
		stops[i] = tr.TimeLen()
	}

	perTrial, err := ComputeWindowsPerTrial(starts, stops, it.InputTimeLength, it.NPredsPerInput, true)
	if err != nil {
		return nil, err
	}

	// Flatten, tagging each window with its trial, preserving trial order
	// then within-trial window order.
	var refs []cropRef
	for i, wins := range perTrial {
		for _, w := range wins {
			refs = append(refs, cropRef{trial: i, win: w})
		}
	}

	groups := BalancedBatches(len(refs), it.BatchSize, shuffle, it.rng)
	return &BatchStream{
		ts:     ts,
		it:     it,
		refs:   refs,
		groups: groups,
	}, nil
}

// BatchStream lazily materializes one batch per partition, in partition
// order. Next returns io.EOF once all partitions are consumed.
type BatchStream struct {
	ts     *trials.TrialSet
	it     *CropsFromTrialsIterator
	refs   []cropRef
	groups [][]int
	pos    int
}

// NumBatches returns how many batches the stream will produce in total.
func (s *BatchStream) NumBatches() int {
	return len(s.groups)
}

// Next materializes and returns the next batch, or io.EOF after the last
// one. Stopping early is fine; the stream holds no resources.
func (s *BatchStream) Next() (*Batch, error) {
	if s.pos >= len(s.groups) {
		return nil, io.EOF
	}
	group := s.groups[s.pos]
	s.pos++
	return s.buildBatch(group)
}

func (s *BatchStream) buildBatch(group []int) (*Batch, error) {
	n := len(group)
	nChannels := s.ts.X[s.refs[group[0]].trial].NumChannels()
	timeLen := s.it.InputTimeLength
	nPreds := s.it.NPredsPerInput

	b := &Batch{
		X:     make([]float32, n*nChannels*timeLen),
		Dims:  [4]int{n, nChannels, timeLen, 1},
		YKind: s.ts.Kind,
	}
	switch s.ts.Kind {
	case trials.SequenceLabels:
		b.Y = make([]int, 0, n*nPreds)
		b.YDims = []int{n, nPreds}
	default:
		b.Y = make([]int, 0, n)
		b.YDims = []int{n}
	}

	for pos, idx := range group {
		ref := s.refs[idx]
		tr := s.ts.X[ref.trial]
		for c := 0; c < nChannels; c++ {
			dst := b.X[(pos*nChannels+c)*timeLen:]
			copy(dst[:timeLen], tr.Data[c][ref.win.Start:ref.win.Stop])
		}
		switch s.ts.Kind {
		case trials.SequenceLabels:
			b.Y = append(b.Y, s.ts.Y[ref.trial].Values[ref.win.Stop-nPreds:ref.win.Stop]...)
		default:
			b.Y = append(b.Y, s.ts.Y[ref.trial].Value)
		}
	}
	return b, nil
}

// Batch is one materialized batch of crops.
//
// X is a contiguous buffer with shape Dims: (batch, channels, time, 1).
// The trailing singleton axis is always present so consumers see a
// uniform 4D layout whether or not the source data carried an extra
// feature axis.
//
// Y holds the labels: per crop for scalar-labelled sets (YDims = [n]),
// or the crop's final NPredsPerInput per-sample labels for
// sequence-labelled sets (YDims = [n, nPredsPerInput]).
type Batch struct {
	X    []float32
	Dims [4]int

	Y     []int
	YKind trials.LabelKind
	YDims []int
}

// Len returns the number of crops in the batch.
func (b *Batch) Len() int {
	return b.Dims[0]
}

// ToGomlxTensors converts the batch into gomlx tensors: X as a 4D
// float32 tensor of shape Dims, Y as an int32 vector (scalar labels) or
// matrix (sequence labels).
func (b *Batch) ToGomlxTensors() (x *tensors.Tensor, y *tensors.Tensor, err error) {
	n, nChannels, timeLen := b.Dims[0], b.Dims[1], b.Dims[2]
	if len(b.X) != n*nChannels*timeLen {
		return nil, nil, fmt.Errorf("batch buffer has %d values, dims %v need %d", len(b.X), b.Dims, n*nChannels*timeLen)
	}

	// Reshape the flat buffer into nested slices for FromAnyValue.
	xs := make([][][][]float32, n)
	for i := 0; i < n; i++ {
		chs := make([][][]float32, nChannels)
		for c := 0; c < nChannels; c++ {
			row := b.X[(i*nChannels+c)*timeLen : (i*nChannels+c+1)*timeLen]
			steps := make([][]float32, timeLen)
			for t := 0; t < timeLen; t++ {
				steps[t] = row[t : t+1]
			}
			chs[c] = steps
		}
		xs[i] = chs
	}
	x = tensors.FromAnyValue(xs)

	switch b.YKind {
	case trials.SequenceLabels:
		nPreds := b.YDims[1]
		ys := make([][]int32, n)
		for i := 0; i < n; i++ {
			row := make([]int32, nPreds)
			for j, v := range b.Y[i*nPreds : (i+1)*nPreds] {
				row[j] = int32(v)
			}
			ys[i] = row
		}
		y = tensors.FromAnyValue(ys)
	default:
		ys := make([]int32, n)
		for i, v := range b.Y {
			ys[i] = int32(v)
		}
		y = tensors.FromAnyValue(ys)
	}
	return x, y, nil
}

// TensorBatches adapts a crop iterator over one trial set to the gomlx
// train.Dataset surface (Name / Yield / Reset), so it can drive a gomlx
// training loop directly. Yield returns io.EOF at the end of each epoch;
// Reset starts a fresh epoch with a fresh plan.
type TensorBatches struct {
	DatasetName string

	it      *CropsFromTrialsIterator
	ts      *trials.TrialSet
	shuffle bool

	stream *BatchStream
	err    error
}

// NewTensorBatches wraps it and ts for gomlx consumption. The shuffle
// flag applies to every epoch.
func NewTensorBatches(it *CropsFromTrialsIterator, ts *trials.TrialSet, shuffle bool) *TensorBatches {
	return &TensorBatches{
		DatasetName: "CropsFromTrials",
		it:          it,
		ts:          ts,
		shuffle:     shuffle,
	}
}

// Name returns the dataset name.
func (tb *TensorBatches) Name() string {
	return tb.DatasetName
}

// Reset starts a new epoch. Planning errors surface from the next Yield
// call, since the gomlx Reset signature has no error return.
func (tb *TensorBatches) Reset() {
	tb.stream, tb.err = tb.it.GetBatches(tb.ts, tb.shuffle)
}

// Yield returns the next batch of the current epoch as gomlx tensors,
// or io.EOF when the epoch is exhausted.
func (tb *TensorBatches) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if tb.err != nil {
		err = tb.err
		return
	}
	if tb.stream == nil {
		tb.stream, err = tb.it.GetBatches(tb.ts, tb.shuffle)
		if err != nil {
			return
		}
	}
	batch, err := tb.stream.Next()
	if err != nil {
		return // io.EOF included
	}
	x, y, err := batch.ToGomlxTensors()
	if err != nil {
		return
	}
	return nil, []*tensors.Tensor{x}, []*tensors.Tensor{y}, nil
}
