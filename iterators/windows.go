package iterators

import "fmt"

// Window is a half-open [Start, Stop) index range into a trial's time
// axis. Stop - Start always equals the iterator's input time length; the
// window's predicted output corresponds to its final nPredsPerInput
// samples.
type Window struct {
	Start int
	Stop  int
}

// startStopBlocksForTrial computes the input windows needed to predict
// every sample of one trial's predictable range [trialStart, trialStop).
//
// A cursor walks from trialStart in steps of nPredsPerInput, clipped to
// trialStop; each step emits the window ending at the clipped cursor.
// That way every sample in the range is the final predicted sample of
// exactly one window, except near the trial end when the range length is
// not a multiple of nPredsPerInput: there the last window re-predicts up
// to nPredsPerInput-1 samples already covered by the previous one.
// Callers that need unique predictions deduplicate that overlap at
// evaluation time.
func startStopBlocksForTrial(trialStart, trialStop, inputTimeLength, nPredsPerInput int) []Window {
	var blocks []Window
	stop := trialStart
	for stop < trialStop {
		stop += nPredsPerInput
		adjusted := stop
		if adjusted > trialStop {
			adjusted = trialStop
		}
		blocks = append(blocks, Window{Start: adjusted - inputTimeLength, Stop: adjusted})
	}
	return blocks
}

// ComputeWindowsPerTrial plans windows for every trial independently,
// preserving trial order. trialStarts[i] is the first sample to predict
// in trial i and trialStops[i] is one past the last.
//
// When validate is true, each trial's window set is checked for exact
// coverage: the union of the windows' trailing nPredsPerInput samples,
// clipped to the predictable range, must reconstruct
// [trialStarts[i], trialStops[i]) with no gaps, the first window's
// predicted range must begin at trialStarts[i], and the last window must
// stop at trialStops[i]. A failed check means the planner itself is
// broken, not the data; it is reported as an error and nothing is
// silently skipped.
func ComputeWindowsPerTrial(trialStarts, trialStops []int, inputTimeLength, nPredsPerInput int, validate bool) ([][]Window, error) {
	if len(trialStarts) != len(trialStops) {
		return nil, fmt.Errorf("trial starts and stops are not parallel: %d vs %d", len(trialStarts), len(trialStops))
	}
	if nPredsPerInput < 1 || nPredsPerInput > inputTimeLength {
		return nil, fmt.Errorf("need 1 <= nPredsPerInput <= inputTimeLength, got %d and %d", nPredsPerInput, inputTimeLength)
	}

	perTrial := make([][]Window, len(trialStarts))
	for i := range trialStarts {
		start, stop := trialStarts[i], trialStops[i]
		if stop <= start {
			return nil, fmt.Errorf("trial %d has empty predictable range [%d, %d)", i, start, stop)
		}
		blocks := startStopBlocksForTrial(start, stop, inputTimeLength, nPredsPerInput)
		if validate {
			if err := checkTrialCoverage(blocks, start, stop, nPredsPerInput); err != nil {
				return nil, fmt.Errorf("trial %d: %w", i, err)
			}
		}
		perTrial[i] = blocks
	}
	return perTrial, nil
}

// checkTrialCoverage verifies that the predicted sub-ranges of blocks
// reconstruct [trialStart, trialStop) exactly as a set.
func checkTrialCoverage(blocks []Window, trialStart, trialStop, nPredsPerInput int) error {
	if len(blocks) == 0 {
		return fmt.Errorf("no windows planned for range [%d, %d)", trialStart, trialStop)
	}
	if first := blocks[0].Stop - nPredsPerInput; first != trialStart {
		return fmt.Errorf("first predicted sample is %d, want trial start %d", first, trialStart)
	}
	if last := blocks[len(blocks)-1].Stop; last != trialStop {
		return fmt.Errorf("last window stops at %d, want trial stop %d", last, trialStop)
	}

	covered := make([]bool, trialStop-trialStart)
	for _, w := range blocks {
		predStart := w.Stop - nPredsPerInput
		if predStart < trialStart {
			predStart = trialStart
		}
		if w.Stop > trialStop {
			return fmt.Errorf("window [%d, %d) predicts past trial stop %d", w.Start, w.Stop, trialStop)
		}
		for t := predStart; t < w.Stop; t++ {
			covered[t-trialStart] = true
		}
	}
	for t, ok := range covered {
		if !ok {
			return fmt.Errorf("sample %d is not predicted by any window", trialStart+t)
		}
	}
	return nil
}
