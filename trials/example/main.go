package main

// Example command that builds a small synthetic trial set, streams
// crop batches from it, and converts one batch into gomlx tensors with
// the helpers provided by the iterators package.
//
// Usage:
//   go run ./trials/example

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/blaxe05/braindecode/iterators"
	"github.com/blaxe05/braindecode/trials"
)

func main() {
	ts, err := trials.NewSyntheticTrialSet(trials.SyntheticConfig{
		NumChannels: 4,
		TimeLens:    []int{500, 620, 480},
		NumClasses:  2,
		Seed:        7,
	})
	if err != nil {
		log.Fatalf("failed to build trial set: %v", err)
	}
	fmt.Printf("Trial set: %d trials, %d channels\n", ts.Len(), ts.X[0].NumChannels())

	it, err := iterators.New(16, 200, 50, 0)
	if err != nil {
		log.Fatalf("failed to build iterator: %v", err)
	}

	stream, err := it.GetBatches(ts, true)
	if err != nil {
		log.Fatalf("GetBatches failed: %v", err)
	}
	fmt.Printf("Planned %d batches\n", stream.NumBatches())

	var first *iterators.Batch
	for {
		b, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Next failed: %v", err)
		}
		if first == nil {
			first = b
		}
		fmt.Printf("  batch of %d crops, dims %v\n", b.Len(), b.Dims)
	}

	if first != nil {
		x, y, err := first.ToGomlxTensors()
		if err != nil {
			log.Fatalf("tensor conversion failed: %v", err)
		}
		fmt.Printf("First batch as tensors: X %s, Y %s\n", x.Shape(), y.Shape())
	}
}
