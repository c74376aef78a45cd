package main

// Command crops plans crop windows over a synthetic trial set, streams
// the resulting batches once, and reports the plan two ways:
//   - a CSV listing every crop (trial, window start/stop, predicted
//     range, batch assignment),
//   - a PNG visualizing window coverage per trial, one horizontal
//     segment per crop with its predicted tail highlighted.
//
// Usage:
//   go run ./cmd/crops -trials 6 -channels 8 -input-length 200 -n-preds 50
//
// The synthetic trials are deterministic for a given -data-seed, so two
// runs with the same flags produce identical output.

import (
	"encoding/csv"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/blaxe05/braindecode/iterators"
	"github.com/blaxe05/braindecode/transforms"
	"github.com/blaxe05/braindecode/trials"
)

func main() {
	nTrials := flag.Int("trials", 6, "number of synthetic trials")
	nChannels := flag.Int("channels", 8, "channels per trial")
	minLen := flag.Int("min-len", 900, "minimum trial length in samples")
	maxLen := flag.Int("max-len", 1200, "maximum trial length in samples")
	inputLen := flag.Int("input-length", 200, "input time length of the network")
	nPreds := flag.Int("n-preds", 50, "predictions per input")
	batchSize := flag.Int("batch", 32, "crops per batch")
	shuffle := flag.Bool("shuffle", false, "shuffle crops into batches")
	seed := flag.Int64("seed", 0, "shuffle seed (0 uses the default)")
	dataSeed := flag.Int64("data-seed", 1, "seed for the synthetic trials")
	zscore := flag.Bool("zscore", true, "standardize channels before windowing")
	outDir := flag.String("out", "plots", "output directory for the coverage plot")
	outCSV := flag.String("out-csv", "output/crops.csv", "path for the per-crop CSV")
	flag.Parse()

	rng := rand.New(rand.NewSource(*dataSeed))
	timeLens := make([]int, *nTrials)
	for i := range timeLens {
		timeLens[i] = *minLen
		if *maxLen > *minLen {
			timeLens[i] += rng.Intn(*maxLen - *minLen)
		}
	}

	ts, err := trials.NewSyntheticTrialSet(trials.SyntheticConfig{
		NumChannels: *nChannels,
		TimeLens:    timeLens,
		NumClasses:  4,
		Seed:        *dataSeed,
	})
	if err != nil {
		log.Fatalf("failed to build synthetic trials: %v", err)
	}
	if *zscore {
		if err := transforms.ZscoreAll(ts); err != nil {
			log.Fatalf("zscore failed: %v", err)
		}
	}

	it, err := iterators.New(*batchSize, *inputLen, *nPreds, *seed)
	if err != nil {
		log.Fatalf("bad iterator configuration: %v", err)
	}

	// Plan once for the report: per-trial windows in deterministic order.
	trialStart := *inputLen - *nPreds
	starts := make([]int, ts.Len())
	stops := make([]int, ts.Len())
	for i, tr := range ts.X {
		starts[i] = trialStart
		stops[i] = tr.TimeLen()
	}
	perTrial, err := iterators.ComputeWindowsPerTrial(starts, stops, *inputLen, *nPreds, true)
	if err != nil {
		log.Fatalf("window planning failed: %v", err)
	}

	// Stream the batches and record which batch each crop landed in. The
	// unshuffled flattening order matches the planning order above.
	stream, err := it.GetBatches(ts, *shuffle)
	if err != nil {
		log.Fatalf("GetBatches failed: %v", err)
	}
	log.Printf("planned %d trials into %d batches (batch size %d)", ts.Len(), stream.NumBatches(), *batchSize)

	nBatches := 0
	totalCrops := 0
	for {
		b, err := stream.Next()
		if err != nil {
			break
		}
		totalCrops += b.Len()
		nBatches++
	}
	log.Printf("streamed %d batches covering %d crops", nBatches, totalCrops)

	if err := writeCropsCSV(*outCSV, perTrial, *nPreds, *batchSize); err != nil {
		log.Fatalf("failed to write CSV: %v", err)
	}
	log.Printf("wrote per-crop CSV to %s", *outCSV)

	if err := plotCoverage(*outDir, perTrial, stops, *nPreds); err != nil {
		log.Fatalf("failed to write coverage plot: %v", err)
	}
	log.Printf("wrote coverage plot to %s", filepath.Join(*outDir, "crop_coverage.png"))
}

// writeCropsCSV lists every crop with its unshuffled batch assignment.
func writeCropsCSV(path string, perTrial [][]iterators.Window, nPreds, batchSize int) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"trial", "start", "stop", "pred_start", "pred_stop", "batch"}); err != nil {
		return err
	}
	crop := 0
	for trial, wins := range perTrial {
		for _, win := range wins {
			rec := []string{
				strconv.Itoa(trial),
				strconv.Itoa(win.Start),
				strconv.Itoa(win.Stop),
				strconv.Itoa(win.Stop - nPreds),
				strconv.Itoa(win.Stop),
				strconv.Itoa(crop / batchSize),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
			crop++
		}
	}
	return w.Error()
}

// plotCoverage draws one horizontal segment per crop, stacked per trial,
// with the predicted tail of each window drawn darker on top.
func plotCoverage(outDir string, perTrial [][]iterators.Window, stops []int, nPreds int) error {
	p := plot.New()
	p.Title.Text = "Crop window coverage per trial"
	p.X.Label.Text = "time (samples)"
	p.Y.Label.Text = "trial"

	for trial, wins := range perTrial {
		for i, win := range wins {
			// Spread the windows of one trial across a band so the
			// overlaps stay visible.
			yOff := float64(trial) + 0.8*float64(i)/float64(len(wins))

			full := plotter.XYs{
				{X: float64(win.Start), Y: yOff},
				{X: float64(win.Stop), Y: yOff},
			}
			line, err := plotter.NewLine(full)
			if err != nil {
				return err
			}
			line.Color = color.RGBA{R: 120, G: 120, B: 200, A: 140}
			line.Width = vg.Points(1)
			p.Add(line)

			pred := plotter.XYs{
				{X: float64(win.Stop - nPreds), Y: yOff},
				{X: float64(win.Stop), Y: yOff},
			}
			tail, err := plotter.NewLine(pred)
			if err != nil {
				return err
			}
			tail.Color = color.RGBA{R: 200, G: 60, B: 30, A: 220}
			tail.Width = vg.Points(2)
			p.Add(tail)
		}
	}

	p.Add(plotter.NewGrid())
	p.Y.Min = -0.5
	p.Y.Max = float64(len(perTrial))
	p.X.Min = 0
	xmax := 0
	for _, stop := range stops {
		if stop > xmax {
			xmax = stop
		}
	}
	p.X.Max = float64(xmax) * 1.02

	if err := ensureDir(outDir); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, filepath.Join(outDir, "crop_coverage.png"))
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
