package data

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/logging"
	"github.com/pkg/errors"
)

// Sample represents a single data point.
type Sample struct {
	X []float64
	Y float64
}

// Batch represents a collection of data points.
type Batch struct {
	X [][]float64
	Y []float64
}

// StreamCSV streams numeric CSV rows as Samples through out, which is closed
// when the file is exhausted or ctx is done. labelCol is the index of the
// label column. A first line that does not parse is taken as a header and
// skipped quietly; later malformed rows are skipped with a warning on lg.
func StreamCSV(ctx context.Context, path string, labelCol int, out chan<- Sample, lg *logging.Logger) error {
	if lg == nil {
		lg = logging.Discard()
	}
	file, err := os.Open(path)
	if err != nil {
		close(out)
		return errors.Wrapf(err, "couldn't open %s", path)
	}

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1

	go func() {
		defer file.Close()
		defer close(out)
		for line := 1; ; line++ {
			rec, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				lg.Warn.Printf("%s:%d: skipping record: %v", path, line, err)
				continue
			}
			if labelCol < 0 || labelCol >= len(rec) {
				lg.Warn.Printf("%s:%d: skipping record: label column %d out of bounds", path, line, labelCol)
				continue
			}

			x := make([]float64, 0, len(rec)-1)
			var y float64
			valid := true
			for i, s := range rec {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					if line == 1 {
						lg.Info.Printf("%s: skipping header %q", path, rec[0])
					} else {
						lg.Warn.Printf("%s:%d: skipping record: column %d: %v", path, line, i, err)
					}
					valid = false
					break
				}
				if i == labelCol {
					y = v
				} else {
					x = append(x, v)
				}
			}
			if !valid {
				continue
			}
			select {
			case out <- Sample{X: x, Y: y}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Batcher groups samples from in into mini-batches of batchSize. The final,
// possibly incomplete, batch is flushed when in is closed. out is closed on
// return.
func Batcher(ctx context.Context, in <-chan Sample, batchSize int, out chan<- Batch) {
	go func() {
		defer close(out)
		var X [][]float64
		var Y []float64
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-in:
				if !ok {
					if len(Y) > 0 {
						select {
						case out <- Batch{X: X, Y: Y}:
						case <-ctx.Done():
						}
					}
					return
				}
				X = append(X, s.X)
				Y = append(Y, s.Y)
				if len(Y) == batchSize {
					select {
					case out <- Batch{X: X, Y: Y}:
					case <-ctx.Done():
						return
					}
					X, Y = nil, nil
				}
			}
		}
	}()
}

// Batches streams the rows of X and Y epochs times through a Batcher. Batches
// may span an epoch boundary; only the last one can be short. Both
// goroutines stop when ctx is done.
func Batches(ctx context.Context, X [][]float64, Y []float64, batchSize, epochs int) <-chan Batch {
	samples := make(chan Sample, batchSize)
	go func() {
		defer close(samples)
		for range epochs {
			for i := range X {
				select {
				case samples <- Sample{X: X[i], Y: Y[i]}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	out := make(chan Batch)
	Batcher(ctx, samples, batchSize, out)
	return out
}

// LoadImagesCSV reads images stored one per CSV line as
// <label>,<pixel 0>,...,<pixel n-1>, with an optional header line.
func LoadImagesCSV(ctx context.Context, path string, lg *logging.Logger) (*ImageSet, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples := make(chan Sample, 256)
	if err := StreamCSV(ctx, path, 0, samples, lg); err != nil {
		return nil, err
	}
	var labels []float64
	var pixels []float64
	width := -1
	for s := range samples {
		if width == -1 {
			width = len(s.X)
		} else if len(s.X) != width {
			return nil, errors.Errorf("%s: row %d has %d pixels, want %d", path, len(labels)+1, len(s.X), width)
		}
		labels = append(labels, s.Y)
		pixels = append(pixels, s.X...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, errors.Errorf("%s: no images", path)
	}
	return NewImageSet(
		&Array{Shape: []int{len(labels), width}, Data: pixels},
		&Array{Shape: []int{len(labels)}, Data: labels},
	)
}
