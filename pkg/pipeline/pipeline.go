package pipeline

import (
	"io"
	"os"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/logging"
	"github.com/pkg/errors"
)

// Transformer interface for fit/transform pattern.
type Transformer interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) [][]float64
}

// Pipeline chains multiple transformers. Each step is fitted on the output
// of the previous one.
type Pipeline struct {
	steps []Transformer
}

func NewPipeline(steps ...Transformer) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) Fit(X [][]float64) error {
	for i, step := range p.steps {
		if err := step.Fit(X); err != nil {
			return errors.Wrapf(err, "pipeline step %d", i)
		}
		X = step.Transform(X)
	}
	return nil
}

func (p *Pipeline) Transform(X [][]float64) [][]float64 {
	for _, step := range p.steps {
		X = step.Transform(X)
	}
	return X
}

// FitTransform fits the chain on X and returns X transformed by it.
func (p *Pipeline) FitTransform(X [][]float64) ([][]float64, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X), nil
}

// Env carries what a run writes to: the report stream, progress bars, the
// loggers and the artifact directory.
type Env struct {
	Out       io.Writer // report text
	Progress  io.Writer // progress bars, nil disables them
	Log       *logging.Logger
	OutputDir string
}

func (e *Env) defaults() {
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.Log == nil {
		e.Log = logging.Discard()
	}
	if e.OutputDir == "" {
		e.OutputDir = "."
	}
}

// artifacts collects the files a run writes below the output directory.
type artifacts struct {
	dir   string
	paths []string
}

func newArtifacts(dir string) (*artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "couldn't create %s", dir)
	}
	return &artifacts{dir: dir}, nil
}

// add records path once the function writing it succeeds.
func (a *artifacts) add(path string, write func(string) error) error {
	if err := write(path); err != nil {
		return err
	}
	a.paths = append(a.paths, path)
	return nil
}
