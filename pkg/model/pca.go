package model

import (
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/core"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA projects rows onto their top K principal components.
type PCA struct {
	K          int
	Means      []float64
	Components *mat.Dense // p x K, unit columns
	Explained  []float64  // variance ratio of each kept component
}

// NewPCA creates and returns a new PCA model.
func NewPCA(k int) *PCA {
	return &PCA{K: k}
}

// Fit computes the principal directions of X.
func (pca *PCA) Fit(X [][]float64) error {
	m, err := core.FromRows(X)
	if err != nil {
		return errors.Wrap(err, "pca")
	}
	r, p := m.Dims()
	if pca.K <= 0 || pca.K > min(r, p) {
		return errors.Errorf("pca: cannot keep %d components of a %dx%d matrix", pca.K, r, p)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return errors.New("pca: decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	pca.Components = mat.DenseCopyOf(vecs.Slice(0, p, 0, pca.K))
	total := stats.Sum(vars)
	pca.Explained = make([]float64, pca.K)
	for i := range pca.Explained {
		if total > 0 {
			pca.Explained[i] = vars[i] / total
		}
	}
	pca.Means = make([]float64, p)
	for j := range pca.Means {
		pca.Means[j] = stats.Mean(stats.Column(X, j))
	}
	return nil
}

// Transform returns the centered rows of X projected onto the components.
// X is returned unchanged when the model has not been fitted.
func (pca *PCA) Transform(X [][]float64) [][]float64 {
	if pca.Components == nil || len(X) == 0 {
		return X
	}
	centered := make([][]float64, len(X))
	for i, row := range X {
		c := make([]float64, len(row))
		for j, v := range row {
			c[j] = v - pca.Means[j]
		}
		centered[i] = c
	}
	m, err := core.FromRows(centered)
	if err != nil {
		return X
	}
	var proj mat.Dense
	proj.Mul(m, pca.Components)
	return core.RowsOf(&proj)
}

func (pca *PCA) FitTransform(X [][]float64) [][]float64 {
	if err := pca.Fit(X); err != nil {
		return X
	}
	return pca.Transform(X)
}
