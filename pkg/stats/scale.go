package stats

import "math"

// StandardScaler standardizes each column to zero mean and unit variance.
type StandardScaler struct {
	Mean []float64
	Std  []float64
	fit  bool
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return nil
	}
	r, c := len(X), len(X[0])
	s.Mean = make([]float64, c)
	s.Std = make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			s.Mean[j] += X[i][j]
		}
		s.Mean[j] /= float64(r)
		v := 0.0
		for i := 0; i < r; i++ {
			d := X[i][j] - s.Mean[j]
			v += d * d
		}
		v /= float64(r)
		s.Std[j] = math.Sqrt(v)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	s.fit = true
	return nil
}

func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	if !s.fit || len(X) == 0 {
		return X
	}
	Y := make([][]float64, len(X))
	for i, row := range X {
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = (v - s.Mean[j]) / s.Std[j]
		}
		Y[i] = out
	}
	return Y
}

func (s *StandardScaler) FitTransform(X [][]float64) [][]float64 { _ = s.Fit(X); return s.Transform(X) }

// MinMaxScaler maps each column to [0, 1] using the range seen during Fit.
// Constant columns map to 0.
type MinMaxScaler struct {
	Min []float64
	Max []float64
}

func NewMinMaxScaler() *MinMaxScaler { return &MinMaxScaler{} }

func (s *MinMaxScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return nil
	}
	c := len(X[0])
	s.Min = make([]float64, c)
	s.Max = make([]float64, c)
	for j := 0; j < c; j++ {
		s.Min[j], s.Max[j] = MinMax(Column(X, j))
	}
	return nil
}

func (s *MinMaxScaler) Transform(X [][]float64) [][]float64 {
	if s.Min == nil {
		return X
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			if s.Max[j] != s.Min[j] {
				r[j] = (v - s.Min[j]) / (s.Max[j] - s.Min[j])
			}
		}
		out[i] = r
	}
	return out
}

func (s *MinMaxScaler) FitTransform(X [][]float64) [][]float64 { _ = s.Fit(X); return s.Transform(X) }

// PixelScaler rescales raw intensities in [0, Max] to the unit interval.
// Unlike MinMaxScaler it uses a fixed range, so Fit is a no-op.
type PixelScaler struct {
	Max float64
}

func NewPixelScaler(max float64) *PixelScaler { return &PixelScaler{Max: max} }

func (s *PixelScaler) Fit(X [][]float64) error { return nil }

func (s *PixelScaler) Transform(X [][]float64) [][]float64 {
	if s.Max == 0 {
		return X
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = v / s.Max
		}
		out[i] = r
	}
	return out
}

func (s *PixelScaler) FitTransform(X [][]float64) [][]float64 { return s.Transform(X) }
