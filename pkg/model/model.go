package model

// Model is a generic supervised learning interface.
type Model interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

// Transformer is for preprocessing steps (fit on train, transform both).
type Transformer interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) [][]float64
	FitTransform(X [][]float64) [][]float64
}

var (
	_ Model       = (*DecisionTreeRegressor)(nil)
	_ Model       = (*RandomForestRegressor)(nil)
	_ Transformer = (*PCA)(nil)
)
