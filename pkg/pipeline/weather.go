package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/config"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/data"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/dataprep"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/loader"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/model"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/plotting"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/report"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/stats"
	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
)

const (
	// depth of the single tree printed for inspection
	shallowDepth = 3

	linearRate   = 0.01
	linearBatch  = 32
	linearEpochs = 200
)

// Scores are the regression figures reported for a set of predictions.
// Accuracy is 100 minus the mean absolute percentage error.
type Scores struct {
	MAE      float64
	MAPE     float64
	Accuracy float64
	RMSE     float64
	R2       float64
}

func score(yTrue, yPred []float64) Scores {
	mape := model.MAPE(yTrue, yPred)
	return Scores{
		MAE:      model.MAE(yTrue, yPred),
		MAPE:     mape,
		Accuracy: 100 - mape,
		RMSE:     model.RMSE(yTrue, yPred),
		R2:       model.R2(yTrue, yPred),
	}
}

func (s Scores) metrics() []report.Metric {
	return []report.Metric{
		{Name: "Mean Absolute Error", Value: s.MAE, Unit: "degrees"},
		{Name: "Accuracy", Value: s.Accuracy, Unit: "%"},
		{Name: "RMSE", Value: s.RMSE, Unit: "degrees"},
		{Name: "R2", Value: s.R2},
	}
}

// WeatherResult is the outcome of the random-forest exercise.
type WeatherResult struct {
	Forest      *model.RandomForestRegressor
	Schema      *Schema
	Split       loader.Split
	Predictions []float64 // test rows, in Split.TestIdx order

	// BaselineMAE is the error of predicting the historical average column.
	// It is only set when HasBaseline is.
	BaselineMAE float64
	HasBaseline bool

	Test        Scores
	Importances []float64
	Reduced     *Scores   // forest on the top features only
	ReducedOn   []string  // names of those features
	CV          []float64 // per-fold MAE
	Linear      *Scores
	Artifacts   []string
}

// Metrics flattens the headline figures for the run registry.
func (r *WeatherResult) Metrics() map[string]float64 {
	m := map[string]float64{
		"mae":      r.Test.MAE,
		"accuracy": r.Test.Accuracy,
		"rmse":     r.Test.RMSE,
		"r2":       r.Test.R2,
	}
	if r.HasBaseline {
		m["baseline_mae"] = r.BaselineMAE
	}
	if r.Reduced != nil {
		m["reduced_mae"] = r.Reduced.MAE
		m["reduced_accuracy"] = r.Reduced.Accuracy
	}
	if len(r.CV) > 0 {
		m["cv_mae_mean"] = stats.Mean(r.CV)
		m["cv_mae_std"] = stats.Std(r.CV)
	}
	if r.Linear != nil {
		m["linear_mae"] = r.Linear.MAE
	}
	return m
}

func newForest(cfg config.Weather) *model.RandomForestRegressor {
	return model.NewRandomForestRegressor(
		model.WithNEstimators(cfg.Trees),
		model.WithForestRandomState(cfg.Seed),
		model.WithForestMaxDepth(cfg.MaxDepth),
		model.WithForestMaxFeatures(cfg.MaxFeatures),
		model.WithForestMinSamplesLeaf(max(cfg.MinSamplesLeaf, 1)),
		model.WithWorkers(cfg.Workers),
		model.WithBootstrap(cfg.Bootstrap),
	)
}

// fitForest fits rf with a progress bar on w when w is non-nil.
func fitForest(ctx context.Context, rf *model.RandomForestRegressor, X [][]float64, y []float64, w io.Writer, label string) error {
	if w != nil {
		bar := pb.New(rf.NEstimators).SetWriter(w)
		bar.Set("prefix", label+" ")
		bar.Start()
		defer bar.Finish()
		rf.OnTreeDone = func() { bar.Increment() }
	}
	return rf.FitContext(ctx, X, y)
}

// frameDates returns one date per row when the frame has year, month and day
// columns, and nil otherwise.
func frameDates(f *data.Frame) []time.Time {
	if f.Index("year") < 0 || f.Index("month") < 0 || f.Index("day") < 0 {
		return nil
	}
	dates, err := dataprep.Dates(f, "year", "month", "day")
	if err != nil {
		return nil
	}
	return dates
}

// RunWeather fits a random forest predicting cfg.Target from the other
// columns of the CSV at cfg.Path and reports its error on a held-out split.
func RunWeather(ctx context.Context, cfg config.Weather, env Env) (*WeatherResult, error) {
	env.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	frame, err := data.ReadCSV(cfg.Path)
	if err != nil {
		return nil, err
	}
	env.Log.Info.Printf("%s: %d rows, %d columns", cfg.Path, frame.Len(), len(frame.Headers))
	if cfg.MissingThreshold > 0 {
		var actions []dataprep.Action
		frame, actions = dataprep.HandleMissingValues(frame, cfg.MissingThreshold)
		for _, a := range actions {
			env.Log.Info.Printf("missing values: %s", a)
		}
	}
	dates := frameDates(frame)

	encoded, cats, err := dataprep.EncodeColumns(frame, cfg.Encode)
	if err != nil {
		return nil, err
	}
	X, y, names, err := dataprep.ToMatrix(encoded, cfg.Target)
	if err != nil {
		return nil, err
	}
	schema := NewSchema(names, cats, cfg.Encode, cfg.Target)
	schema.Print(env.Out)
	report.Preview(env.Out, names, X, y, 5)

	split, err := loader.NewSplit(len(X), cfg.TestRatio, cfg.Seed)
	if err != nil {
		return nil, err
	}
	if len(split.TestIdx) == 0 {
		return nil, errors.Errorf("%d rows leave an empty test set at ratio %v", len(X), cfg.TestRatio)
	}
	xTrain, xTest := loader.Rows(X, split.TrainIdx), loader.Rows(X, split.TestIdx)
	yTrain, yTest := loader.Values(y, split.TrainIdx), loader.Values(y, split.TestIdx)
	fmt.Fprintf(env.Out, "Training features: %d x %d, testing features: %d x %d\n",
		len(xTrain), len(names), len(xTest), len(names))

	res := &WeatherResult{Schema: schema, Split: split}
	if b := indexOf(names, cfg.Baseline); cfg.Baseline != "" && b >= 0 {
		base := make([]float64, len(xTest))
		for i, row := range xTest {
			base[i] = row[b]
		}
		res.BaselineMAE, res.HasBaseline = model.MAE(yTest, base), true
		fmt.Fprintf(env.Out, "Average baseline error: %.2f degrees\n", res.BaselineMAE)
	}

	rf := newForest(cfg)
	if err := fitForest(ctx, rf, xTrain, yTrain, env.Progress, "forest"); err != nil {
		return nil, errors.Wrap(err, "forest training failed")
	}
	res.Forest = rf
	res.Predictions = rf.Predict(xTest)
	res.Test = score(yTest, res.Predictions)
	report.Metrics(env.Out, fmt.Sprintf("Random forest, %d trees", rf.NEstimators), res.Test.metrics())
	leaves, depth := rf.Stats()
	env.Log.Info.Printf("forest: %.1f leaves per tree on average, max depth %d", leaves, depth)

	res.Importances = rf.FeatureImportances()
	report.Importances(env.Out, names, res.Importances, 0)

	if cfg.Top > 0 && cfg.Top < len(names) {
		top := report.Ranked(res.Importances)[:cfg.Top]
		for _, j := range top {
			res.ReducedOn = append(res.ReducedOn, names[j])
		}
		small := newForest(cfg)
		if err := fitForest(ctx, small, dataprep.FeatureSelect(xTrain, top), yTrain, env.Progress, "reduced"); err != nil {
			return nil, errors.Wrap(err, "reduced forest training failed")
		}
		s := score(yTest, small.Predict(dataprep.FeatureSelect(xTest, top)))
		res.Reduced = &s
		report.Metrics(env.Out, fmt.Sprintf("Random forest on %v", res.ReducedOn), s.metrics())
	}

	if cfg.Folds >= 2 {
		if res.CV, err = crossValidate(ctx, cfg, xTrain, yTrain); err != nil {
			return nil, err
		}
		fmt.Fprintf(env.Out, "%d-fold cross-validation MAE: %.2f +/- %.2f degrees\n",
			cfg.Folds, stats.Mean(res.CV), stats.Std(res.CV))
	}

	if cfg.Linear {
		s, err := linearBaseline(ctx, cfg, xTrain, yTrain, xTest, yTest)
		if err != nil {
			return nil, err
		}
		res.Linear = &s
		report.Metrics(env.Out, "Linear regression", s.metrics())
	}

	arts, err := newArtifacts(env.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := writeWeatherArtifacts(arts, res, cfg, names, dates, y, xTrain, yTrain); err != nil {
		return nil, err
	}
	res.Artifacts = arts.paths
	return res, nil
}

func writeWeatherArtifacts(arts *artifacts, res *WeatherResult, cfg config.Weather, names []string,
	dates []time.Time, y []float64, xTrain [][]float64, yTrain []float64) error {
	dir := arts.dir
	err := arts.add(filepath.Join(dir, "weather_forest.gob"), func(p string) error {
		return model.SaveForest(p, res.Forest)
	})
	if err != nil {
		return err
	}

	err = arts.add(filepath.Join(dir, "weather_tree.txt"), func(p string) error {
		tree := model.NewDecisionTreeRegressor(model.WithMaxDepth(shallowDepth), model.WithRandomState(cfg.Seed))
		if err := tree.Fit(xTrain, yTrain); err != nil {
			return err
		}
		f, err := os.Create(p)
		if err != nil {
			return errors.Wrapf(err, "couldn't create %s", p)
		}
		defer f.Close()
		report.Tree(f, tree, names, shallowDepth)
		return f.Close()
	})
	if err != nil {
		return err
	}

	err = arts.add(filepath.Join(dir, "weather_importances.png"), func(p string) error {
		return plotting.Importances(p, names, res.Importances, 0)
	})
	if err != nil {
		return err
	}

	if dates != nil {
		err = arts.add(filepath.Join(dir, "weather_predictions.png"), func(p string) error {
			return plotting.ActualVsPredicted(p, dates, y, res.Predictions, loader.Values(dates, res.Split.TestIdx))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// crossValidate returns the test MAE of a forest fitted on every k-1 folds of
// the training rows.
func crossValidate(ctx context.Context, cfg config.Weather, X [][]float64, y []float64) ([]float64, error) {
	folds, err := loader.KFoldSplit(len(X), cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "cross-validation")
	}
	maes := make([]float64, 0, len(folds))
	for k, held := range folds {
		var fit []int
		for j, f := range folds {
			if j != k {
				fit = append(fit, f...)
			}
		}
		rf := newForest(cfg)
		if err := rf.FitContext(ctx, loader.Rows(X, fit), loader.Values(y, fit)); err != nil {
			return nil, errors.Wrapf(err, "fold %d", k+1)
		}
		maes = append(maes, model.MAE(loader.Values(y, held), rf.Predict(loader.Rows(X, held))))
	}
	return maes, nil
}

// linearBaseline fits a linear model on standardized features.
func linearBaseline(ctx context.Context, cfg config.Weather, xTrain [][]float64, yTrain []float64, xTest [][]float64, yTest []float64) (Scores, error) {
	// releases the batch producer if Fit stops early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scale := NewPipeline(stats.NewStandardScaler())
	xs, err := scale.FitTransform(xTrain)
	if err != nil {
		return Scores{}, err
	}
	lr := model.NewLinearRegression(len(xTrain[0]), linearRate, cfg.Seed)
	if err := lr.Fit(data.Batches(ctx, xs, yTrain, linearBatch, linearEpochs)); err != nil {
		return Scores{}, errors.Wrap(err, "linear regression")
	}
	if err := ctx.Err(); err != nil {
		return Scores{}, err
	}
	return score(yTest, lr.Predict(scale.Transform(xTest))), nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// WeatherParams flattens the settings of a weather run for the run registry.
func WeatherParams(cfg config.Weather) map[string]string {
	return map[string]string{
		"path":         cfg.Path,
		"target":       cfg.Target,
		"encode":       cfg.Encode,
		"test_ratio":   strconv.FormatFloat(cfg.TestRatio, 'g', -1, 64),
		"seed":         strconv.FormatInt(cfg.Seed, 10),
		"trees":        strconv.Itoa(cfg.Trees),
		"max_depth":    strconv.Itoa(cfg.MaxDepth),
		"max_features": strconv.Itoa(cfg.MaxFeatures),
		"bootstrap":    strconv.FormatBool(cfg.Bootstrap),
	}
}
