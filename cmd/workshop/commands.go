package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/pipeline"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/runstore"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newWeatherCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Predict the daily maximum temperature with a random forest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.log.Host()
			cfg := a.cfg.Weather
			run := runstore.NewRun("weather")
			run.Params = pipeline.WeatherParams(cfg)

			res, err := pipeline.RunWeather(cmd.Context(), cfg, a.env())
			if err != nil {
				return err
			}
			run.Metrics = res.Metrics()
			run.Artifacts = res.Artifacts
			return a.record(run)
		},
	}
	f := cmd.Flags()
	f.String("path", "data/temps.csv", "temperature CSV")
	f.String("target", "actual", "column to predict")
	f.String("encode", "onehot", "categorical encoding: onehot, label or freq")
	f.Float64("test-ratio", 0.25, "fraction of rows held out for testing")
	f.Int64("seed", 42, "seed for the split and the forest")
	f.Int("trees", 1000, "number of trees")
	f.Int("max-depth", 0, "maximum tree depth, 0 = unlimited")
	f.Int("max-features", 0, "features tried per split, 0 = all")
	f.Int("workers", 0, "trees grown in parallel, 0 = one per CPU")
	f.Bool("bootstrap", true, "grow each tree on a bootstrap sample")
	f.Int("top", 2, "features kept by the reduced model, 0 = skip it")
	f.Int("folds", 0, "cross-validation folds, 0 = skip")
	f.Bool("linear", false, "also fit a linear regression baseline")
	bind(a.v, cmd, map[string]string{
		"weather.path":         "path",
		"weather.target":       "target",
		"weather.encode":       "encode",
		"weather.test_ratio":   "test-ratio",
		"weather.seed":         "seed",
		"weather.trees":        "trees",
		"weather.max_depth":    "max-depth",
		"weather.max_features": "max-features",
		"weather.workers":      "workers",
		"weather.bootstrap":    "bootstrap",
		"weather.top":          "top",
		"weather.folds":        "folds",
		"weather.linear":       "linear",
	})
	return cmd
}

func newMNISTCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnist",
		Short: "Train a neural network on handwritten digits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.log.Host()
			cfg := a.cfg.MNIST
			run := runstore.NewRun("mnist")
			run.Params = pipeline.MNISTParams(cfg)

			res, err := pipeline.RunMNIST(cmd.Context(), cfg, a.env())
			if err != nil {
				return err
			}
			run.Metrics = res.Metrics()
			run.Artifacts = res.Artifacts
			return a.record(run)
		},
	}
	f := cmd.Flags()
	f.String("train-images", "data/mnist/x_train.npy", "training images (.npy or IDX)")
	f.String("train-labels", "data/mnist/y_train.npy", "training labels (.npy or IDX)")
	f.String("test-images", "data/mnist/x_test.npy", "test images (.npy or IDX)")
	f.String("test-labels", "data/mnist/y_test.npy", "test labels (.npy or IDX)")
	f.String("train-csv", "", "training set as label,pixels CSV, replaces the array dumps")
	f.String("test-csv", "", "test set as label,pixels CSV")
	f.IntSlice("hidden", []int{128, 64}, "hidden layer sizes")
	f.String("activation", "relu", "hidden activation: relu, sigmoid or tanh")
	f.Float64("learning-rate", 0.1, "SGD learning rate")
	f.Float64("momentum", 0, "SGD momentum")
	f.Int("batch-size", 128, "mini-batch size")
	f.Int("epochs", 10, "passes over the training set")
	f.Float64("validation-split", 0, "fraction of training images held out for validation")
	f.Int64("seed", 42, "seed for weight initialization and shuffling")
	f.Int("limit", 0, "train on the first N images, 0 = all")
	f.Int("samples", 16, "digits drawn in the sample plot")
	f.Bool("pca", true, "plot the test images on their first two principal components")
	bind(a.v, cmd, map[string]string{
		"mnist.train_images":     "train-images",
		"mnist.train_labels":     "train-labels",
		"mnist.test_images":      "test-images",
		"mnist.test_labels":      "test-labels",
		"mnist.train_csv":        "train-csv",
		"mnist.test_csv":         "test-csv",
		"mnist.hidden":           "hidden",
		"mnist.activation":       "activation",
		"mnist.learning_rate":    "learning-rate",
		"mnist.momentum":         "momentum",
		"mnist.batch_size":       "batch-size",
		"mnist.epochs":           "epochs",
		"mnist.validation_split": "validation-split",
		"mnist.seed":             "seed",
		"mnist.limit":            "limit",
		"mnist.samples":          "samples",
		"mnist.pca":              "pca",
	})
	return cmd
}

func newPrepCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prep",
		Short: "Clean and encode a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Prep
			if cfg.Input == "" {
				return errors.New("--input is required")
			}
			_, err := pipeline.Prepare(cfg, a.env())
			return err
		},
	}
	f := cmd.Flags()
	f.String("input", "", "CSV file to process")
	f.String("output", "", "where to save the processed CSV, empty to preview only")
	f.String("label", "", "label column kept out of the features")
	f.Float64("missing-thresh", 0.2, "missing-value handling threshold, 0 = skip")
	f.String("encode", "onehot", "categorical encoding: none, label, onehot or freq")
	f.Bool("dedup", false, "drop duplicate rows")
	f.Float64("clip", 0, "clip this percentage off both tails of every feature, 0 = off")
	f.String("scale", "none", "feature scaling: none, standard or minmax")
	f.Int("poly-degree", 1, "2 adds squares and pairwise products of the features")
	f.Int("preview", 5, "rows to preview")
	bind(a.v, cmd, map[string]string{
		"prep.input":             "input",
		"prep.output":            "output",
		"prep.label":             "label",
		"prep.missing_threshold": "missing-thresh",
		"prep.encode":            "encode",
		"prep.dedup":             "dedup",
		"prep.clip":              "clip",
		"prep.scale":             "scale",
		"prep.poly_degree":       "poly-degree",
		"prep.preview":           "preview",
	})
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs [id]",
		Short: "List recorded runs or show one of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RunStore == "" {
				return errors.New("run registry is disabled")
			}
			store, err := runstore.Open(a.cfg.RunStore)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.Get(args[0])
				if err != nil {
					return err
				}
				printRun(a, run)
				return nil
			}
			runs, err := store.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEXERCISE\tSTARTED\tDURATION\tHEADLINE")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Exercise,
					r.Started.Local().Format(time.DateTime), r.Duration.Round(time.Millisecond), headline(r))
			}
			return w.Flush()
		},
	}
}

// headline picks the figure a run is usually judged by.
func headline(r *runstore.Run) string {
	for _, k := range []string{"test_accuracy", "accuracy", "mae"} {
		if v, ok := r.Metrics[k]; ok {
			return fmt.Sprintf("%s=%.4f", k, v)
		}
	}
	return ""
}

func printRun(a *app, r *runstore.Run) {
	fmt.Fprintf(a.out, "Run %s (%s)\n", r.ID, r.Exercise)
	fmt.Fprintf(a.out, "Started %s, took %s\n", r.Started.Local().Format(time.DateTime), r.Duration.Round(time.Millisecond))
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Params:")
	for _, k := range sortedKeys(r.Params) {
		fmt.Fprintf(w, "  %s\t%s\n", k, r.Params[k])
	}
	fmt.Fprintln(w, "Metrics:")
	for _, k := range sortedKeys(r.Metrics) {
		fmt.Fprintf(w, "  %s\t%.4f\n", k, r.Metrics[k])
	}
	w.Flush()
	if len(r.Artifacts) > 0 {
		fmt.Fprintf(a.out, "Artifacts:\n  %s\n", strings.Join(r.Artifacts, "\n  "))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
