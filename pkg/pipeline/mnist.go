package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/config"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/core"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/data"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/logging"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/model"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/nn"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/plotting"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/report"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/stats"
	"github.com/pkg/errors"
)

// pixelMax is the top of the 8-bit intensity range of the MNIST dumps.
const pixelMax = 255

// pcaPoints bounds the test images projected for the PCA scatter.
const pcaPoints = 2000

// MNISTResult is the outcome of the neural-network exercise.
type MNISTResult struct {
	Network      *nn.Network
	History      *nn.History
	TestLoss     float64
	TestAccuracy float64
	// MajorityAccuracy is the test accuracy of always predicting the most
	// frequent training label.
	MajorityAccuracy float64
	Confusion        [][]int
	Scores           []model.ClassScore
	Artifacts        []string
}

// Metrics flattens the headline figures for the run registry.
func (r *MNISTResult) Metrics() map[string]float64 {
	m := map[string]float64{
		"test_loss":         r.TestLoss,
		"test_accuracy":     r.TestAccuracy,
		"majority_accuracy": r.MajorityAccuracy,
	}
	if n := len(r.History.Loss); n > 0 {
		m["train_loss"] = r.History.Loss[n-1]
		m["train_accuracy"] = r.History.Accuracy[n-1]
	}
	return m
}

func loadMNIST(ctx context.Context, cfg config.MNIST, lg *logging.Logger) (train, test *data.ImageSet, err error) {
	if cfg.TrainCSV != "" {
		if train, err = data.LoadImagesCSV(ctx, cfg.TrainCSV, lg); err != nil {
			return nil, nil, err
		}
		if test, err = data.LoadImagesCSV(ctx, cfg.TestCSV, lg); err != nil {
			return nil, nil, err
		}
		return train, test, nil
	}
	if train, err = data.LoadImages(cfg.TrainImages, cfg.TrainLabels); err != nil {
		return nil, nil, err
	}
	if test, err = data.LoadImages(cfg.TestImages, cfg.TestLabels); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// RunMNIST trains a multilayer perceptron on the training images and reports
// its accuracy on the test images.
func RunMNIST(ctx context.Context, cfg config.MNIST, env Env) (*MNISTResult, error) {
	env.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	act, err := nn.ParseActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}

	train, test, err := loadMNIST(ctx, cfg, env.Log)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't load images")
	}
	train = train.Head(cfg.Limit)
	if train.Features() != test.Features() {
		return nil, errors.Errorf("train images have %d pixels, test images %d", train.Features(), test.Features())
	}
	env.Log.Info.Printf("train: %d images of %dx%d, test: %d images", train.Len(), train.Rows, train.Cols, test.Len())

	scale := NewPipeline(stats.NewPixelScaler(pixelMax))
	xTrain, err := scale.FitTransform(train.Images)
	if err != nil {
		return nil, err
	}
	xTest := scale.Transform(test.Images)
	classes := max(train.Classes(), test.Classes())

	net, err := nn.NewNetwork(nn.Config{
		Inputs:     train.Features(),
		Hidden:     cfg.Hidden,
		Outputs:    classes,
		Activation: act,
		Seed:       cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	net.Summary(env.Out)

	hist, err := net.FitClasses(ctx, xTrain, train.Labels, nn.TrainOptions{
		Epochs:          cfg.Epochs,
		BatchSize:       cfg.BatchSize,
		LearningRate:    cfg.LearningRate,
		Momentum:        cfg.Momentum,
		Shuffle:         true,
		ValidationSplit: cfg.ValidationSplit,
		Seed:            cfg.Seed,
		Verbose:         env.Progress != nil,
		Progress:        env.Progress,
	})
	if err != nil {
		return nil, errors.Wrap(err, "training failed")
	}

	yTest, err := core.OneHot(test.Labels, classes)
	if err != nil {
		return nil, err
	}
	loss, _, err := net.Evaluate(xTest, core.RowsOf(yTest))
	if err != nil {
		return nil, err
	}
	preds, err := net.PredictClasses(xTest)
	if err != nil {
		return nil, err
	}
	cm, err := model.ConfusionMatrix(test.Labels, preds, classes)
	if err != nil {
		return nil, err
	}
	res := &MNISTResult{
		Network:          net,
		History:          hist,
		TestLoss:         loss,
		TestAccuracy:     model.Accuracy(test.Labels, preds),
		MajorityAccuracy: majorityAccuracy(train.Labels, test.Labels),
		Confusion:        cm,
		Scores:           model.ClassScores(cm),
	}

	report.Metrics(env.Out, "Test set", []report.Metric{
		{Name: "loss", Value: res.TestLoss},
		{Name: "accuracy", Value: res.TestAccuracy},
		{Name: "majority-class accuracy", Value: res.MajorityAccuracy},
	})
	report.Confusion(env.Out, cm)
	report.ClassScores(env.Out, res.Scores)

	arts, err := newArtifacts(env.OutputDir)
	if err != nil {
		return nil, err
	}
	dir := arts.dir
	if err := arts.add(filepath.Join(dir, "mnist_model.gob"), net.Save); err != nil {
		return nil, err
	}
	err = arts.add(filepath.Join(dir, "mnist_history.png"), func(p string) error {
		return plotting.History(p, hist.Loss, hist.Accuracy, hist.ValLoss, hist.ValAccuracy)
	})
	if err != nil {
		return nil, err
	}
	if cfg.Samples > 0 {
		err = arts.add(filepath.Join(dir, "mnist_digits.png"), func(p string) error {
			return plotting.Digits(p, test.Images, test.Rows, test.Cols, test.Labels, preds, cfg.Samples)
		})
		if err != nil {
			return nil, err
		}
	}
	err = arts.add(filepath.Join(dir, "mnist_confusion.png"), func(p string) error {
		return plotting.ConfusionHeatMap(p, cm)
	})
	if err != nil {
		return nil, err
	}
	if cfg.PCA {
		n := min(pcaPoints, len(xTest))
		pca := model.NewPCA(2)
		if err := pca.Fit(xTest[:n]); err != nil {
			env.Log.Warn.Printf("skipping PCA plot: %v", err)
		} else {
			err = arts.add(filepath.Join(dir, "mnist_pca.png"), func(p string) error {
				return plotting.Scatter2D(p, "Test images, first two principal components", pca.Transform(xTest[:n]), test.Labels[:n])
			})
			if err != nil {
				return nil, err
			}
			env.Log.Info.Printf("PCA: first two components explain %.1f%% of the pixel variance",
				100*(pca.Explained[0]+pca.Explained[1]))
		}
	}
	res.Artifacts = arts.paths
	return res, nil
}

func majorityAccuracy(train, test []int) float64 {
	labels := make([]float64, len(train))
	for i, l := range train {
		labels[i] = float64(l)
	}
	majority := int(stats.Mode(labels))
	guess := make([]int, len(test))
	for i := range guess {
		guess[i] = majority
	}
	return model.Accuracy(test, guess)
}

// MNISTParams flattens the settings of an MNIST run for the run registry.
func MNISTParams(cfg config.MNIST) map[string]string {
	return map[string]string{
		"hidden":        fmt.Sprint(cfg.Hidden),
		"activation":    cfg.Activation,
		"learning_rate": strconv.FormatFloat(cfg.LearningRate, 'g', -1, 64),
		"momentum":      strconv.FormatFloat(cfg.Momentum, 'g', -1, 64),
		"batch_size":    strconv.Itoa(cfg.BatchSize),
		"epochs":        strconv.Itoa(cfg.Epochs),
		"seed":          strconv.FormatInt(cfg.Seed, 10),
	}
}
