// Package config assembles the workshop settings from defaults, an optional
// config file, a .env file, WORKSHOP_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// WORKSHOP_WEATHER_TREES=500.
const EnvPrefix = "WORKSHOP"

// MNIST configures the neural-network exercise.
type MNIST struct {
	TrainImages string `mapstructure:"train_images"`
	TrainLabels string `mapstructure:"train_labels"`
	TestImages  string `mapstructure:"test_images"`
	TestLabels  string `mapstructure:"test_labels"`
	// TrainCSV and TestCSV replace the array dumps when set.
	TrainCSV string `mapstructure:"train_csv"`
	TestCSV  string `mapstructure:"test_csv"`

	Hidden          []int   `mapstructure:"hidden"`
	Activation      string  `mapstructure:"activation"`
	LearningRate    float64 `mapstructure:"learning_rate"`
	Momentum        float64 `mapstructure:"momentum"`
	BatchSize       int     `mapstructure:"batch_size"`
	Epochs          int     `mapstructure:"epochs"`
	ValidationSplit float64 `mapstructure:"validation_split"`
	Seed            int64   `mapstructure:"seed"`
	Limit           int     `mapstructure:"limit"`   // train on the first Limit images, 0 = all
	Samples         int     `mapstructure:"samples"` // digits drawn in the sample plot
	PCA             bool    `mapstructure:"pca"`
}

// Weather configures the random-forest exercise.
type Weather struct {
	Path             string  `mapstructure:"path"`
	Target           string  `mapstructure:"target"`
	Baseline         string  `mapstructure:"baseline"`
	Encode           string  `mapstructure:"encode"`
	MissingThreshold float64 `mapstructure:"missing_threshold"`
	TestRatio        float64 `mapstructure:"test_ratio"`
	Seed             int64   `mapstructure:"seed"`
	Trees            int     `mapstructure:"trees"`
	MaxDepth         int     `mapstructure:"max_depth"`
	MaxFeatures      int     `mapstructure:"max_features"`
	MinSamplesLeaf   int     `mapstructure:"min_samples_leaf"`
	Workers          int     `mapstructure:"workers"`
	Bootstrap        bool    `mapstructure:"bootstrap"`
	Top              int     `mapstructure:"top"`   // features kept by the reduced model, 0 = skip it
	Folds            int     `mapstructure:"folds"` // cross-validation folds, 0 = skip
	Linear           bool    `mapstructure:"linear"`
}

// Prep configures the standalone preprocessing of a CSV file.
type Prep struct {
	Input            string  `mapstructure:"input"`
	Output           string  `mapstructure:"output"` // empty: preview only
	Label            string  `mapstructure:"label"`  // empty: no label column
	MissingThreshold float64 `mapstructure:"missing_threshold"`
	Encode           string  `mapstructure:"encode"`
	Dedup            bool    `mapstructure:"dedup"`
	Clip             float64 `mapstructure:"clip"`  // percent clipped off each tail, 0 = off
	Scale            string  `mapstructure:"scale"` // none, standard or minmax
	PolyDegree       int     `mapstructure:"poly_degree"`
	Preview          int     `mapstructure:"preview"`
}

// Config is the full workshop configuration.
type Config struct {
	MNIST     MNIST   `mapstructure:"mnist"`
	Weather   Weather `mapstructure:"weather"`
	Prep      Prep    `mapstructure:"prep"`
	OutputDir string  `mapstructure:"out"`
	RunStore  string  `mapstructure:"runstore"`
	Verbose   bool    `mapstructure:"verbose"`
}

// SetDefaults registers the workshop defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("out", "out")
	v.SetDefault("runstore", "workshop.db")
	v.SetDefault("verbose", true)

	v.SetDefault("mnist.train_images", "data/mnist/x_train.npy")
	v.SetDefault("mnist.train_labels", "data/mnist/y_train.npy")
	v.SetDefault("mnist.test_images", "data/mnist/x_test.npy")
	v.SetDefault("mnist.test_labels", "data/mnist/y_test.npy")
	v.SetDefault("mnist.train_csv", "")
	v.SetDefault("mnist.test_csv", "")
	v.SetDefault("mnist.hidden", []int{128, 64})
	v.SetDefault("mnist.activation", "relu")
	v.SetDefault("mnist.learning_rate", 0.1)
	v.SetDefault("mnist.momentum", 0.0)
	v.SetDefault("mnist.batch_size", 128)
	v.SetDefault("mnist.epochs", 10)
	v.SetDefault("mnist.validation_split", 0.0)
	v.SetDefault("mnist.seed", 42)
	v.SetDefault("mnist.limit", 0)
	v.SetDefault("mnist.samples", 16)
	v.SetDefault("mnist.pca", true)

	v.SetDefault("weather.path", "data/temps.csv")
	v.SetDefault("weather.target", "actual")
	v.SetDefault("weather.baseline", "average")
	v.SetDefault("weather.encode", "onehot")
	v.SetDefault("weather.missing_threshold", 0.0)
	v.SetDefault("weather.test_ratio", 0.25)
	v.SetDefault("weather.seed", 42)
	v.SetDefault("weather.trees", 1000)
	v.SetDefault("weather.max_depth", 0)
	v.SetDefault("weather.max_features", 0)
	v.SetDefault("weather.min_samples_leaf", 1)
	v.SetDefault("weather.workers", 0)
	v.SetDefault("weather.bootstrap", true)
	v.SetDefault("weather.top", 2)
	v.SetDefault("weather.folds", 0)
	v.SetDefault("weather.linear", false)

	v.SetDefault("prep.input", "")
	v.SetDefault("prep.output", "")
	v.SetDefault("prep.label", "")
	v.SetDefault("prep.missing_threshold", 0.2)
	v.SetDefault("prep.encode", "onehot")
	v.SetDefault("prep.dedup", false)
	v.SetDefault("prep.clip", 0.0)
	v.SetDefault("prep.scale", "none")
	v.SetDefault("prep.poly_degree", 1)
	v.SetDefault("prep.preview", 5)
}

// LoadDotEnv loads each existing .env file into the process environment.
// Variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(err, "couldn't load %s", p)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "couldn't read config %s", file)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "couldn't decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if err := c.MNIST.Validate(); err != nil {
		return errors.Wrap(err, "mnist")
	}
	if err := c.Weather.Validate(); err != nil {
		return errors.Wrap(err, "weather")
	}
	if err := c.Prep.Validate(); err != nil {
		return errors.Wrap(err, "prep")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is empty")
	}
	return nil
}

func (m *MNIST) Validate() error {
	switch {
	case len(m.Hidden) == 0:
		return errors.New("at least one hidden layer is required")
	case m.LearningRate <= 0:
		return errors.Errorf("learning rate must be positive, got %v", m.LearningRate)
	case m.Momentum < 0 || m.Momentum >= 1:
		return errors.Errorf("momentum %v outside [0, 1)", m.Momentum)
	case m.BatchSize <= 0:
		return errors.Errorf("batch size must be positive, got %d", m.BatchSize)
	case m.Epochs <= 0:
		return errors.Errorf("epochs must be positive, got %d", m.Epochs)
	case m.ValidationSplit < 0 || m.ValidationSplit >= 1:
		return errors.Errorf("validation split %v outside [0, 1)", m.ValidationSplit)
	case m.Limit < 0 || m.Samples < 0:
		return errors.New("limit and samples must not be negative")
	}
	for _, h := range m.Hidden {
		if h <= 0 {
			return errors.Errorf("hidden layer size must be positive, got %d", h)
		}
	}
	return nil
}

func (w *Weather) Validate() error {
	switch {
	case w.Target == "":
		return errors.New("target column is empty")
	case w.TestRatio <= 0 || w.TestRatio >= 1:
		return errors.Errorf("test ratio %v outside (0, 1)", w.TestRatio)
	case w.Trees <= 0:
		return errors.Errorf("number of trees must be positive, got %d", w.Trees)
	case w.MaxDepth < 0 || w.MaxFeatures < 0 || w.MinSamplesLeaf < 0 || w.Workers < 0:
		return errors.New("tree sizes and workers must not be negative")
	case w.MissingThreshold < 0 || w.MissingThreshold > 1:
		return errors.Errorf("missing threshold %v outside [0, 1]", w.MissingThreshold)
	case w.Top < 0:
		return errors.Errorf("top must not be negative, got %d", w.Top)
	case w.Folds == 1 || w.Folds < 0:
		return errors.Errorf("cross-validation needs at least 2 folds, got %d", w.Folds)
	}
	switch w.Encode {
	case "onehot", "label", "freq":
	default:
		return errors.Errorf("unknown encoding %q", w.Encode)
	}
	return nil
}

func (p *Prep) Validate() error {
	switch {
	case p.MissingThreshold < 0 || p.MissingThreshold > 1:
		return errors.Errorf("missing threshold %v outside [0, 1]", p.MissingThreshold)
	case p.Preview < 0:
		return errors.Errorf("preview must not be negative, got %d", p.Preview)
	case p.Clip < 0 || p.Clip >= 50:
		return errors.Errorf("clip %v%% outside [0, 50)", p.Clip)
	case p.PolyDegree != 1 && p.PolyDegree != 2:
		return errors.Errorf("polynomial degree must be 1 or 2, got %d", p.PolyDegree)
	}
	switch p.Encode {
	case "onehot", "label", "freq", "none":
	default:
		return errors.Errorf("unknown encoding %q", p.Encode)
	}
	switch p.Scale {
	case "none", "standard", "minmax":
	default:
		return errors.Errorf("unknown scaling %q", p.Scale)
	}
	return nil
}
