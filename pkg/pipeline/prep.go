package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/config"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/data"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/dataprep"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/report"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/stats"
	"github.com/pkg/errors"
)

// PrepResult is a cleaned, encoded and optionally scaled table.
type PrepResult struct {
	Names      []string
	X          [][]float64
	Y          []float64 // nil without a label column
	Actions    []dataprep.Action
	Duplicates int // rows dropped as duplicates
	Clipped    int // values clipped to the percentile bounds
	Schema     *Schema
}

func scaler(mode string) Transformer {
	switch mode {
	case "standard":
		return stats.NewStandardScaler()
	case "minmax":
		return stats.NewMinMaxScaler()
	}
	return nil
}

// Prepare cleans and encodes the CSV at cfg.Input, then previews the result
// or writes it to cfg.Output. The steps run in this order: missing values,
// encoding, duplicate removal, outlier clipping, scaling, polynomial terms.
func Prepare(cfg config.Prep, env Env) (*PrepResult, error) {
	env.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	frame, err := data.ReadCSV(cfg.Input)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(env.Out, "Loaded raw data: %d rows, %d columns\n", frame.Len(), len(frame.Headers))

	res := &PrepResult{}
	if cfg.MissingThreshold > 0 {
		frame, res.Actions = dataprep.HandleMissingValues(frame, cfg.MissingThreshold)
		for _, a := range res.Actions {
			fmt.Fprintf(env.Out, "  %s\n", a)
		}
	}

	var cats []string
	if cfg.Encode != "none" {
		if frame, cats, err = dataprep.EncodeColumns(frame, cfg.Encode); err != nil {
			return nil, err
		}
	}
	var names []string
	res.X, res.Y, names, err = dataprep.ToMatrix(frame, cfg.Label)
	if err != nil {
		return nil, err
	}
	res.Schema = NewSchema(names, cats, cfg.Encode, cfg.Label)
	fmt.Fprintf(env.Out, "After preprocessing: %d samples, %d features\n", len(res.X), len(names))

	if cfg.Dedup {
		n := len(res.X)
		res.X, res.Y = dataprep.DropDuplicates(res.X, res.Y)
		res.Duplicates = n - len(res.X)
		fmt.Fprintf(env.Out, "Dropped %d duplicate rows\n", res.Duplicates)
	}
	if cfg.Clip > 0 {
		res.X, res.Clipped = stats.ClipOutliers(res.X, cfg.Clip, 100-cfg.Clip)
		fmt.Fprintf(env.Out, "Clipped %d values to the %g-%g percentile range\n", res.Clipped, cfg.Clip, 100-cfg.Clip)
	}
	if s := scaler(cfg.Scale); s != nil {
		if res.X, err = NewPipeline(s).FitTransform(res.X); err != nil {
			return nil, err
		}
	}
	if cfg.PolyDegree > 1 {
		var expanded []string
		if res.X, expanded, err = dataprep.PolynomialFeatures(res.X, names, cfg.PolyDegree); err != nil {
			return nil, err
		}
		res.Schema.AddProducts(expanded[len(names):])
		fmt.Fprintf(env.Out, "Polynomial features: %d columns\n", len(expanded))
	}
	res.Names = res.Schema.Names()

	if cfg.Output == "" {
		report.Preview(env.Out, res.Names, res.X, res.Y, cfg.Preview)
		return res, nil
	}
	if err := writeMatrix(cfg.Output, res, cfg.Label); err != nil {
		return nil, err
	}
	fmt.Fprintln(env.Out, "Processed data saved to:", cfg.Output)
	return res, nil
}

func writeMatrix(path string, res *PrepResult, label string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "couldn't create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := res.Names
	if res.Y != nil {
		header = append(append([]string(nil), header...), label)
	}
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "couldn't write %s", path)
	}
	for i, row := range res.X {
		rec := make([]string, len(row), len(row)+1)
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		if res.Y != nil {
			rec = append(rec, strconv.FormatFloat(res.Y[i], 'f', 6, 64))
		}
		if err := w.Write(rec); err != nil {
			return errors.Wrapf(err, "couldn't write %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "couldn't write %s", path)
	}
	return f.Close()
}
