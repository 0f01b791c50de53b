// Package plotting renders the workshop charts to image files with gonum/plot.
// The output format follows the file extension (.png, .svg, .pdf).
package plotting

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

func save(p *plot.Plot, w, h vg.Length, path string) error {
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "couldn't save plot to %s", path)
	}
	return nil
}

func series(v []float64) plotter.XYs {
	pts := make(plotter.XYs, len(v))
	for i, y := range v {
		pts[i].X = float64(i + 1)
		pts[i].Y = y
	}
	return pts
}

// History draws loss and accuracy per epoch side by side. Validation curves
// are added when present.
func History(path string, loss, acc, valLoss, valAcc []float64) error {
	if len(loss) == 0 {
		return errors.New("history is empty")
	}
	lp := plot.New()
	lp.Title.Text = "Loss"
	lp.X.Label.Text = "Epoch"
	lines := []interface{}{"train", series(loss)}
	if len(valLoss) > 0 {
		lines = append(lines, "validation", series(valLoss))
	}
	if err := plotutil.AddLinePoints(lp, lines...); err != nil {
		return errors.Wrap(err, "loss curve")
	}

	ap := plot.New()
	ap.Title.Text = "Accuracy"
	ap.X.Label.Text = "Epoch"
	lines = []interface{}{"train", series(acc)}
	if len(valAcc) > 0 {
		lines = append(lines, "validation", series(valAcc))
	}
	if err := plotutil.AddLinePoints(ap, lines...); err != nil {
		return errors.Wrap(err, "accuracy curve")
	}
	return saveGrid(path, [][]*plot.Plot{{lp, ap}}, 8*vg.Inch, 4*vg.Inch)
}

// saveGrid draws plots into one image laid out as the given grid.
func saveGrid(path string, plots [][]*plot.Plot, w, h vg.Length) error {
	img := vgimg.New(w, h)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(plots),
		Cols: len(plots[0]),
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j, p := range plots[i] {
			p.Draw(canvases[i][j])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "couldn't create %s", path)
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return errors.Wrapf(err, "couldn't write %s", path)
	}
	return f.Close()
}

// pixels adapts one flattened image to plotter.GridXYZ, row 0 at the top.
type pixels struct {
	v          []float64
	rows, cols int
}

func (g pixels) Dims() (c, r int)   { return g.cols, g.rows }
func (g pixels) Z(c, r int) float64 { return g.v[(g.rows-1-r)*g.cols+c] }
func (g pixels) X(c int) float64    { return float64(c) }
func (g pixels) Y(r int) float64    { return float64(r) }

// Digits draws the first n images as a grid of heat maps titled with their
// label and, when preds is non-nil, the predicted label.
func Digits(path string, images [][]float64, rows, cols int, labels, preds []int, n int) error {
	n = min(n, len(images))
	if n == 0 {
		return errors.New("no images to draw")
	}
	per := int(math.Ceil(math.Sqrt(float64(n))))
	grid := make([][]*plot.Plot, (n+per-1)/per)
	for i := range grid {
		grid[i] = make([]*plot.Plot, per)
		for j := range grid[i] {
			blank := plot.New()
			blank.HideAxes()
			grid[i][j] = blank
		}
	}
	pal := palette.Heat(12, 1)
	for k := 0; k < n; k++ {
		p := plot.New()
		p.HideAxes()
		p.Title.Text = fmt.Sprintf("label %d", labels[k])
		if preds != nil {
			p.Title.Text = fmt.Sprintf("%d / pred %d", labels[k], preds[k])
		}
		p.Add(plotter.NewHeatMap(pixels{v: images[k], rows: rows, cols: cols}, pal))
		grid[k/per][k%per] = p
	}
	side := vg.Length(per) * 1.5 * vg.Inch
	return saveGrid(path, grid, side, vg.Length(len(grid))*1.5*vg.Inch)
}

// ActualVsPredicted draws the true target as a line and predictions as
// points against time.
func ActualVsPredicted(path string, dates []time.Time, actual, predicted []float64, predDates []time.Time) error {
	if len(dates) != len(actual) || len(predDates) != len(predicted) {
		return errors.New("dates and values differ in length")
	}
	p := plot.New()
	p.Title.Text = "Actual and predicted values"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Maximum temperature (F)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.Legend.Top = true

	line, err := plotter.NewLine(timeSeries(dates, actual))
	if err != nil {
		return errors.Wrap(err, "actual line")
	}
	line.Color = color.RGBA{B: 200, A: 255}
	p.Add(line)
	p.Legend.Add("actual", line)

	s, err := plotter.NewScatter(timeSeries(predDates, predicted))
	if err != nil {
		return errors.Wrap(err, "prediction points")
	}
	s.Color = color.RGBA{R: 220, A: 255}
	s.Shape = draw.CircleGlyph{}
	s.Radius = vg.Points(2)
	p.Add(s)
	p.Legend.Add("prediction", s)
	return save(p, 10*vg.Inch, 4*vg.Inch, path)
}

// timeSeries returns points sorted by date.
func timeSeries(dates []time.Time, v []float64) plotter.XYs {
	pts := make(plotter.XYs, len(v))
	for i := range v {
		pts[i].X = float64(dates[i].Unix())
		pts[i].Y = v[i]
	}
	sort.Slice(pts, func(a, b int) bool { return pts[a].X < pts[b].X })
	return pts
}

// Importances draws the top features by importance as a bar chart, largest
// first. top <= 0 keeps every feature.
func Importances(path string, names []string, values []float64, top int) error {
	if len(names) != len(values) {
		return errors.Errorf("%d names but %d importances", len(names), len(values))
	}
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })
	if top > 0 && top < len(order) {
		order = order[:top]
	}
	vals := make(plotter.Values, len(order))
	labels := make([]string, len(order))
	for k, i := range order {
		vals[k] = values[i]
		labels[k] = names[i]
	}

	p := plot.New()
	p.Title.Text = "Variable importances"
	p.Y.Label.Text = "Importance"
	bars, err := plotter.NewBarChart(vals, vg.Points(14))
	if err != nil {
		return errors.Wrap(err, "importance bars")
	}
	bars.Color = plotutil.Color(2)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	return save(p, 8*vg.Inch, 5*vg.Inch, path)
}

// counts adapts a confusion matrix to plotter.GridXYZ.
type counts [][]int

func (g counts) Dims() (c, r int)   { return len(g), len(g) }
func (g counts) Z(c, r int) float64 { return float64(g[r][c]) }
func (g counts) X(c int) float64    { return float64(c) }
func (g counts) Y(r int) float64    { return float64(r) }

// ConfusionHeatMap draws a confusion matrix, true class on the vertical axis.
func ConfusionHeatMap(path string, cm [][]int) error {
	if len(cm) == 0 {
		return errors.New("empty confusion matrix")
	}
	p := plot.New()
	p.Title.Text = "Confusion matrix"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "True"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	hm := plotter.NewHeatMap(counts(cm), palette.Heat(16, 1))
	p.Add(hm)

	var cells plotter.XYLabels
	for r, row := range cm {
		for c, v := range row {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			cells.Labels = append(cells.Labels, fmt.Sprint(v))
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return errors.Wrap(err, "cell labels")
	}
	p.Add(labels)
	return save(p, 6*vg.Inch, 6*vg.Inch, path)
}

// Scatter2D draws 2-D points coloured by class, e.g. a PCA projection.
func Scatter2D(path, title string, points [][]float64, labels []int) error {
	if len(points) != len(labels) {
		return errors.Errorf("%d points but %d labels", len(points), len(labels))
	}
	byClass := map[int]plotter.XYs{}
	for i, pt := range points {
		if len(pt) < 2 {
			return errors.Errorf("point %d has %d coordinates", i, len(pt))
		}
		byClass[labels[i]] = append(byClass[labels[i]], plotter.XY{X: pt[0], Y: pt[1]})
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Component 1"
	p.Y.Label.Text = "Component 2"
	for _, c := range classes {
		s, err := plotter.NewScatter(byClass[c])
		if err != nil {
			return errors.Wrapf(err, "class %d", c)
		}
		s.Color = plotutil.Color(c)
		s.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(fmt.Sprint(c), s)
	}
	return save(p, 6*vg.Inch, 6*vg.Inch, path)
}
