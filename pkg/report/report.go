// Package report prints the text output of the workshop runs: metric tables,
// confusion matrices, feature importances and data previews.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/model"
)

// Metric is one named figure of a run.
type Metric struct {
	Name  string
	Value float64
	Unit  string
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Metrics prints a titled two-column table.
func Metrics(w io.Writer, title string, metrics []Metric) {
	fmt.Fprintf(w, "%s\n", title)
	tw := table(w)
	for _, m := range metrics {
		fmt.Fprintf(tw, "  %s\t%.4f %s\n", m.Name, m.Value, m.Unit)
	}
	tw.Flush()
}

// Confusion prints a confusion matrix with true classes as rows.
func Confusion(w io.Writer, cm [][]int) {
	tw := table(w)
	fmt.Fprint(tw, "true\\pred")
	for c := range cm {
		fmt.Fprintf(tw, "\t%d", c)
	}
	fmt.Fprintln(tw)
	for r, row := range cm {
		fmt.Fprintf(tw, "%d", r)
		for _, v := range row {
			fmt.Fprintf(tw, "\t%d", v)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

// ClassScores prints per-class precision, recall and F1.
func ClassScores(w io.Writer, scores []model.ClassScore) {
	tw := table(w)
	fmt.Fprintln(tw, "class\tprecision\trecall\tf1\tsupport")
	for _, s := range scores {
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.4f\t%d\n", s.Class, s.Precision, s.Recall, s.F1, s.Support)
	}
	tw.Flush()
}

// Ranked returns feature indices ordered by decreasing importance.
func Ranked(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })
	return order
}

// Importances lists features from most to least important. top <= 0 lists
// all of them.
func Importances(w io.Writer, names []string, values []float64, top int) {
	order := Ranked(values)
	if top > 0 && top < len(order) {
		order = order[:top]
	}
	tw := table(w)
	for _, i := range order {
		fmt.Fprintf(tw, "Variable: %s\tImportance: %.2f\n", names[i], values[i])
	}
	tw.Flush()
}

// Tree prints the splits of a fitted regression tree down to maxDepth.
func Tree(w io.Writer, t *model.DecisionTreeRegressor, names []string, maxDepth int) {
	var walk func(n *model.TreeNode, d int)
	walk = func(n *model.TreeNode, d int) {
		pad := strings.Repeat("|   ", d)
		if n.Leaf || (maxDepth > 0 && d >= maxDepth) {
			fmt.Fprintf(w, "%svalue = %.2f (samples = %d)\n", pad, n.Value, n.N)
			return
		}
		name := fmt.Sprintf("x[%d]", n.Feature)
		if n.Feature < len(names) {
			name = names[n.Feature]
		}
		fmt.Fprintf(w, "%s%s <= %.3f (samples = %d)\n", pad, name, n.Threshold, n.N)
		walk(n.Left, d+1)
		fmt.Fprintf(w, "%s%s >  %.3f\n", pad, name, n.Threshold)
		walk(n.Right, d+1)
	}
	if t.Root == nil {
		fmt.Fprintln(w, "(empty tree)")
		return
	}
	walk(t.Root, 0)
}

// Preview prints the first n rows of a feature matrix under its headers,
// with the target as a trailing column when y is non-nil.
func Preview(w io.Writer, headers []string, X [][]float64, y []float64, n int) {
	n = min(n, len(X))
	tw := table(w)
	fmt.Fprint(tw, strings.Join(headers, "\t"))
	if y != nil {
		fmt.Fprint(tw, "\ttarget")
	}
	fmt.Fprintln(tw)
	for i := 0; i < n; i++ {
		cells := make([]string, len(X[i]))
		for j, v := range X[i] {
			cells[j] = fmt.Sprintf("%.4g", v)
		}
		fmt.Fprint(tw, strings.Join(cells, "\t"))
		if y != nil {
			fmt.Fprintf(tw, "\t%.4g", y[i])
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
