package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/model"
)

func TestMetrics(t *testing.T) {
	var buf bytes.Buffer
	Metrics(&buf, "Forest", []Metric{{Name: "MAE", Value: 3.8712, Unit: "degrees"}, {Name: "Accuracy", Value: 93.7, Unit: "%"}})
	out := buf.String()
	for _, want := range []string{"Forest\n", "MAE", "3.8712 degrees", "93.7000 %"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestConfusion(t *testing.T) {
	var buf bytes.Buffer
	Confusion(&buf, [][]int{{5, 1}, {0, 4}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if f := strings.Fields(lines[1]); len(f) != 3 || f[1] != "5" || f[2] != "1" {
		t.Errorf("row 0 = %q", lines[1])
	}
}

func TestImportances(t *testing.T) {
	var buf bytes.Buffer
	Importances(&buf, []string{"year", "temp_1", "average"}, []float64{0, 0.7, 0.2}, 2)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "temp_1") || !strings.Contains(lines[1], "average") {
		t.Errorf("wrong order:\n%s", buf.String())
	}
	if got := Ranked([]float64{0.1, 0.3, 0.3, 0.2}); got[0] != 1 || got[1] != 2 || got[3] != 0 {
		t.Errorf("Ranked = %v", got)
	}
}

func TestTree(t *testing.T) {
	tree := model.NewDecisionTreeRegressor()
	X := [][]float64{{1}, {2}, {3}, {4}}
	if err := tree.Fit(X, []float64{10, 10, 20, 20}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	Tree(&buf, tree, []string{"temp_1"}, 3)
	out := buf.String()
	for _, want := range []string{"temp_1 <= 2.500 (samples = 4)", "|   value = 10.00 (samples = 2)", "|   value = 20.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestPreview(t *testing.T) {
	var buf bytes.Buffer
	Preview(&buf, []string{"a", "b"}, [][]float64{{1, 2}, {3, 4}, {5, 6}}, []float64{7, 8, 9}, 2)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if f := strings.Fields(lines[0]); len(f) != 3 || f[2] != "target" {
		t.Errorf("header = %q", lines[0])
	}
}
