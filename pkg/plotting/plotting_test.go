package plotting

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func exists(t *testing.T, path string) {
	t.Helper()
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Size() == 0 {
		t.Fatalf("%s is empty", path)
	}
}

func TestHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.png")
	err := History(path,
		[]float64{0.9, 0.5, 0.3}, []float64{0.7, 0.85, 0.9},
		[]float64{1.0, 0.6, 0.4}, []float64{0.65, 0.8, 0.88})
	if err != nil {
		t.Fatal(err)
	}
	exists(t, path)

	if err := History(path, nil, nil, nil, nil); err == nil {
		t.Error("empty history accepted")
	}
}

func TestDigits(t *testing.T) {
	images := make([][]float64, 5)
	for i := range images {
		img := make([]float64, 16)
		for j := range img {
			img[j] = float64((i + j) % 4)
		}
		images[i] = img
	}
	path := filepath.Join(t.TempDir(), "digits.png")
	if err := Digits(path, images, 4, 4, []int{0, 1, 2, 3, 4}, []int{0, 1, 2, 3, 3}, 5); err != nil {
		t.Fatal(err)
	}
	exists(t, path)
}

func TestActualVsPredicted(t *testing.T) {
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2)}
	path := filepath.Join(t.TempDir(), "predictions.png")
	err := ActualVsPredicted(path, dates, []float64{45, 44, 41}, []float64{43}, dates[1:2])
	if err != nil {
		t.Fatal(err)
	}
	exists(t, path)

	if err := ActualVsPredicted(path, dates, []float64{1}, nil, nil); err == nil {
		t.Error("length mismatch accepted")
	}
}

func TestImportancesAndConfusion(t *testing.T) {
	dir := t.TempDir()
	imp := filepath.Join(dir, "importances.png")
	if err := Importances(imp, []string{"temp_1", "average", "week_Fri"}, []float64{0.7, 0.25, 0.05}, 2); err != nil {
		t.Fatal(err)
	}
	exists(t, imp)

	cm := filepath.Join(dir, "confusion.svg")
	if err := ConfusionHeatMap(cm, [][]int{{5, 1}, {0, 4}}); err != nil {
		t.Fatal(err)
	}
	exists(t, cm)

	sc := filepath.Join(dir, "pca.png")
	if err := Scatter2D(sc, "PCA", [][]float64{{0, 1}, {1, 0}, {2, 2}}, []int{0, 1, 1}); err != nil {
		t.Fatal(err)
	}
	exists(t, sc)
}
