package data

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/logging"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

func writeIDX(t *testing.T, path string, shape []uint32, payload []byte, compress bool) {
	t.Helper()
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, idxUnsignedByte, byte(len(shape))})
	for _, d := range shape {
		binary.Write(&buf, binary.BigEndian, d)
	}
	buf.Write(payload)

	raw := buf.Bytes()
	if compress {
		var gz bytes.Buffer
		w := gzip.NewWriter(&gz)
		w.Write(raw)
		w.Close()
		raw = gz.Bytes()
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadImagesIDX(t *testing.T) {
	dir := t.TempDir()
	imgs := filepath.Join(dir, "images-idx3-ubyte.gz")
	lbls := filepath.Join(dir, "labels-idx1-ubyte")
	writeIDX(t, imgs, []uint32{2, 2, 2}, []byte{0, 255, 10, 20, 1, 2, 3, 4}, true)
	writeIDX(t, lbls, []uint32{2}, []byte{7, 3}, false)

	set, err := LoadImages(imgs, lbls)
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 2 || set.Rows != 2 || set.Cols != 2 || set.Features() != 4 {
		t.Fatalf("unexpected set geometry: %+v", set)
	}
	if set.Images[0][1] != 255 || set.Images[1][3] != 4 {
		t.Fatalf("pixels not preserved: %v", set.Images)
	}
	if set.Labels[0] != 7 || set.Classes() != 8 {
		t.Fatalf("labels = %v, classes = %d", set.Labels, set.Classes())
	}
}

func TestLoadImagesShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	imgs := filepath.Join(dir, "images")
	lbls := filepath.Join(dir, "labels")
	writeIDX(t, imgs, []uint32{2, 1, 1}, []byte{1, 2}, false)
	writeIDX(t, lbls, []uint32{3}, []byte{0, 1, 2}, false)
	if _, err := LoadImages(imgs, lbls); err == nil {
		t.Fatal("mismatched image and label counts must fail")
	}
}

func TestReadNpy(t *testing.T) {
	dir := t.TempDir()
	imgs := filepath.Join(dir, "x.npy")
	lbls := filepath.Join(dir, "y.npy")

	f, err := os.Create(imgs)
	if err != nil {
		t.Fatal(err)
	}
	if err := npyio.Write(f, mat.NewDense(2, 4, []float64{0, 1, 2, 3, 4, 5, 6, 255})); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = os.Create(lbls)
	if err != nil {
		t.Fatal(err)
	}
	if err := npyio.Write(f, []uint8{1, 0}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	set, err := LoadImages(imgs, lbls)
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 2 || set.Rows != 2 || set.Cols != 2 {
		t.Fatalf("unexpected geometry %dx%d n=%d", set.Rows, set.Cols, set.Len())
	}
	if set.Images[1][3] != 255 || set.Labels[0] != 1 {
		t.Fatalf("unexpected contents %v %v", set.Images, set.Labels)
	}
}

func TestFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.csv")
	csv := "year,week,actual\n2016,Fri,45\n2016,Sat,44\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 2 || f.Index("week") != 1 || f.Index("missing") != -1 {
		t.Fatalf("unexpected frame %+v", f)
	}
	col, err := f.Column("actual")
	if err != nil || col[1] != "44" {
		t.Fatalf("Column = %v, %v", col, err)
	}
	d, err := f.Drop("year")
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Headers) != 2 || d.Records[0][0] != "Fri" {
		t.Fatalf("Drop produced %+v", d)
	}
	if _, err := f.Drop("nope"); err == nil {
		t.Fatal("dropping an unknown column must fail")
	}
}

func TestBatcherFlushesTail(t *testing.T) {
	ctx := context.Background()
	in := make(chan Sample)
	out := make(chan Batch)
	Batcher(ctx, in, 2, out)
	go func() {
		for i := 0; i < 5; i++ {
			in <- Sample{X: []float64{float64(i)}, Y: float64(i)}
		}
		close(in)
	}()
	var sizes []int
	for b := range out {
		sizes = append(sizes, len(b.Y))
	}
	if len(sizes) != 3 || sizes[2] != 1 {
		t.Fatalf("batch sizes = %v, want [2 2 1]", sizes)
	}
}

func TestBatchesSpanEpochsAndStop(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}, {4}}
	Y := []float64{0, 1, 2, 3, 4}
	var sizes []int
	for b := range Batches(context.Background(), X, Y, 2, 2) {
		sizes = append(sizes, len(b.Y))
	}
	if len(sizes) != 5 || sizes[4] != 2 {
		t.Fatalf("batch sizes = %v, want five batches of 2", sizes)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := Batches(ctx, X, Y, 2, 1000)
	<-ch
	cancel()
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch channel not closed after cancel")
	}
}

func TestLoadImagesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnist.csv")
	body := "label,p0,p1,p2,p3\n3,0,0,255,255\n1,10,20,30,40\nbad,row\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	set, err := LoadImagesCSV(context.Background(), path, logging.New(&logs, false))
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 2 || set.Rows != 2 || set.Labels[0] != 3 || set.Images[1][3] != 40 {
		t.Fatalf("unexpected set %+v", set)
	}
	if strings.Contains(logs.String(), "label") {
		t.Errorf("header reported while not verbose: %q", logs.String())
	}
	if !strings.Contains(logs.String(), ":4: skipping record") {
		t.Errorf("bad row not reported: %q", logs.String())
	}
}

func TestReadIDXRejectsHugeShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt-idx")
	writeIDX(t, path, []uint32{0xFFFFFFFF, 0xFFFFFFFF}, nil, false)
	if _, err := ReadIDX(path); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err = %v, want a size error", err)
	}
}
