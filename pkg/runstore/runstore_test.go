package runstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestPutGetList(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	first := NewRun("weather")
	first.Params["trees"] = "1000"
	first.Metrics["mae"] = 3.87
	first.Artifacts = []string{"out/predictions.png"}
	first.Finish()
	if err := s.Put(first); err != nil {
		t.Fatal(err)
	}

	second := NewRun("mnist")
	second.Started = first.Started.Add(time.Minute)
	if err := s.Put(second); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Exercise != "weather" || got.Params["trees"] != "1000" || got.Metrics["mae"] != 3.87 {
		t.Errorf("got %+v", got)
	}
	if len(got.Artifacts) != 1 || !got.Started.Equal(first.Started) {
		t.Errorf("got %+v", got)
	}

	runs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != first.ID || runs[1].ID != second.ID {
		t.Errorf("list order wrong: %v", runs)
	}
}

func TestGetMissing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_, err = s.Get("nope")
	if errors.Cause(err) != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.Put(&Run{}); err == nil {
		t.Error("run without ID accepted")
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRun("mnist")
	if err := s.Put(r); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Get(r.ID); err != nil {
		t.Fatal(err)
	}
}
