// Package runstore keeps a small registry of workshop runs in a bolt file:
// parameters, final metrics and the paths of the artifacts each run wrote.
package runstore

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var runsBucket = []byte("runs")

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is one recorded execution of an exercise.
type Run struct {
	ID        string             `json:"id"`
	Exercise  string             `json:"exercise"`
	Started   time.Time          `json:"started"`
	Duration  time.Duration      `json:"duration"`
	Params    map[string]string  `json:"params,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Artifacts []string           `json:"artifacts,omitempty"`
}

// NewRun starts a run record with a fresh ID.
func NewRun(exercise string) *Run {
	return &Run{
		ID:       uuid.New().String(),
		Exercise: exercise,
		Started:  time.Now().UTC(),
		Params:   map[string]string{},
		Metrics:  map[string]float64{},
	}
}

// Finish stamps the run duration.
func (r *Run) Finish() { r.Duration = time.Since(r.Started) }

// Store is a bolt-backed run registry.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the registry at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open run store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "couldn't create runs bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces a run.
func (s *Store) Put(r *Run) error {
	if r.ID == "" {
		return errors.New("run has no ID")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "couldn't encode run")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(r.ID), b)
	})
}

// Get returns the run with the given ID, or ErrNotFound.
func (s *Store) Get(id string) (*Run, error) {
	var r Run
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(runsBucket).Get([]byte(id))
		if b == nil {
			return ErrNotFound
		}
		return json.Unmarshal(b, &r)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "run %s", id)
	}
	return &r, nil
}

// List returns every run, oldest first.
func (s *Store) List() ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, v []byte) error {
			var r Run
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "run %s", k)
			}
			runs = append(runs, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Started.Before(runs[j].Started) })
	return runs, nil
}
