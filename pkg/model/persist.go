package model

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
)

// SaveForest writes a fitted forest to path with gob.
func SaveForest(path string, rf *RandomForestRegressor) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "couldn't create %s", path)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(rf); err != nil {
		return errors.Wrapf(err, "couldn't encode forest to %s", path)
	}
	return f.Close()
}

// LoadForest reads a forest written by SaveForest.
func LoadForest(path string) (*RandomForestRegressor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open %s", path)
	}
	defer f.Close()
	rf := new(RandomForestRegressor)
	if err := gob.NewDecoder(f).Decode(rf); err != nil {
		return nil, errors.Wrapf(err, "couldn't decode forest from %s", path)
	}
	return rf, nil
}
