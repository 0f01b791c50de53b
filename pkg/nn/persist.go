package nn

import (
	"bytes"
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type layerState struct {
	In, Out int
	Act     Activation
	W, B    []float64
}

type networkState struct {
	Loss   Loss
	Layers []layerState
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (n *Network) MarshalBinary() ([]byte, error) {
	st := networkState{Loss: n.Loss}
	for _, l := range n.Layers {
		st.Layers = append(st.Layers, layerState{
			In:  l.Inputs(),
			Out: l.Outputs(),
			Act: l.Act,
			W:   append([]float64(nil), l.W.RawMatrix().Data...),
			B:   append([]float64(nil), l.B...),
		})
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (n *Network) UnmarshalBinary(data []byte) error {
	var st networkState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	if len(st.Layers) == 0 {
		return errors.New("network state has no layers")
	}
	layers := make([]*Dense, len(st.Layers))
	for i, ls := range st.Layers {
		if len(ls.W) != ls.In*ls.Out || len(ls.B) != ls.Out {
			return errors.Errorf("layer %d: corrupt weights", i)
		}
		layers[i] = &Dense{W: mat.NewDense(ls.In, ls.Out, ls.W), B: ls.B, Act: ls.Act}
	}
	n.Layers, n.Loss = layers, st.Loss
	return nil
}

// Save writes the network weights to path.
func (n *Network) Save(path string) error {
	b, err := n.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "couldn't encode network")
	}
	return errors.Wrapf(os.WriteFile(path, b, 0o644), "couldn't write %s", path)
}

// Load reads a network previously written by Save.
func Load(path string) (*Network, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read %s", path)
	}
	n := new(Network)
	if err := n.UnmarshalBinary(b); err != nil {
		return nil, errors.Wrapf(err, "couldn't decode %s", path)
	}
	return n, nil
}
