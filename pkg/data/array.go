package data

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
)

// Array is a dense n-dimensional numeric dump flattened in row-major order.
type Array struct {
	Shape []int
	Data  []float64
}

// Len returns the size of the leading dimension.
func (a *Array) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// Stride returns the number of values per leading-dimension entry.
func (a *Array) Stride() int {
	s := 1
	for _, d := range a.Shape[1:] {
		s *= d
	}
	return s
}

// ReadArray loads a .npy dump, or an MNIST IDX file (optionally gzipped) for
// any other extension.
func ReadArray(path string) (*Array, error) {
	if strings.EqualFold(filepath.Ext(path), ".npy") {
		return ReadNpy(path)
	}
	return ReadIDX(path)
}

// ReadNpy reads a NumPy array dump. Only C-ordered arrays are accepted.
func ReadNpy(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open %s", path)
	}
	defer f.Close()

	r, err := npyio.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read npy header of %s", path)
	}
	if r.Header.Descr.Fortran {
		return nil, errors.Errorf("%s: fortran-ordered arrays are not supported", path)
	}
	shape := append([]int(nil), r.Header.Descr.Shape...)

	// byte order prefix is one of '<', '>', '|', '='
	dtype := r.Header.Descr.Type
	if len(dtype) > 1 {
		dtype = dtype[1:]
	}

	var values []float64
	switch dtype {
	case "u1":
		var raw []uint8
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "couldn't read %s", path)
		}
		values = make([]float64, len(raw))
		for i, v := range raw {
			values[i] = float64(v)
		}
	case "i4":
		var raw []int32
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "couldn't read %s", path)
		}
		values = make([]float64, len(raw))
		for i, v := range raw {
			values[i] = float64(v)
		}
	case "i8":
		var raw []int64
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "couldn't read %s", path)
		}
		values = make([]float64, len(raw))
		for i, v := range raw {
			values[i] = float64(v)
		}
	case "f4":
		var raw []float32
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "couldn't read %s", path)
		}
		values = make([]float64, len(raw))
		for i, v := range raw {
			values[i] = float64(v)
		}
	case "f8":
		if err := r.Read(&values); err != nil {
			return nil, errors.Wrapf(err, "couldn't read %s", path)
		}
	default:
		return nil, errors.Errorf("%s: unsupported dtype %q", path, r.Header.Descr.Type)
	}
	return &Array{Shape: shape, Data: values}, nil
}

// IDX magic: two zero bytes, a type code, and the number of dimensions.
const idxUnsignedByte = 0x08

// maxIDXElements bounds the payload a header may announce, 1 GiB of bytes.
const maxIDXElements = 1 << 30

// ReadIDX reads an MNIST IDX file of unsigned bytes. Files ending in .gz are
// decompressed on the fly.
func ReadIDX(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open %s", path)
	}
	defer f.Close()

	var rd io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(rd)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't decompress %s", path)
		}
		defer gz.Close()
		rd = gz
	}
	a, err := decodeIDX(rd)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't decode %s", path)
	}
	return a, nil
}

func decodeIDX(rd io.Reader) (*Array, error) {
	var magic [4]byte
	if _, err := io.ReadFull(rd, magic[:]); err != nil {
		return nil, errors.Wrap(err, "idx magic")
	}
	if magic[0] != 0 || magic[1] != 0 {
		return nil, errors.Errorf("bad idx magic % x", magic)
	}
	if magic[2] != idxUnsignedByte {
		return nil, errors.Errorf("unsupported idx element type 0x%02x", magic[2])
	}
	dims := int(magic[3])
	if dims == 0 {
		return nil, errors.New("idx file has no dimensions")
	}
	shape := make([]int, dims)
	total := 1
	for i := range shape {
		var d uint32
		if err := binary.Read(rd, binary.BigEndian, &d); err != nil {
			return nil, errors.Wrapf(err, "idx dimension %d", i)
		}
		shape[i] = int(d)
		if d > 0 && total > maxIDXElements/int(d) {
			return nil, errors.Errorf("idx shape %v exceeds %d elements", shape[:i+1], maxIDXElements)
		}
		total *= int(d)
	}
	raw := make([]byte, total)
	if _, err := io.ReadFull(rd, raw); err != nil {
		return nil, errors.Wrap(err, "idx payload")
	}
	values := make([]float64, total)
	for i, v := range raw {
		values[i] = float64(v)
	}
	return &Array{Shape: shape, Data: values}, nil
}
