package data

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Frame is a raw CSV table: a header row and string records of equal width.
type Frame struct {
	Headers []string
	Records [][]string
}

// ReadCSV loads a CSV file whose first row is the header.
func ReadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open %s", path)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read %s", path)
	}
	if len(rows) < 2 {
		return nil, errors.Errorf("%s has no data rows", path)
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &Frame{Headers: headers, Records: rows[1:]}, nil
}

func (f *Frame) Len() int { return len(f.Records) }

// Index returns the position of the named column, or -1.
func (f *Frame) Index(name string) int {
	for i, h := range f.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	j := f.Index(name)
	if j < 0 {
		return nil, errors.Errorf("no column %q", name)
	}
	col := make([]string, len(f.Records))
	for i, rec := range f.Records {
		col[i] = rec[j]
	}
	return col, nil
}

// Drop returns a new frame without the named columns. Unknown names are an
// error.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[int]bool, len(names))
	for _, n := range names {
		j := f.Index(n)
		if j < 0 {
			return nil, errors.Errorf("no column %q", n)
		}
		drop[j] = true
	}
	out := &Frame{Records: make([][]string, len(f.Records))}
	for j, h := range f.Headers {
		if !drop[j] {
			out.Headers = append(out.Headers, h)
		}
	}
	for i, rec := range f.Records {
		row := make([]string, 0, len(out.Headers))
		for j, v := range rec {
			if !drop[j] {
				row = append(row, v)
			}
		}
		out.Records[i] = row
	}
	return out, nil
}
