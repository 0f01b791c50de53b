package pipeline

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Kind classifies a model feature by where it came from.
type Kind string

const (
	Numeric Kind = "numeric"
	OneHot  Kind = "onehot"
	Encoded Kind = "encoded" // label or frequency code of a categorical column
	Product Kind = "product" // polynomial term built from other features
)

// Feature is one column of the model matrix.
type Feature struct {
	Name   string
	Kind   Kind
	Source string // original frame column
}

// Schema describes the structure of a dataset.
type Schema struct {
	Features []Feature
	Target   string
}

// NewSchema classifies the encoded feature names against the categorical
// columns they were derived from. A one-hot column is named
// <source>_<category>.
func NewSchema(names, categorical []string, method, target string) *Schema {
	s := &Schema{Target: target}
	oneHot := method == "onehot" || method == ""
	for _, n := range names {
		f := Feature{Name: n, Kind: Numeric, Source: n}
		for _, c := range categorical {
			if oneHot && strings.HasPrefix(n, c+"_") {
				f.Kind, f.Source = OneHot, c
				break
			}
			if !oneHot && n == c {
				f.Kind = Encoded
				break
			}
		}
		s.Features = append(s.Features, f)
	}
	return s
}

// AddProducts appends polynomial terms; their source is the term itself.
func (s *Schema) AddProducts(names []string) {
	for _, n := range names {
		s.Features = append(s.Features, Feature{Name: n, Kind: Product, Source: n})
	}
}

// Names lists the feature names in matrix order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Features))
	for i, f := range s.Features {
		out[i] = f.Name
	}
	return out
}

// Count returns the number of features of kind k.
func (s *Schema) Count(k Kind) int {
	n := 0
	for _, f := range s.Features {
		if f.Kind == k {
			n++
		}
	}
	return n
}

// Print writes the feature table.
func (s *Schema) Print(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "feature\tkind\tsource\n")
	for _, f := range s.Features {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.Kind, f.Source)
	}
	tw.Flush()
	fmt.Fprintf(w, "target: %s, %d numeric, %d one-hot, %d encoded, %d products\n",
		s.Target, s.Count(Numeric), s.Count(OneHot), s.Count(Encoded), s.Count(Product))
}
