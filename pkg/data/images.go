package data

import (
	"math"

	"github.com/pkg/errors"
)

// ImageSet holds flattened images in their raw intensity range together with
// integer class labels. It is not mutated after loading.
type ImageSet struct {
	Images [][]float64
	Labels []int
	Rows   int
	Cols   int
}

func (s *ImageSet) Len() int      { return len(s.Labels) }
func (s *ImageSet) Features() int { return s.Rows * s.Cols }

// Classes returns the number of classes implied by the largest label.
func (s *ImageSet) Classes() int {
	max := -1
	for _, l := range s.Labels {
		if l > max {
			max = l
		}
	}
	return max + 1
}

// Head returns a view of the first n images.
func (s *ImageSet) Head(n int) *ImageSet {
	if n <= 0 || n >= s.Len() {
		return s
	}
	return &ImageSet{Images: s.Images[:n], Labels: s.Labels[:n], Rows: s.Rows, Cols: s.Cols}
}

// LoadImages reads an image array of shape (n, rows, cols) or (n, features)
// and a label array of shape (n).
func LoadImages(imagesPath, labelsPath string) (*ImageSet, error) {
	imgs, err := ReadArray(imagesPath)
	if err != nil {
		return nil, err
	}
	labels, err := ReadArray(labelsPath)
	if err != nil {
		return nil, err
	}
	s, err := NewImageSet(imgs, labels)
	if err != nil {
		return nil, errors.Wrapf(err, "%s / %s", imagesPath, labelsPath)
	}
	return s, nil
}

// NewImageSet validates shapes and splits the image array into rows.
func NewImageSet(imgs, labels *Array) (*ImageSet, error) {
	var rows, cols int
	switch len(imgs.Shape) {
	case 3:
		rows, cols = imgs.Shape[1], imgs.Shape[2]
	case 2:
		// flattened: assume square images when possible
		side := int(math.Sqrt(float64(imgs.Shape[1])))
		if side*side == imgs.Shape[1] {
			rows, cols = side, side
		} else {
			rows, cols = 1, imgs.Shape[1]
		}
	default:
		return nil, errors.Errorf("images must be 2-D or 3-D, got shape %v", imgs.Shape)
	}
	if len(labels.Shape) != 1 {
		return nil, errors.Errorf("labels must be 1-D, got shape %v", labels.Shape)
	}
	n := imgs.Len()
	if labels.Len() != n {
		return nil, errors.Errorf("%d images but %d labels", n, labels.Len())
	}

	stride := imgs.Stride()
	set := &ImageSet{
		Images: make([][]float64, n),
		Labels: make([]int, n),
		Rows:   rows,
		Cols:   cols,
	}
	for i := 0; i < n; i++ {
		set.Images[i] = imgs.Data[i*stride : (i+1)*stride : (i+1)*stride]
		l := labels.Data[i]
		if l < 0 || l != math.Trunc(l) {
			return nil, errors.Errorf("label %v at row %d is not a class index", l, i)
		}
		set.Labels[i] = int(l)
	}
	return set, nil
}
