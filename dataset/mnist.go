// Package dataset adapts the MNIST handwritten digit corpus to
// toolbox.Dataset.
package dataset

import (
	"errors"
	"fmt"

	"github.com/ahmedtd/backprop/toolbox"
	"github.com/sbinet/npyio/npz"
)

// Classes is the number of digit classes, and so the length of every
// target signal.
const Classes = 10

var ErrShape = errors.New("inconsistent array shapes")

// MNIST holds the training and test splits of the corpus.
type MNIST struct {
	Train *Split
	Test  *Split
}

// LoadMNIST reads an mnist.npz archive holding x_train.npy, y_train.npy,
// x_test.npy and y_test.npy as uint8 arrays.
func LoadMNIST(path string) (*MNIST, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening mnist data file: %w", err)
	}
	defer r.Close()

	train, err := loadSplit(r, "x_train.npy", "y_train.npy")
	if err != nil {
		return nil, fmt.Errorf("while loading training split: %w", err)
	}
	test, err := loadSplit(r, "x_test.npy", "y_test.npy")
	if err != nil {
		return nil, fmt.Errorf("while loading test split: %w", err)
	}

	return &MNIST{Train: train, Test: test}, nil
}

func loadSplit(r *npz.Reader, imagesName, labelsName string) (*Split, error) {
	var images []uint8
	if err := r.Read(imagesName, &images); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", imagesName, err)
	}
	var labels []uint8
	if err := r.Read(labelsName, &labels); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", labelsName, err)
	}

	// numpy always writes C-style layouts, so each image is stored
	// contiguously whatever its shape.
	shape := r.Header(imagesName).Descr.Shape
	if len(shape) < 2 {
		return nil, fmt.Errorf("%s has shape %v: %w", imagesName, shape, ErrShape)
	}
	imageSize := 1
	for _, s := range shape[1:] {
		imageSize *= s
	}

	return NewSplit(images, labels, imageSize)
}

// Split is one half of the corpus.  Inputs are pixel intensities scaled to
// [0, 1]; targets are one-hot over Classes.
type Split struct {
	images    []uint8
	labels    []uint8
	imageSize int
}

var _ toolbox.Dataset = (*Split)(nil)

// NewSplit wraps raw images, stored back to back imageSize bytes each, and
// their labels.
func NewSplit(images, labels []uint8, imageSize int) (*Split, error) {
	if imageSize <= 0 {
		return nil, fmt.Errorf("image size %d: %w", imageSize, ErrShape)
	}
	if len(images) != len(labels)*imageSize {
		return nil, fmt.Errorf("%d image bytes for %d labels of %d bytes each: %w", len(images), len(labels), imageSize, ErrShape)
	}
	for i, l := range labels {
		if int(l) >= Classes {
			return nil, fmt.Errorf("label %d of example %d out of range", l, i)
		}
	}
	return &Split{images: images, labels: labels, imageSize: imageSize}, nil
}

func (s *Split) Len() int {
	return len(s.labels)
}

// ImageSize is the number of pixels per image, and so the length of every
// input signal.
func (s *Split) ImageSize() int {
	return s.imageSize
}

func (s *Split) Label(i int) int {
	return int(s.labels[i])
}

func (s *Split) Input(i int) toolbox.Signal {
	raw := s.images[i*s.imageSize : (i+1)*s.imageSize]
	in := make(toolbox.Signal, len(raw))
	for j, p := range raw {
		in[j] = float32(p) / 255
	}
	return in
}

func (s *Split) Target(i int) toolbox.Signal {
	return OneHot(s.Label(i))
}

// OneHot returns a target signal selecting digit.
func OneHot(digit int) toolbox.Signal {
	if digit < 0 || digit >= Classes {
		panic(fmt.Sprintf("digit %d out of range", digit))
	}
	t := make(toolbox.Signal, Classes)
	t[digit] = 1
	return t
}

type window struct {
	ds    toolbox.Dataset
	begin int
	n     int
}

// Window exposes at most limit examples of ds starting at begin.  A negative
// limit means every example from begin on.  The window shrinks to fit ds.
func Window(ds toolbox.Dataset, begin, limit int) toolbox.Dataset {
	if begin < 0 {
		panic(fmt.Sprintf("negative window start %d", begin))
	}
	n := max(ds.Len()-begin, 0)
	if limit >= 0 {
		n = min(n, limit)
	}
	return &window{ds: ds, begin: begin, n: n}
}

func (w *window) Len() int {
	return w.n
}

func (w *window) Input(i int) toolbox.Signal {
	return w.ds.Input(w.index(i))
}

func (w *window) Target(i int) toolbox.Signal {
	return w.ds.Target(w.index(i))
}

func (w *window) index(i int) int {
	if i < 0 || i >= w.n {
		panic(fmt.Sprintf("index %d out of range [0, %d)", i, w.n))
	}
	return w.begin + i
}
