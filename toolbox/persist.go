package toolbox

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

// The file layout is a sequence of per-layer records, each holding the
// weighted sums, activations, weights and biases of the layer:
//
//	u64 layerCount
//	per layer:
//	  u64 n      f32 * n                    sums (n is 0 for the input layer)
//	  u64 n      f32 * n                    activations
//	  u64 nFrom  per from: u64 nTo f32 * nTo   weights
//	  u64 nFrom  per from: u64 nTo f32 * nTo   biases
//
// All integers and floats are little-endian.  The geometry is not stored; it
// is recovered from the activation lengths.

// maxPersistedLen bounds every length prefix so a corrupt file can't make
// Decode allocate without limit.
const maxPersistedLen = 1 << 28

var (
	// ErrMalformed reports a structurally invalid network file.
	ErrMalformed = errors.New("malformed network data")

	// ErrGeometryMismatch reports a network whose geometry isn't the one the
	// caller expects.
	ErrGeometryMismatch = errors.New("network geometry mismatch")
)

// DecodeError is returned by Decode and LoadFile when a network can't be read.
type DecodeError struct {
	Path string // Empty when decoding from a reader.
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("while decoding network: %v", e.Err)
	}
	return fmt.Sprintf("while decoding network from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func Encode(w io.Writer, net *Network) error {
	if err := writeLen(w, len(net.Layers)); err != nil {
		return fmt.Errorf("while writing layer count: %w", err)
	}
	for i, lay := range net.Layers {
		if err := encodeLayer(w, lay); err != nil {
			return fmt.Errorf("while writing layer %d: %w", i, err)
		}
	}
	return nil
}

func encodeLayer(w io.Writer, lay *Layer) error {
	var z []float32
	if lay.Z != nil {
		z = lay.Z.V
	}
	if err := writeFloats(w, z); err != nil {
		return fmt.Errorf("while writing sums: %w", err)
	}
	if err := writeFloats(w, lay.A.V); err != nil {
		return fmt.Errorf("while writing activations: %w", err)
	}
	if err := writeEdges(w, lay.W); err != nil {
		return fmt.Errorf("while writing weights: %w", err)
	}
	if err := writeEdges(w, lay.B); err != nil {
		return fmt.Errorf("while writing biases: %w", err)
	}
	return nil
}

func writeLen(w io.Writer, n int) error {
	return binary.Write(w, binary.LittleEndian, uint64(n))
}

func writeFloats(w io.Writer, v []float32) error {
	if err := writeLen(w, len(v)); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	return binary.Write(w, binary.LittleEndian, v)
}

func writeEdges(w io.Writer, e *AF32) error {
	if e == nil {
		return writeLen(w, 0)
	}
	if err := writeLen(w, e.Shape[0]); err != nil {
		return err
	}
	for ifrom := 0; ifrom < e.Shape[0]; ifrom++ {
		if err := writeFloats(w, e.Row(ifrom)); err != nil {
			return err
		}
	}
	return nil
}

func Decode(r io.Reader) (*Network, error) {
	net, err := decode(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return net, nil
}

func decode(r io.Reader) (*Network, error) {
	nLayers, err := readLen(r)
	if err != nil {
		return nil, fmt.Errorf("while reading layer count: %w", err)
	}
	if nLayers == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrMalformed)
	}

	net := &Network{}
	prevSize := 0
	for i := 0; i < nLayers; i++ {
		lay, err := decodeLayer(r, prevSize)
		if err != nil {
			return nil, fmt.Errorf("while reading layer %d: %w", i, err)
		}
		net.Layers = append(net.Layers, lay)
		prevSize = lay.Size()
	}
	return net, nil
}

// prevSize is 0 when decoding the input layer.
func decodeLayer(r io.Reader, prevSize int) (*Layer, error) {
	z, err := readFloats(r)
	if err != nil {
		return nil, fmt.Errorf("while reading sums: %w", err)
	}
	a, err := readFloats(r)
	if err != nil {
		return nil, fmt.Errorf("while reading activations: %w", err)
	}
	if len(a) == 0 {
		return nil, fmt.Errorf("%w: empty layer", ErrMalformed)
	}
	size := len(a)

	w, err := readEdges(r, prevSize, size)
	if err != nil {
		return nil, fmt.Errorf("while reading weights: %w", err)
	}
	b, err := readEdges(r, prevSize, size)
	if err != nil {
		return nil, fmt.Errorf("while reading biases: %w", err)
	}

	lay := &Layer{
		A: &AF32{V: a, Shape: []int{size}},
	}
	if prevSize == 0 {
		if len(z) != 0 {
			return nil, fmt.Errorf("%w: input layer has %d sums", ErrMalformed, len(z))
		}
		return lay, nil
	}

	if len(z) != size {
		return nil, fmt.Errorf("%w: %d sums for %d activations", ErrMalformed, len(z), size)
	}
	lay.Z = &AF32{V: z, Shape: []int{size}}
	lay.W = &AF32{V: w, Shape: []int{prevSize, size}}
	lay.B = &AF32{V: b, Shape: []int{prevSize, size}}
	return lay, nil
}

func readLen(r io.Reader) (int, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, unexpectedEOF(err)
	}
	if n > maxPersistedLen {
		return 0, fmt.Errorf("%w: length %d too large", ErrMalformed, n)
	}
	return int(n), nil
}

// readChunk bounds how many values readFloats allocates ahead of the data
// actually present, so a large declared length on a short file fails at EOF
// instead of reserving memory for it.
const readChunk = 1 << 14

func readFloats(r io.Reader) ([]float32, error) {
	n, err := readLen(r)
	if err != nil {
		return nil, err
	}
	v := make([]float32, 0, min(n, readChunk))
	for len(v) < n {
		chunk := make([]float32, min(n-len(v), readChunk))
		if err := binary.Read(r, binary.LittleEndian, chunk); err != nil {
			return nil, unexpectedEOF(err)
		}
		v = append(v, chunk...)
	}
	return v, nil
}

// readEdges reads nFrom rows of nTo values into a single row-major slice.
// The slice grows with the rows read, never with the declared counts.
func readEdges(r io.Reader, nFrom, nTo int) ([]float32, error) {
	rows, err := readLen(r)
	if err != nil {
		return nil, err
	}
	if rows != nFrom {
		return nil, fmt.Errorf("%w: %d edge rows, want %d", ErrMalformed, rows, nFrom)
	}
	var out []float32
	for ifrom := 0; ifrom < nFrom; ifrom++ {
		row, err := readFloats(r)
		if err != nil {
			return nil, err
		}
		if len(row) != nTo {
			return nil, fmt.Errorf("%w: edge row %d has %d entries, want %d", ErrMalformed, ifrom, len(row), nTo)
		}
		out = append(out, row...)
	}
	return out, nil
}

// A file that ends mid-record is truncated, not empty.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func SaveFile(path string, net *Network) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating network file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := Encode(bw, net); err != nil {
		return fmt.Errorf("while encoding network: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while flushing network file: %w", err)
	}
	return f.Close()
}

// LoadFile reads a network written by SaveFile.  Every failure, including a
// missing file, is a *DecodeError; a missing file also matches
// os.ErrNotExist.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	net, err := decode(bufio.NewReader(f))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return net, nil
}

func CheckGeometry(net *Network, want Geometry) error {
	if got := net.Geometry(); !got.Equal(want) {
		return fmt.Errorf("%w: got %v, want %v", ErrGeometryMismatch, got, want)
	}
	return nil
}

// LoadOrMake loads the network stored at path, or allocates a fresh one with
// the given geometry if it can't be loaded.  loaded reports which happened.
// A network that loads but has a different geometry is an error.
func LoadOrMake(path string, geometry Geometry) (net *Network, loaded bool, err error) {
	net, err = LoadFile(path)
	if err != nil {
		log.Printf("Starting from a fresh network: %v", err)
		return MakeNetwork(geometry), false, nil
	}
	if err := CheckGeometry(net, geometry); err != nil {
		return nil, false, fmt.Errorf("while checking %s: %w", path, err)
	}
	return net, true, nil
}
