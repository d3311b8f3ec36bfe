package toolbox

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
)

type SafeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

// WriteSafeTensors writes tensors in safetensors format.  Tensors are laid out
// in tensorKeyOrder, so a dumped network appears layer by layer.
func WriteSafeTensors(w io.Writer, tensors map[string]*AF32) error {
	keys := slices.SortedFunc(maps.Keys(tensors), tensorKeyOrder)

	header := make(map[string]SafeTensorInfo, len(keys))
	offset := 0
	for _, k := range keys {
		n := len(tensors[k].V) * 4
		header[k] = SafeTensorInfo{
			DType:       "F32",
			Shape:       tensors[k].Shape,
			DataOffsets: []int{offset, offset + n},
		}
		offset += n
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}
	if _, err := bw.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}
	for _, k := range keys {
		if err := binary.Write(bw, binary.LittleEndian, tensors[k].V); err != nil {
			return fmt.Errorf("while writing %s values: %w", k, err)
		}
	}
	return bw.Flush()
}

// tensorKeyOrder compares dotted keys field by field, numerically where both
// fields are numbers, so "net.2.weights" sorts before "net.10.weights".
func tensorKeyOrder(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		var c int
		if aerr == nil && berr == nil {
			c = cmp.Compare(an, bn)
		} else {
			c = strings.Compare(as[i], bs[i])
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}

// ReadSafeTensors reads every F32 tensor from r.  Tensors of up to two
// dimensions are supported.
func ReadSafeTensors(r io.Reader) (map[string]*AF32, error) {
	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("while reading header length: %w", err)
	}
	if headerLen > maxPersistedLen {
		return nil, fmt.Errorf("header length %d too large", headerLen)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("while reading header: %w", err)
	}

	header := map[string]SafeTensorInfo{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("while reading header: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("while reading tensor data: %w", err)
	}

	tensors := map[string]*AF32{}
	for k, hdr := range header {
		if hdr.DType != "F32" {
			return nil, fmt.Errorf("unsupported dtype %s", hdr.DType)
		}
		if len(hdr.Shape) == 0 || len(hdr.Shape) > 2 {
			return nil, fmt.Errorf("unsupported shape %v", hdr.Shape)
		}

		// Each factor is checked against the data before multiplying, so the
		// product can't overflow.
		size := 1
		for _, s := range hdr.Shape {
			if s < 1 || s > len(data)/4/size {
				return nil, fmt.Errorf("shape %v for %s doesn't fit %d bytes of data", hdr.Shape, k, len(data))
			}
			size *= s
		}

		if len(hdr.DataOffsets) != 2 {
			return nil, fmt.Errorf("bad data offsets for %s: %v", k, hdr.DataOffsets)
		}
		begin, end := hdr.DataOffsets[0], hdr.DataOffsets[1]
		if begin < 0 || end > len(data) || end-begin != size*4 {
			return nil, fmt.Errorf("data offsets %v for %s don't fit shape %v", hdr.DataOffsets, k, hdr.Shape)
		}

		v := make([]float32, size)
		if _, err := binary.Decode(data[begin:end], binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("while reading values for %s: %w", k, err)
		}

		tensors[k] = &AF32{
			V:     v,
			Shape: hdr.Shape,
		}
	}

	return tensors, nil
}

// DumpTensors adds the weights and biases of every layer after the input
// layer to tensors.  The tensors share storage with net.
func (net *Network) DumpTensors(tensors map[string]*AF32) {
	for l := 1; l < len(net.Layers); l++ {
		tensors[fmt.Sprintf("net.%d.weights", l)] = net.Layers[l].W
		tensors[fmt.Sprintf("net.%d.biases", l)] = net.Layers[l].B
	}
}

// LoadTensors restores weights and biases dumped by DumpTensors.
func (net *Network) LoadTensors(tensors map[string]*AF32) error {
	for l := 1; l < len(net.Layers); l++ {
		wantShape := []int{net.LayerSize(l - 1), net.LayerSize(l)}

		weightKey := fmt.Sprintf("net.%d.weights", l)
		weightTensor, ok := tensors[weightKey]
		if !ok {
			return fmt.Errorf("no entry for %s", weightKey)
		}
		if !slices.Equal(weightTensor.Shape, wantShape) {
			return fmt.Errorf("wrong shape for %s; got %v want %v", weightKey, weightTensor.Shape, wantShape)
		}

		biasKey := fmt.Sprintf("net.%d.biases", l)
		biasTensor, ok := tensors[biasKey]
		if !ok {
			return fmt.Errorf("no entry for %s", biasKey)
		}
		if !slices.Equal(biasTensor.Shape, wantShape) {
			return fmt.Errorf("wrong shape for %s; got %v want %v", biasKey, biasTensor.Shape, wantShape)
		}

		net.Layers[l].W = AF32Copy(weightTensor)
		net.Layers[l].B = AF32Copy(biasTensor)
	}

	return nil
}
