package toolbox

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSafeTensorsRoundTrip(t *testing.T) {
	net := MakeNetwork(Geometry{3, 4, 2})
	InitializeRandom(net, 8)

	tensors := map[string]*AF32{}
	net.DumpTensors(tensors)
	if len(tensors) != 4 {
		t.Fatalf("dumped %d tensors, want 4", len(tensors))
	}

	var buf bytes.Buffer
	if err := WriteSafeTensors(&buf, tensors); err != nil {
		t.Fatalf("WriteSafeTensors: %v", err)
	}
	read, err := ReadSafeTensors(&buf)
	if err != nil {
		t.Fatalf("ReadSafeTensors: %v", err)
	}
	if diff := cmp.Diff(read, tensors); diff != "" {
		t.Errorf("Wrong tensors; diff (-got +want)\n%s", diff)
	}

	restored := MakeNetwork(Geometry{3, 4, 2})
	if err := restored.LoadTensors(read); err != nil {
		t.Fatalf("LoadTensors: %v", err)
	}
	for ilayer := 1; ilayer < net.LayerCount(); ilayer++ {
		if diff := cmp.Diff(restored.Layers[ilayer].W, net.Layers[ilayer].W); diff != "" {
			t.Errorf("layer %d: wrong weights; diff (-got +want)\n%s", ilayer, diff)
		}
		if diff := cmp.Diff(restored.Layers[ilayer].B, net.Layers[ilayer].B); diff != "" {
			t.Errorf("layer %d: wrong biases; diff (-got +want)\n%s", ilayer, diff)
		}
	}
}

func TestLoadTensorsWrongShape(t *testing.T) {
	src := MakeNetwork(Geometry{3, 4, 2})
	InitializeRandom(src, 8)
	tensors := map[string]*AF32{}
	src.DumpTensors(tensors)

	if err := MakeNetwork(Geometry{3, 5, 2}).LoadTensors(tensors); err == nil {
		t.Errorf("loaded tensors into a network of another geometry")
	}

	delete(tensors, "net.2.biases")
	if err := MakeNetwork(Geometry{3, 4, 2}).LoadTensors(tensors); err == nil {
		t.Errorf("loaded tensors with a missing entry")
	}
}

func TestReadSafeTensorsTruncated(t *testing.T) {
	net := MakeNetwork(Geometry{2, 2})
	Initialize(net, Constant(1))
	tensors := map[string]*AF32{}
	net.DumpTensors(tensors)

	var buf bytes.Buffer
	if err := WriteSafeTensors(&buf, tensors); err != nil {
		t.Fatalf("WriteSafeTensors: %v", err)
	}
	data := buf.Bytes()
	if _, err := ReadSafeTensors(bytes.NewReader(data[:len(data)-1])); err == nil {
		t.Errorf("read a truncated file")
	}
}

func TestWriteSafeTensorsLayerOrder(t *testing.T) {
	geometry := make(Geometry, 12)
	for i := range geometry {
		geometry[i] = 2
	}
	net := MakeNetwork(geometry)
	Initialize(net, Constant(1))
	tensors := map[string]*AF32{}
	net.DumpTensors(tensors)

	var buf bytes.Buffer
	if err := WriteSafeTensors(&buf, tensors); err != nil {
		t.Fatalf("WriteSafeTensors: %v", err)
	}
	var headerLen uint64
	if err := binary.Read(&buf, binary.LittleEndian, &headerLen); err != nil {
		t.Fatal(err)
	}
	header := map[string]SafeTensorInfo{}
	if err := json.Unmarshal(buf.Next(int(headerLen)), &header); err != nil {
		t.Fatal(err)
	}

	// Biases then weights within a layer, layers in numeric order.
	want := 0
	for l := 1; l < len(geometry); l++ {
		for _, name := range []string{"biases", "weights"} {
			key := fmt.Sprintf("net.%d.%s", l, name)
			if got := header[key].DataOffsets[0]; got != want {
				t.Errorf("%s starts at %d, want %d", key, got, want)
			}
			want += 4 * 4
		}
	}
}

func TestTensorKeyOrder(t *testing.T) {
	for _, tc := range []struct {
		a, b string
		want int
	}{
		{"net.2.weights", "net.10.weights", -1},
		{"net.10.biases", "net.9.weights", 1},
		{"net.3.biases", "net.3.weights", -1},
		{"net.3", "net.3.biases", -1},
		{"net.3.biases", "net.3.biases", 0},
	} {
		if got := tensorKeyOrder(tc.a, tc.b); got != tc.want {
			t.Errorf("tensorKeyOrder(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestReadSafeTensorsRejectsOversizedShape(t *testing.T) {
	for name, shape := range map[string][]int{
		"overflowing product": {1 << 40, 1 << 40},
		"larger than data":    {3, 3},
		"zero dimension":      {0, 2},
	} {
		header, err := json.Marshal(map[string]SafeTensorInfo{
			"t": {DType: "F32", Shape: shape, DataOffsets: []int{16, 0}},
		})
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
		buf.Write(header)
		buf.Write(make([]byte, 16))

		if _, err := ReadSafeTensors(&buf); err == nil {
			t.Errorf("%s: read a tensor of shape %v from 16 bytes", name, shape)
		}
	}
}
