package transformer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Tensor is one named weight loaded from a safetensors file.
type Tensor struct {
	Shape []int
	Data  []float64
}

// Rows and Cols treat the tensor as a matrix; 1-D tensors are 1 x n.
func (t *Tensor) Rows() int {
	if len(t.Shape) < 2 {
		return 1
	}
	return t.Shape[0]
}

func (t *Tensor) Cols() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[len(t.Shape)-1]
}

type tensorHeader struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// readSafetensors parses a safetensors file: an 8-byte little-endian header
// length, a JSON header mapping tensor names to dtype/shape/offsets, then
// the raw tensor buffer. Only F32 tensors are accepted; values are widened
// to float64 for gonum.
func readSafetensors(path string) (map[string]*Tensor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("safetensors file %s is truncated", path)
	}

	headerLen := binary.LittleEndian.Uint64(raw[:8])
	if headerLen > uint64(len(raw)-8) {
		return nil, fmt.Errorf("safetensors header length %d exceeds file size", headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("safetensors header: %w", err)
	}

	buffer := raw[8+headerLen:]
	tensors := make(map[string]*Tensor, len(header))
	for name, entry := range header {
		if name == "__metadata__" {
			continue
		}
		var th tensorHeader
		if err := json.Unmarshal(entry, &th); err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		if th.Dtype != "F32" {
			return nil, fmt.Errorf("tensor %s: unsupported dtype %s", name, th.Dtype)
		}

		start, end := th.DataOffsets[0], th.DataOffsets[1]
		if start < 0 || end > len(buffer) || start > end {
			return nil, fmt.Errorf("tensor %s: data offsets [%d,%d] out of range", name, start, end)
		}

		numel := 1
		for _, d := range th.Shape {
			numel *= d
		}
		if (end-start)/4 != numel {
			return nil, fmt.Errorf("tensor %s: buffer holds %d values, shape wants %d", name, (end-start)/4, numel)
		}

		data := make([]float64, numel)
		for i := 0; i < numel; i++ {
			bits := binary.LittleEndian.Uint32(buffer[start+i*4:])
			data[i] = float64(math.Float32frombits(bits))
		}
		tensors[name] = &Tensor{Shape: th.Shape, Data: data}
	}

	return tensors, nil
}
