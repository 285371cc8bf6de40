package yolo

import (
	"github.com/nvr-ai/go-phenodet/models/postprocess"
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// TensorData flattens a network output tensor to float32. Any shape is
// accepted as long as the values are laid out cell after cell, for example
// (gridH, gridW, stride) or (1, gridH*gridW*stride).
func TensorData(t tensor.Tensor) ([]float32, error) {
	if t == nil {
		return nil, errors.New("network output tensor is nil")
	}
	if d, ok := t.(*tensor.Dense); ok && d.IsMaterializable() {
		t = d.Materialize()
	}

	switch data := t.Data().(type) {
	case []float32:
		return data, nil
	case []float64:
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float32(v)
		}
		return out, nil
	case float32:
		return []float32{data}, nil
	default:
		return nil, errors.Errorf("unsupported network output dtype %v", t.Dtype())
	}
}

// DecodeTensor decodes a network output held in a tensor.
func DecodeTensor(t tensor.Tensor, grid GridSpec, anchors AnchorSet, threshold float32) ([]postprocess.Result, error) {
	data, err := TensorData(t)
	if err != nil {
		return nil, err
	}
	return Decode(data, grid, anchors, threshold)
}

// DecodeNode decodes the value of an evaluated graph node, typically the
// output node of a network after the tape machine has run.
func DecodeNode(n *gorgonia.Node, grid GridSpec, anchors AnchorSet, threshold float32) ([]postprocess.Result, error) {
	if n == nil {
		return nil, errors.New("network output node is nil")
	}
	value := n.Value()
	if value == nil {
		return nil, errors.Errorf("node %v has no value, has the graph been run?", n.Name())
	}
	t, ok := value.(tensor.Tensor)
	if !ok {
		return nil, errors.Errorf("node %v holds %T, not a tensor", n.Name(), value)
	}
	results, err := DecodeTensor(t, grid, anchors, threshold)
	if err != nil {
		return nil, errors.Wrapf(err, "can't decode node %v", n.Name())
	}
	return results, nil
}
