// Package models loads pre-trained forecasting models from disk and
// serves them through an immutable registry snapshot.
package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrStubModel is returned by a stub predictor. Callers treat it as
// "no usable model" and fall back to the statistical estimate.
var ErrStubModel = errors.New("model is a stub placeholder")

// Predictor produces a single normalized price from a prepared
// feature sequence of shape [seqLen][numFeatures].
type Predictor interface {
	Predict(sequence [][]float64) (float64, error)
}

// denseLayer is one fully connected layer. weights is (in x out),
// bias has out entries.
type denseLayer struct {
	weights    *mat.Dense
	bias       []float64
	activation string
}

// network is a stack of dense layers applied to the flattened input
// sequence. Recurrent layer weights are folded into an equivalent
// dense stack at load time.
type network struct {
	layers    []denseLayer
	inputDims int
}

func (n *network) Predict(sequence [][]float64) (float64, error) {
	flat := flatten(sequence)
	if len(flat) != n.inputDims {
		return 0, fmt.Errorf("input has %d values, model expects %d", len(flat), n.inputDims)
	}

	current := mat.NewDense(1, len(flat), flat)
	for i, layer := range n.layers {
		in, _ := layer.weights.Dims()
		_, cols := current.Dims()
		if cols != in {
			return 0, fmt.Errorf("layer %d expects %d inputs, got %d", i, in, cols)
		}

		var out mat.Dense
		out.Mul(current, layer.weights)
		raw := out.RawMatrix().Data
		for j := range raw {
			raw[j] += layer.bias[j%len(layer.bias)]
		}
		applyActivation(raw, layer.activation)
		current = &out
	}

	_, cols := current.Dims()
	if cols != 1 {
		return 0, fmt.Errorf("model output has %d values, expected 1", cols)
	}
	result := current.At(0, 0)
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, errors.New("model produced a non-finite value")
	}
	return result, nil
}

func applyActivation(values []float64, activation string) {
	switch activation {
	case "relu":
		for i, v := range values {
			if v < 0 {
				values[i] = 0
			}
		}
	case "tanh":
		for i, v := range values {
			values[i] = math.Tanh(v)
		}
	case "sigmoid":
		for i, v := range values {
			values[i] = 1 / (1 + math.Exp(-v))
		}
	default:
		// linear
	}
}

func flatten(sequence [][]float64) []float64 {
	if len(sequence) == 0 {
		return nil
	}
	flat := make([]float64, 0, len(sequence)*len(sequence[0]))
	for _, row := range sequence {
		flat = append(flat, row...)
	}
	return flat
}

// stubPredictor stands in for a model file that could not be loaded.
// It keeps the registry key servable while always forcing callers
// onto the fallback path.
type stubPredictor struct {
	reason string
}

func (s *stubPredictor) Predict(_ [][]float64) (float64, error) {
	return 0, fmt.Errorf("%w: %s", ErrStubModel, s.reason)
}
