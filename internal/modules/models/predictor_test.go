package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNetwork_Predict_LinearStack(t *testing.T) {
	// Two inputs, one output, weights [0.5, 0.25], bias 1.
	n := &network{
		inputDims: 2,
		layers: []denseLayer{
			{
				weights:    mat.NewDense(2, 1, []float64{0.5, 0.25}),
				bias:       []float64{1},
				activation: "linear",
			},
		},
	}

	out, err := n.Predict([][]float64{{2, 4}})
	require.NoError(t, err)
	assert.InDelta(t, 2*0.5+4*0.25+1, out, 1e-9)
}

func TestNetwork_Predict_TwoLayers(t *testing.T) {
	n := &network{
		inputDims: 2,
		layers: []denseLayer{
			{
				weights:    mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
				bias:       []float64{0, 0},
				activation: "relu",
			},
			{
				weights:    mat.NewDense(2, 1, []float64{1, 1}),
				bias:       []float64{0},
				activation: "linear",
			},
		},
	}

	// Relu zeroes the negative component before the sum.
	out, err := n.Predict([][]float64{{3, -2}})
	require.NoError(t, err)
	assert.InDelta(t, 3, out, 1e-9)
}

func TestNetwork_Predict_InputSizeMismatch(t *testing.T) {
	n := &network{
		inputDims: 4,
		layers: []denseLayer{
			{weights: mat.NewDense(4, 1, []float64{1, 1, 1, 1}), bias: []float64{0}},
		},
	}

	_, err := n.Predict([][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestApplyActivation(t *testing.T) {
	testCases := []struct {
		name       string
		activation string
		in         []float64
		want       []float64
	}{
		{"relu clamps negatives", "relu", []float64{-1, 0, 2}, []float64{0, 0, 2}},
		{"linear passes through", "linear", []float64{-1, 0.5}, []float64{-1, 0.5}},
		{"tanh squashes", "tanh", []float64{0}, []float64{0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values := append([]float64(nil), tc.in...)
			applyActivation(values, tc.activation)
			for i := range tc.want {
				assert.InDelta(t, tc.want[i], values[i], 1e-9)
			}
		})
	}
}

func TestApplyActivation_Sigmoid(t *testing.T) {
	values := []float64{0}
	applyActivation(values, "sigmoid")
	assert.InDelta(t, 0.5, values[0], 1e-9)

	values = []float64{100}
	applyActivation(values, "sigmoid")
	assert.InDelta(t, 1, values[0], 1e-6)
}

func TestStubPredictor_AlwaysErrors(t *testing.T) {
	stub := &stubPredictor{reason: "load failed"}

	_, err := stub.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrStubModel)
}

func TestNetwork_Predict_RejectsNonFinite(t *testing.T) {
	n := &network{
		inputDims: 1,
		layers: []denseLayer{
			{weights: mat.NewDense(1, 1, []float64{math.MaxFloat64}), bias: []float64{0}},
		},
	}

	_, err := n.Predict([][]float64{{math.MaxFloat64}})
	assert.Error(t, err)
}
