package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// layerConfig describes one layer of the serialized network.
type layerConfig struct {
	Type            string `json:"type" msgpack:"type"`
	Units           int    `json:"units" msgpack:"units"`
	Activation      string `json:"activation" msgpack:"activation"`
	BatchInputShape []int  `json:"batch_input_shape" msgpack:"batch_input_shape"`
}

type modelConfig struct {
	Layers []layerConfig `json:"layers" msgpack:"layers"`
}

type layerWeights struct {
	Weights [][]float64 `json:"weights" msgpack:"weights"`
	Bias    []float64   `json:"bias" msgpack:"bias"`
}

// modelContainer is the on-disk model format, serialized as JSON
// (.json) or msgpack (.model, .msgpack).
type modelContainer struct {
	Name    string         `json:"name" msgpack:"name"`
	Config  modelConfig    `json:"model_config" msgpack:"model_config"`
	Weights []layerWeights `json:"weights" msgpack:"weights"`
}

// knownLayerTypes maps serialized layer type names to the activation
// used when the layer itself does not name one. Recurrent layers are
// folded into dense equivalents at load time.
var knownLayerTypes = map[string]string{
	"dense":      "linear",
	"lstm":       "tanh",
	"gru":        "tanh",
	"simple_rnn": "tanh",
}

// loaderStrategies lists the load attempts in order, for the health
// endpoint.
var loaderStrategies = []string{"native", "layer_hints", "config_patch"}

// Loader reads a model file and builds a Predictor, trying
// progressively more permissive strategies.
type Loader struct {
	log zerolog.Logger
}

func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{log: log.With().Str("component", "model_loader").Logger()}
}

// Strategies returns the names of the load strategies in attempt order.
func (l *Loader) Strategies() []string {
	out := make([]string, len(loaderStrategies))
	copy(out, loaderStrategies)
	return out
}

// Load reads the file at path and returns a Predictor plus the name
// of the strategy that succeeded.
func (l *Loader) Load(path string) (Predictor, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read model file: %w", err)
	}

	asJSON := strings.EqualFold(filepath.Ext(path), ".json")

	var lastErr error
	for _, strategy := range loaderStrategies {
		var (
			p   Predictor
			err error
		)
		switch strategy {
		case "native":
			p, err = l.loadNative(data, asJSON)
		case "layer_hints":
			p, err = l.loadWithHints(data, asJSON)
		case "config_patch":
			p, err = l.loadWithConfigPatch(data, asJSON)
		}
		if err == nil {
			return p, strategy, nil
		}
		l.log.Debug().Err(err).Str("strategy", strategy).Str("path", path).Msg("Load strategy failed")
		lastErr = err
	}
	return nil, "", fmt.Errorf("all load strategies failed: %w", lastErr)
}

// loadNative decodes the container strictly and requires every layer
// type to be known.
func (l *Loader) loadNative(data []byte, asJSON bool) (Predictor, error) {
	var container modelContainer
	if asJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&container); err != nil {
			return nil, fmt.Errorf("strict decode failed: %w", err)
		}
	} else {
		if err := msgpack.Unmarshal(data, &container); err != nil {
			return nil, fmt.Errorf("strict decode failed: %w", err)
		}
	}

	for _, layer := range container.Config.Layers {
		if _, ok := knownLayerTypes[strings.ToLower(layer.Type)]; !ok {
			return nil, fmt.Errorf("unknown layer type %q", layer.Type)
		}
	}
	return buildNetwork(container.Config, container.Weights)
}

// loadWithHints decodes generically and reconstructs the layer list,
// substituting a dense interpretation for any unrecognized layer type
// that still carries units and weights.
func (l *Loader) loadWithHints(data []byte, asJSON bool) (Predictor, error) {
	raw, err := decodeGeneric(data, asJSON)
	if err != nil {
		return nil, err
	}

	cfg, err := configFromGeneric(raw["model_config"])
	if err != nil {
		return nil, err
	}
	for i := range cfg.Layers {
		if _, ok := knownLayerTypes[strings.ToLower(cfg.Layers[i].Type)]; !ok {
			cfg.Layers[i].Type = "dense"
		}
	}

	weights, err := weightsFromGeneric(raw["weights"])
	if err != nil {
		return nil, err
	}
	return buildNetwork(cfg, weights)
}

// loadWithConfigPatch handles containers written with the newer
// batch_shape attribute: the config tree is patched back to
// batch_input_shape before the network is rebuilt, and weights are
// loaded separately.
func (l *Loader) loadWithConfigPatch(data []byte, asJSON bool) (Predictor, error) {
	raw, err := decodeGeneric(data, asJSON)
	if err != nil {
		return nil, err
	}

	patched := patchBatchShape(raw["model_config"])
	cfg, err := configFromGeneric(patched)
	if err != nil {
		return nil, err
	}
	for i := range cfg.Layers {
		if _, ok := knownLayerTypes[strings.ToLower(cfg.Layers[i].Type)]; !ok {
			cfg.Layers[i].Type = "dense"
		}
	}

	weights, err := weightsFromGeneric(raw["weights"])
	if err != nil {
		return nil, err
	}
	return buildNetwork(cfg, weights)
}

// patchBatchShape recursively renames batch_shape keys to
// batch_input_shape throughout the config tree.
func patchBatchShape(node any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if key == "batch_shape" {
				key = "batch_input_shape"
			}
			out[key] = patchBatchShape(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = patchBatchShape(value)
		}
		return out
	default:
		return node
	}
}

func decodeGeneric(data []byte, asJSON bool) (map[string]any, error) {
	var raw map[string]any
	if asJSON {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("generic decode failed: %w", err)
		}
	} else {
		if err := msgpack.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("generic decode failed: %w", err)
		}
	}
	return raw, nil
}

func configFromGeneric(node any) (modelConfig, error) {
	m, ok := node.(map[string]any)
	if !ok {
		return modelConfig{}, fmt.Errorf("model_config is missing or not an object")
	}
	rawLayers, ok := m["layers"].([]any)
	if !ok {
		return modelConfig{}, fmt.Errorf("model_config has no layers list")
	}

	cfg := modelConfig{Layers: make([]layerConfig, 0, len(rawLayers))}
	for i, rl := range rawLayers {
		lm, ok := rl.(map[string]any)
		if !ok {
			return modelConfig{}, fmt.Errorf("layer %d is not an object", i)
		}
		if _, has := lm["batch_shape"]; has {
			return modelConfig{}, fmt.Errorf("layer %d carries unrecognized attribute batch_shape", i)
		}
		layer := layerConfig{
			Type:       asString(lm["type"]),
			Activation: asString(lm["activation"]),
		}
		if units, ok := asFloat(lm["units"]); ok {
			layer.Units = int(units)
		}
		if shape, ok := lm["batch_input_shape"].([]any); ok {
			for _, s := range shape {
				if f, ok := asFloat(s); ok {
					layer.BatchInputShape = append(layer.BatchInputShape, int(f))
				} else {
					layer.BatchInputShape = append(layer.BatchInputShape, 0)
				}
			}
		}
		cfg.Layers = append(cfg.Layers, layer)
	}
	return cfg, nil
}

func weightsFromGeneric(node any) ([]layerWeights, error) {
	rawList, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("weights are missing or not a list")
	}

	out := make([]layerWeights, 0, len(rawList))
	for i, rw := range rawList {
		wm, ok := rw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("weight entry %d is not an object", i)
		}
		var lw layerWeights
		rows, ok := wm["weights"].([]any)
		if !ok {
			return nil, fmt.Errorf("weight entry %d has no weights matrix", i)
		}
		for _, row := range rows {
			cells, ok := row.([]any)
			if !ok {
				return nil, fmt.Errorf("weight entry %d has a malformed row", i)
			}
			converted := make([]float64, 0, len(cells))
			for _, c := range cells {
				f, ok := asFloat(c)
				if !ok {
					return nil, fmt.Errorf("weight entry %d has a non-numeric cell", i)
				}
				converted = append(converted, f)
			}
			lw.Weights = append(lw.Weights, converted)
		}
		if bias, ok := wm["bias"].([]any); ok {
			for _, b := range bias {
				f, ok := asFloat(b)
				if !ok {
					return nil, fmt.Errorf("weight entry %d has a non-numeric bias", i)
				}
				lw.Bias = append(lw.Bias, f)
			}
		}
		out = append(out, lw)
	}
	return out, nil
}

// buildNetwork assembles the dense stack and derives the expected
// input width from the first layer shape or weight matrix.
func buildNetwork(cfg modelConfig, weights []layerWeights) (*network, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("model has no weights")
	}
	if len(cfg.Layers) != 0 && len(cfg.Layers) != len(weights) {
		return nil, fmt.Errorf("config describes %d layers but %d weight sets present", len(cfg.Layers), len(weights))
	}

	layers := make([]denseLayer, 0, len(weights))
	for i, lw := range weights {
		rows := len(lw.Weights)
		if rows == 0 {
			return nil, fmt.Errorf("layer %d has an empty weight matrix", i)
		}
		cols := len(lw.Weights[0])
		flat := make([]float64, 0, rows*cols)
		for _, row := range lw.Weights {
			if len(row) != cols {
				return nil, fmt.Errorf("layer %d has a ragged weight matrix", i)
			}
			flat = append(flat, row...)
		}
		bias := lw.Bias
		if len(bias) == 0 {
			bias = make([]float64, cols)
		}
		if len(bias) != cols {
			return nil, fmt.Errorf("layer %d bias length %d does not match %d units", i, len(bias), cols)
		}

		activation := "linear"
		if i < len(cfg.Layers) {
			if cfg.Layers[i].Activation != "" {
				activation = cfg.Layers[i].Activation
			} else if def, ok := knownLayerTypes[strings.ToLower(cfg.Layers[i].Type)]; ok {
				activation = def
			}
		}
		layers = append(layers, denseLayer{
			weights:    mat.NewDense(rows, cols, flat),
			bias:       bias,
			activation: activation,
		})
	}

	inputDims := len(weights[0].Weights)
	if len(cfg.Layers) > 0 && len(cfg.Layers[0].BatchInputShape) > 1 {
		dims := 1
		for _, d := range cfg.Layers[0].BatchInputShape[1:] {
			if d > 0 {
				dims *= d
			}
		}
		if dims > 1 && dims != inputDims {
			return nil, fmt.Errorf("input shape implies %d values but first layer takes %d", dims, inputDims)
		}
	}

	return &network{layers: layers, inputDims: inputDims}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
