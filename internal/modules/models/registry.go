package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/futurecoin/futurecoin/internal/domain"
)

// modelExtensions lists the file extensions the scanner considers.
var modelExtensions = map[string]bool{
	".json":    true,
	".model":   true,
	".msgpack": true,
}

// NumFeatures is the width of each input row (open, high, low,
// close, volume).
const NumFeatures = 5

// SequenceLength returns the number of input rows a model for the
// given timeframe consumes.
func SequenceLength(timeframe domain.Timeframe) int {
	if timeframe == domain.TimeframeHourly {
		return 60
	}
	return 30
}

// Info describes one registry entry, including entries backed by a
// stub after a failed load.
type Info struct {
	Symbol         string           `json:"symbol"`
	Timeframe      domain.Timeframe `json:"timeframe"`
	Algorithm      string           `json:"algorithm"`
	File           string           `json:"file"`
	Strategy       string           `json:"strategy,omitempty"`
	SequenceLength int              `json:"sequence_length"`
	Features       int              `json:"features"`
	Stub           bool             `json:"stub"`
	Error          string           `json:"error,omitempty"`
}

// ModelType is the label recorded on predictions served by this entry.
func (i Info) ModelType() string {
	return fmt.Sprintf("%s_%s", i.Timeframe, i.Algorithm)
}

// MarshalJSON adds the derived key, type, and loaded fields so the
// wire form is a full model descriptor.
func (i Info) MarshalJSON() ([]byte, error) {
	type alias Info
	return json.Marshal(struct {
		Key    string `json:"key"`
		Type   string `json:"type"`
		Loaded bool   `json:"loaded"`
		alias
	}{
		Key:    registryKey(i.Symbol, i.Timeframe),
		Type:   i.ModelType(),
		Loaded: !i.Stub,
		alias:  alias(i),
	})
}

// Status summarizes the registry for the health endpoint.
type Status struct {
	Total  int    `json:"total"`
	Loaded int    `json:"loaded"`
	Status string `json:"status"`
}

type entry struct {
	predictor Predictor
	info      Info
}

// Registry is an immutable snapshot of the models directory, built
// once at startup. Safe for concurrent reads.
type Registry struct {
	entries map[string]entry
	log     zerolog.Logger
}

// Scan reads every model file under dir and builds the registry.
// Files that fail every load strategy are kept as stub entries so the
// key stays servable through the fallback path. A missing directory
// yields an empty registry, not an error.
func Scan(dir string, loader *Loader, log zerolog.Logger) (*Registry, error) {
	reg := &Registry{
		entries: make(map[string]entry),
		log:     log.With().Str("component", "model_registry").Logger(),
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			reg.log.Warn().Str("dir", dir).Msg("Models directory does not exist")
			return reg, nil
		}
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		if !modelExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		info, err := parseModelFilename(name)
		if err != nil {
			reg.log.Warn().Err(err).Str("file", name).Msg("Skipping unrecognized model file")
			continue
		}

		path := filepath.Join(dir, name)
		predictor, strategy, err := loader.Load(path)
		if err != nil {
			reg.log.Error().Err(err).Str("file", name).Msg("Model load failed, registering stub")
			info.Stub = true
			info.Error = err.Error()
			predictor = &stubPredictor{reason: fmt.Sprintf("load failed for %s", name)}
		} else {
			info.Strategy = strategy
			reg.log.Info().
				Str("file", name).
				Str("symbol", info.Symbol).
				Str("timeframe", string(info.Timeframe)).
				Str("strategy", strategy).
				Msg("Loaded model")
		}

		reg.entries[registryKey(info.Symbol, info.Timeframe)] = entry{predictor: predictor, info: info}
	}

	status := reg.Status()
	reg.log.Info().Int("total", status.Total).Int("loaded", status.Loaded).Msg("Model scan complete")
	return reg, nil
}

// parseModelFilename splits <algorithm>_<symbol>_<timeframe>.<ext>.
// Symbols may themselves contain underscores, so the algorithm is the
// first segment and the timeframe the last.
func parseModelFilename(name string) (Info, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return Info{}, fmt.Errorf("filename %q does not match algorithm_symbol_timeframe", name)
	}

	timeframe := domain.Timeframe(strings.ToLower(parts[len(parts)-1]))
	if !timeframe.Valid() {
		return Info{}, fmt.Errorf("filename %q has unknown timeframe %q", name, parts[len(parts)-1])
	}

	return Info{
		Symbol:         strings.ToUpper(strings.Join(parts[1:len(parts)-1], "_")),
		Timeframe:      timeframe,
		Algorithm:      strings.ToLower(parts[0]),
		File:           name,
		SequenceLength: SequenceLength(timeframe),
		Features:       NumFeatures,
	}, nil
}

func registryKey(symbol string, timeframe domain.Timeframe) string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(symbol), timeframe)
}

// Get returns the predictor and metadata for a symbol and timeframe.
func (r *Registry) Get(symbol string, timeframe domain.Timeframe) (Predictor, Info, bool) {
	e, ok := r.entries[registryKey(symbol, timeframe)]
	if !ok {
		return nil, Info{}, false
	}
	return e.predictor, e.info, true
}

// List returns every registry entry sorted by symbol then timeframe.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Timeframe < out[j].Timeframe
	})
	return out
}

// Status reports totals for health checks. Stub entries count toward
// total but not loaded.
func (r *Registry) Status() Status {
	s := Status{Total: len(r.entries)}
	for _, e := range r.entries {
		if !e.info.Stub {
			s.Loaded++
		}
	}
	if s.Loaded > 0 {
		s.Status = "loaded"
	} else {
		s.Status = "no_models"
	}
	return s
}
