// Package ledger computes per-invocation USD cost from a model price table
// and accumulates per-agent and per-budget-window totals, failing fast once
// a hard cap is crossed.
package ledger

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// PriceEntry is one row of the model price table: cost per million tokens,
// input and output, for a given model id.
type PriceEntry struct {
	ModelID          string  `yaml:"model_id"`
	InputPerMillion  float64 `yaml:"input_per_million_usd"`
	OutputPerMillion float64 `yaml:"output_per_million_usd"`
}

// PriceTable is a static, in-memory reference table keyed by model id.
// Lookup of an unknown model returns a zero-cost entry so tests remain
// deterministic against models that have no price row yet; Ledger.Charge
// logs a warning on the first charge against an unknown model.
type PriceTable struct {
	mu      sync.RWMutex
	entries map[string]PriceEntry
}

// NewPriceTable returns an empty price table.
func NewPriceTable() *PriceTable {
	return &PriceTable{entries: make(map[string]PriceEntry)}
}

// priceTableFile is the on-disk shape for YAML-loaded price tables,
// following the teacher's config convention of a thin wrapper struct
// around a slice of rows.
type priceTableFile struct {
	Models []PriceEntry `yaml:"models"`
}

// LoadPriceTableFile reads a YAML price table from path. The file shape is
// `models: [{model_id, input_per_million_usd, output_per_million_usd}, ...]`.
func LoadPriceTableFile(path string) (*PriceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadPriceTableBytes(data)
}

// LoadPriceTableBytes parses YAML price table content.
func LoadPriceTableBytes(data []byte) (*PriceTable, error) {
	var file priceTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	pt := NewPriceTable()
	for _, e := range file.Models {
		pt.Set(e)
	}
	return pt, nil
}

// Set inserts or replaces a price entry.
func (pt *PriceTable) Set(entry PriceEntry) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.entries[entry.ModelID] = entry
}

// Lookup returns the price entry for modelID, and whether it was found.
// An unknown model-id returns a zero-valued entry and false.
func (pt *PriceTable) Lookup(modelID string) (PriceEntry, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	e, ok := pt.entries[modelID]
	return e, ok
}

// Cost computes the USD cost of a call to modelID given input/output token
// counts, at micro-dollar precision. Unknown models cost zero.
func (pt *PriceTable) Cost(modelID string, inputTokens, outputTokens int) float64 {
	entry, ok := pt.Lookup(modelID)
	if !ok {
		return 0
	}
	cost := (float64(inputTokens)/1_000_000)*entry.InputPerMillion +
		(float64(outputTokens)/1_000_000)*entry.OutputPerMillion
	return microRound(cost)
}

// microRound rounds a USD amount to micro-dollar (1e-6) precision so
// repeated additions don't drift from floating-point accumulation beyond
// the tolerance the spec's cost invariant allows.
func microRound(usd float64) float64 {
	const scale = 1_000_000.0
	return float64(int64(usd*scale+0.5)) / scale
}
