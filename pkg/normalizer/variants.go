package normalizer

import (
	"context"

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/openintents/checkpoint-viewer/internal/types"
)

// Variants is an ordered list of schemas for one contract, newest first.
// Appending a schema is all it takes to support a new event version.
type Variants []Schema

// ScanFunc fetches the logs of one schema's event over the current window.
type ScanFunc func(ctx context.Context, s Schema) ([]gethtypes.Log, error)

// Match is the outcome of trying variants in order.
type Match struct {
	Schema      Schema
	Checkpoints []types.Checkpoint
	// Missed lists the schemas tried before Schema that produced nothing.
	Missed []string
}

// First scans variants in order and returns the first one that produces
// checkpoints. Results of different schemas are never mixed. When no variant
// matches, the returned Match has no checkpoints and Schema is the last variant.
func (v Variants) First(ctx context.Context, scan ScanFunc) (Match, error) {
	var m Match
	for _, s := range v {
		logs, err := scan(ctx, s)
		if err != nil {
			return Match{}, err
		}
		cps, err := s.Normalize(logs)
		if err != nil {
			return Match{}, err
		}
		m.Schema = s
		if len(cps) > 0 {
			m.Checkpoints = cps
			return m, nil
		}
		m.Missed = append(m.Missed, s.Name)
	}
	return m, nil
}

// Ambiguity scans the variants after chosen and reports an
// *types.AmbiguousSchemaError if any of them also produces checkpoints.
// Scan failures here are ignored; the chosen result already stands.
func (v Variants) Ambiguity(ctx context.Context, chosen string, scan ScanFunc) error {
	var matched []string
	after := false
	for _, s := range v {
		if s.Name == chosen {
			after = true
			continue
		}
		if !after {
			continue
		}
		logs, err := scan(ctx, s)
		if err != nil {
			continue
		}
		if cps, err := s.Normalize(logs); err == nil && len(cps) > 0 {
			matched = append(matched, s.Name)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return &types.AmbiguousSchemaError{Chosen: chosen, Matched: matched}
}

// Names lists the schema names in priority order.
func (v Variants) Names() []string {
	out := make([]string, len(v))
	for i, s := range v {
		out[i] = s.Name
	}
	return out
}
