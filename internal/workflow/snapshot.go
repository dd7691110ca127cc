package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/stats"
	"github.com/zaidkom/net-zero/internal/table"
)

// PrepSnapshot is the JSON document stored in a workflow's data_prep field.
// It captures everything needed to rebuild the data-prep stage: the active
// query buffer, saved queries, sources, the table name counter, the cached
// result, and the statistics cache.
type PrepSnapshot struct {
	Query         string                 `json:"query"`
	SavedQueries  []query.SavedQuery     `json:"savedQueries"`
	Sources       []*table.Source        `json:"sources"`
	TableCounter  int                    `json:"tableCounter"`
	ResultColumns []table.Column         `json:"resultColumns"`
	ResultData    []table.Row            `json:"resultData"`
	TableStats    map[string]stats.Table `json:"tableStats"`
}

// EncodePrep serializes a data-prep snapshot for storage.
func EncodePrep(snap *PrepSnapshot) (string, error) {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encoding data-prep snapshot: %w", err)
	}
	return string(encoded), nil
}

// DecodePrep parses a stored data_prep field. Older workflows stored the raw
// query text instead of a JSON document; an unparseable payload is therefore
// treated as a legacy bare query and everything else starts empty.
func DecodePrep(raw string) *PrepSnapshot {
	var snap PrepSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return &PrepSnapshot{Query: raw, TableCounter: 1}
	}
	if snap.TableCounter < 1 {
		snap.TableCounter = 1
	}
	return &snap
}

// EncodeScripts serializes the analysis-stage script list. The analysis
// field holds a bare JSON array.
func EncodeScripts(scripts []query.Script) (string, error) {
	if scripts == nil {
		scripts = []query.Script{}
	}
	encoded, err := json.Marshal(scripts)
	if err != nil {
		return "", fmt.Errorf("encoding analysis snapshot: %w", err)
	}
	return string(encoded), nil
}

// DecodeScripts parses a stored analysis field. Anything that is not a JSON
// array of scripts yields an empty list.
func DecodeScripts(raw string) []query.Script {
	var scripts []query.Script
	if err := json.Unmarshal([]byte(raw), &scripts); err != nil {
		return nil
	}
	return scripts
}
