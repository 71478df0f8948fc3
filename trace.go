package flagenv

import (
	"encoding/json"
)

// Trace captures provenance for one option across the sources consulted
// during a run, strongest first.
type Trace struct {
	Option string       `json:"option"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how a specific source contributed to an option.
type Provenance struct {
	Source   Source   `json:"source"`
	Priority int      `json:"priority"`
	Raw      []string `json:"raw,omitempty"`
	Found    bool     `json:"found"`
}

// Winner returns the strongest layer that supplied a value.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
