package triage

import (
	"encoding/json"
	"fmt"
)

// metadataEscalationKey is the single well-known metadata key owned by the
// escalation engine. Every other top-level key is opaque to it.
const metadataEscalationKey = "escalation"

// Metadata is the case metadata blob. It carries one typed, well-known field
// (the active escalation record) plus a generic extension map holding every
// other top-level key verbatim, so keys written by other subsystems survive a
// merge untouched.
type Metadata struct {
	Escalation *EscalationRecord
	Extra      map[string]json.RawMessage
}

// NewMetadata returns an empty metadata blob.
func NewMetadata() Metadata {
	return Metadata{Extra: map[string]json.RawMessage{}}
}

// MarshalJSON flattens the typed escalation field and the extension map back
// into a single JSON object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(m.Extra)+1)
	for k, v := range m.Extra {
		if k == metadataEscalationKey {
			// The typed field is authoritative; a stray raw entry under the
			// escalation key must not shadow it.
			continue
		}
		merged[k] = v
	}
	if m.Escalation != nil {
		raw, err := json.Marshal(m.Escalation)
		if err != nil {
			return nil, fmt.Errorf("marshaling escalation record: %w", err)
		}
		merged[metadataEscalationKey] = raw
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits the raw object into the typed escalation field and the
// opaque extension map. Unknown keys are retained as raw JSON so they can be
// written back without re-encoding side effects.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshaling metadata: %w", err)
	}

	m.Escalation = nil
	m.Extra = make(map[string]json.RawMessage, len(raw))

	for k, v := range raw {
		if k == metadataEscalationKey {
			var rec EscalationRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				// A prior escalation entry this engine cannot decode is kept
				// opaque rather than dropped; the next merge replaces it.
				m.Extra[k] = v
				continue
			}
			m.Escalation = &rec
			continue
		}
		m.Extra[k] = v
	}
	return nil
}

// MergeEscalation returns a new metadata blob where the incoming escalation
// record replaces any prior escalation entry wholesale while every other
// top-level key from the existing blob is preserved unchanged. This is a
// deliberate one-level merge, not a deep recursive merge.
func MergeEscalation(existing Metadata, rec *EscalationRecord) Metadata {
	merged := Metadata{
		Escalation: rec,
		Extra:      make(map[string]json.RawMessage, len(existing.Extra)),
	}
	for k, v := range existing.Extra {
		if k == metadataEscalationKey {
			continue
		}
		merged.Extra[k] = v
	}
	return merged
}
