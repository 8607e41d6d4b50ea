package blueprint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Blueprint is one configured category of donated data.
type Blueprint struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (b *Blueprint) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Name string          `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id := strings.Trim(string(bytes.TrimSpace(raw.ID)), `"`)
	if id == "" || id == "null" {
		return errors.New("blueprint without id")
	}

	b.ID = id
	b.Name = raw.Name
	return nil
}

// Prefix is the column prefix of the blueprint's ledger fields.
func (b Blueprint) Prefix() string {
	return strings.ReplaceAll(b.Name, " ", "")
}

// RawDonation is one participant's donation payload. Blueprint bodies are
// kept undecoded so each category can fail on its own.
type RawDonation struct {
	Blueprints map[string]json.RawMessage
}

// ParseRawDonation checks the envelope of a donation payload. Only a
// missing or non-object "blueprints" member is an error here; problems
// inside a blueprint surface during extraction.
func ParseRawDonation(data []byte) (*RawDonation, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("donation is not a JSON object: %w", err)
	}

	rawBlueprints, ok := envelope["blueprints"]
	if !ok {
		return nil, errors.New("donation has no blueprints member")
	}

	var blueprints map[string]json.RawMessage
	if err := json.Unmarshal(rawBlueprints, &blueprints); err != nil {
		return nil, fmt.Errorf("donation blueprints are not an object: %w", err)
	}
	if blueprints == nil {
		blueprints = make(map[string]json.RawMessage)
	}

	return &RawDonation{Blueprints: blueprints}, nil
}

// CategoryMetrics are the ledger fields of one blueprint. All three are
// nil when the participant donated nothing for it.
type CategoryMetrics struct {
	Name        string
	Consent     *bool
	Status      *string
	NDatapoints *int
}

func (m CategoryMetrics) IsNull() bool {
	return m.Consent == nil && m.Status == nil && m.NDatapoints == nil
}

func (m CategoryMetrics) ConsentKey() string    { return m.Name + "_consent" }
func (m CategoryMetrics) StatusKey() string     { return m.Name + "_status" }
func (m CategoryMetrics) DatapointsKey() string { return m.Name + "_n_datapoints" }

// ExtractionError reports a blueprint whose payload could not be read.
type ExtractionError struct {
	BlueprintID string
	Name        string
	Err         error
}

func (e *ExtractionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("blueprint %s (%s): %v", e.BlueprintID, e.Name, e.Err)
	}
	return fmt.Sprintf("blueprint %s: %v", e.BlueprintID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type submission struct {
	Consent *bool           `json:"consent"`
	Status  *string         `json:"status"`
	Data    json.RawMessage `json:"data"`
}

// submissions decodes the donations array of one blueprint body.
func submissions(body json.RawMessage) ([]json.RawMessage, error) {
	var b struct {
		Donations *[]json.RawMessage `json:"donations"`
	}
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("malformed blueprint body: %w", err)
	}
	if b.Donations == nil {
		return nil, errors.New("blueprint body has no donations list")
	}
	return *b.Donations, nil
}

// dataItems decodes the data array of a submission.
func dataItems(data json.RawMessage) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("submission has no data")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("submission data is not a list: %w", err)
	}
	if items == nil {
		return nil, errors.New("submission data is null")
	}
	return items, nil
}
