package donation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/table"
)

const (
	consentSuffix    = "_consent"
	statusSuffix     = "_status"
	datapointsSuffix = "_n_datapoints"
)

// LedgerEntry records that a participant was looked at. Categories are
// only set for handled entries.
type LedgerEntry struct {
	ParticipantID string
	Handled       bool
	Categories    []blueprint.CategoryMetrics
}

// MarshalJSON writes a flat object: participant_id, the category triplets
// in blueprint order, then handled.
func (e LedgerEntry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write("participant_id", e.ParticipantID); err != nil {
		return nil, err
	}
	for _, m := range e.Categories {
		if err := write(m.ConsentKey(), m.Consent); err != nil {
			return nil, err
		}
		if err := write(m.StatusKey(), m.Status); err != nil {
			return nil, err
		}
		if err := write(m.DatapointsKey(), m.NDatapoints); err != nil {
			return nil, err
		}
	}
	if err := write("handled", e.Handled); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *LedgerEntry) UnmarshalJSON(data []byte) error {
	var rec table.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	entry := LedgerEntry{}
	index := make(map[string]int)
	category := func(name string) *blueprint.CategoryMetrics {
		i, ok := index[name]
		if !ok {
			i = len(entry.Categories)
			index[name] = i
			entry.Categories = append(entry.Categories, blueprint.CategoryMetrics{Name: name})
		}
		return &entry.Categories[i]
	}

	for _, key := range rec.Keys() {
		value, _ := rec.Get(key)

		switch {
		case key == "participant_id":
			if table.IsNull(value) {
				return errors.New("ledger entry without participant_id")
			}
			entry.ParticipantID = table.String(value)

		case key == "handled":
			handled, ok := table.Bool(value)
			if !ok {
				return fmt.Errorf("handled must be a boolean, got %v", value)
			}
			entry.Handled = handled

		case strings.HasSuffix(key, datapointsSuffix):
			m := category(strings.TrimSuffix(key, datapointsSuffix))
			if value == nil {
				continue
			}
			n, ok := table.Int(value)
			if !ok {
				return fmt.Errorf("%s must be an integer, got %v", key, value)
			}
			m.NDatapoints = &n

		case strings.HasSuffix(key, consentSuffix):
			m := category(strings.TrimSuffix(key, consentSuffix))
			if value == nil {
				continue
			}
			consent, ok := table.Bool(value)
			if !ok {
				return fmt.Errorf("%s must be a boolean, got %v", key, value)
			}
			m.Consent = &consent

		case strings.HasSuffix(key, statusSuffix):
			m := category(strings.TrimSuffix(key, statusSuffix))
			if value == nil {
				continue
			}
			status := table.String(value)
			m.Status = &status
		}
	}

	if entry.ParticipantID == "" {
		return errors.New("ledger entry without participant_id")
	}

	*e = entry
	return nil
}

// Row flattens the entry for the overview join. Null metrics stay absent.
func (e LedgerEntry) Row() table.Row {
	row := table.Row{
		"participant_id": e.ParticipantID,
		"handled":        e.Handled,
	}
	for _, m := range e.Categories {
		if m.Consent != nil {
			row[m.ConsentKey()] = *m.Consent
		}
		if m.Status != nil {
			row[m.StatusKey()] = *m.Status
		}
		if m.NDatapoints != nil {
			row[m.DatapointsKey()] = *m.NDatapoints
		}
	}
	return row
}
