package overview

import (
	"log/slog"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/table"
)

const KeyColumn = "participant_id"

// ParticipationTable builds the participation table from the overview
// endpoint, keyed by the participant's external ID.
func ParticipationTable(participants []*table.Record) *table.Table {
	return table.FromRecords(participants, map[string]string{"external_id": KeyColumn})
}

// ResponseTable builds the response table. The nested response_data
// object is flattened into top-level columns.
func ResponseTable(responses []*table.Record) *table.Table {
	flat := make([]*table.Record, 0, len(responses))
	for _, resp := range responses {
		rec := table.NewRecord()
		for _, key := range resp.Keys() {
			value, _ := resp.Get(key)
			if key == "response_data" {
				if data, ok := value.(*table.Record); ok {
					for _, k := range data.Keys() {
						v, _ := data.Get(k)
						rec.Set(k, v)
					}
					continue
				}
			}
			rec.Set(key, value)
		}
		flat = append(flat, rec)
	}
	return table.FromRecords(flat, map[string]string{"participant": KeyColumn})
}

// LedgerTable flattens ledger entries. Columns follow blueprint order.
func LedgerTable(entries []donation.LedgerEntry, blueprints []blueprint.Blueprint) *table.Table {
	columns := []string{KeyColumn}
	for _, bp := range blueprints {
		m := blueprint.CategoryMetrics{Name: bp.Prefix()}
		columns = append(columns, m.ConsentKey(), m.StatusKey(), m.DatapointsKey())
	}
	columns = append(columns, "handled")

	t := table.New(columns...)
	for _, e := range entries {
		t.Append(e.Row())
	}
	return t
}

// Merge full outer joins the three sources on participant_id. Each source
// contributes at most one row per participant (the last one wins), so the
// result has exactly one row per participant seen anywhere.
func Merge(participation, responses, ledger *table.Table) *table.Table {
	merged := table.OuterJoin(unique(participation, "participation"), unique(responses, "responses"), KeyColumn)
	merged = table.OuterJoin(merged, unique(ledger, "ledger"), KeyColumn)

	slog.Debug("Overview merged", "rows", merged.Len(), "columns", len(merged.Columns()))

	return merged
}

func unique(t *table.Table, source string) *table.Table {
	last := make(map[string]int)
	nullKeys := 0
	for i, row := range t.Rows() {
		if table.IsNull(row[KeyColumn]) {
			nullKeys++
			continue
		}
		last[table.String(row[KeyColumn])] = i
	}

	if nullKeys > 0 {
		slog.Warn("Rows without participant_id dropped", "source", source, "rows", nullKeys)
	}
	if duplicates := t.Len() - nullKeys - len(last); duplicates > 0 {
		slog.Warn("Duplicate participant rows collapsed", "source", source, "rows", duplicates)
	}

	i := -1
	return t.Filter(func(row table.Row) bool {
		i++
		if table.IsNull(row[KeyColumn]) {
			return false
		}
		return last[table.String(row[KeyColumn])] == i
	})
}
