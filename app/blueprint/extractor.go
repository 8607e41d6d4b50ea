package blueprint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/ddm-research/donation-monitor/app/table"
)

type Extractor struct {
	validate *validator.Validate
}

func NewExtractor() *Extractor {
	return &Extractor{
		validate: validator.New(),
	}
}

type CategoryResult struct {
	Blueprint Blueprint
	Metrics   CategoryMetrics
	Err       *ExtractionError
}

type Summary struct {
	Categories []CategoryResult
}

func (s Summary) Metrics() []CategoryMetrics {
	metrics := make([]CategoryMetrics, len(s.Categories))
	for i, c := range s.Categories {
		metrics[i] = c.Metrics
	}
	return metrics
}

func (s Summary) Failures() []*ExtractionError {
	var failures []*ExtractionError
	for _, c := range s.Categories {
		if c.Err != nil {
			failures = append(failures, c.Err)
		}
	}
	return failures
}

// Summarize reads consent, status and data point count of every blueprint
// from the first submission. Absent or empty blueprints yield null
// metrics; malformed ones yield null metrics and an ExtractionError.
func (e *Extractor) Summarize(raw *RawDonation, blueprints []Blueprint) Summary {
	summary := Summary{Categories: make([]CategoryResult, 0, len(blueprints))}

	for _, bp := range blueprints {
		result := CategoryResult{
			Blueprint: bp,
			Metrics:   CategoryMetrics{Name: bp.Prefix()},
		}

		metrics, err := e.summarizeBlueprint(raw, bp)
		if err != nil {
			result.Err = &ExtractionError{BlueprintID: bp.ID, Name: bp.Name, Err: err}
		} else {
			result.Metrics = metrics
		}

		summary.Categories = append(summary.Categories, result)
	}

	return summary
}

func (e *Extractor) summarizeBlueprint(raw *RawDonation, bp Blueprint) (CategoryMetrics, error) {
	metrics := CategoryMetrics{Name: bp.Prefix()}

	body, ok := raw.Blueprints[bp.ID]
	if !ok || isJSONNull(body) {
		return metrics, nil
	}

	subs, err := submissions(body)
	if err != nil {
		return metrics, err
	}
	if len(subs) == 0 {
		return metrics, nil
	}

	var first submission
	if err := json.Unmarshal(subs[0], &first); err != nil {
		return metrics, fmt.Errorf("malformed submission: %w", err)
	}

	items, err := dataItems(first.Data)
	if err != nil {
		return metrics, err
	}

	n := len(items)
	metrics.Consent = first.Consent
	metrics.Status = first.Status
	metrics.NDatapoints = &n

	return metrics, nil
}

type ActivityCategoryResult struct {
	BlueprintID  string
	ActivityType string
	Rows         int
	Skipped      int
	Undated      int
	Absent       bool
	Err          *ExtractionError
}

type ActivityReport struct {
	Categories []ActivityCategoryResult
}

func (r ActivityReport) Rows() int {
	total := 0
	for _, c := range r.Categories {
		total += c.Rows
	}
	return total
}

func (r ActivityReport) Failures() []*ExtractionError {
	var failures []*ExtractionError
	for _, c := range r.Categories {
		if c.Err != nil {
			failures = append(failures, c.Err)
		}
	}
	return failures
}

// ExtractActivities normalizes the data rows of every known category into
// one table with the canonical activity columns. A category that is
// absent or malformed contributes no rows. Rows with an unreadable value
// are skipped, rows without a date are kept; both are counted.
func (e *Extractor) ExtractActivities(participantID string, raw *RawDonation) (*table.Table, ActivityReport) {
	out := table.New(ActivityColumns...)
	var report ActivityReport

	for _, c := range categories {
		result := ActivityCategoryResult{BlueprintID: c.id, ActivityType: c.activityType}

		activities, counts, err := e.decodeCategory(raw, c)
		switch {
		case errors.Is(err, errAbsent):
			result.Absent = true
		case err != nil:
			result.Err = &ExtractionError{BlueprintID: c.id, Err: err}
			slog.Debug("Category skipped", "participant", participantID, "blueprint", c.id, "error", err)
		default:
			for _, a := range activities {
				row := a.Row()
				row["activity_type"] = a.ActivityType()
				row["participant_id"] = participantID
				out.Append(row)
			}
			result.Rows = len(activities)
			result.Skipped = counts.skipped
			result.Undated = counts.undated
		}

		report.Categories = append(report.Categories, result)
	}

	return out, report
}

var errAbsent = errors.New("category absent")

// rowCounts tallies the data rows of a category that were dropped because
// a value could not be read, and those kept without a date.
type rowCounts struct {
	skipped int
	undated int
}

func (e *Extractor) decodeCategory(raw *RawDonation, c category) ([]Activity, rowCounts, error) {
	var counts rowCounts

	body, ok := raw.Blueprints[c.id]
	if !ok || isJSONNull(body) {
		return nil, counts, errAbsent
	}

	subs, err := submissions(body)
	if err != nil {
		return nil, counts, err
	}
	if len(subs) == 0 {
		return nil, counts, errAbsent
	}

	var first submission
	if err := json.Unmarshal(subs[0], &first); err != nil {
		return nil, counts, fmt.Errorf("malformed submission: %w", err)
	}

	items, err := dataItems(first.Data)
	if err != nil {
		return nil, counts, err
	}

	activities := make([]Activity, 0, len(items))
	for i, item := range items {
		if !isJSONObject(item) {
			return nil, rowCounts{}, fmt.Errorf("data row %d is not an object", i)
		}

		a, err := c.decode(item)
		if err != nil {
			counts.skipped++
			continue
		}

		// Rows missing their date stay in the export with a null timestamp.
		if err := e.validate.Struct(a); err != nil {
			counts.undated++
		}

		activities = append(activities, a)
	}

	return activities, counts, nil
}

func isJSONNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func isJSONObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
