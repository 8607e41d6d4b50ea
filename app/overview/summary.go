package overview

import (
	"github.com/ddm-research/donation-monitor/app/study"
	"github.com/ddm-research/donation-monitor/app/table"
)

type Summary struct {
	Started   int `json:"started"`
	Completed int `json:"completed"`
	Donated   int `json:"donated"`
}

// Summarize counts the usable rows, those that completed the study and
// those that consented to donate the study's consent category.
func Summarize(usable *table.Table, s *study.Study) Summary {
	consentColumn := s.ConsentCategory + "_consent"

	summary := Summary{Started: usable.Len()}
	for _, row := range usable.Rows() {
		if completed, ok := table.Bool(row[s.Fields.Completed]); ok && completed {
			summary.Completed++
		}
		if donated, ok := table.Bool(row[consentColumn]); ok && donated {
			summary.Donated++
		}
	}
	return summary
}
