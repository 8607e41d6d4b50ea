package study

import "time"

// Study describes the monitored study: inclusion rules for the usable
// overview and the survey variables the report looks at.
type Study struct {
	Name               string         `yaml:"name"`
	CollectionStart    string         `yaml:"collection_start"` // YYYY-MM-DD
	EligibleStep       int            `yaml:"eligible_step"`
	TestAgeSentinel    string         `yaml:"test_age_sentinel"`
	ConsentCategory    string         `yaml:"consent_category"`
	Fields             Fields         `yaml:"fields"`
	Report             ReportSettings `yaml:"report"`
	collectionStartsAt time.Time
}

// Fields names the overview columns the pipeline relies on.
type Fields struct {
	StartTime   string `yaml:"start_time"`
	EndTime     string `yaml:"end_time"`
	CurrentStep string `yaml:"current_step"`
	Completed   string `yaml:"completed"`
	Age         string `yaml:"age"`
}

type ReportSettings struct {
	DescribeFields []string `yaml:"describe_fields"`
	VoteFields     []string `yaml:"vote_fields"`
	DayCutoffHour  int      `yaml:"day_cutoff_hour"`
}

// CollectionStartsAt returns the parsed collection start date (midnight,
// local time).
func (s *Study) CollectionStartsAt() time.Time {
	return s.collectionStartsAt
}
