package study

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEligibleStep    = 2
	DefaultTestAgeSentinel = "99"
	DefaultConsentCategory = "AngeseheneVideos"
	DefaultDayCutoffHour   = 5
)

// Default returns the study definition used when no study file exists.
func Default() *Study {
	s := &Study{}
	setDefaults(s)
	if err := validate(s); err != nil {
		panic(fmt.Sprintf("default study is invalid: %v", err))
	}
	return s
}

// Load reads the study file at path. A missing file yields the defaults.
func Load(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("Study file not found, using defaults", "path", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var s Study
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&s)

	if err := validate(&s); err != nil {
		return nil, fmt.Errorf("invalid study %s: %w", path, err)
	}

	slog.Debug("Study loaded", "name", s.Name, "collection_start", s.CollectionStart, "eligible_step", s.EligibleStep)

	return &s, nil
}

func setDefaults(s *Study) {
	if s.Name == "" {
		s.Name = "study"
	}
	if s.CollectionStart == "" {
		s.CollectionStart = "2025-02-16"
	}
	if s.EligibleStep == 0 {
		s.EligibleStep = DefaultEligibleStep
	}
	if s.TestAgeSentinel == "" {
		s.TestAgeSentinel = DefaultTestAgeSentinel
	}
	if s.ConsentCategory == "" {
		s.ConsentCategory = DefaultConsentCategory
	}
	if s.Fields.StartTime == "" {
		s.Fields.StartTime = "start_time"
	}
	if s.Fields.EndTime == "" {
		s.Fields.EndTime = "end_time"
	}
	if s.Fields.CurrentStep == "" {
		s.Fields.CurrentStep = "current_step"
	}
	if s.Fields.Completed == "" {
		s.Fields.Completed = "completed"
	}
	if s.Fields.Age == "" {
		s.Fields.Age = "Q2_age"
	}
	if s.Report.DescribeFields == nil {
		s.Report.DescribeFields = []string{"Q1_gender", "Q2_age", "Q3_education", "Q7_polInt-0"}
	}
	if s.Report.VoteFields == nil {
		s.Report.VoteFields = []string{"Q5_first_vote", "Q6_second_vote"}
	}
	if s.Report.DayCutoffHour == 0 {
		s.Report.DayCutoffHour = DefaultDayCutoffHour
	}
}

func validate(s *Study) error {
	start, err := time.ParseInLocation(time.DateOnly, s.CollectionStart, time.Local)
	if err != nil {
		return fmt.Errorf("collection start must be a YYYY-MM-DD date: %w", err)
	}
	s.collectionStartsAt = start

	if s.EligibleStep < 0 {
		return fmt.Errorf("eligible step must be non-negative")
	}
	if s.Report.DayCutoffHour < 0 || s.Report.DayCutoffHour > 23 {
		return fmt.Errorf("day cutoff hour must be between 0 and 23")
	}

	requiredFields := map[string]string{
		"start time field":   s.Fields.StartTime,
		"current step field": s.Fields.CurrentStep,
		"age field":          s.Fields.Age,
	}
	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if len(s.Report.VoteFields) > 2 {
		return fmt.Errorf("at most two vote fields are supported, got %d", len(s.Report.VoteFields))
	}

	return nil
}
