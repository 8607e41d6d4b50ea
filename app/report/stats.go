package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ddm-research/donation-monitor/app/survey"
	"github.com/ddm-research/donation-monitor/app/table"
)

const datapointsSuffix = "_n_datapoints"

// CategoryStat describes the data point counts of one donation category
// over the participants that donated it.
type CategoryStat struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Max      float64 `json:"max"`
	Min      float64 `json:"min"`
}

// CategoryStats computes mean, median, max and min of every
// <category>_n_datapoints column, in column order. Null cells are ignored.
func CategoryStats(t *table.Table) []CategoryStat {
	var stats []CategoryStat
	for _, column := range t.Columns() {
		if !strings.HasSuffix(column, datapointsSuffix) {
			continue
		}

		values := numbers(t.Column(column))
		stat := CategoryStat{
			Category: strings.TrimSuffix(column, datapointsSuffix),
			Count:    len(values),
			Mean:     math.NaN(),
			Median:   math.NaN(),
			Max:      math.NaN(),
			Min:      math.NaN(),
		}
		if len(values) > 0 {
			stat.Mean = mean(values)
			stat.Median = median(values)
			stat.Min = values[0]
			stat.Max = values[len(values)-1]
		}
		stats = append(stats, stat)
	}
	return stats
}

// FieldStats mirrors a describe() row: count, mean, sample standard
// deviation, min, median and max, rounded to two decimals.
type FieldStats struct {
	Field  string  `json:"field"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

func Describe(t *table.Table, fields []string) []FieldStats {
	described := make([]FieldStats, 0, len(fields))
	for _, field := range fields {
		values := numbers(t.Column(field))
		fs := FieldStats{
			Field:  field,
			Count:  len(values),
			Mean:   math.NaN(),
			Std:    math.NaN(),
			Min:    math.NaN(),
			Median: math.NaN(),
			Max:    math.NaN(),
		}
		if len(values) > 0 {
			fs.Mean = round2(mean(values))
			fs.Min = round2(values[0])
			fs.Median = round2(median(values))
			fs.Max = round2(values[len(values)-1])
		}
		if len(values) > 1 {
			fs.Std = round2(sampleStd(values))
		}
		described = append(described, fs)
	}
	return described
}

// VoteCount holds the counts of one party, one per vote field.
type VoteCount struct {
	Party  string `json:"party"`
	Counts []int  `json:"counts"`
}

type VoteDistribution struct {
	Fields []string    `json:"fields"`
	Rows   []VoteCount `json:"rows"`
}

// VoteDistributionOf maps the vote fields through the party codes and
// counts each label. Unknown codes and nulls are left out. Parties are
// sorted in German collation order.
func VoteDistributionOf(t *table.Table, fields []string) VoteDistribution {
	counts := make(map[string][]int)
	for i, field := range fields {
		for _, v := range t.Column(field) {
			party := survey.Label(survey.Party, v)
			if party == "" {
				continue
			}
			if counts[party] == nil {
				counts[party] = make([]int, len(fields))
			}
			counts[party][i]++
		}
	}

	parties := make([]string, 0, len(counts))
	for party := range counts {
		parties = append(parties, party)
	}
	survey.SortLabels(parties)

	dist := VoteDistribution{Fields: fields}
	for _, party := range parties {
		dist.Rows = append(dist.Rows, VoteCount{Party: party, Counts: counts[party]})
	}
	return dist
}

// DayCount is the number of rows falling on one day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// TimestampDistribution counts rows per day, where a day starts at
// cutoffHour: a timestamp before the cutoff belongs to the previous day.
// Unreadable timestamps are left out. Days are sorted.
func TimestampDistribution(t *table.Table, field string, cutoffHour int) []DayCount {
	counts := make(map[string]int)
	for _, v := range t.Column(field) {
		ts, ok := table.Time(v)
		if !ok {
			continue
		}
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if ts.Hour() < cutoffHour {
			day = day.AddDate(0, 0, -1)
		}
		counts[day.Format(time.DateOnly)]++
	}

	days := make([]DayCount, 0, len(counts))
	for day, n := range counts {
		days = append(days, DayCount{Day: day, Count: n})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Day < days[j].Day
	})
	return days
}

// DonationsByDate counts rows per calendar day.
func DonationsByDate(t *table.Table, field string) []DayCount {
	return TimestampDistribution(t, field, 0)
}

// numbers returns the numeric cells of a column, sorted.
func numbers(values []any) []float64 {
	var out []float64
	for _, v := range values {
		if f, ok := table.Float(v); ok && !math.IsNaN(f) {
			out = append(out, f)
		}
	}
	sort.Float64s(out)
	return out
}

func mean(sorted []float64) float64 {
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sampleStd(values []float64) float64 {
	m := mean(values)
	ss := 0.0
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
