package report

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/overview"
	"github.com/ddm-research/donation-monitor/app/study"
	"github.com/ddm-research/donation-monitor/app/table"
)

const (
	DataPointsPlot = "data_points_by_category.png"
	VotesPlot      = "vote_distribution_comparison.png"
	DonationsPlot  = "donations_by_date.png"
)

// TimestampPlot is the file name of the day distribution of field.
func TimestampPlot(field string, cutoffHour int) string {
	return fmt.Sprintf("%s_distribution_%dam_cutoff.png", field, cutoffHour)
}

// PlotNames lists the files WritePlots produces for a study.
func PlotNames(s *study.Study) []string {
	return []string{
		DataPointsPlot,
		VotesPlot,
		TimestampPlot(s.Fields.EndTime, s.Report.DayCutoffHour),
		DonationsPlot,
	}
}

// Report is the monitoring report over the usable overview.
type Report struct {
	Summary    overview.Summary
	Categories []CategoryStat
	Survey     []FieldStats
	Votes      VoteDistribution
	Days       []DayCount
	Donations  []DayCount

	study *study.Study
}

func Build(usable *table.Table, s *study.Study) *Report {
	return &Report{
		Summary:    overview.Summarize(usable, s),
		Categories: CategoryStats(usable),
		Survey:     Describe(usable, s.Report.DescribeFields),
		Votes:      VoteDistributionOf(usable, s.Report.VoteFields),
		Days:       TimestampDistribution(usable, s.Fields.EndTime, s.Report.DayCutoffHour),
		Donations:  DonationsByDate(usable, s.Fields.EndTime),
		study:      s,
	}
}

func (r *Report) Render(w io.Writer) {
	RenderSummary(w, r.Summary)
	RenderCategoryStats(w, r.Categories)
	RenderDescribe(w, r.Survey)
	RenderVotes(w, r.Votes)
	RenderDays(w, fmt.Sprintf("%s by day (%d:00 to %d:00)", r.study.Fields.EndTime, r.study.Report.DayCutoffHour, r.study.Report.DayCutoffHour), r.Days)
}

// WritePlots renders every chart into dir and returns the written paths.
func (r *Report) WritePlots(dir string) ([]string, error) {
	endField := r.study.Fields.EndTime
	cutoff := r.study.Report.DayCutoffHour

	charts := []struct {
		name  string
		chart BarChart
	}{
		{DataPointsPlot, DataPointsChart(r.Categories)},
		{VotesPlot, VoteChart(r.Votes)},
		{TimestampPlot(endField, cutoff), DayChart(
			fmt.Sprintf("Distribution of %s by Day (%dam to %dam)", endField, cutoff, cutoff),
			fmt.Sprintf("Date (%dam to %dam next day)", cutoff, cutoff), r.Days)},
		{DonationsPlot, DayChart("Spenden nach Tagen", "Date", r.Donations)},
	}

	var written []string
	for _, c := range charts {
		var buf bytes.Buffer
		if err := c.chart.EncodePNG(&buf); err != nil {
			return written, fmt.Errorf("failed to render %s: %w", c.name, err)
		}

		path := filepath.Join(dir, c.name)
		if err := donation.WriteFileAtomic(path, buf.Bytes()); err != nil {
			return written, err
		}
		written = append(written, path)

		slog.Debug("Plot written", "path", path, "bytes", buf.Len())
	}

	return written, nil
}
