package report

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ddm-research/donation-monitor/app/overview"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	t.SetTitle(title)
	return t
}

func RenderSummary(w io.Writer, s overview.Summary) {
	t := newTable(w, "Summary")
	t.AppendHeader(table.Row{"Started", "Completed", "Donated"})
	t.AppendRow(table.Row{s.Started, s.Completed, s.Donated})
	t.Render()
}

func RenderCategoryStats(w io.Writer, stats []CategoryStat) {
	t := newTable(w, "Data points per category")
	t.AppendHeader(table.Row{"Category", "N", "Mean", "Median", "Max", "Min"})
	for _, s := range stats {
		t.AppendRow(table.Row{s.Category, s.Count, format1(s.Mean), format1(s.Median), format1(s.Max), format1(s.Min)})
	}
	t.Render()
}

// RenderDescribe prints one column per field, as describe() does.
func RenderDescribe(w io.Writer, stats []FieldStats) {
	t := newTable(w, "Survey variables")

	header := table.Row{""}
	rows := []table.Row{{"count"}, {"mean"}, {"std"}, {"min"}, {"50%"}, {"max"}}
	for _, s := range stats {
		header = append(header, s.Field)
		rows[0] = append(rows[0], s.Count)
		rows[1] = append(rows[1], format2(s.Mean))
		rows[2] = append(rows[2], format2(s.Std))
		rows[3] = append(rows[3], format2(s.Min))
		rows[4] = append(rows[4], format2(s.Median))
		rows[5] = append(rows[5], format2(s.Max))
	}

	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

func RenderVotes(w io.Writer, dist VoteDistribution) {
	t := newTable(w, "Vote distribution")

	header := table.Row{"Party"}
	for _, f := range dist.Fields {
		header = append(header, f)
	}
	t.AppendHeader(header)

	for _, r := range dist.Rows {
		row := table.Row{r.Party}
		for _, n := range r.Counts {
			row = append(row, n)
		}
		t.AppendRow(row)
	}
	t.Render()
}

func RenderDays(w io.Writer, title string, days []DayCount) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Day", "Count"})
	total := 0
	for _, d := range days {
		t.AppendRow(table.Row{d.Day, d.Count})
		total += d.Count
	}
	t.AppendFooter(table.Row{"Total", total})
	t.Render()
}

func format1(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.1f", v)
}

func format2(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", v)
}
