package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	colorSkyBlue    = color.RGBA{0x87, 0xce, 0xeb, 0xff}
	colorLightGreen = color.RGBA{0x90, 0xee, 0x90, 0xff}
	colorSalmon     = color.RGBA{0xfa, 0x80, 0x72, 0xff}
	colorLightGray  = color.RGBA{0xd3, 0xd3, 0xd3, 0xff}
	colorCoral      = color.RGBA{0xff, 0x7f, 0x50, 0xff}
	colorAxis       = color.RGBA{0x33, 0x33, 0x33, 0xff}
	colorGrid       = color.RGBA{0xe5, 0xe5, 0xe5, 0xff}
)

type Series struct {
	Label  string
	Color  color.Color
	Values []float64
}

// BarChart draws grouped bars, one group per category and one bar per
// series. On a log scale values below 1 get no bar.
type BarChart struct {
	Title      string
	XLabel     string
	YLabel     string
	Categories []string
	Series     []Series
	LogScale   bool
	Width      int
	Height     int
	// LabelFormat formats the value printed above each bar; empty means
	// no labels.
	LabelFormat string
}

const (
	marginLeft   = 90.0
	marginRight  = 30.0
	marginTop    = 60.0
	marginBottom = 170.0
)

func loadFace(size float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// EncodePNG renders the chart as PNG to w.
func (c BarChart) EncodePNG(w io.Writer) error {
	if c.Width == 0 {
		c.Width = 1200
	}
	if c.Height == 0 {
		c.Height = 700
	}

	dc := gg.NewContext(c.Width, c.Height)
	dc.SetColor(color.White)
	dc.Clear()

	small, err := loadFace(12)
	if err != nil {
		return err
	}
	large, err := loadFace(18)
	if err != nil {
		return err
	}

	plotW := float64(c.Width) - marginLeft - marginRight
	plotH := float64(c.Height) - marginTop - marginBottom
	bottom := marginTop + plotH

	scale, ticks := c.axis()

	dc.SetFontFace(small)
	dc.SetLineWidth(1)
	for _, tick := range ticks {
		y := bottom - scale(tick)*plotH
		dc.SetColor(colorGrid)
		dc.DrawLine(marginLeft, y, marginLeft+plotW, y)
		dc.Stroke()
		dc.SetColor(colorAxis)
		dc.DrawStringAnchored(formatTick(tick), marginLeft-8, y, 1, 0.5)
	}

	groups := len(c.Categories)
	if groups > 0 && len(c.Series) > 0 {
		groupW := plotW / float64(groups)
		barW := groupW * 0.8 / float64(len(c.Series))

		for g, category := range c.Categories {
			groupX := marginLeft + float64(g)*groupW + groupW*0.1

			for s, series := range c.Series {
				if g >= len(series.Values) {
					continue
				}
				v := series.Values[g]
				if math.IsNaN(v) || (c.LogScale && v < 1) || v <= 0 {
					continue
				}

				h := scale(v) * plotH
				x := groupX + float64(s)*barW
				dc.SetColor(series.Color)
				dc.DrawRectangle(x, bottom-h, barW, h)
				dc.Fill()

				if c.LabelFormat != "" {
					dc.SetColor(colorAxis)
					dc.DrawStringAnchored(fmt.Sprintf(c.LabelFormat, v), x+barW/2, bottom-h-4, 0.5, 0)
				}
			}

			cx := marginLeft + float64(g)*groupW + groupW/2
			dc.Push()
			dc.SetColor(colorAxis)
			dc.RotateAbout(gg.Radians(-45), cx, bottom+10)
			dc.DrawStringAnchored(category, cx, bottom+10, 1, 0.5)
			dc.Pop()
		}
	}

	dc.SetColor(colorAxis)
	dc.DrawLine(marginLeft, marginTop, marginLeft, bottom)
	dc.DrawLine(marginLeft, bottom, marginLeft+plotW, bottom)
	dc.Stroke()

	if len(c.Series) > 1 {
		lx := marginLeft + plotW - 220
		for i, series := range c.Series {
			ly := marginTop + 10 + float64(i)*20
			dc.SetColor(series.Color)
			dc.DrawRectangle(lx, ly, 14, 14)
			dc.Fill()
			dc.SetColor(colorAxis)
			dc.DrawStringAnchored(series.Label, lx+20, ly+7, 0, 0.5)
		}
	}

	dc.SetColor(colorAxis)
	dc.DrawStringAnchored(c.XLabel, marginLeft+plotW/2, float64(c.Height)-15, 0.5, 0)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 20, marginTop+plotH/2)
	dc.DrawStringAnchored(c.YLabel, 20, marginTop+plotH/2, 0.5, 0.5)
	dc.Pop()

	dc.SetFontFace(large)
	dc.DrawStringAnchored(c.Title, float64(c.Width)/2, marginTop/2, 0.5, 0.5)

	return dc.EncodePNG(w)
}

// axis returns the mapping of values to [0, 1] of the plot height and the
// ticks to draw.
func (c BarChart) axis() (func(float64) float64, []float64) {
	maxValue := 0.0
	for _, s := range c.Series {
		for _, v := range s.Values {
			if !math.IsNaN(v) && v > maxValue {
				maxValue = v
			}
		}
	}

	if c.LogScale {
		top := math.Max(1, math.Ceil(math.Log10(math.Max(maxValue, 1))*1.05))
		var ticks []float64
		for p := 0.0; p <= top; p++ {
			ticks = append(ticks, math.Pow(10, p))
		}
		return func(v float64) float64 {
			return math.Log10(math.Max(v, 1)) / top
		}, ticks
	}

	top := niceCeil(maxValue * 1.1)
	step := top / 5
	ticks := make([]float64, 0, 6)
	for i := 0; i <= 5; i++ {
		ticks = append(ticks, float64(i)*step)
	}
	return func(v float64) float64 {
		return v / top
	}, ticks
}

// niceCeil rounds up to 1, 2, 5 or 10 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}

func formatTick(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func DataPointsChart(stats []CategoryStat) BarChart {
	chart := BarChart{
		Title:       "Statistics of Data Points per Category (Log Scale)",
		XLabel:      "Categories",
		YLabel:      "Number of Data Points (log scale)",
		LogScale:    true,
		LabelFormat: "%.1f",
		Width:       1500,
		Height:      800,
	}

	meanS := Series{Label: "Mean", Color: colorSkyBlue}
	medianS := Series{Label: "Median", Color: colorLightGreen}
	maxS := Series{Label: "Max", Color: colorSalmon}
	minS := Series{Label: "Min", Color: colorLightGray}
	for _, s := range stats {
		chart.Categories = append(chart.Categories, s.Category)
		meanS.Values = append(meanS.Values, s.Mean)
		medianS.Values = append(medianS.Values, s.Median)
		maxS.Values = append(maxS.Values, s.Max)
		minS.Values = append(minS.Values, s.Min)
	}
	chart.Series = []Series{meanS, medianS, maxS, minS}

	return chart
}

var voteLabels = []string{"Erststimme (Direktkandidat)", "Zweitstimme (Partei)"}
var voteColors = []color.Color{colorSkyBlue, colorLightGreen}

func VoteChart(dist VoteDistribution) BarChart {
	chart := BarChart{
		Title:       "Verteilung der Erst- und Zweitstimmen",
		XLabel:      "Partei",
		YLabel:      "Anzahl",
		LabelFormat: "%.0f",
		Width:       1400,
		Height:      800,
	}

	series := make([]Series, len(dist.Fields))
	for i, field := range dist.Fields {
		series[i] = Series{Label: field, Color: colorSkyBlue}
		if i < len(voteLabels) {
			series[i].Label = voteLabels[i]
			series[i].Color = voteColors[i]
		}
	}
	for _, row := range dist.Rows {
		chart.Categories = append(chart.Categories, row.Party)
		for i, n := range row.Counts {
			series[i].Values = append(series[i].Values, float64(n))
		}
	}
	chart.Series = series

	return chart
}

func DayChart(title, xLabel string, days []DayCount) BarChart {
	chart := BarChart{
		Title:       title,
		XLabel:      xLabel,
		YLabel:      "Count",
		LabelFormat: "%.0f",
	}

	series := Series{Label: "Count", Color: colorCoral}
	for _, d := range days {
		chart.Categories = append(chart.Categories, d.Day)
		series.Values = append(series.Values, float64(d.Count))
	}
	chart.Series = []Series{series}

	return chart
}
