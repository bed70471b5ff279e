// Package chart renders annotated closing-price line charts.
package chart

import (
	"bytes"
	"fmt"
	"os"

	"twstock-line-bot/internal/types"
	"twstock-line-bot/lib/helpers"
	"twstock-line-bot/lib/translation"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// seriesPalette is a fixed palette so identical input always renders the
// same image.
var seriesPalette = []drawing.Color{
	{R: 0, G: 122, B: 255, A: 255},
	{R: 255, G: 149, B: 0, A: 255},
	{R: 52, G: 199, B: 89, A: 255},
	{R: 175, G: 82, B: 222, A: 255},
	{R: 255, G: 45, B: 85, A: 255},
}

var (
	maxMarkColor = drawing.Color{R: 214, G: 39, B: 40, A: 255}
	minMarkColor = drawing.Color{R: 31, G: 119, B: 180, A: 255}
)

// Renderer renders price series to PNG bytes.
type Renderer struct {
	font   *truetype.Font
	width  int
	height int
}

// NewRenderer creates a renderer. fontPath may point to a TTF covering CJK
// glyphs; when empty the go-chart default font is used (Latin only).
func NewRenderer(fontPath string) (*Renderer, error) {
	r := &Renderer{width: 800, height: 400}

	if fontPath != "" {
		raw, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read font %s", fontPath)
		}
		font, err := truetype.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse font %s", fontPath)
		}
		r.font = font
	}

	return r, nil
}

// Render draws all series on one chart, marking each series' highest and
// lowest close. Output is deterministic for identical input.
func (r *Renderer) Render(seriesList []types.PriceSeries) ([]byte, error) {
	var drawable []types.PriceSeries
	for _, s := range seriesList {
		if len(s.Points) > 0 {
			drawable = append(drawable, s)
		}
	}
	if len(drawable) == 0 {
		return nil, errors.New("no series to render")
	}

	var chartSeries []chart.Series
	gmin, gmax := drawable[0].Points[0].Close, drawable[0].Points[0].Close

	for i, s := range drawable {
		color := seriesPalette[i%len(seriesPalette)]

		line := chart.TimeSeries{
			Name: seriesLabel(s),
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2.0,
				DotColor:    color,
				DotWidth:    3.0,
			},
		}
		for _, p := range s.Points {
			line.XValues = append(line.XValues, p.Date)
			line.YValues = append(line.YValues, p.Close)
			if p.Close < gmin {
				gmin = p.Close
			}
			if p.Close > gmax {
				gmax = p.Close
			}
		}
		chartSeries = append(chartSeries, line)
		chartSeries = append(chartSeries, r.markSeries(s))
	}

	padding := (gmax - gmin) * 0.1
	if padding == 0 {
		padding = 1
	}

	graph := chart.Chart{
		Title:  r.title(drawable),
		Font:   r.font,
		Width:  r.width,
		Height: r.height,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("01/02"),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{
				Min: gmin - padding,
				Max: gmax + padding,
			},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return helpers.FormatClose(f)
				}
				return ""
			},
		},
		Series: chartSeries,
	}

	if len(drawable) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "chart render failed")
	}

	return buf.Bytes(), nil
}

// markSeries annotates the maximum and minimum close of a series.
func (r *Renderer) markSeries(s types.PriceSeries) chart.Series {
	minIdx, maxIdx := minMaxIndex(s.Points)

	return chart.AnnotationSeries{
		Style: chart.Style{
			StrokeColor: maxMarkColor,
			FillColor:   drawing.Color{R: 255, G: 255, B: 255, A: 200},
		},
		Annotations: []chart.Value2{
			{
				XValue: chart.TimeToFloat64(s.Points[maxIdx].Date),
				YValue: s.Points[maxIdx].Close,
				Label:  fmt.Sprintf("%s %s", translation.Translate("最高"), helpers.FormatClose(s.Points[maxIdx].Close)),
			},
			{
				XValue: chart.TimeToFloat64(s.Points[minIdx].Date),
				YValue: s.Points[minIdx].Close,
				Label:  fmt.Sprintf("%s %s", translation.Translate("最低"), helpers.FormatClose(s.Points[minIdx].Close)),
			},
		},
	}
}

func (r *Renderer) title(drawable []types.PriceSeries) string {
	if len(drawable) == 1 {
		s := drawable[0]
		return translation.Translate("%s 最近 %d 日收盤價", seriesLabel(s), len(s.Points))
	}
	return translation.Translate("收盤價比較")
}

func seriesLabel(s types.PriceSeries) string {
	if s.Name != "" && s.Name != s.Symbol {
		return fmt.Sprintf("%s(%s)", s.Name, s.Symbol)
	}
	return s.Symbol
}

// minMaxIndex returns the indexes of the lowest and highest close. The
// first occurrence wins on ties.
func minMaxIndex(points []types.PricePoint) (minIdx, maxIdx int) {
	for i, p := range points {
		if p.Close < points[minIdx].Close {
			minIdx = i
		}
		if p.Close > points[maxIdx].Close {
			maxIdx = i
		}
	}
	return minIdx, maxIdx
}
