// Package charts renders plan-driven charts to fixed-size PNG images.
package charts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fogleman/gg"

	"github.com/finsightlabs/finsight-go/models"
)

// Chart image standard dimensions
const (
	ChartWidth  = 900
	ChartHeight = 420
)

// plot area margins
const (
	marginLeft   = 64
	marginRight  = 24
	marginTop    = 48
	marginBottom = 56
)

const maxAxisLabels = 16

var palette = []string{
	"#636efa", "#ef553b", "#00cc96", "#ab63fa", "#ffa15a",
	"#19d3f3", "#ff6692", "#b6e880", "#ff97ff", "#fecb52",
}

// errPieNeedsNumericY signals that no numeric value column could be found
// for a pie chart.
var errPieNeedsNumericY = fmt.Errorf("pie needs numeric y values")

// Render maps a frame and a finalized plan to a base64-encoded PNG. It is
// total: empty data, a missing x column, or any drawing failure produce a
// placeholder image instead of an error.
func Render(frame *models.Frame, plan models.ChartPlan) string {
	if frame == nil || frame.Len() == 0 || plan.X == "" {
		return Placeholder("No data / invalid plan")
	}
	encoded, err := render(frame, plan)
	if err != nil {
		if err == errPieNeedsNumericY {
			return Placeholder("Pie needs numeric 'y' values")
		}
		return Placeholder("Chart error")
	}
	return encoded
}

func render(frame *models.Frame, plan models.ChartPlan) (encoded string, err error) {
	// A malformed frame must never take the request down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart rendering panicked: %v", r)
		}
	}()

	dc := newCanvas()
	switch plan.ChartType {
	case models.ChartBar:
		err = drawBar(dc, frame, plan)
	case models.ChartLine:
		err = drawLine(dc, frame, plan)
	case models.ChartScatter:
		err = drawScatter(dc, frame, plan)
	case models.ChartPie:
		err = drawPie(dc, frame, plan)
	case models.ChartHistogram:
		err = drawHistogram(dc, frame, plan)
	case models.ChartBox:
		err = drawBox(dc, frame, plan)
	default:
		err = fmt.Errorf("unknown chart type %q", plan.ChartType)
	}
	if err != nil {
		return "", err
	}
	return encodePNG(dc)
}

// Placeholder produces the fixed-size fallback image with an explanatory
// title.
func Placeholder(title string) string {
	dc := newCanvas()
	dc.SetColor(mustHex("#e8e8e8"))
	dc.DrawRectangle(marginLeft, marginTop, plotWidth(), plotHeight())
	dc.Fill()
	dc.SetColor(mustHex("#333333"))
	dc.DrawStringAnchored(title, ChartWidth/2, ChartHeight/2, 0.5, 0.5)
	encoded, err := encodePNG(dc)
	if err != nil {
		// PNG encoding of an in-memory canvas does not fail; keep the
		// contract total regardless.
		return ""
	}
	return encoded
}

func newCanvas() *gg.Context {
	dc := gg.NewContext(ChartWidth, ChartHeight)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(mustHex("#333333"))
	return dc
}

func encodePNG(dc *gg.Context) (string, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("failed to encode chart: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func mustHex(hex string) color.RGBA {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b uint8
	fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func plotWidth() float64  { return float64(ChartWidth - marginLeft - marginRight) }
func plotHeight() float64 { return float64(ChartHeight - marginTop - marginBottom) }

func drawTitle(dc *gg.Context, title string) {
	dc.SetColor(mustHex("#111111"))
	dc.DrawStringAnchored(title, ChartWidth/2, marginTop/2, 0.5, 0.5)
	dc.SetColor(mustHex("#333333"))
}

// drawFrame draws the plot border.
func drawFrame(dc *gg.Context) {
	dc.SetColor(mustHex("#999999"))
	dc.SetLineWidth(1)
	dc.DrawRectangle(marginLeft, marginTop, plotWidth(), plotHeight())
	dc.Stroke()
	dc.SetColor(mustHex("#333333"))
}

// yScale maps a value range onto pixel positions, with grid lines and tick
// labels along the left edge.
func drawYAxis(dc *gg.Context, lo, hi float64) func(float64) float64 {
	if hi == lo {
		hi = lo + 1
	}
	scale := func(v float64) float64 {
		return float64(ChartHeight-marginBottom) - (v-lo)/(hi-lo)*plotHeight()
	}
	const ticks = 5
	for i := 0; i <= ticks; i++ {
		v := lo + (hi-lo)*float64(i)/ticks
		y := scale(v)
		dc.SetColor(mustHex("#e0e0e0"))
		dc.SetLineWidth(1)
		dc.DrawLine(marginLeft, y, float64(ChartWidth-marginRight), y)
		dc.Stroke()
		dc.SetColor(mustHex("#333333"))
		dc.DrawStringAnchored(formatTick(v), marginLeft-6, y, 1, 0.5)
	}
	return scale
}

// drawXCategories lays out n slots across the plot width and labels a
// readable subset of them.
func drawXCategories(dc *gg.Context, labels []string) func(int) float64 {
	n := len(labels)
	slot := plotWidth() / float64(n)
	center := func(i int) float64 {
		return marginLeft + slot*(float64(i)+0.5)
	}
	step := 1
	if n > maxAxisLabels {
		step = (n + maxAxisLabels - 1) / maxAxisLabels
	}
	for i := 0; i < n; i += step {
		label := labels[i]
		if len(label) > 14 {
			label = label[:11] + "..."
		}
		dc.DrawStringAnchored(label, center(i), float64(ChartHeight-marginBottom)+16, 0.5, 0.5)
	}
	return center
}

func drawXNumericAxis(dc *gg.Context, lo, hi float64) func(float64) float64 {
	if hi == lo {
		hi = lo + 1
	}
	scale := func(v float64) float64 {
		return marginLeft + (v-lo)/(hi-lo)*plotWidth()
	}
	const ticks = 6
	for i := 0; i <= ticks; i++ {
		v := lo + (hi-lo)*float64(i)/ticks
		dc.DrawStringAnchored(formatTick(v), scale(v), float64(ChartHeight-marginBottom)+16, 0.5, 0.5)
	}
	return scale
}

func formatTick(v float64) string {
	if math.Abs(v) >= 1000 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// yValues returns the series to plot on the y axis: the named column, or a
// constant 1 per row when the plan has no y (bar of occurrences).
func yValues(frame *models.Frame, plan models.ChartPlan) []float64 {
	if plan.Y == "" {
		ones := make([]float64, frame.Len())
		for i := range ones {
			ones[i] = 1
		}
		return ones
	}
	return frame.Floats(plan.Y)
}

func finiteRange(values []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

func drawBar(dc *gg.Context, frame *models.Frame, plan models.ChartPlan) error {
	title := plan.X
	if plan.Y != "" {
		title = fmt.Sprintf("%s by %s", plan.Y, plan.X)
	}
	drawTitle(dc, title)
	drawFrame(dc)

	labels := frame.Display(plan.X)
	values := yValues(frame, plan)
	lo, hi, ok := finiteRange(values)
	if !ok {
		return fmt.Errorf("no numeric values in column %q", plan.Y)
	}
	lo = math.Min(lo, 0)
	hi = math.Max(hi, 0)

	scale := drawYAxis(dc, lo, hi)
	center := drawXCategories(dc, labels)
	zero := scale(0)

	slot := plotWidth() / float64(len(values))
	barWidth := slot * 0.7
	dc.SetColor(mustHex(palette[0]))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		top := scale(v)
		y := math.Min(top, zero)
		h := math.Abs(zero - top)
		dc.DrawRectangle(center(i)-barWidth/2, y, barWidth, h)
		dc.Fill()
	}
	return nil
}

func drawLine(dc *gg.Context, frame *models.Frame, plan models.ChartPlan) error {
	drawTitle(dc, fmt.Sprintf("%s over %s", plan.Y, plan.X))
	drawFrame(dc)

	labels := frame.Display(plan.X)
	values := yValues(frame, plan)
	lo, hi, ok := finiteRange(values)
	if !ok {
		return fmt.Errorf("no numeric values in column %q", plan.Y)
	}

	scale := drawYAxis(dc, lo, hi)
	center := drawXCategories(dc, labels)

	dc.SetColor(mustHex(palette[0]))
	dc.SetLineWidth(2)
	started := false
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if !started {
			dc.MoveTo(center(i), scale(v))
			started = true
		} else {
			dc.LineTo(center(i), scale(v))
		}
	}
	dc.Stroke()
	// markers
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		dc.DrawCircle(center(i), scale(v), 3)
		dc.Fill()
	}
	return nil
}

func drawScatter(dc *gg.Context, frame *models.Frame, plan models.ChartPlan) error {
	drawTitle(dc, fmt.Sprintf("%s vs %s", plan.Y, plan.X))
	drawFrame(dc)

	ys := frame.Floats(plan.Y)
	yLo, yHi, ok := finiteRange(ys)
	if !ok {
		return fmt.Errorf("no numeric values in column %q", plan.Y)
	}
	scaleY := drawYAxis(dc, yLo, yHi)

	dc.SetColor(mustHex(palette[0]))
	if frame.NumericColumn(plan.X) {
		xs := frame.Floats(plan.X)
		xLo, xHi, _ := finiteRange(xs)
		scaleX := drawXNumericAxis(dc, xLo, xHi)
		for i := range xs {
			if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
				continue
			}
			dc.DrawCircle(scaleX(xs[i]), scaleY(ys[i]), 3.5)
			dc.Fill()
		}
		return nil
	}

	// non-numeric x: evenly spaced category slots
	center := drawXCategories(dc, frame.Display(plan.X))
	dc.SetColor(mustHex(palette[0]))
	for i, v := range ys {
		if math.IsNaN(v) {
			continue
		}
		dc.DrawCircle(center(i), scaleY(v), 3.5)
		dc.Fill()
	}
	return nil
}

func drawPie(dc *gg.Context, frame *models.Frame, plan models.ChartPlan) error {
	valueCol := plan.Y
	if valueCol == "" {
		// infer the first numeric, non-x column
		for _, col := range frame.Columns {
			if col != plan.X && frame.NumericColumn(col) {
				valueCol = col
				break
			}
		}
	}
	if valueCol == "" || !frame.NumericColumn(valueCol) {
		return errPieNeedsNumericY
	}
	drawTitle(dc, fmt.Sprintf("%s distribution by %s", valueCol, plan.X))

	// All-zero/negative values leave nothing to slice; the titled canvas
	// ships as an empty pie.
	labels := frame.Display(plan.X)
	values := frame.Floats(valueCol)
	total := 0.0
	for _, v := range values {
		if !math.IsNaN(v) && v > 0 {
			total += v
		}
	}

	cx := float64(ChartWidth) * 0.42
	cy := float64(ChartHeight)/2 + 10
	radius := plotHeight() / 2.2

	angle := -math.Pi / 2
	slice := 0
	for i, v := range values {
		if math.IsNaN(v) || v <= 0 {
			continue
		}
		sweep := v / total * 2 * math.Pi
		dc.SetColor(mustHex(palette[slice%len(palette)]))
		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, radius, angle, angle+sweep)
		dc.ClosePath()
		dc.Fill()

		// legend entry
		ly := marginTop + float64(slice)*18
		if ly < float64(ChartHeight-marginBottom) {
			dc.DrawRectangle(float64(ChartWidth)*0.72, ly, 12, 12)
			dc.Fill()
			dc.SetColor(mustHex("#333333"))
			dc.DrawStringAnchored(fmt.Sprintf("%s (%.1f%%)", labels[i], v/total*100),
				float64(ChartWidth)*0.72+18, ly+6, 0, 0.5)
		}
		angle += sweep
		slice++
	}
	return nil
}

func drawHistogram(dc *gg.Context, frame *models.Frame, plan models.ChartPlan) error {
	drawTitle(dc, fmt.Sprintf("Distribution of %s", plan.X))
	drawFrame(dc)

	var values []float64
	for _, v := range frame.Floats(plan.X) {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		// Non-numeric column: a histogram of categories is a count per
		// distinct value.
		return drawCategoryCounts(dc, frame, plan.X)
	}

	lo, hi, _ := finiteRange(values)
	const bins = 10
	counts := make([]float64, bins)
	width := hi - lo
	if width == 0 {
		counts[0] = float64(len(values))
	} else {
		for _, v := range values {
			idx := int((v - lo) / width * bins)
			if idx >= bins {
				idx = bins - 1
			}
			counts[idx]++
		}
	}

	_, maxCount, _ := finiteRange(counts)
	scale := drawYAxis(dc, 0, maxCount)
	labels := make([]string, bins)
	for i := range labels {
		labels[i] = formatTick(lo + width*(float64(i)+0.5)/bins)
	}
	center := drawXCategories(dc, labels)

	slot := plotWidth() / bins
	dc.SetColor(mustHex(palette[0]))
	for i, c := range counts {
		top := scale(c)
		dc.DrawRectangle(center(i)-slot*0.45, top, slot*0.9, float64(ChartHeight-marginBottom)-top)
		dc.Fill()
	}
	return nil
}

// drawCategoryCounts renders one bar per distinct value of a non-numeric
// column, in first-seen order.
func drawCategoryCounts(dc *gg.Context, frame *models.Frame, col string) error {
	var names []string
	counts := map[string]float64{}
	for _, label := range frame.Display(col) {
		if label == "" {
			continue
		}
		if _, seen := counts[label]; !seen {
			names = append(names, label)
		}
		counts[label]++
	}
	if len(names) == 0 {
		return fmt.Errorf("no values in column %q", col)
	}

	maxCount := 0.0
	for _, name := range names {
		maxCount = math.Max(maxCount, counts[name])
	}
	scale := drawYAxis(dc, 0, maxCount)
	center := drawXCategories(dc, names)

	slot := plotWidth() / float64(len(names))
	barWidth := math.Min(slot*0.7, 120)
	dc.SetColor(mustHex(palette[0]))
	for i, name := range names {
		top := scale(counts[name])
		dc.DrawRectangle(center(i)-barWidth/2, top, barWidth, float64(ChartHeight-marginBottom)-top)
		dc.Fill()
	}
	return nil
}

func drawBox(dc *gg.Context, frame *models.Frame, plan models.ChartPlan) error {
	title := fmt.Sprintf("Box: %s", plan.X)
	valueCol := plan.X
	groupCol := ""
	if plan.Y != "" {
		title = fmt.Sprintf("%s by %s", plan.Y, plan.X)
		valueCol = plan.Y
		groupCol = plan.X
	}
	drawTitle(dc, title)
	drawFrame(dc)

	names, groups := groupValues(frame, groupCol, valueCol)
	if len(groups) == 0 {
		return fmt.Errorf("no numeric values in column %q", valueCol)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, g := range groups {
		lo = math.Min(lo, g[0])
		hi = math.Max(hi, g[len(g)-1])
	}
	scale := drawYAxis(dc, lo, hi)
	center := drawXCategories(dc, names)

	slot := plotWidth() / float64(len(groups))
	boxWidth := math.Min(slot*0.5, 80)
	for i, g := range groups {
		q1 := quantile(g, 0.25)
		med := quantile(g, 0.5)
		q3 := quantile(g, 0.75)
		x := center(i)

		dc.SetColor(mustHex(palette[0]))
		dc.SetLineWidth(1.5)
		// whiskers
		dc.DrawLine(x, scale(g[0]), x, scale(q1))
		dc.DrawLine(x, scale(q3), x, scale(g[len(g)-1]))
		dc.Stroke()
		// box
		dc.DrawRectangle(x-boxWidth/2, scale(q3), boxWidth, scale(q1)-scale(q3))
		dc.Stroke()
		// median
		dc.SetColor(mustHex(palette[1]))
		dc.DrawLine(x-boxWidth/2, scale(med), x+boxWidth/2, scale(med))
		dc.Stroke()
	}
	dc.SetColor(mustHex("#333333"))
	return nil
}

// groupValues buckets the numeric value column by the group column (or into
// a single bucket when there is none), returning sorted value slices.
func groupValues(frame *models.Frame, groupCol, valueCol string) ([]string, [][]float64) {
	values := frame.Floats(valueCol)

	if groupCol == "" {
		var all []float64
		for _, v := range values {
			if !math.IsNaN(v) {
				all = append(all, v)
			}
		}
		if len(all) == 0 {
			return nil, nil
		}
		sort.Float64s(all)
		return []string{valueCol}, [][]float64{all}
	}

	keys := frame.Display(groupCol)
	var names []string
	byName := map[string][]float64{}
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if _, seen := byName[keys[i]]; !seen {
			names = append(names, keys[i])
		}
		byName[keys[i]] = append(byName[keys[i]], v)
	}
	groups := make([][]float64, 0, len(names))
	for _, name := range names {
		g := byName[name]
		sort.Float64s(g)
		groups = append(groups, g)
	}
	return names, groups
}

// quantile computes the p-quantile of a sorted slice with linear
// interpolation.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
