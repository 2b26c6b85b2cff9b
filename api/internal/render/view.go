// Package render turns a grading result into what the user sees: the HTML page,
// the pie chart and the chat reply.
package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"areca-grader/api/internal/grading"
)

const (
	chartSize   = 200.0
	outerRadius = 80.0
	innerRadius = 60.0
)

// Slice is one segment of the best/worst donut chart. Full slices cover the whole
// ring and have no Path; they are drawn as two circles.
type Slice struct {
	Name  string
	Label string
	Value float64
	Path  string
	Full  bool
}

type View struct {
	Grade   string
	Reason  string
	Best    string
	Worst   string
	Damaged string
	Slices  []Slice
	Center  float64
	Outer   float64
	Inner   float64
}

// NewView computes display values. The percentages are shown as given; their sum is
// not checked.
func NewView(r grading.Result) View {
	return View{
		Grade:   r.Grade,
		Reason:  r.GradingReason,
		Best:    Percent(r.BestQualityPercentage),
		Worst:   Percent(r.WorstQualityPercentage),
		Damaged: Percent(r.DamagedPercentage),
		Slices:  Slices(r.BestQualityPercentage, r.WorstQualityPercentage),
		Center:  chartSize / 2,
		Outer:   outerRadius,
		Inner:   innerRadius,
	}
}

// Slices splits the ring between best and worst in proportion to best+worst.
// Zero and negative values get no slice; both zero yields an empty chart.
func Slices(best, worst float64) []Slice {
	parts := []Slice{
		{Name: "best", Label: "Best", Value: best},
		{Name: "worst", Label: "Worst", Value: worst},
	}
	total := 0.0
	for _, p := range parts {
		if p.Value > 0 {
			total += p.Value
		}
	}
	if total == 0 {
		return nil
	}

	out := make([]Slice, 0, len(parts))
	start := 0.0
	for _, p := range parts {
		if p.Value <= 0 {
			continue
		}
		frac := p.Value / total
		if frac >= 1 {
			p.Full = true
			out = append(out, p)
			continue
		}
		p.Path = arcPath(start, start+frac)
		out = append(out, p)
		start += frac
	}
	return out
}

// arcPath draws a donut segment between two fractions of a turn, starting at 12 o'clock.
func arcPath(from, to float64) string {
	c := chartSize / 2
	large := 0
	if to-from > 0.5 {
		large = 1
	}
	ox1, oy1 := point(c, outerRadius, from)
	ox2, oy2 := point(c, outerRadius, to)
	ix2, iy2 := point(c, innerRadius, to)
	ix1, iy1 := point(c, innerRadius, from)

	var b strings.Builder
	fmt.Fprintf(&b, "M %s %s ", num(ox1), num(oy1))
	fmt.Fprintf(&b, "A %s %s 0 %d 1 %s %s ", num(outerRadius), num(outerRadius), large, num(ox2), num(oy2))
	fmt.Fprintf(&b, "L %s %s ", num(ix2), num(iy2))
	fmt.Fprintf(&b, "A %s %s 0 %d 0 %s %s Z", num(innerRadius), num(innerRadius), large, num(ix1), num(iy1))
	return b.String()
}

func point(c, r, frac float64) (float64, float64) {
	a := frac*2*math.Pi - math.Pi/2
	return c + r*math.Cos(a), c + r*math.Sin(a)
}

func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Percent formats v the way the model reported it, e.g. 70 -> "70%", 12.5 -> "12.5%".
func Percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// Text is the plain chat reply for a result.
func Text(r grading.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall grade: %s\n", r.Grade)
	fmt.Fprintf(&b, "Best quality: %s\n", Percent(r.BestQualityPercentage))
	fmt.Fprintf(&b, "Worst quality: %s\n", Percent(r.WorstQualityPercentage))
	fmt.Fprintf(&b, "Damaged nuts: %s\n", Percent(r.DamagedPercentage))
	if reason := strings.TrimSpace(r.GradingReason); reason != "" {
		fmt.Fprintf(&b, "\nGrading reason: %s", reason)
	}
	return strings.TrimRight(b.String(), "\n")
}
