package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pandaskiing/depositview/pkg/format"
)

// MaxMarkers is the largest point count that still gets per-point markers.
const MaxMarkers = 50

// Dimensions is the drawing area in pixels.
type Dimensions struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Padding float64 `json:"padding"`
}

// DefaultDimensions matches the dashboard chart.
var DefaultDimensions = Dimensions{Width: 800, Height: 280, Padding: 60}

// Position is a point projected onto the drawing area.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout is the geometry of a rendered chart.
type Layout struct {
	Positions []Position `json:"positions"`
	LinePath  string     `json:"linePath"`
	AreaPath  string     `json:"areaPath"`
	Markers   []Position `json:"markers,omitempty"`
	Min       float64    `json:"min"`
	Max       float64    `json:"max"`
	Baseline  float64    `json:"baseline"`
}

// Compute projects points onto dims. Larger values plot higher. An empty
// input yields an empty Layout. A single point sits at the left padding and
// keeps its marker but draws no line or area.
func Compute(points []Point, dims Dimensions) Layout {
	l := Layout{Baseline: dims.Height - dims.Padding}
	n := len(points)
	if n == 0 {
		return l
	}

	l.Min, l.Max = points[0].Value, points[0].Value
	for _, p := range points[1:] {
		l.Min = math.Min(l.Min, p.Value)
		l.Max = math.Max(l.Max, p.Value)
	}
	span := l.Max - l.Min
	if span == 0 {
		span = 1
	}

	innerW := dims.Width - 2*dims.Padding
	innerH := dims.Height - 2*dims.Padding
	l.Positions = make([]Position, n)
	for i, p := range points {
		x := dims.Padding
		if n > 1 {
			x = dims.Padding + float64(i)/float64(n-1)*innerW
		}
		y := dims.Height - dims.Padding - (p.Value-l.Min)/span*innerH
		l.Positions[i] = Position{X: x, Y: y}
	}

	if n <= MaxMarkers {
		l.Markers = l.Positions
	}
	if n == 1 {
		return l
	}

	var line strings.Builder
	for i, pos := range l.Positions {
		if i == 0 {
			line.WriteString("M ")
		} else {
			line.WriteString(" L ")
		}
		line.WriteString(coord(pos.X))
		line.WriteByte(',')
		line.WriteString(coord(pos.Y))
	}
	l.LinePath = line.String()

	first, last := l.Positions[0], l.Positions[n-1]
	l.AreaPath = fmt.Sprintf("M %s,%s L %s L %s,%s Z",
		coord(first.X), coord(l.Baseline),
		strings.TrimPrefix(l.LinePath, "M "),
		coord(last.X), coord(l.Baseline),
	)
	return l
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Readout formats the last point's value for metric. Empty input yields "".
func Readout(points []Point, m Metric) string {
	if len(points) == 0 {
		return ""
	}
	return FormatValue(points[len(points)-1].Value, m)
}

// FormatValue formats an already scaled value for metric.
func FormatValue(v float64, m Metric) string {
	if m.IsAmount() {
		if v >= 1000 {
			return fmt.Sprintf("%.1fK ETH", v/1000)
		}
		return fmt.Sprintf("%.2f ETH", v)
	}
	return format.Count(int64(math.Round(v)))
}
