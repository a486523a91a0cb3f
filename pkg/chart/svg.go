package chart

import (
	"html/template"
	"io"
	"time"
)

// Render states.
const (
	StateLoading = "loading"
	StateError   = "error"
	StateEmpty   = "empty"
	StateReady   = "ready"
)

// Palette holds the theme colors of the SVG.
type Palette struct {
	Background string
	Text       string
	Muted      string
	Grid       string
}

var palettes = map[string]Palette{
	"light": {Background: "#FFFFFF", Text: "#111827", Muted: "#6B7280", Grid: "#E5E7EB"},
	"dark":  {Background: "#111827", Text: "#F9FAFB", Muted: "#9CA3AF", Grid: "#374151"},
}

// View is everything RenderSVG and the JSON endpoint need.
type View struct {
	State    string     `json:"state"`
	Message  string     `json:"message,omitempty"`
	Range    TimeRange  `json:"range"`
	Metric   Metric     `json:"metric"`
	Dataset  string     `json:"dataset"`
	Dims     Dimensions `json:"dimensions"`
	Points   []Point    `json:"points"`
	Layout   Layout     `json:"layout"`
	Readout  string     `json:"readout"`
	Color    string     `json:"color"`
	MinLabel string     `json:"minLabel,omitempty"`
	MaxLabel string     `json:"maxLabel,omitempty"`
	Start    string     `json:"start,omitempty"`
	End      string     `json:"end,omitempty"`
	// Stale is set when a refresh failed but earlier data is still shown.
	Stale bool    `json:"stale,omitempty"`
	Theme string  `json:"theme"`
	Pal   Palette `json:"-"`
}

// NewView lays out sel for rendering. Loading wins over error, error over
// an empty dataset. A failed refresh with earlier data still renders the
// chart and sets Stale.
func NewView(sel Selection, r TimeRange, m Metric, dims Dimensions, theme string, loc *time.Location) View {
	if loc == nil {
		loc = time.UTC
	}
	pal, ok := palettes[theme]
	if !ok {
		theme, pal = "light", palettes["light"]
	}
	v := View{
		Range:   r,
		Metric:  m,
		Dataset: sel.Dataset,
		Dims:    dims,
		Points:  sel.Points,
		Color:   m.Color(),
		Theme:   theme,
		Pal:     pal,
	}
	if v.Points == nil {
		v.Points = []Point{}
	}

	switch {
	case sel.Loading:
		v.State = StateLoading
		v.Message = "Loading chart data..."
		return v
	case sel.Error != nil && len(sel.Points) == 0:
		v.State = StateError
		v.Message = sel.Error.Error()
		return v
	case len(sel.Points) == 0:
		v.State = StateEmpty
		v.Message = "No data"
		return v
	}

	v.State = StateReady
	v.Stale = sel.Error != nil
	v.Layout = Compute(sel.Points, dims)
	v.Readout = Readout(sel.Points, m)
	v.MinLabel = FormatValue(v.Layout.Min, m)
	v.MaxLabel = FormatValue(v.Layout.Max, m)
	v.Start = time.UnixMilli(sel.Points[0].Timestamp).In(loc).Format("01-02 15:04")
	v.End = time.UnixMilli(sel.Points[len(sel.Points)-1].Timestamp).In(loc).Format("01-02 15:04")
	return v
}

var svgTemplate = template.Must(template.New("chart").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Dims.Width}}" height="{{.Dims.Height}}" viewBox="0 0 {{.Dims.Width}} {{.Dims.Height}}" data-state="{{.State}}">
<rect width="100%" height="100%" fill="{{.Pal.Background}}"/>
{{- if eq .State "ready"}}
<defs><linearGradient id="area" x1="0" y1="0" x2="0" y2="1"><stop offset="0%" stop-color="{{.Color}}" stop-opacity="0.3"/><stop offset="100%" stop-color="{{.Color}}" stop-opacity="0"/></linearGradient></defs>
<line x1="{{.Dims.Padding}}" y1="{{.Layout.Baseline}}" x2="{{.Right}}" y2="{{.Layout.Baseline}}" stroke="{{.Pal.Grid}}"/>
<path class="area" d="{{.Layout.AreaPath}}" fill="url(#area)"/>
<path class="line" d="{{.Layout.LinePath}}" fill="none" stroke="{{.Color}}" stroke-width="2"/>
{{- range .Layout.Markers}}
<circle class="marker" cx="{{.X}}" cy="{{.Y}}" r="3" fill="{{$.Color}}"/>
{{- end}}
<text x="{{.Dims.Padding}}" y="{{.LabelTop}}" font-size="11" fill="{{.Pal.Muted}}" text-anchor="end" dx="-6">{{.MaxLabel}}</text>
<text x="{{.Dims.Padding}}" y="{{.Layout.Baseline}}" font-size="11" fill="{{.Pal.Muted}}" text-anchor="end" dx="-6">{{.MinLabel}}</text>
<text x="{{.Dims.Padding}}" y="{{.LabelBottom}}" font-size="11" fill="{{.Pal.Muted}}">{{.Start}}</text>
<text x="{{.Right}}" y="{{.LabelBottom}}" font-size="11" fill="{{.Pal.Muted}}" text-anchor="end">{{.End}}</text>
<text class="readout" x="{{.Right}}" y="24" font-size="16" font-weight="600" fill="{{.Pal.Text}}" text-anchor="end">{{.Readout}}</text>
{{- if .Stale}}
<text x="{{.Dims.Padding}}" y="24" font-size="11" fill="#EF4444">refresh failed, showing last data</text>
{{- end}}
{{- else}}
<text class="{{.State}}" x="50%" y="50%" font-size="14" fill="{{if eq .State "error"}}#EF4444{{else}}{{.Pal.Muted}}{{end}}" text-anchor="middle">{{.Message}}</text>
{{- end}}
</svg>
`))

// Right is the x coordinate of the right padding edge.
func (v View) Right() float64 { return v.Dims.Width - v.Dims.Padding }

// LabelTop is the y coordinate of the top padding edge.
func (v View) LabelTop() float64 { return v.Dims.Padding }

// LabelBottom is the baseline of the x-axis labels.
func (v View) LabelBottom() float64 { return v.Dims.Height - v.Dims.Padding + 18 }

// RenderSVG writes v as a standalone SVG document.
func RenderSVG(w io.Writer, v View) error {
	return svgTemplate.Execute(w, v)
}
