package controller

import (
	"bytes"
	"context"
	"net/http"

	"github.com/pandaskiing/depositview/pkg/chart"
	"github.com/pandaskiing/depositview/pkg/theme"
	"go.uber.org/zap"
)

// chartParams reads ?range= and ?metric=, both optional.
func chartParams(r *http.Request) (chart.TimeRange, chart.Metric, error) {
	q := r.URL.Query()
	tr, err := chart.ParseTimeRange(q.Get("range"))
	if err != nil {
		return "", "", badRequest("%v", err)
	}
	m, err := chart.ParseMetric(q.Get("metric"))
	if err != nil {
		return "", "", badRequest("%v", err)
	}
	return tr, m, nil
}

// chartTheme prefers ?theme=, then the client's resolved preference.
func (c *Controller) chartTheme(r *http.Request) theme.Theme {
	if t, err := theme.Parse(r.URL.Query().Get("theme")); err == nil {
		return t
	}
	id, _ := c.App.Sessions.ClientID(r)
	return c.App.Theme.Resolve(r.Context(), id, r)
}

// HandleChart returns the chart view as JSON: points, paths, readout and state.
// The first request for a dataset waits for its fetch; later ones are served
// from the cache. Failures are reported through the view state, not the status.
func (c *Controller) HandleChart(w http.ResponseWriter, r *http.Request) {
	tr, m, err := chartParams(r)
	if err != nil {
		c.writeError(w, err)
		return
	}

	sel := c.App.Selector.Select(r.Context(), tr, m)
	view := chart.NewView(sel, tr, m, chart.DefaultDimensions, string(c.chartTheme(r)), c.App.Location)
	writeJSON(w, http.StatusOK, view)
}

// HandleChartSVG renders the chart as an SVG document. It never waits on the
// subgraph: a dataset that was not fetched yet renders the loading state.
func (c *Controller) HandleChartSVG(w http.ResponseWriter, r *http.Request) {
	tr, m, err := chartParams(r)
	if err != nil {
		c.writeError(w, err)
		return
	}

	sel := c.App.CachedSelector.Select(r.Context(), tr, m)
	if sel.Loading {
		// Kick off the fetch so the next render has data.
		go c.App.Selector.Select(context.WithoutCancel(r.Context()), tr, m)
	}
	view := chart.NewView(sel, tr, m, chart.DefaultDimensions, string(c.chartTheme(r)), c.App.Location)

	var buf bytes.Buffer
	if err := chart.RenderSVG(&buf, view); err != nil {
		c.App.Logger.Error("Failed to render chart", zap.Error(err))
		c.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}
