package controller

import (
	"net/http"

	"github.com/pandaskiing/depositview/pkg/theme"
)

type themeBody struct {
	Theme theme.Theme `json:"theme"`
}

// HandleGetTheme returns the client's effective theme.
func (c *Controller) HandleGetTheme(w http.ResponseWriter, r *http.Request) {
	id := c.App.Sessions.Ensure(w, r)
	writeJSON(w, http.StatusOK, themeBody{Theme: c.App.Theme.Resolve(r.Context(), id, r)})
}

// HandleSetTheme stores an explicit "light" or "dark" preference.
func (c *Controller) HandleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeBody
	if err := decodeBody(r, &req); err != nil {
		c.writeError(w, err)
		return
	}
	t, err := theme.Parse(string(req.Theme))
	if err != nil {
		c.writeError(w, badRequest("%v", err))
		return
	}

	id := c.App.Sessions.Ensure(w, r)
	if err := c.App.Theme.Set(r.Context(), id, t); err != nil {
		c.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: t})
}

// HandleToggleTheme flips the effective theme and stores the result.
func (c *Controller) HandleToggleTheme(w http.ResponseWriter, r *http.Request) {
	id := c.App.Sessions.Ensure(w, r)
	t, err := c.App.Theme.Toggle(r.Context(), id, r)
	if err != nil {
		c.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: t})
}
