package controller

import (
	"net/http"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if c.App.RedisClient != nil {
		if err := c.App.RedisClient.Health(ctx); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "redis connection error"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"subgraph": c.App.Subgraph.Endpoint(),
		"chain":    c.App.Bridge != nil,
		"live":     c.App.RedisClient != nil,
		"queries":  c.App.Cache.Keys(),
	})
}
