package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pandaskiing/depositview/app/dashboard/types"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// WithCORS echoes the request origin so the dashboard frontend can send the session cookie.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Sec-CH-Prefers-Color-Scheme")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodPut+", "+http.MethodOptions)
		w.Header().Set("Accept-CH", "Sec-CH-Prefers-Color-Scheme")

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(c.recoverer)

	api.HandleFunc("/chart", c.HandleChart).Methods("GET")
	api.HandleFunc("/chart.svg", c.HandleChartSVG).Methods("GET")

	api.HandleFunc("/deposits/recent", c.HandleRecentDeposits).Methods("GET")
	api.HandleFunc("/deposit-amounts", c.HandleDepositAmounts).Methods("GET")
	api.HandleFunc("/stats", c.HandleStats).Methods("GET")

	api.HandleFunc("/campaign", c.HandleCampaign).Methods("GET")
	api.HandleFunc("/deposit/prepare", c.HandlePrepareDeposit).Methods("POST")
	api.HandleFunc("/tx", c.HandleRelay).Methods("POST")

	api.HandleFunc("/theme", c.HandleGetTheme).Methods("GET")
	api.HandleFunc("/theme", c.HandleSetTheme).Methods("PUT")
	api.HandleFunc("/theme/toggle", c.HandleToggleTheme).Methods("POST")

	r.HandleFunc("/ws", c.HandleWebSocket).Methods("GET")

	return r, nil
}
