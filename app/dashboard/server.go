package dashboard

import (
	"net/http"

	"github.com/pandaskiing/depositview/app/dashboard/controller"
	"github.com/pandaskiing/depositview/app/dashboard/types"
	"go.uber.org/zap"
)

// NewServer builds the router and attaches the HTTP server to app.
func NewServer(app *types.App, cfg *Config) error {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	app.Server = &http.Server{Addr: cfg.Addr, Handler: controller.WithCORS(router)}
	app.Logger.Info("Starting server", zap.String("addr", cfg.Addr))

	return nil
}
