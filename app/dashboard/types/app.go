package types

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pandaskiing/depositview/pkg/chain"
	"github.com/pandaskiing/depositview/pkg/chart"
	"github.com/pandaskiing/depositview/pkg/feed"
	"github.com/pandaskiing/depositview/pkg/pollcache"
	"github.com/pandaskiing/depositview/pkg/redis"
	"github.com/pandaskiing/depositview/pkg/stats"
	"github.com/pandaskiing/depositview/pkg/subgraph"
	"github.com/pandaskiing/depositview/pkg/theme"
	"github.com/pandaskiing/depositview/pkg/utils"
	"go.uber.org/zap"
)

type App struct {
	// Cache holds every subgraph query and refreshes it in the background.
	Cache    *pollcache.Cache
	Feeds    *feed.Feeds
	Subgraph *subgraph.Client

	// Selector waits for the first fetch of a dataset; CachedSelector never blocks.
	Selector       *chart.Selector
	CachedSelector *chart.Selector
	Stats          *stats.Chain

	// Bridge and EthClient are nil when no RPC endpoint is configured.
	Bridge    *chain.Bridge
	EthClient *ethclient.Client

	Theme    *theme.Service
	Sessions theme.Sessions

	// RedisClient is nil when live updates are disabled.
	RedisClient *redis.Client

	// Location formats deposit times.
	Location *time.Location

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start runs background refresh and the HTTP server until ctx is done.
func (a *App) Start(ctx context.Context) {
	a.Cache.Start()
	go a.Feeds.Warm(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), utils.EnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second))
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)
	a.Cache.Stop()

	if a.Bridge != nil {
		a.Bridge.Close()
	}
	if a.EthClient != nil {
		a.EthClient.Close()
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
