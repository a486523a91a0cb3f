package dashboard

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pandaskiing/depositview/app/dashboard/types"
	"github.com/pandaskiing/depositview/pkg/chain"
	"github.com/pandaskiing/depositview/pkg/chart"
	"github.com/pandaskiing/depositview/pkg/feed"
	"github.com/pandaskiing/depositview/pkg/logging"
	"github.com/pandaskiing/depositview/pkg/pollcache"
	"github.com/pandaskiing/depositview/pkg/redis"
	"github.com/pandaskiing/depositview/pkg/stats"
	"github.com/pandaskiing/depositview/pkg/subgraph"
	"github.com/pandaskiing/depositview/pkg/theme"
	"github.com/pandaskiing/depositview/pkg/utils"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) (*types.App, *Config) {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Unable to load configuration", zap.Error(err))
	}

	endpoint, err := cfg.SubgraphEndpoint()
	if err != nil {
		logger.Fatal("Unknown subgraph network", zap.Error(err))
	}
	client := subgraph.New(subgraph.Opts{
		Endpoint: endpoint,
		Token:    cfg.SubgraphToken,
		Timeout:  cfg.SubgraphTimeout,
		RPS:      cfg.SubgraphRPS,
		Burst:    utils.EnvInt("SUBGRAPH_BURST", 20),
	}, logger)
	logger.Info("Subgraph configured", zap.String("endpoint", endpoint), zap.Bool("token", cfg.SubgraphToken != ""))

	cache := pollcache.New(logger)
	feeds := feed.New(cache, client, logger)

	// Redis carries live updates and theme preferences (optional)
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, redis.Opts{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: utils.EnvInt("REDIS_POOL_SIZE", 10),
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - WebSocket live updates will be disabled",
				zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Redis client initialized for WebSocket live updates")
		}
	} else {
		logger.Info("Redis disabled - WebSocket live updates will not be available")
	}

	var (
		ethClient *ethclient.Client
		bridge    *chain.Bridge
	)
	if cfg.RPCURL != "" {
		ethClient, err = ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			logger.Fatal("Unable to dial RPC endpoint", zap.String("url", cfg.RPCURL), zap.Error(err))
		}
		bridge, err = chain.New(ethClient, chain.Config{
			Contract: cfg.ContractAddress,
			Token:    cfg.TokenAddress,
			Workers:  utils.EnvInt("CHAIN_READ_WORKERS", 6),
		}, logger)
		if err != nil {
			logger.Fatal("Unable to initialize contract bridge", zap.Error(err))
		}
		logger.Info("Contract bridge ready",
			zap.String("contract", bridge.Contract().Hex()),
			zap.String("token", bridge.Token().Hex()))
	} else {
		logger.Info("RPC_URL not set - on-chain reads and relays are disabled")
	}

	providers := make([]stats.Provider, 0, 3)
	if bridge != nil {
		providers = append(providers, stats.ContractProvider{Reader: bridge, Cache: cache})
	}
	providers = append(providers,
		stats.SubgraphProvider{Source: feeds},
		stats.ComputedProvider{Source: feeds},
	)

	var store theme.Store = theme.NewMemoryStore()
	if redisClient != nil {
		store = theme.NewRedisStore(redisClient, cfg.SessionTTL)
	}

	app := &types.App{
		Cache:          cache,
		Feeds:          feeds,
		Subgraph:       client,
		Selector:       chart.NewSelector(feeds),
		CachedSelector: chart.NewSelector(feeds.Cached()),
		Stats:          stats.NewChain(logger, providers...),
		Bridge:         bridge,
		EthClient:      ethClient,
		Theme:          theme.NewService(store, theme.HeaderScheme{}, logger),
		Sessions: theme.Sessions{
			Secret: []byte(cfg.SessionSecret),
			TTL:    cfg.SessionTTL,
			Secure: cfg.Production(),
		},
		RedisClient: redisClient,
		Location:    cfg.Location(),
		Logger:      logger,
	}
	cache.OnUpdate(app.PublishFeedUpdate)

	return app, &cfg
}
