package feed

import (
	"context"
	"errors"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/pandaskiing/depositview/pkg/pollcache"
	"github.com/pandaskiing/depositview/pkg/subgraph"
	"go.uber.org/zap"
)

// Feed names. They prefix every cache key and are what websocket clients subscribe to.
const (
	RecentDepositsName    = "recentDeposits"
	DepositAmountSetsName = "depositAmountSets"
	MinuteStatsName       = "minuteStats"
	HourlyStatsName       = "hourlyStats"
	AllDepositsName       = "allDeposits"
	GlobalStatsName       = "globalStats"
)

// Names lists every feed.
var Names = []string{
	RecentDepositsName,
	DepositAmountSetsName,
	MinuteStatsName,
	HourlyStatsName,
	AllDepositsName,
	GlobalStatsName,
}

// Default limits.
const (
	DefaultRecentDeposits    = 10
	RealtimeRecentDeposits   = 5
	DefaultDepositAmountSets = 20
	DefaultMinuteStats       = 100
	ChartMinuteStats         = 60
	DefaultHourlyStats       = 168
	DefaultAllDeposits       = 1000
	StatsAllDeposits         = 200
)

var (
	recentDepositsOpts    = pollcache.Options{StaleTime: 15 * time.Second, RefetchInterval: 15 * time.Second}
	depositAmountSetsOpts = pollcache.Options{StaleTime: 60 * time.Second, RefetchInterval: 60 * time.Second}
	minuteStatsOpts       = pollcache.Options{StaleTime: 30 * time.Second, RefetchInterval: 30 * time.Second}
	hourlyStatsOpts       = pollcache.Options{StaleTime: 60 * time.Second, RefetchInterval: 60 * time.Second}
	allDepositsOpts       = pollcache.Options{StaleTime: 30 * time.Second, RefetchInterval: 30 * time.Second, Retry: 1}
	globalStatsOpts       = pollcache.Options{StaleTime: 30 * time.Second, RefetchInterval: 30 * time.Second}
)

// Source is the subset of *subgraph.Client the feeds read from.
type Source interface {
	RecentDeposits(ctx context.Context, first int) ([]subgraph.DepositEvent, error)
	DepositAmountSets(ctx context.Context, first int) ([]subgraph.DepositAmountSet, error)
	MinuteStats(ctx context.Context, first int) ([]subgraph.AggregateBucket, error)
	HourlyStats(ctx context.Context, first int) ([]subgraph.AggregateBucket, error)
	AllDeposits(ctx context.Context, first int) ([]subgraph.DepositEvent, error)
	GlobalStats(ctx context.Context) (*subgraph.GlobalStats, error)
}

// Feeds binds each subgraph query to its cache key and polling options.
type Feeds struct {
	cache  *pollcache.Cache
	src    Source
	logger *zap.Logger
}

// New creates Feeds over cache and src.
func New(cache *pollcache.Cache, src Source, logger *zap.Logger) *Feeds {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feeds{cache: cache, src: src, logger: logger}
}

// Cache returns the underlying polling cache.
func (f *Feeds) Cache() *pollcache.Cache { return f.cache }

func orDefault(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

// RecentDeposits returns the newest deposits. limit <= 0 uses 10.
func (f *Feeds) RecentDeposits(ctx context.Context, limit int) pollcache.Result[[]subgraph.DepositEvent] {
	limit = orDefault(limit, DefaultRecentDeposits)
	return pollcache.Get(ctx, f.cache, pollcache.NewKey(RecentDepositsName, limit),
		func(ctx context.Context) ([]subgraph.DepositEvent, error) { return f.src.RecentDeposits(ctx, limit) },
		recentDepositsOpts)
}

// DepositAmountSets returns the configured per-deposit amounts. limit <= 0 uses 20.
func (f *Feeds) DepositAmountSets(ctx context.Context, limit int) pollcache.Result[[]subgraph.DepositAmountSet] {
	limit = orDefault(limit, DefaultDepositAmountSets)
	return pollcache.Get(ctx, f.cache, pollcache.NewKey(DepositAmountSetsName, limit),
		func(ctx context.Context) ([]subgraph.DepositAmountSet, error) { return f.src.DepositAmountSets(ctx, limit) },
		depositAmountSetsOpts)
}

// MinuteStats returns minute buckets, newest first. limit <= 0 uses 100.
func (f *Feeds) MinuteStats(ctx context.Context, limit int) pollcache.Result[[]subgraph.AggregateBucket] {
	limit = orDefault(limit, DefaultMinuteStats)
	return pollcache.Get(ctx, f.cache, pollcache.NewKey(MinuteStatsName, limit),
		func(ctx context.Context) ([]subgraph.AggregateBucket, error) { return f.src.MinuteStats(ctx, limit) },
		minuteStatsOpts)
}

// HourlyStats returns hour buckets, newest first. limit <= 0 uses 168.
func (f *Feeds) HourlyStats(ctx context.Context, limit int) pollcache.Result[[]subgraph.AggregateBucket] {
	limit = orDefault(limit, DefaultHourlyStats)
	return pollcache.Get(ctx, f.cache, pollcache.NewKey(HourlyStatsName, limit),
		func(ctx context.Context) ([]subgraph.AggregateBucket, error) { return f.src.HourlyStats(ctx, limit) },
		hourlyStatsOpts)
}

// AllDeposits returns deposits by deposit number ascending. limit <= 0 uses 1000.
//
// A fetch is retried once. When that fails too the feed reports the last good
// data, or an empty slice, without an error.
func (f *Feeds) AllDeposits(ctx context.Context, limit int) pollcache.Result[[]subgraph.DepositEvent] {
	limit = orDefault(limit, DefaultAllDeposits)
	res := pollcache.Get(ctx, f.cache, pollcache.NewKey(AllDepositsName, limit),
		func(ctx context.Context) ([]subgraph.DepositEvent, error) { return f.src.AllDeposits(ctx, limit) },
		allDepositsOpts)
	if res.IsError {
		f.logger.Warn("all deposits unavailable, serving fallback",
			zap.Int("limit", limit),
			zap.Int("fallback_rows", len(res.Data)),
			zap.Error(res.Err),
		)
		res.IsError = false
		res.Err = nil
	}
	if res.Data == nil && !res.IsLoading {
		res.Data = []subgraph.DepositEvent{}
	}
	return res
}

// GlobalStats returns the subgraph's running totals. Data is nil until the
// subgraph has indexed a deposit.
func (f *Feeds) GlobalStats(ctx context.Context) pollcache.Result[*subgraph.GlobalStats] {
	return pollcache.Get(ctx, f.cache, pollcache.NewKey(GlobalStatsName),
		func(ctx context.Context) (*subgraph.GlobalStats, error) { return f.src.GlobalStats(ctx) },
		globalStatsOpts)
}

// InvalidateDeposits marks every feed a new deposit changes as stale.
// Deposit amount sets only change through admin transactions and are left alone.
func (f *Feeds) InvalidateDeposits() {
	for _, name := range []string{RecentDepositsName, MinuteStatsName, HourlyStatsName, AllDepositsName, GlobalStatsName} {
		f.cache.InvalidateName(name)
	}
}

// Warm issues the feeds the dashboard always shows so their background
// refresh is registered before the first request.
func (f *Feeds) Warm(ctx context.Context) {
	tasks := []func(){
		func() { f.RecentDeposits(ctx, RealtimeRecentDeposits) },
		func() { f.DepositAmountSets(ctx, DefaultDepositAmountSets) },
		func() { f.MinuteStats(ctx, ChartMinuteStats) },
		func() { f.HourlyStats(ctx, DefaultHourlyStats) },
		func() { f.AllDeposits(ctx, DefaultAllDeposits) },
		func() { f.AllDeposits(ctx, StatsAllDeposits) },
		func() { f.GlobalStats(ctx) },
	}

	pool := pond.NewPool(len(tasks))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	for _, task := range tasks {
		group.Submit(task)
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		f.logger.Warn("feed warmup interrupted", zap.Error(err))
	}
	f.logger.Info("feeds warmed", zap.Strings("keys", f.cache.Keys()))
}
