package feed

import (
	"context"

	"github.com/pandaskiing/depositview/pkg/pollcache"
	"github.com/pandaskiing/depositview/pkg/subgraph"
)

// Cached reads the chart feeds from the cache without ever fetching. Keys
// that were never requested report IsLoading.
type Cached struct {
	f *Feeds
}

// Cached returns the non-blocking view of f.
func (f *Feeds) Cached() Cached { return Cached{f: f} }

func (c Cached) MinuteStats(_ context.Context, limit int) pollcache.Result[[]subgraph.AggregateBucket] {
	return pollcache.Peek[[]subgraph.AggregateBucket](c.f.cache, pollcache.NewKey(MinuteStatsName, orDefault(limit, DefaultMinuteStats)))
}

func (c Cached) HourlyStats(_ context.Context, limit int) pollcache.Result[[]subgraph.AggregateBucket] {
	return pollcache.Peek[[]subgraph.AggregateBucket](c.f.cache, pollcache.NewKey(HourlyStatsName, orDefault(limit, DefaultHourlyStats)))
}

func (c Cached) AllDeposits(_ context.Context, limit int) pollcache.Result[[]subgraph.DepositEvent] {
	res := pollcache.Peek[[]subgraph.DepositEvent](c.f.cache, pollcache.NewKey(AllDepositsName, orDefault(limit, DefaultAllDeposits)))
	if res.IsError {
		res.IsError = false
		res.Err = nil
	}
	if res.Data == nil && !res.IsLoading {
		res.Data = []subgraph.DepositEvent{}
	}
	return res
}
