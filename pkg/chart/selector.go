package chart

import (
	"context"
	"sort"
	"strconv"

	"github.com/pandaskiing/depositview/pkg/feed"
	"github.com/pandaskiing/depositview/pkg/format"
	"github.com/pandaskiing/depositview/pkg/pollcache"
	"github.com/pandaskiing/depositview/pkg/subgraph"
)

// Source provides the cached datasets the selector reads.
type Source interface {
	MinuteStats(ctx context.Context, limit int) pollcache.Result[[]subgraph.AggregateBucket]
	HourlyStats(ctx context.Context, limit int) pollcache.Result[[]subgraph.AggregateBucket]
	AllDeposits(ctx context.Context, limit int) pollcache.Result[[]subgraph.DepositEvent]
}

// Selection is the chart dataset for one (range, metric) pair.
type Selection struct {
	Points  []Point
	Loading bool
	Error   error
	// Dataset names the feed the points came from.
	Dataset string
}

// Selector maps a time range and metric to a point sequence.
type Selector struct {
	src Source
}

// NewSelector creates a Selector over src.
func NewSelector(src Source) *Selector {
	return &Selector{src: src}
}

// Select picks the dataset for r and maps it to timestamp-ascending points.
// 1H reads minute buckets, 1D hour buckets, anything else the full deposit
// list without date filtering.
func (s *Selector) Select(ctx context.Context, r TimeRange, m Metric) Selection {
	var sel Selection
	switch r {
	case Range1H:
		res := s.src.MinuteStats(ctx, feed.ChartMinuteStats)
		sel = Selection{Points: BucketPoints(res.Data, m), Loading: res.IsLoading, Error: res.Err, Dataset: feed.MinuteStatsName}
	case Range1D:
		res := s.src.HourlyStats(ctx, feed.DefaultHourlyStats)
		sel = Selection{Points: BucketPoints(res.Data, m), Loading: res.IsLoading, Error: res.Err, Dataset: feed.HourlyStatsName}
	default:
		res := s.src.AllDeposits(ctx, feed.DefaultAllDeposits)
		sel = Selection{Points: DepositPoints(res.Data), Loading: res.IsLoading, Error: res.Err, Dataset: feed.AllDepositsName}
	}
	sort.SliceStable(sel.Points, func(i, j int) bool {
		return sel.Points[i].Timestamp < sel.Points[j].Timestamp
	})
	return sel
}

// DepositPoints plots each deposit's own amount.
func DepositPoints(deposits []subgraph.DepositEvent) []Point {
	points := make([]Point, 0, len(deposits))
	for _, d := range deposits {
		points = append(points, Point{
			Timestamp: parseInt(d.Timestamp) * 1000,
			Value:     format.Float(d.Amount),
			Label:     "#" + d.DepositNumber + ": " + format.Amount(d.Amount),
		})
	}
	return points
}

// BucketPoints plots metric from newest-first buckets and returns them oldest first.
func BucketPoints(buckets []subgraph.AggregateBucket, m Metric) []Point {
	points := make([]Point, len(buckets))
	for i, b := range buckets {
		var v float64
		switch m {
		case CumulativeDeposits:
			v = float64(parseInt(b.CumulativeDeposits))
		case DepositAmount:
			v = format.Float(b.DepositAmount)
		case DepositCount:
			v = float64(parseInt(b.DepositCount))
		default:
			v = format.Float(b.CumulativeAmount)
		}
		// The label treats the already scaled value as base units, as the
		// dashboard always has.
		points[len(buckets)-1-i] = Point{
			Timestamp: parseInt(b.Timestamp) * 1000,
			Value:     v,
			Label:     format.Amount(strconv.FormatFloat(v, 'f', -1, 64)),
		}
	}
	return points
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
