package chart

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/pandaskiing/depositview/pkg/feed"
	"github.com/pandaskiing/depositview/pkg/pollcache"
	"github.com/pandaskiing/depositview/pkg/subgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSource struct {
	minute   pollcache.Result[[]subgraph.AggregateBucket]
	hourly   pollcache.Result[[]subgraph.AggregateBucket]
	deposits pollcache.Result[[]subgraph.DepositEvent]
	limits   []int
}

func (f *fakeSource) MinuteStats(_ context.Context, limit int) pollcache.Result[[]subgraph.AggregateBucket] {
	f.limits = append(f.limits, limit)
	return f.minute
}

func (f *fakeSource) HourlyStats(_ context.Context, limit int) pollcache.Result[[]subgraph.AggregateBucket] {
	f.limits = append(f.limits, limit)
	return f.hourly
}

func (f *fakeSource) AllDeposits(_ context.Context, limit int) pollcache.Result[[]subgraph.DepositEvent] {
	f.limits = append(f.limits, limit)
	return f.deposits
}

func minuteRows() []subgraph.AggregateBucket {
	return []subgraph.AggregateBucket{
		{Timestamp: "200", CumulativeDeposits: "3", DepositCount: "1", CumulativeAmount: "3000000000000000000", DepositAmount: "1000000000000000000"},
		{Timestamp: "100", CumulativeDeposits: "2", DepositCount: "2", CumulativeAmount: "2000000000000000000", DepositAmount: "2000000000000000000"},
	}
}

func TestSelector_MinuteBucketsAreReversed(t *testing.T) {
	src := &fakeSource{minute: pollcache.Result[[]subgraph.AggregateBucket]{Data: minuteRows()}}

	sel := NewSelector(src).Select(context.Background(), Range1H, CumulativeDeposits)

	require.NoError(t, sel.Error)
	require.Len(t, sel.Points, 2)
	assert.Equal(t, int64(100000), sel.Points[0].Timestamp)
	assert.Equal(t, 2.0, sel.Points[0].Value)
	assert.Equal(t, int64(200000), sel.Points[1].Timestamp)
	assert.Equal(t, 3.0, sel.Points[1].Value)
	assert.Equal(t, feed.MinuteStatsName, sel.Dataset)
	assert.Equal(t, []int{feed.ChartMinuteStats}, src.limits)
}

func TestSelector_MetricPicksBucketField(t *testing.T) {
	src := &fakeSource{hourly: pollcache.Result[[]subgraph.AggregateBucket]{Data: minuteRows()}}
	s := NewSelector(src)

	tests := []struct {
		metric Metric
		want   []float64
	}{
		{CumulativeAmount, []float64{2, 3}},
		{CumulativeDeposits, []float64{2, 3}},
		{DepositAmount, []float64{2, 1}},
		{DepositCount, []float64{2, 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			sel := s.Select(context.Background(), Range1D, tt.metric)
			require.Len(t, sel.Points, 2)
			assert.Equal(t, tt.want[0], sel.Points[0].Value)
			assert.Equal(t, tt.want[1], sel.Points[1].Value)
			assert.Equal(t, feed.HourlyStatsName, sel.Dataset)
		})
	}
}

func TestSelector_LongRangesUseUnfilteredDeposits(t *testing.T) {
	deposits := []subgraph.DepositEvent{
		{DepositNumber: "1", Amount: "1000000000000000000", Timestamp: "100"},
		{DepositNumber: "2", Amount: "2500000000000000000000", Timestamp: "160"},
	}
	src := &fakeSource{deposits: pollcache.Result[[]subgraph.DepositEvent]{Data: deposits}}
	s := NewSelector(src)

	base := s.Select(context.Background(), Range7D, DepositCount)
	require.Len(t, base.Points, 2)
	assert.Equal(t, Point{Timestamp: 100000, Value: 1, Label: "#1: 1.00 ETH"}, base.Points[0])
	assert.Equal(t, Point{Timestamp: 160000, Value: 2500, Label: "#2: 2.5K ETH"}, base.Points[1])

	for _, r := range []TimeRange{Range30D, RangeAll, TimeRange("2W")} {
		sel := s.Select(context.Background(), r, CumulativeAmount)
		assert.Equal(t, base.Points, sel.Points, "range %s", r)
		assert.Equal(t, feed.AllDepositsName, sel.Dataset)
	}
	assert.Equal(t, feed.DefaultAllDeposits, src.limits[0])
}

func TestSelector_SortsByTimestamp(t *testing.T) {
	deposits := []subgraph.DepositEvent{
		{DepositNumber: "2", Amount: "2", Timestamp: "300"},
		{DepositNumber: "1", Amount: "1", Timestamp: "100"},
		{DepositNumber: "3", Amount: "3", Timestamp: "300"},
	}
	src := &fakeSource{deposits: pollcache.Result[[]subgraph.DepositEvent]{Data: deposits}}

	sel := NewSelector(src).Select(context.Background(), RangeAll, CumulativeAmount)

	require.Len(t, sel.Points, 3)
	assert.True(t, strings.HasPrefix(sel.Points[0].Label, "#1:"))
	assert.True(t, strings.HasPrefix(sel.Points[1].Label, "#2:"))
	assert.True(t, strings.HasPrefix(sel.Points[2].Label, "#3:"))
}

func TestSelector_PropagatesLoadingAndError(t *testing.T) {
	boom := errors.New("subgraph minuteStats: unexpected status")
	src := &fakeSource{
		minute: pollcache.Result[[]subgraph.AggregateBucket]{IsError: true, Err: boom},
		hourly: pollcache.Result[[]subgraph.AggregateBucket]{IsLoading: true},
	}
	s := NewSelector(src)

	failed := s.Select(context.Background(), Range1H, DepositCount)
	assert.ErrorIs(t, failed.Error, boom)
	assert.Empty(t, failed.Points)

	loading := s.Select(context.Background(), Range1D, DepositCount)
	assert.True(t, loading.Loading)
}

func TestSelector_AllDepositsDoubleFailureRendersNoData(t *testing.T) {
	src := &failingDeposits{}
	cache := pollcache.New(zaptest.NewLogger(t))
	t.Cleanup(cache.Stop)
	feeds := feed.New(cache, src, zaptest.NewLogger(t))

	sel := NewSelector(feeds).Select(context.Background(), RangeAll, CumulativeAmount)
	view := NewView(sel, RangeAll, CumulativeAmount, DefaultDimensions, "light", nil)

	assert.Equal(t, 2, src.calls)
	assert.NoError(t, sel.Error)
	assert.Equal(t, StateEmpty, view.State)
}

type failingDeposits struct {
	feed.Source
	calls int
}

func (f *failingDeposits) AllDeposits(context.Context, int) ([]subgraph.DepositEvent, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestCompute_Positions(t *testing.T) {
	points := []Point{{Timestamp: 1, Value: 10}, {Timestamp: 2, Value: 30}, {Timestamp: 3, Value: 20}}

	l := Compute(points, DefaultDimensions)

	require.Len(t, l.Positions, 3)
	assert.Equal(t, 60.0, l.Positions[0].X)
	assert.Equal(t, 400.0, l.Positions[1].X)
	assert.Equal(t, 740.0, l.Positions[2].X)
	assert.Equal(t, 220.0, l.Positions[0].Y)
	assert.Equal(t, 60.0, l.Positions[1].Y)
	assert.Equal(t, 140.0, l.Positions[2].Y)
	assert.Equal(t, 10.0, l.Min)
	assert.Equal(t, 30.0, l.Max)
	assert.Equal(t, "M 60,220 L 400,60 L 740,140", l.LinePath)
	assert.Equal(t, "M 60,220 L 60,220 L 400,60 L 740,140 L 740,220 Z", l.AreaPath)
	assert.Len(t, l.Markers, 3)
}

func TestCompute_EqualValuesShareOneY(t *testing.T) {
	points := []Point{{Value: 5}, {Value: 5}, {Value: 5}, {Value: 5}}

	l := Compute(points, DefaultDimensions)

	for _, pos := range l.Positions {
		assert.Equal(t, 220.0, pos.Y)
		assert.False(t, math.IsNaN(pos.Y))
	}
}

func TestCompute_SinglePoint(t *testing.T) {
	l := Compute([]Point{{Timestamp: 1, Value: 42}}, DefaultDimensions)

	require.Len(t, l.Positions, 1)
	assert.Equal(t, 60.0, l.Positions[0].X)
	assert.False(t, math.IsNaN(l.Positions[0].Y))
	assert.Empty(t, l.LinePath)
	assert.Empty(t, l.AreaPath)
	assert.Len(t, l.Markers, 1)
	assert.Equal(t, "42.00 ETH", Readout([]Point{{Timestamp: 1, Value: 42}}, CumulativeAmount))
}

func TestCompute_Empty(t *testing.T) {
	l := Compute(nil, DefaultDimensions)

	assert.Empty(t, l.Positions)
	assert.Empty(t, l.LinePath)
	assert.Empty(t, l.AreaPath)
}

func TestCompute_MarkerThreshold(t *testing.T) {
	series := func(n int) []Point {
		points := make([]Point, n)
		for i := range points {
			points[i] = Point{Timestamp: int64(i), Value: float64(i)}
		}
		return points
	}

	assert.Len(t, Compute(series(50), DefaultDimensions).Markers, 50)
	assert.Empty(t, Compute(series(51), DefaultDimensions).Markers)
}

func TestReadout(t *testing.T) {
	assert.Equal(t, "", Readout(nil, CumulativeAmount))
	assert.Equal(t, "1.5K ETH", Readout([]Point{{Value: 1}, {Value: 1500}}, CumulativeAmount))
	assert.Equal(t, "12.50 ETH", Readout([]Point{{Value: 12.5}}, DepositAmount))
	assert.Equal(t, "0.25 ETH", Readout([]Point{{Value: 0.25}}, DepositAmount))
	assert.Equal(t, "12,345", Readout([]Point{{Value: 12345}}, CumulativeDeposits))
	assert.Equal(t, "7", Readout([]Point{{Value: 7}}, DepositCount))
}

func TestParse(t *testing.T) {
	r, err := ParseTimeRange("")
	require.NoError(t, err)
	assert.Equal(t, Range1D, r)
	_, err = ParseTimeRange("1Y")
	assert.Error(t, err)

	m, err := ParseMetric("depositCount")
	require.NoError(t, err)
	assert.Equal(t, DepositCount, m)
	assert.False(t, m.IsAmount())
	assert.Equal(t, "#F59E0B", m.Color())
	_, err = ParseMetric("volume")
	assert.Error(t, err)
}

func TestRenderSVG_States(t *testing.T) {
	ready := NewView(Selection{Points: []Point{{Timestamp: 0, Value: 1}, {Timestamp: 60000, Value: 2}}}, Range1H, CumulativeAmount, DefaultDimensions, "dark", time.UTC)
	empty := NewView(Selection{}, Range1H, CumulativeAmount, DefaultDimensions, "light", nil)
	loading := NewView(Selection{Loading: true}, Range1H, CumulativeAmount, DefaultDimensions, "light", nil)
	failed := NewView(Selection{Error: errors.New("subgraph down")}, Range1H, CumulativeAmount, DefaultDimensions, "neon", nil)

	render := func(v View) string {
		var buf bytes.Buffer
		require.NoError(t, RenderSVG(&buf, v))
		return buf.String()
	}

	out := render(ready)
	assert.Equal(t, StateReady, ready.State)
	assert.Contains(t, out, `class="line"`)
	assert.Contains(t, out, `d="M 60,220 L 740,60"`)
	assert.Equal(t, 2, strings.Count(out, `class="marker"`))
	assert.Contains(t, out, "2.00 ETH")
	assert.Contains(t, out, "#10B981")
	assert.Contains(t, out, "#111827")
	assert.Contains(t, out, "01-01 00:01")

	out = render(empty)
	assert.Contains(t, out, "No data")
	assert.NotContains(t, out, `class="line"`)

	assert.Contains(t, render(loading), "Loading chart data...")

	out = render(failed)
	assert.Equal(t, StateError, failed.State)
	assert.Equal(t, "light", failed.Theme)
	assert.Contains(t, out, "subgraph down")
}

func TestNewView_StaleDataStillRenders(t *testing.T) {
	sel := Selection{Points: []Point{{Value: 1}}, Error: errors.New("timeout")}

	v := NewView(sel, Range1D, DepositCount, DefaultDimensions, "light", nil)

	assert.Equal(t, StateReady, v.State)
	assert.True(t, v.Stale)
	assert.Equal(t, "1", v.Readout)
}
