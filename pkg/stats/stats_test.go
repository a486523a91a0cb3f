package stats

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pandaskiing/depositview/pkg/chain"
	"github.com/pandaskiing/depositview/pkg/pollcache"
	"github.com/pandaskiing/depositview/pkg/subgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeReader struct {
	snap *chain.Snapshot
	err  error
}

func (f fakeReader) Snapshot(context.Context, *common.Address) (*chain.Snapshot, error) {
	return f.snap, f.err
}

type fakeGlobal pollcache.Result[*subgraph.GlobalStats]

func (f fakeGlobal) GlobalStats(context.Context) pollcache.Result[*subgraph.GlobalStats] {
	return pollcache.Result[*subgraph.GlobalStats](f)
}

type fakeDeposits struct {
	res   pollcache.Result[[]subgraph.DepositEvent]
	limit int
}

func (f *fakeDeposits) AllDeposits(_ context.Context, limit int) pollcache.Result[[]subgraph.DepositEvent] {
	f.limit = limit
	return f.res
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

var deposits = []subgraph.DepositEvent{
	{Depositor: "0xAbC0000000000000000000000000000000000001", Amount: eth(100).String()},
	{Depositor: "0xabc0000000000000000000000000000000000001", Amount: eth(200).String()},
	{Depositor: "0x0000000000000000000000000000000000000002", Amount: "1"},
}

func TestChain_Priority(t *testing.T) {
	contract := ContractProvider{Reader: fakeReader{snap: &chain.Snapshot{
		DepositCount:    big.NewInt(4),
		TotalDeposited:  eth(600),
		ContractBalance: eth(550),
	}}}
	global := SubgraphProvider{Source: fakeGlobal{Data: &subgraph.GlobalStats{
		TotalDeposits: "3", TotalAmount: eth(300).String(), TotalWithdrawn: "0", UniqueDepositors: "2",
	}}}
	computed := ComputedProvider{Source: &fakeDeposits{res: pollcache.Result[[]subgraph.DepositEvent]{Data: deposits}}}
	logger := zaptest.NewLogger(t)

	s, err := NewChain(logger, contract, global, computed).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceContract, s.Source)
	assert.Equal(t, "4", s.TotalDeposits)
	assert.Equal(t, eth(550).String(), s.ContractBalance)
	assert.Equal(t, "0", s.UniqueDepositors)
	assert.Equal(t, "600.00 ETH", s.TotalAmountFormatted)
	assert.True(t, s.HighPrice)

	broken := ContractProvider{Reader: fakeReader{err: errors.New("rpc down")}}
	s, err = NewChain(logger, broken, global, computed).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceSubgraph, s.Source)
	assert.Equal(t, "2", s.UniqueDepositors)
	assert.False(t, s.HighPrice)

	empty := SubgraphProvider{Source: fakeGlobal{}}
	s, err = NewChain(logger, broken, empty, computed).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceComputed, s.Source)
	assert.Equal(t, "3", s.TotalDeposits)
}

func TestChain_NoData(t *testing.T) {
	boom := errors.New("rpc down")
	c := NewChain(zaptest.NewLogger(t),
		ContractProvider{Reader: fakeReader{err: boom}},
		SubgraphProvider{Source: fakeGlobal{IsLoading: true}},
		ComputedProvider{Source: &fakeDeposits{res: pollcache.Result[[]subgraph.DepositEvent]{Data: []subgraph.DepositEvent{}}}},
	)

	s, err := c.Stats(context.Background())

	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNoStats)
	assert.ErrorIs(t, err, boom)
}

type countingReader struct {
	fakeReader
	calls atomic.Int32
}

func (c *countingReader) Snapshot(ctx context.Context, owner *common.Address) (*chain.Snapshot, error) {
	c.calls.Add(1)
	return c.fakeReader.Snapshot(ctx, owner)
}

func TestContractProvider_CachedSnapshot(t *testing.T) {
	cache := pollcache.New(zaptest.NewLogger(t))
	t.Cleanup(cache.Stop)
	reader := &countingReader{fakeReader: fakeReader{snap: &chain.Snapshot{
		DepositCount:   big.NewInt(2),
		TotalDeposited: eth(300),
	}}}
	p := ContractProvider{Reader: reader, Cache: cache}

	for i := 0; i < 3; i++ {
		s, ok, err := p.Stats(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "2", s.TotalDeposits)
		assert.Equal(t, "0", s.ContractBalance)
	}

	assert.Equal(t, int32(1), reader.calls.Load())
	assert.Equal(t, []string{ContractStatsName}, cache.Keys())
}

func TestContractProvider_CachedFailureFallsThrough(t *testing.T) {
	cache := pollcache.New(zaptest.NewLogger(t))
	t.Cleanup(cache.Stop)
	boom := errors.New("rpc down")

	_, ok, err := ContractProvider{Reader: fakeReader{err: boom}, Cache: cache}.Stats(context.Background())

	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestContractProvider_MissingReads(t *testing.T) {
	_, ok, err := ContractProvider{Reader: fakeReader{snap: &chain.Snapshot{DepositCount: big.NewInt(1)}}}.Stats(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestComputedProvider_DefaultLimit(t *testing.T) {
	src := &fakeDeposits{res: pollcache.Result[[]subgraph.DepositEvent]{Data: deposits}}

	_, ok, err := ComputedProvider{Source: src}.Stats(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 200, src.limit)
}

func TestCompute(t *testing.T) {
	s := Compute(deposits)

	assert.Equal(t, "3", s.TotalDeposits)
	want := new(big.Int).Add(eth(300), big.NewInt(1))
	assert.Equal(t, want.String(), s.TotalAmount)
	unique, err := strconv.ParseFloat(s.UniqueDepositors, 64)
	require.NoError(t, err)
	assert.InDelta(t, 2, unique, 0.5)
}

func TestHighPrice(t *testing.T) {
	assert.False(t, HighPrice(nil))
	assert.True(t, HighPrice(&Snapshot{TotalAmount: eth(500).String()}))
	assert.False(t, HighPrice(&Snapshot{TotalAmount: new(big.Int).Sub(eth(500), big.NewInt(1)).String()}))
	assert.False(t, HighPrice(&Snapshot{TotalAmount: "garbage"}))
}
