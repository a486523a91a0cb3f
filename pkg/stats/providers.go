package stats

import (
	"context"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/axiomhq/hyperloglog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pandaskiing/depositview/pkg/chain"
	"github.com/pandaskiing/depositview/pkg/feed"
	"github.com/pandaskiing/depositview/pkg/pollcache"
	"github.com/pandaskiing/depositview/pkg/subgraph"
)

// CampaignReader is satisfied by *chain.Bridge.
type CampaignReader interface {
	Snapshot(ctx context.Context, owner *common.Address) (*chain.Snapshot, error)
}

// ContractStatsName keys the cached contract snapshot.
const ContractStatsName = "contractStats"

var contractStatsOpts = pollcache.Options{StaleTime: 15 * time.Second}

// ContractProvider reads totals straight from the campaign contract. The
// contract tracks neither unique depositors nor withdrawals, so both are "0".
// With Cache set the snapshot is read at most once per 15s.
type ContractProvider struct {
	Reader CampaignReader
	Cache  *pollcache.Cache
}

func (ContractProvider) Name() string { return SourceContract }

func (p ContractProvider) snapshot(ctx context.Context) (*chain.Snapshot, error) {
	if p.Cache == nil {
		return p.Reader.Snapshot(ctx, nil)
	}
	res := pollcache.Get(ctx, p.Cache, pollcache.NewKey(ContractStatsName),
		func(ctx context.Context) (*chain.Snapshot, error) { return p.Reader.Snapshot(ctx, nil) },
		contractStatsOpts)
	if res.IsError {
		return nil, res.Err
	}
	if res.Data == nil {
		return nil, ctx.Err()
	}
	return res.Data, nil
}

func (p ContractProvider) Stats(ctx context.Context) (*Snapshot, bool, error) {
	s, err := p.snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	if s == nil || s.DepositCount == nil || s.TotalDeposited == nil {
		return nil, false, nil
	}
	out := &Snapshot{
		TotalDeposits:    s.DepositCount.String(),
		TotalAmount:      s.TotalDeposited.String(),
		TotalWithdrawn:   "0",
		UniqueDepositors: "0",
		ContractBalance:  "0",
	}
	if s.ContractBalance != nil {
		out.ContractBalance = s.ContractBalance.String()
	}
	return out, true, nil
}

// GlobalSource is satisfied by *feed.Feeds.
type GlobalSource interface {
	GlobalStats(ctx context.Context) pollcache.Result[*subgraph.GlobalStats]
}

// SubgraphProvider serves the subgraph's GlobalStats entity.
type SubgraphProvider struct {
	Source GlobalSource
}

func (SubgraphProvider) Name() string { return SourceSubgraph }

func (p SubgraphProvider) Stats(ctx context.Context) (*Snapshot, bool, error) {
	res := p.Source.GlobalStats(ctx)
	if res.Data == nil {
		return nil, false, res.Err
	}
	g := res.Data
	return &Snapshot{
		TotalDeposits:    g.TotalDeposits,
		TotalAmount:      g.TotalAmount,
		TotalWithdrawn:   g.TotalWithdrawn,
		UniqueDepositors: g.UniqueDepositors,
	}, true, nil
}

// DepositSource is satisfied by *feed.Feeds.
type DepositSource interface {
	AllDeposits(ctx context.Context, limit int) pollcache.Result[[]subgraph.DepositEvent]
}

// ComputedProvider derives totals from the most recent deposits.
type ComputedProvider struct {
	Source DepositSource
	// Limit defaults to feed.StatsAllDeposits.
	Limit int
}

func (ComputedProvider) Name() string { return SourceComputed }

func (p ComputedProvider) Stats(ctx context.Context) (*Snapshot, bool, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = feed.StatsAllDeposits
	}
	res := p.Source.AllDeposits(ctx, limit)
	if len(res.Data) == 0 {
		return nil, false, res.Err
	}
	s := Compute(res.Data)
	return &s, true, nil
}

// Compute totals deposits exactly and estimates unique depositors.
func Compute(deposits []subgraph.DepositEvent) Snapshot {
	total := new(big.Int)
	sketch := hyperloglog.New16()
	for _, d := range deposits {
		if v, ok := new(big.Int).SetString(d.Amount, 10); ok {
			total.Add(total, v)
		}
		sketch.Insert([]byte(strings.ToLower(d.Depositor)))
	}
	return Snapshot{
		TotalDeposits:    strconv.Itoa(len(deposits)),
		TotalAmount:      total.String(),
		TotalWithdrawn:   "0",
		UniqueDepositors: strconv.FormatUint(sketch.Estimate(), 10),
	}
}
