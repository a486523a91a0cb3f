package stats

import (
	"context"
	"errors"

	"github.com/pandaskiing/depositview/pkg/format"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HighPriceThreshold is the campaign total, in token units, past which the
// dashboard warns that the price curve no longer matters.
const HighPriceThreshold = 500

// Sources named in Snapshot.Source.
const (
	SourceContract = "contract"
	SourceSubgraph = "subgraph"
	SourceComputed = "computed"
)

// ErrNoStats is returned when no provider has data yet.
var ErrNoStats = errors.New("campaign stats unavailable")

// Snapshot is the campaign headline. Amounts are base-unit strings.
type Snapshot struct {
	Source           string `json:"source"`
	TotalDeposits    string `json:"totalDeposits"`
	TotalAmount      string `json:"totalAmount"`
	TotalWithdrawn   string `json:"totalWithdrawn"`
	UniqueDepositors string `json:"uniqueDepositors"`
	ContractBalance  string `json:"contractBalance,omitempty"`

	TotalAmountFormatted string `json:"totalAmountFormatted"`
	HighPrice            bool   `json:"highPrice"`
}

// Provider yields a Snapshot when its source has data. ok is false when the
// source is reachable but empty.
type Provider interface {
	Name() string
	Stats(ctx context.Context) (s *Snapshot, ok bool, err error)
}

// Chain asks each provider in order and returns the first that has data.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain creates a Chain. Order is priority.
func NewChain(logger *zap.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{providers: providers, logger: logger}
}

// Stats returns the highest-priority snapshot available.
func (c *Chain) Stats(ctx context.Context) (*Snapshot, error) {
	var errs []error
	for _, p := range c.providers {
		s, ok, err := p.Stats(ctx)
		if err != nil {
			c.logger.Debug("stats provider failed", zap.String("provider", p.Name()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if !ok || s == nil {
			continue
		}
		s.Source = p.Name()
		s.TotalAmountFormatted = format.Amount(s.TotalAmount)
		s.HighPrice = HighPrice(s)
		return s, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, errors.Join(append([]error{ErrNoStats}, errs...)...)
}

// HighPrice reports whether the campaign total reached HighPriceThreshold.
func HighPrice(s *Snapshot) bool {
	if s == nil {
		return false
	}
	return format.Units(s.TotalAmount).GreaterThanOrEqual(decimal.NewFromInt(HighPriceThreshold))
}
