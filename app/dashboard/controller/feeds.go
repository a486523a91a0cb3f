package controller

import (
	"net/http"
	"time"

	"github.com/pandaskiing/depositview/pkg/feed"
	"github.com/pandaskiing/depositview/pkg/format"
	"github.com/pandaskiing/depositview/pkg/subgraph"
)

// Deposit is a deposit event with display fields.
type Deposit struct {
	subgraph.DepositEvent
	AmountFormatted string `json:"amountFormatted"`
	DepositorShort  string `json:"depositorShort"`
	Time            string `json:"time"`
}

// DepositAmount is a configured deposit amount with display fields.
type DepositAmount struct {
	subgraph.DepositAmountSet
	AmountFormatted string `json:"amountFormatted"`
	Time            string `json:"time"`
}

// listResponse wraps a feed snapshot. Stale is set when the last refresh
// failed and the items are from an earlier one.
type listResponse[T any] struct {
	Items     []T    `json:"items"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
	Stale     bool   `json:"stale,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newListResponse[T any](items []T, updatedAt time.Time, err error) listResponse[T] {
	out := listResponse[T]{Items: items}
	if items == nil {
		out.Items = []T{}
	}
	if !updatedAt.IsZero() {
		out.UpdatedAt = updatedAt.UnixMilli()
	}
	if err != nil {
		out.Stale = true
		out.Error = err.Error()
	}
	return out
}

// HandleRecentDeposits returns the latest deposits, newest first.
func (c *Controller) HandleRecentDeposits(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, feed.RealtimeRecentDeposits, feed.DefaultRecentDeposits)
	if err != nil {
		c.writeError(w, err)
		return
	}

	res := c.App.Feeds.RecentDeposits(r.Context(), limit)
	if res.IsError && len(res.Data) == 0 {
		c.writeError(w, res.Err)
		return
	}

	items := make([]Deposit, 0, len(res.Data))
	for _, d := range res.Data {
		items = append(items, Deposit{
			DepositEvent:    d,
			AmountFormatted: format.Amount(d.Amount),
			DepositorShort:  format.Address(d.Depositor),
			Time:            format.Time(d.Timestamp, c.App.Location),
		})
	}
	writeJSON(w, http.StatusOK, newListResponse(items, res.UpdatedAt, res.Err))
}

// HandleDepositAmounts returns the configured deposit amounts, latest block first.
func (c *Controller) HandleDepositAmounts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, feed.DefaultDepositAmountSets)
	if err != nil {
		c.writeError(w, err)
		return
	}

	res := c.App.Feeds.DepositAmountSets(r.Context(), limit)
	if res.IsError && len(res.Data) == 0 {
		c.writeError(w, res.Err)
		return
	}

	items := make([]DepositAmount, 0, len(res.Data))
	for _, s := range res.Data {
		items = append(items, DepositAmount{
			DepositAmountSet: s,
			AmountFormatted:  format.Amount(s.Amount),
			Time:             format.Time(s.BlockTimestamp, c.App.Location),
		})
	}
	writeJSON(w, http.StatusOK, newListResponse(items, res.UpdatedAt, res.Err))
}

// HandleStats returns campaign totals from the first source that has them.
func (c *Controller) HandleStats(w http.ResponseWriter, r *http.Request) {
	s, err := c.App.Stats.Stats(r.Context())
	if err != nil {
		c.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
