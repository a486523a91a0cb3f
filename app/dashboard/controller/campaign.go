package controller

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pandaskiing/depositview/pkg/chain"
	"github.com/pandaskiing/depositview/pkg/format"
	"github.com/pandaskiing/depositview/pkg/stats"
)

// Campaign is the on-chain campaign state, optionally for one wallet.
type Campaign struct {
	Contract string `json:"contract"`
	Token    string `json:"token"`
	Owner    string `json:"owner,omitempty"`

	NextDepositAmount          string `json:"nextDepositAmount"`
	NextDepositAmountFormatted string `json:"nextDepositAmountFormatted"`
	Configured                 bool   `json:"configured"`
	DepositCount               string `json:"depositCount"`
	TotalDeposited             string `json:"totalDeposited"`
	TotalDepositedFormatted    string `json:"totalDepositedFormatted"`
	ContractBalance            string `json:"contractBalance"`
	ContractBalanceFormatted   string `json:"contractBalanceFormatted"`

	TokenBalance          string `json:"tokenBalance,omitempty"`
	TokenBalanceFormatted string `json:"tokenBalanceFormatted,omitempty"`
	Allowance             string `json:"allowance,omitempty"`
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// HandleCampaign reads the campaign contract, plus balance and allowance when
// ?owner= names a wallet.
func (c *Controller) HandleCampaign(w http.ResponseWriter, r *http.Request) {
	if c.App.Bridge == nil {
		c.writeError(w, errBridgeDisabled)
		return
	}

	var owner *common.Address
	if raw := r.URL.Query().Get("owner"); raw != "" {
		addr, err := chain.ParseOwner(raw)
		if err != nil {
			c.writeError(w, err)
			return
		}
		owner = &addr
	}

	s, err := c.App.Bridge.Snapshot(r.Context(), owner)
	if err != nil {
		c.writeError(w, err)
		return
	}

	out := Campaign{
		Contract:                   c.App.Bridge.Contract().Hex(),
		Token:                      c.App.Bridge.Token().Hex(),
		NextDepositAmount:          bigString(s.NextDepositAmount),
		NextDepositAmountFormatted: format.Amount(bigString(s.NextDepositAmount)),
		Configured:                 s.NextDepositAmount != nil && s.NextDepositAmount.Sign() > 0,
		DepositCount:               bigString(s.DepositCount),
		TotalDeposited:             bigString(s.TotalDeposited),
		TotalDepositedFormatted:    format.Amount(bigString(s.TotalDeposited)),
		ContractBalance:            bigString(s.ContractBalance),
		ContractBalanceFormatted:   format.Amount(bigString(s.ContractBalance)),
	}
	if owner != nil {
		out.Owner = owner.Hex()
		out.TokenBalance = bigString(s.TokenBalance)
		out.TokenBalanceFormatted = format.Amount(out.TokenBalance)
		out.Allowance = bigString(s.Allowance)
	}
	writeJSON(w, http.StatusOK, out)
}

type prepareRequest struct {
	Owner string `json:"owner"`
}

// HandlePrepareDeposit returns the calls the wallet has to sign for the next deposit.
func (c *Controller) HandlePrepareDeposit(w http.ResponseWriter, r *http.Request) {
	if c.App.Bridge == nil {
		c.writeError(w, errBridgeDisabled)
		return
	}

	var req prepareRequest
	if err := decodeBody(r, &req); err != nil {
		c.writeError(w, err)
		return
	}

	plan, err := c.App.Bridge.PrepareDeposit(r.Context(), req.Owner)
	if err != nil {
		c.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type relayRequest struct {
	RawTx string `json:"rawTx"`
}

// HandleRelay broadcasts a wallet-signed transaction. A relayed deposit makes
// the deposit feeds stale so the next read refetches them.
func (c *Controller) HandleRelay(w http.ResponseWriter, r *http.Request) {
	if c.App.Bridge == nil {
		c.writeError(w, errBridgeDisabled)
		return
	}

	var req relayRequest
	if err := decodeBody(r, &req); err != nil {
		c.writeError(w, err)
		return
	}
	if req.RawTx == "" {
		c.writeError(w, badRequest("rawTx is required"))
		return
	}

	hash, err := c.App.Bridge.Relay(r.Context(), req.RawTx)
	if err != nil {
		c.writeError(w, err)
		return
	}
	c.App.Feeds.InvalidateDeposits()
	c.App.Cache.InvalidateName(stats.ContractStatsName)

	writeJSON(w, http.StatusAccepted, map[string]string{"hash": hash.Hex()})
}
