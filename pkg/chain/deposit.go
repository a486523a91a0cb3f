package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pandaskiing/depositview/pkg/format"
	"go.uber.org/zap"
)

// ParseOwner validates a wallet address. Empty input means no wallet is connected.
func ParseOwner(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, ErrWalletNotConnected
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("owner %q: %w", s, ErrInvalidAddress)
	}
	return common.HexToAddress(s), nil
}

// Call is one transaction the wallet has to sign and send.
type Call struct {
	Method string `json:"method"`
	To     string `json:"to"`
	Data   string `json:"data"`
}

// Plan is the ordered list of calls that completes the next deposit.
type Plan struct {
	Owner           string `json:"owner"`
	Amount          string `json:"amount"`
	AmountFormatted string `json:"amountFormatted"`
	TokenBalance    string `json:"tokenBalance"`
	Allowance       string `json:"allowance"`
	NeedsApproval   bool   `json:"needsApproval"`
	Calls           []Call `json:"calls"`
}

// PrepareDeposit checks that owner can make the next deposit and returns the
// calls to sign: approve first when the allowance is short, then deposit.
func (b *Bridge) PrepareDeposit(ctx context.Context, owner string) (*Plan, error) {
	addr, err := ParseOwner(owner)
	if err != nil {
		return nil, err
	}

	s, err := b.Snapshot(ctx, &addr)
	if err != nil {
		return nil, fmt.Errorf("read campaign state: %w", err)
	}

	amount := s.NextDepositAmount
	if amount == nil || amount.Sign() == 0 {
		return nil, ErrNotConfigured
	}
	if s.TokenBalance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance,
			format.Amount(s.TokenBalance.String()), format.Amount(amount.String()))
	}

	plan := &Plan{
		Owner:           addr.Hex(),
		Amount:          amount.String(),
		AmountFormatted: format.Amount(amount.String()),
		TokenBalance:    s.TokenBalance.String(),
		Allowance:       s.Allowance.String(),
		NeedsApproval:   s.Allowance.Cmp(amount) < 0,
	}

	if plan.NeedsApproval {
		data, err := erc20ABI.Pack("approve", b.contract, new(big.Int).Set(amount))
		if err != nil {
			return nil, fmt.Errorf("pack approve: %w", err)
		}
		plan.Calls = append(plan.Calls, Call{Method: "approve", To: b.token.Hex(), Data: hexutil.Encode(data)})
	}

	data, err := campaignABI.Pack("deposit")
	if err != nil {
		return nil, fmt.Errorf("pack deposit: %w", err)
	}
	plan.Calls = append(plan.Calls, Call{Method: "deposit", To: b.contract.Hex(), Data: hexutil.Encode(data)})

	b.logger.Debug("deposit prepared",
		zap.String("owner", plan.Owner),
		zap.String("amount", plan.Amount),
		zap.Bool("needs_approval", plan.NeedsApproval),
	)
	return plan, nil
}

// Relay decodes a client-signed transaction and broadcasts it. Only one relay
// per sender runs at a time.
func (b *Bridge) Relay(ctx context.Context, rawTx string) (common.Hash, error) {
	raw, err := hexutil.Decode(strings.TrimSpace(rawTx))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if to := tx.To(); to == nil || (*to != b.contract && *to != b.token) {
		return common.Hash{}, ErrUnexpectedTarget
	}
	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: recover sender: %w", ErrInvalidTransaction, err)
	}

	if _, loaded := b.inFlight.LoadOrStore(sender, struct{}{}); loaded {
		return common.Hash{}, ErrSubmissionInFlight
	}
	defer b.inFlight.Delete(sender)

	if err := b.backend.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	b.logger.Info("transaction relayed",
		zap.String("sender", sender.Hex()),
		zap.String("to", tx.To().Hex()),
		zap.String("hash", tx.Hash().Hex()),
	)
	return tx.Hash(), nil
}
