package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// Backend is the part of ethclient.Client the bridge needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Config names the contracts the bridge talks to.
type Config struct {
	Contract string
	Token    string
	// Workers bounds concurrent reads. Defaults to 6, one per snapshot read.
	Workers int
}

// Bridge reads campaign state and relays signed transactions.
type Bridge struct {
	backend  Backend
	contract common.Address
	token    common.Address
	pool     pond.Pool
	inFlight *xsync.Map[common.Address, struct{}]
	logger   *zap.Logger
}

// New creates a Bridge. Empty addresses fall back to the BSC deployment.
func New(backend Backend, cfg Config, logger *zap.Logger) (*Bridge, error) {
	if cfg.Contract == "" {
		cfg.Contract = DefaultContract
	}
	if cfg.Token == "" {
		cfg.Token = DefaultToken
	}
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("contract %q: %w", cfg.Contract, ErrInvalidAddress)
	}
	if !common.IsHexAddress(cfg.Token) {
		return nil, fmt.Errorf("token %q: %w", cfg.Token, ErrInvalidAddress)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 6
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		backend:  backend,
		contract: common.HexToAddress(cfg.Contract),
		token:    common.HexToAddress(cfg.Token),
		pool:     pond.NewPool(cfg.Workers, pond.WithQueueSize(cfg.Workers*8)),
		inFlight: xsync.NewMap[common.Address, struct{}](),
		logger:   logger,
	}, nil
}

// Close stops the read pool.
func (b *Bridge) Close() {
	b.pool.StopAndWait()
}

// Contract returns the campaign contract address.
func (b *Bridge) Contract() common.Address { return b.contract }

// Token returns the deposit token address.
func (b *Bridge) Token() common.Address { return b.token }

func (b *Bridge) callUint(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) (*big.Int, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := b.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	vals, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("unpack %s: expected one value, got %d", method, len(vals))
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method, vals[0])
	}
	return v, nil
}

// NextDepositAmount is the amount the next deposit must carry, in base units.
func (b *Bridge) NextDepositAmount(ctx context.Context) (*big.Int, error) {
	return b.callUint(ctx, b.contract, campaignABI, "getNextDepositAmount")
}

// DepositCount is the number of completed deposits.
func (b *Bridge) DepositCount(ctx context.Context) (*big.Int, error) {
	return b.callUint(ctx, b.contract, campaignABI, "depositCount")
}

// TotalDeposited is the running deposit total in base units.
func (b *Bridge) TotalDeposited(ctx context.Context) (*big.Int, error) {
	return b.callUint(ctx, b.contract, campaignABI, "totalDeposited")
}

// ContractBalance is the token balance held by the campaign contract.
func (b *Bridge) ContractBalance(ctx context.Context) (*big.Int, error) {
	return b.callUint(ctx, b.contract, campaignABI, "getBalance")
}

// TokenBalance is owner's token balance.
func (b *Bridge) TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return b.callUint(ctx, b.token, erc20ABI, "balanceOf", owner)
}

// Allowance is how much of owner's token the campaign contract may spend.
func (b *Bridge) Allowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return b.callUint(ctx, b.token, erc20ABI, "allowance", owner, b.contract)
}

// Snapshot is every read the deposit flow depends on. Owner-scoped fields
// are nil when no owner was given.
type Snapshot struct {
	Owner             *common.Address
	NextDepositAmount *big.Int
	DepositCount      *big.Int
	TotalDeposited    *big.Int
	ContractBalance   *big.Int
	TokenBalance      *big.Int
	Allowance         *big.Int
}

type uintRead struct {
	dst  **big.Int
	read func(context.Context) (*big.Int, error)
}

// Snapshot reads all campaign state concurrently. The first failed read is returned.
func (b *Bridge) Snapshot(ctx context.Context, owner *common.Address) (*Snapshot, error) {
	s := &Snapshot{Owner: owner}
	reads := []uintRead{
		{&s.NextDepositAmount, b.NextDepositAmount},
		{&s.DepositCount, b.DepositCount},
		{&s.TotalDeposited, b.TotalDeposited},
		{&s.ContractBalance, b.ContractBalance},
	}
	if owner != nil {
		o := *owner
		reads = append(reads,
			uintRead{&s.TokenBalance, func(ctx context.Context) (*big.Int, error) { return b.TokenBalance(ctx, o) }},
			uintRead{&s.Allowance, func(ctx context.Context) (*big.Int, error) { return b.Allowance(ctx, o) }},
		)
	}

	group := b.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, r := range reads {
		group.SubmitErr(func() error {
			v, err := r.read(groupCtx)
			if err != nil {
				return err
			}
			*r.dst = v
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if errors.Is(err, pond.ErrGroupStopped) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return s, nil
}
