package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	owner   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	oneUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), oneUnit)
}

type fakeBackend struct {
	mu      sync.Mutex
	values  map[string]*big.Int
	failing string
	calls   map[string]int
	spender common.Address

	sendStarted chan struct{}
	sendRelease chan struct{}
	sent        []*types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		values: map[string]*big.Int{
			"getNextDepositAmount": units(100),
			"depositCount":         big.NewInt(3),
			"totalDeposited":       units(600),
			"getBalance":           units(550),
			"balanceOf":            units(1000),
			"allowance":            units(100),
		},
		calls: map[string]int{},
	}
}

func lookup(id []byte) (abi.Method, bool) {
	for _, a := range []abi.ABI{campaignABI, erc20ABI} {
		for _, m := range a.Methods {
			if bytes.Equal(m.ID, id) {
				return m, true
			}
		}
	}
	return abi.Method{}, false
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	m, ok := lookup(msg.Data[:4])
	if !ok {
		return nil, errors.New("execution reverted")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[m.Name]++
	if m.Name == f.failing {
		return nil, errors.New("rpc unavailable")
	}
	if m.Name == "allowance" {
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		f.spender = args[1].(common.Address)
	}
	return m.Outputs.Pack(f.values[m.Name])
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendStarted != nil {
		close(f.sendStarted)
		<-f.sendRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func newTestBridge(t *testing.T, backend Backend) *Bridge {
	b, err := New(backend, Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func TestNew_RejectsBadAddress(t *testing.T) {
	_, err := New(newFakeBackend(), Config{Contract: "0x123"}, nil)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestBridge_Snapshot(t *testing.T) {
	backend := newFakeBackend()
	b := newTestBridge(t, backend)

	s, err := b.Snapshot(context.Background(), &owner)

	require.NoError(t, err)
	assert.Equal(t, units(100), s.NextDepositAmount)
	assert.Equal(t, big.NewInt(3), s.DepositCount)
	assert.Equal(t, units(600), s.TotalDeposited)
	assert.Equal(t, units(550), s.ContractBalance)
	assert.Equal(t, units(1000), s.TokenBalance)
	assert.Equal(t, units(100), s.Allowance)
	assert.Equal(t, common.HexToAddress(DefaultContract), backend.spender)
}

func TestBridge_SnapshotWithoutOwner(t *testing.T) {
	backend := newFakeBackend()
	b := newTestBridge(t, backend)

	s, err := b.Snapshot(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, s.TokenBalance)
	assert.Nil(t, s.Allowance)
	assert.Zero(t, backend.calls["balanceOf"])
}

func TestBridge_SnapshotReadError(t *testing.T) {
	backend := newFakeBackend()
	backend.failing = "totalDeposited"
	b := newTestBridge(t, backend)

	_, err := b.Snapshot(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "call totalDeposited")
}

func TestBridge_PrepareDeposit(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		mutate  func(*fakeBackend)
		wantErr error
		approve bool
	}{
		{name: "wallet not connected", owner: "", wantErr: ErrWalletNotConnected},
		{name: "invalid owner", owner: "0xnothex", wantErr: ErrInvalidAddress},
		{name: "amount unset", owner: owner.Hex(), mutate: func(f *fakeBackend) { f.values["getNextDepositAmount"] = big.NewInt(0) }, wantErr: ErrNotConfigured},
		{name: "insufficient balance", owner: owner.Hex(), mutate: func(f *fakeBackend) { f.values["balanceOf"] = units(99) }, wantErr: ErrInsufficientBalance},
		{name: "allowance covers amount", owner: owner.Hex(), approve: false},
		{name: "allowance short", owner: owner.Hex(), mutate: func(f *fakeBackend) { f.values["allowance"] = units(50) }, approve: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			if tt.mutate != nil {
				tt.mutate(backend)
			}
			b := newTestBridge(t, backend)

			plan, err := b.PrepareDeposit(context.Background(), tt.owner)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, plan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, units(100).String(), plan.Amount)
			assert.Equal(t, "100.00 ETH", plan.AmountFormatted)
			assert.Equal(t, tt.approve, plan.NeedsApproval)

			last := plan.Calls[len(plan.Calls)-1]
			assert.Equal(t, "deposit", last.Method)
			assert.Equal(t, b.Contract().Hex(), last.To)
			assert.Equal(t, hexutil.Encode(campaignABI.Methods["deposit"].ID), last.Data)

			if !tt.approve {
				assert.Len(t, plan.Calls, 1)
				return
			}
			require.Len(t, plan.Calls, 2)
			approve := plan.Calls[0]
			assert.Equal(t, "approve", approve.Method)
			assert.Equal(t, b.Token().Hex(), approve.To)
			data, err := hexutil.Decode(approve.Data)
			require.NoError(t, err)
			args, err := erc20ABI.Methods["approve"].Inputs.Unpack(data[4:])
			require.NoError(t, err)
			assert.Equal(t, b.Contract(), args[0])
			assert.Equal(t, units(100), args[1])
		})
	}
}

func TestBridge_PrepareDepositReadError(t *testing.T) {
	backend := newFakeBackend()
	backend.failing = "getNextDepositAmount"
	b := newTestBridge(t, backend)

	_, err := b.PrepareDeposit(context.Background(), owner.Hex())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read campaign state")
	assert.NotErrorIs(t, err, ErrNotConfigured)
}

func signedTx(t *testing.T, to common.Address) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    1,
		To:       &to,
		Gas:      120000,
		GasPrice: big.NewInt(3_000_000_000),
		Data:     campaignABI.Methods["deposit"].ID,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(56)), key)
	require.NoError(t, err)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)
	return hexutil.Encode(raw)
}

func TestBridge_Relay(t *testing.T) {
	backend := newFakeBackend()
	b := newTestBridge(t, backend)
	raw := signedTx(t, b.Contract())

	hash, err := b.Relay(context.Background(), raw)

	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, backend.sent[0].Hash(), hash)
}

func TestBridge_RelayRejects(t *testing.T) {
	b := newTestBridge(t, newFakeBackend())

	_, err := b.Relay(context.Background(), "0xzz")
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	_, err = b.Relay(context.Background(), "0x0102")
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	_, err = b.Relay(context.Background(), signedTx(t, common.HexToAddress("0x00000000000000000000000000000000000000ff")))
	assert.ErrorIs(t, err, ErrUnexpectedTarget)
}

func TestBridge_RelaySerializedPerSender(t *testing.T) {
	backend := newFakeBackend()
	backend.sendStarted = make(chan struct{})
	backend.sendRelease = make(chan struct{})
	b := newTestBridge(t, backend)
	raw := signedTx(t, b.Contract())

	done := make(chan error, 1)
	go func() {
		_, err := b.Relay(context.Background(), raw)
		done <- err
	}()
	<-backend.sendStarted

	_, err := b.Relay(context.Background(), raw)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(backend.sendRelease)
	require.NoError(t, <-done)

	backend.sendStarted = nil
	_, err = b.Relay(context.Background(), raw)
	assert.NoError(t, err)
}
