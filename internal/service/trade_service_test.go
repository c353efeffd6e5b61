package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StabilityNexus/Fate/internal/domain"
)

type tradeHarness struct {
	chain    *fakeChain
	oracle   *fakeOracle
	wallet   *fakeWallet
	pools    *fakePools
	txs      *memTxStore
	bus      *memBus
	notifier *recNotifier
	svc      *TradeService
}

func newTradeHarness() *tradeHarness {
	h := &tradeHarness{
		chain:  newFakeChain(),
		oracle: &fakeOracle{priceID: "0xprice"},
		wallet: &fakeWallet{
			addr:   "0xabc",
			result: domain.TxResult{Digest: "DIGEST", Success: true},
		},
		pools: &fakePools{snaps: map[string]domain.PoolSnapshot{
			"0xpool": {ID: "0xpool", AssetReference: "0xfeed"},
		}},
		txs:      newMemTxStore(),
		bus:      newMemBus(),
		notifier: &recNotifier{},
	}
	h.chain.balance = 10 * mistPerSUI
	h.svc = NewTradeService(
		TradeConfig{PackageID: testPkg, ClockID: "0x6", BalanceReserve: 100_000_000},
		h.chain, h.oracle, h.wallet, h.pools, h.txs, nil, h.bus, h.notifier, nil, discardLogger(),
	)
	n := 0
	h.svc.newID = func() string { n++; return "run-" + string(rune('0'+n)) }
	h.svc.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return h
}

func TestBuySucceeds(t *testing.T) {
	h := newTradeHarness()

	out := h.svc.Buy(context.Background(), domain.BuyRequest{PoolID: "0xpool", IsBull: true, Amount: 1.5})
	require.True(t, out.Succeeded(), "error: %+v", out.Error)
	assert.Equal(t, []domain.TxState{
		domain.StateIdle, domain.StateValidating, domain.StatePriceUpdating,
		domain.StateSubmitting, domain.StateSucceeded,
	}, out.Trace)
	assert.Equal(t, "DIGEST", out.Digest)
	assert.Equal(t, "0xprice", out.PriceObjectID)
	assert.Equal(t, []string{"0xfeed"}, h.oracle.feeds)

	require.Len(t, h.wallet.submitted, 1)
	tx := h.wallet.submitted[0]
	assert.Equal(t, uint64(100_000_000), tx.GasBudget)
	require.Len(t, tx.Commands, 2)
	assert.Equal(t, domain.CommandSplitCoins, tx.Commands[0].Kind)
	assert.Equal(t, testPkg+"::prediction_pool::purchase_token", tx.Commands[1].Target())

	// the split amount is the only u64 input
	var amount uint64
	for _, in := range tx.Inputs {
		if in.Type == domain.PureU64 {
			amount = in.Value.(uint64)
		}
	}
	assert.Equal(t, uint64(1_500_000_000), amount)

	assert.Equal(t, []string{"0xpool"}, h.pools.refreshed)
	require.NotNil(t, out.Snapshot)

	rec, err := h.txs.GetByID(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSucceeded, rec.State)
	assert.Equal(t, "0xabc", rec.Sender)
	assert.NotNil(t, rec.FinishedAt)
	assert.Equal(t, 1, h.bus.count(domain.ChannelTxOutcome))
	require.Len(t, h.notifier.outcomes, 1)
}

func TestInvalidAmountMakesNoCalls(t *testing.T) {
	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1), 1e-12} {
		h := newTradeHarness()

		out := h.svc.Buy(context.Background(), domain.BuyRequest{PoolID: "0xpool", Amount: amount})
		assert.Equal(t, domain.StateFailed, out.State)
		require.NotNil(t, out.Error)
		assert.Equal(t, domain.KindValidation, out.Error.Kind)
		assert.Zero(t, h.chain.callCount())
		assert.Zero(t, h.oracle.calls)
		assert.Empty(t, h.wallet.submitted)
		assert.Zero(t, h.pools.getCalls)
	}
}

func TestDisconnectedWallet(t *testing.T) {
	h := newTradeHarness()
	h.wallet.addr = ""

	out := h.svc.Sell(context.Background(), domain.SellRequest{PoolID: "0xpool", Amount: 1})
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindValidation, out.Error.Kind)
	assert.Equal(t, "Please connect your wallet.", out.Error.Message)
	assert.Zero(t, h.oracle.calls)
}

func TestOracleFailureSkipsSubmission(t *testing.T) {
	h := newTradeHarness()
	h.oracle.err = errors.New("hermes unreachable")

	out := h.svc.Buy(context.Background(), domain.BuyRequest{PoolID: "0xpool", Amount: 1})
	assert.Equal(t, domain.StateFailed, out.State)
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindOracleUnavailable, out.Error.Kind)
	assert.Empty(t, h.wallet.submitted)
	assert.Equal(t, []domain.TxState{
		domain.StateIdle, domain.StateValidating, domain.StatePriceUpdating, domain.StateFailed,
	}, out.Trace)

	rec, err := h.txs.GetByID(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindOracleUnavailable, rec.ErrorKind)
	assert.Equal(t, 1, h.txs.creates)
	assert.Equal(t, 1, h.txs.finishes)
}

func TestUnconfiguredOracleIsConfigError(t *testing.T) {
	h := newTradeHarness()
	h.svc.oracle = nil

	out := h.svc.Buy(context.Background(), domain.BuyRequest{PoolID: "0xpool", IsBull: true, Amount: 1})
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindConfig, out.Error.Kind)
	assert.Equal(t, []domain.TxState{domain.StateIdle, domain.StateValidating, domain.StateFailed}, out.Trace)
	assert.Zero(t, h.chain.callCount())
	assert.Zero(t, h.pools.getCalls)
	assert.Empty(t, h.wallet.submitted)
}

func TestDisabledOracleIsConfigError(t *testing.T) {
	h := newTradeHarness()
	h.oracle.err = fmt.Errorf("oracle: pyth state id not configured: %w", domain.ErrFeatureDisabled)

	out := h.svc.Buy(context.Background(), domain.BuyRequest{PoolID: "0xpool", IsBull: true, Amount: 1})
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindConfig, out.Error.Kind)
	assert.Equal(t, 1, h.oracle.calls)
	assert.Empty(t, h.wallet.submitted)

	rec, err := h.txs.GetByID(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindConfig, rec.ErrorKind)
}

func TestMissingPriceObjectSkipsSubmission(t *testing.T) {
	h := newTradeHarness()
	h.oracle.priceID = ""

	out := h.svc.Settle(context.Background(), domain.SettleRequest{PoolID: "0xpool"})
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindOracleUnavailable, out.Error.Kind)
	assert.Empty(t, h.wallet.submitted)
}

func TestPoolLoadFailureIsClassified(t *testing.T) {
	h := newTradeHarness()

	out := h.svc.Settle(context.Background(), domain.SettleRequest{PoolID: "0xother"})
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindNotFound, out.Error.Kind)
	assert.Zero(t, h.oracle.calls)
}

func TestBuyInsufficientBalance(t *testing.T) {
	h := newTradeHarness()
	h.chain.balance = 1_050_000_000

	out := h.svc.Buy(context.Background(), domain.BuyRequest{PoolID: "0xpool", Amount: 1})
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindInsufficientFunds, out.Error.Kind)
	assert.Zero(t, h.oracle.calls)
}

func TestSellEncodesFlooredTokens(t *testing.T) {
	h := newTradeHarness()

	out := h.svc.Sell(context.Background(), domain.SellRequest{PoolID: "0xpool", IsBull: false, Amount: 2.0000000019})
	require.True(t, out.Succeeded())

	tx := h.wallet.submitted[0]
	call := tx.MoveCalls()[0]
	assert.Equal(t, "redeem_token", call.Function)
	require.Len(t, call.Arguments, 5)
	tokens := tx.Inputs[call.Arguments[2].Index]
	assert.Equal(t, domain.PureU64, tokens.Type)
	assert.Equal(t, uint64(2_000_000_001), tokens.Value)
	bull := tx.Inputs[call.Arguments[1].Index]
	assert.Equal(t, false, bull.Value)
}

func TestSettleCallsDistribute(t *testing.T) {
	h := newTradeHarness()

	out := h.svc.Settle(context.Background(), domain.SettleRequest{PoolID: "0xpool"})
	require.True(t, out.Succeeded())
	call := h.wallet.submitted[0].MoveCalls()[0]
	assert.Equal(t, testPkg+"::prediction_pool::distribute", call.Target())
	assert.Len(t, call.Arguments, 3)
}

func TestContractRejectionIsClassified(t *testing.T) {
	tests := []struct {
		name    string
		result  domain.TxResult
		err     error
		kind    domain.ErrorKind
		message string
	}{
		{
			name:    "gas",
			result:  domain.TxResult{Digest: "D", Error: "InsufficientGas"},
			kind:    domain.KindContractRejection,
			message: "Transaction failed: Insufficient gas. Please try again with a higher gas budget.",
		},
		{
			name:    "balance",
			result:  domain.TxResult{Digest: "D", Error: "InsufficientCoinBalance in command 0"},
			kind:    domain.KindInsufficientFunds,
			message: "Insufficient SUI balance for this transaction.",
		},
		{
			name:    "unknown",
			err:     errors.New("MoveAbort(7)"),
			kind:    domain.KindUnknown,
			message: "transaction failed: MoveAbort(7)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTradeHarness()
			h.wallet.result = tt.result
			h.wallet.err = tt.err

			out := h.svc.Buy(context.Background(), domain.BuyRequest{PoolID: "0xpool", Amount: 1})
			assert.Equal(t, domain.StateFailed, out.State)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.kind, out.Error.Kind)
			assert.Equal(t, tt.message, out.Error.Message)
			assert.Len(t, h.wallet.submitted, 1, "never retried")
			assert.Empty(t, h.pools.refreshed)
		})
	}
}

func TestCreatePool(t *testing.T) {
	h := newTradeHarness()
	h.wallet.result = domain.TxResult{
		Digest:  "D",
		Success: true,
		ObjectChanges: []domain.ObjectChange{
			{Type: "created", ObjectID: "0xtoken", ObjectType: testPkg + "::prediction_pool::BullToken"},
			{Type: "created", ObjectID: "0xnewpool", ObjectType: testPkg + "::prediction_pool::PredictionPool"},
		},
	}

	out := h.svc.CreatePool(context.Background(), domain.CreatePoolRequest{VaultFee: 10, VaultCreatorFee: 5, TreasuryFee: 1})
	require.True(t, out.Succeeded(), "error: %+v", out.Error)
	assert.Equal(t, "0xnewpool", out.CreatedPoolID)
	assert.Zero(t, h.oracle.calls)
	assert.Equal(t, []string{"0xnewpool"}, h.pools.refreshed)

	tx := h.wallet.submitted[0]
	assert.Equal(t, uint64(11_000_000), tx.GasBudget)
	call := tx.MoveCalls()[0]
	assert.Equal(t, "create_prediction_pool", call.Function)
	assert.Equal(t, "0xabc", tx.Inputs[call.Arguments[0].Index].Value)
}

func TestCreatePoolValidation(t *testing.T) {
	h := newTradeHarness()

	out := h.svc.CreatePool(context.Background(), domain.CreatePoolRequest{VaultFee: -1})
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindValidation, out.Error.Kind)

	out = h.svc.CreatePool(context.Background(), domain.CreatePoolRequest{Creator: "not-an-address"})
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindValidation, out.Error.Kind)
	assert.Empty(t, h.wallet.submitted)

	// Validation failures are still recorded.
	assert.Len(t, h.txs.recs, 2)
}

func TestTradingDisabledWithoutPackage(t *testing.T) {
	h := newTradeHarness()
	h.svc.cfg.PackageID = ""

	out := h.svc.Buy(context.Background(), domain.BuyRequest{PoolID: "0xpool", Amount: 1})
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.KindConfig, out.Error.Kind)
	assert.Zero(t, h.chain.callCount())
}
