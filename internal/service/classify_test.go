package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/StabilityNexus/Fate/internal/domain"
)

func TestClassifyTxError(t *testing.T) {
	tests := []struct {
		name    string
		action  domain.TxAction
		err     error
		kind    domain.ErrorKind
		message string
	}{
		{"gas", domain.ActionBuy, errors.New("InsufficientGas"), domain.KindContractRejection,
			"Transaction failed: Insufficient gas. Please try again with a higher gas budget."},
		{"sui balance", domain.ActionBuy, errors.New("InsufficientBalance"), domain.KindInsufficientFunds,
			"Insufficient SUI balance for this transaction."},
		{"token balance", domain.ActionSell, errors.New("InsufficientCoinBalance"), domain.KindInsufficientFunds,
			"Insufficient token balance for this transaction."},
		{"price", domain.ActionSettle, errors.New("stale price object"), domain.KindContractRejection,
			"Transaction failed: Price feed error. Please try again."},
		{"auth", domain.ActionSettle, errors.New("MoveAbort: ENotAuthorized"), domain.KindContractRejection,
			"Transaction failed: this account is not authorized for this action."},
		{"wallet", domain.ActionBuy, domain.ErrWalletNotConnected, domain.KindValidation,
			"Please connect your wallet."},
		{"other", domain.ActionBuy, errors.New("boom"), domain.KindUnknown, "transaction failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := ClassifyTxError(tt.action, tt.err)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.message, ae.Message)
			assert.ErrorIs(t, ae, tt.err)
		})
	}

	assert.Nil(t, ClassifyTxError(domain.ActionBuy, nil))
}

func TestClassifyTxErrorKeepsActionError(t *testing.T) {
	orig := &domain.ActionError{Kind: domain.KindOracleUnavailable, Message: "x"}
	assert.Same(t, orig, ClassifyTxError(domain.ActionBuy, fmt.Errorf("wrapped: %w", orig)))
}

func TestClassifyLoadError(t *testing.T) {
	tests := []struct {
		err  error
		kind domain.ErrorKind
	}{
		{fmt.Errorf("pool_service: fetch 0x1: %w", domain.ErrNotFound), domain.KindNotFound},
		{errors.New("fetch failed: connection refused"), domain.KindNetwork},
		{errors.New("Package object does not exist"), domain.KindConfig},
		{fmt.Errorf("map: %w", domain.ErrInvalidPoolType), domain.KindInvalidPoolType},
		{fmt.Errorf("inspect: %w", domain.ErrSimulationFailed), domain.KindSimulationFailed},
		{fmt.Errorf("decode: %w", domain.ErrMalformedPool), domain.KindMalformedPool},
		{errors.New("weird"), domain.KindUnknown},
	}
	for _, tt := range tests {
		ae := ClassifyLoadError(tt.err)
		assert.Equal(t, tt.kind, ae.Kind, tt.err.Error())
		assert.Contains(t, ae.Message, "Failed to load pool data.")
	}
}
