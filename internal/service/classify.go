package service

import (
	"errors"
	"strings"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// ClassifyTxError maps a transaction failure to a readable ActionError. It
// and ClassifyLoadError are the only places that inspect error text; the
// chain reports contract aborts as free-form strings.
func ClassifyTxError(action domain.TxAction, err error) *domain.ActionError {
	if err == nil {
		return nil
	}
	var ae *domain.ActionError
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return &domain.ActionError{Kind: domain.KindValidation, Message: err.Error(), Err: err}
	case errors.Is(err, domain.ErrWalletNotConnected):
		return &domain.ActionError{Kind: domain.KindValidation, Message: "Please connect your wallet.", Err: err}
	case errors.Is(err, domain.ErrFeatureDisabled):
		return &domain.ActionError{Kind: domain.KindConfig, Message: "Trading is disabled: the contract or oracle is not configured.", Err: err}
	case errors.Is(err, domain.ErrInsufficientFunds):
		return &domain.ActionError{Kind: domain.KindInsufficientFunds, Message: "Insufficient SUI balance for this transaction.", Err: err}
	case errors.Is(err, domain.ErrPriceUpdateUnavailable):
		return &domain.ActionError{Kind: domain.KindOracleUnavailable, Message: "Price update failed: no price object was returned.", Err: err}
	}

	raw := err.Error()
	switch {
	case strings.Contains(raw, "InsufficientGas"):
		return &domain.ActionError{
			Kind:    domain.KindContractRejection,
			Message: "Transaction failed: Insufficient gas. Please try again with a higher gas budget.",
			Err:     err,
		}
	case strings.Contains(raw, "InsufficientBalance"), strings.Contains(raw, "InsufficientCoinBalance"):
		msg := "Insufficient SUI balance for this transaction."
		if action == domain.ActionSell {
			msg = "Insufficient token balance for this transaction."
		}
		return &domain.ActionError{Kind: domain.KindInsufficientFunds, Message: msg, Err: err}
	case strings.Contains(raw, "price"):
		return &domain.ActionError{
			Kind:    domain.KindContractRejection,
			Message: "Transaction failed: Price feed error. Please try again.",
			Err:     err,
		}
	case isAuthorizationFailure(raw):
		return &domain.ActionError{
			Kind:    domain.KindContractRejection,
			Message: "Transaction failed: this account is not authorized for this action.",
			Err:     err,
		}
	}
	return &domain.ActionError{Kind: domain.KindUnknown, Message: "transaction failed: " + raw, Err: err}
}

var authorizationMarkers = []string{"Unauthorized", "ENotAuthorized", "not authorized", "unauthorized"}

func isAuthorizationFailure(raw string) bool {
	for _, m := range authorizationMarkers {
		if strings.Contains(raw, m) {
			return true
		}
	}
	return false
}

const loadPrefix = "Failed to load pool data. "

// ClassifyLoadError maps a pool snapshot load failure to a readable
// ActionError.
func ClassifyLoadError(err error) *domain.ActionError {
	if err == nil {
		return nil
	}
	var ae *domain.ActionError
	if errors.As(err, &ae) {
		return ae
	}

	raw := err.Error()
	switch {
	case errors.Is(err, domain.ErrNotFound), strings.Contains(raw, "not found"):
		return &domain.ActionError{Kind: domain.KindNotFound, Message: loadPrefix + "Pool not found. Please check the pool ID.", Err: err}
	case strings.Contains(raw, "network"), strings.Contains(raw, "fetch"):
		return &domain.ActionError{Kind: domain.KindNetwork, Message: loadPrefix + "Network error. Please check your connection and try again.", Err: err}
	case errors.Is(err, domain.ErrFeatureDisabled), strings.Contains(raw, "Package"), strings.Contains(raw, "PACKAGE_ID"):
		return &domain.ActionError{Kind: domain.KindConfig, Message: loadPrefix + "Smart contract configuration error. Please contact support.", Err: err}
	case errors.Is(err, domain.ErrInvalidPoolType), strings.Contains(raw, "Invalid pool type"):
		return &domain.ActionError{Kind: domain.KindInvalidPoolType, Message: loadPrefix + "The provided ID is not a valid prediction pool.", Err: err}
	case errors.Is(err, domain.ErrSimulationFailed), strings.Contains(raw, "simulation failed"):
		return &domain.ActionError{Kind: domain.KindSimulationFailed, Message: loadPrefix + "Contract interaction failed. The pool may be in an invalid state.", Err: err}
	case errors.Is(err, domain.ErrMalformedPool):
		return &domain.ActionError{Kind: domain.KindMalformedPool, Message: loadPrefix + "The pool data could not be parsed.", Err: err}
	}
	return &domain.ActionError{Kind: domain.KindUnknown, Message: loadPrefix + raw, Err: err}
}
