// Package wallet implements domain.Wallet on top of a local secp256k1 key
// and a Sui node.
package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/StabilityNexus/Fate/internal/crypto"
	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/platform/sui"
)

// Node is the slice of the Sui client the wallet needs.
type Node interface {
	ExecuteTransactionBlock(ctx context.Context, txBytes []byte, signatures []string) (domain.TxResult, error)
}

// TxBuilder turns a domain transaction into signable bytes.
type TxBuilder interface {
	BuildTransactionData(ctx context.Context, sender string, tx *domain.Transaction) ([]byte, error)
}

// Wallet signs and submits transactions for one account. A Wallet without a
// signer behaves as a disconnected wallet.
type Wallet struct {
	signer  *crypto.Signer
	builder TxBuilder
	node    Node
	logger  *slog.Logger
}

var _ domain.Wallet = (*Wallet)(nil)

// New returns a connected wallet.
func New(signer *crypto.Signer, builder TxBuilder, node Node, logger *slog.Logger) *Wallet {
	return &Wallet{signer: signer, builder: builder, node: node, logger: logger}
}

// Disconnected returns a wallet with no account.
func Disconnected(logger *slog.Logger) *Wallet {
	return &Wallet{logger: logger}
}

// FromKeySource loads the key and wires the wallet to client. When no key is
// configured it returns a disconnected wallet.
func FromKeySource(src crypto.KeySource, client *sui.Client, logger *slog.Logger) (*Wallet, error) {
	if !src.Configured() {
		return Disconnected(logger), nil
	}
	raw, err := crypto.LoadKey(src)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	signer, err := crypto.NewSigner(raw)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	logger.Info("wallet connected", slog.String("address", signer.Address()))
	return New(signer, sui.NewBuilder(client), client, logger), nil
}

// Address returns the account address, or false when disconnected.
func (w *Wallet) Address() (string, bool) {
	if w.signer == nil {
		return "", false
	}
	return w.signer.Address(), true
}

// SignAndExecute builds, signs and submits tx, waiting for local execution.
// A transaction that executes but aborts is returned with Success false and
// a nil error; callers inspect TxResult.Err.
func (w *Wallet) SignAndExecute(ctx context.Context, tx *domain.Transaction) (domain.TxResult, error) {
	if w.signer == nil {
		return domain.TxResult{}, domain.ErrWalletNotConnected
	}
	sender := w.signer.Address()

	txBytes, err := w.builder.BuildTransactionData(ctx, sender, tx)
	if err != nil {
		return domain.TxResult{}, fmt.Errorf("wallet: build: %w", err)
	}
	sig, err := w.signer.SignTransaction(txBytes)
	if err != nil {
		return domain.TxResult{}, fmt.Errorf("wallet: %w: %w", domain.ErrSigningFailed, err)
	}

	res, err := w.node.ExecuteTransactionBlock(ctx, txBytes, []string{sig})
	if err != nil {
		return domain.TxResult{}, fmt.Errorf("wallet: execute: %w", err)
	}
	w.logger.Debug("transaction executed",
		slog.String("digest", res.Digest),
		slog.Bool("success", res.Success),
		slog.Int("commands", len(tx.Commands)),
	)
	return res, nil
}
