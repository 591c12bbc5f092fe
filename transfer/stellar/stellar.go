// Package stellar implements transfer.Ledger on the Stellar network.
//
// All transfers of one call become Payment operations of a single
// transaction, which the network applies all-or-nothing. Each operation is
// sourced from the transfer's source account and the transaction is signed by
// every distinct authorizer. Engine amounts are base units; Stellar amounts
// carry seven decimals, so an amount of 1 is "0.0000001".
package stellar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"

	"github.com/xraph/settlement/transfer"
	"github.com/xraph/settlement/types"
)

// Decimals is the fixed precision of Stellar amounts.
const Decimals = 7

// Compile-time interface check.
var _ transfer.Ledger = (*Ledger)(nil)

// Client is the subset of horizonclient.Client the ledger uses.
type Client interface {
	AccountDetail(request horizonclient.AccountRequest) (hProtocol.Account, error)
	SubmitTransaction(transaction *txnbuild.Transaction) (hProtocol.Transaction, error)
}

// Ledger submits transfers to Horizon.
type Ledger struct {
	client     Client
	keys       Keyring
	passphrase string
	assets     map[types.Asset]txnbuild.Asset
	baseFee    int64
	logger     *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithAsset maps an engine asset to a Stellar asset explicitly. Unmapped
// assets are parsed with ParseAsset.
func WithAsset(asset types.Asset, a txnbuild.Asset) Option {
	return func(l *Ledger) { l.assets[asset] = a }
}

// WithBaseFee sets the per-operation fee in stroops.
func WithBaseFee(fee int64) Option {
	return func(l *Ledger) { l.baseFee = fee }
}

// New creates a ledger over an existing Horizon client.
func New(client Client, keys Keyring, passphrase string, opts ...Option) *Ledger {
	l := &Ledger{
		client:     client,
		keys:       keys,
		passphrase: passphrase,
		assets:     make(map[types.Asset]txnbuild.Asset),
		baseFee:    txnbuild.MinBaseFee,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dial creates a ledger talking to the Horizon server at horizonURL.
func Dial(horizonURL string, keys Keyring, passphrase string, opts ...Option) *Ledger {
	return New(&horizonclient.Client{HorizonURL: horizonURL}, keys, passphrase, opts...)
}

// ParseAsset reads "native" or "XLM" as lumens and "CODE:ISSUER" as a credit
// asset.
func ParseAsset(asset types.Asset) (txnbuild.Asset, error) {
	s := string(asset)
	if strings.EqualFold(s, "native") || s == "XLM" {
		return txnbuild.NativeAsset{}, nil
	}
	code, issuer, ok := strings.Cut(s, ":")
	if !ok || code == "" || issuer == "" {
		return nil, fmt.Errorf("%w: asset %q is not CODE:ISSUER", transfer.ErrInvalidTransfer, s)
	}
	return txnbuild.CreditAsset{Code: code, Issuer: issuer}, nil
}

// Transfer builds, signs and submits one transaction for all transfers.
func (l *Ledger) Transfer(ctx context.Context, transfers ...transfer.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		ops     []txnbuild.Operation
		signers []*keypair.Full
		seen    = make(map[types.Party]bool)
		source  types.Party
	)

	for i, t := range transfers {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("stellar: transfer %d: %w", i, err)
		}
		if t.Authorizer != t.From.Owner {
			return fmt.Errorf("stellar: transfer %d from %s: %w", i, t.From, transfer.ErrUnauthorized)
		}
		// Stellar rejects zero-amount payments.
		if t.Amount == 0 {
			continue
		}

		op, err := l.payment(t)
		if err != nil {
			return fmt.Errorf("stellar: transfer %d: %w", i, err)
		}
		ops = append(ops, op)

		if !seen[t.Authorizer] {
			kp, err := l.keys.Signer(t.Authorizer)
			if err != nil {
				return fmt.Errorf("stellar: transfer %d: %w", i, err)
			}
			signers = append(signers, kp)
			seen[t.Authorizer] = true
		}
		if source.IsZero() {
			source = t.Authorizer
		}
	}

	if len(ops) == 0 {
		return nil
	}

	sourceAddr, err := l.keys.Address(source)
	if err != nil {
		return fmt.Errorf("stellar: %w", err)
	}
	sourceAccount, err := l.client.AccountDetail(horizonclient.AccountRequest{AccountID: sourceAddr})
	if err != nil {
		return fmt.Errorf("stellar: load source account: %w", err)
	}

	tx, err := txnbuild.NewTransaction(
		txnbuild.TransactionParams{
			SourceAccount:        &sourceAccount,
			IncrementSequenceNum: true,
			BaseFee:              l.baseFee,
			Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewInfiniteTimeout()},
			Operations:           ops,
		},
	)
	if err != nil {
		return fmt.Errorf("stellar: build transaction: %w", err)
	}

	tx, err = tx.Sign(l.passphrase, signers...)
	if err != nil {
		return fmt.Errorf("stellar: sign transaction: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := l.client.SubmitTransaction(tx)
	if err != nil {
		return mapSubmitError(err)
	}

	l.logger.Info("stellar transfer submitted",
		"hash", resp.Hash,
		"operations", len(ops),
		"source", sourceAddr,
	)
	return nil
}

func (l *Ledger) payment(t transfer.Transfer) (*txnbuild.Payment, error) {
	from, err := l.keys.Address(t.From.Owner)
	if err != nil {
		return nil, err
	}
	to, err := l.keys.Address(t.To.Owner)
	if err != nil {
		return nil, err
	}
	asset, ok := l.assets[t.From.Asset]
	if !ok {
		asset, err = ParseAsset(t.From.Asset)
		if err != nil {
			return nil, err
		}
	}
	return &txnbuild.Payment{
		Destination:   to,
		Amount:        types.FormatUnits(t.Amount, Decimals),
		Asset:         asset,
		SourceAccount: from,
	}, nil
}

// mapSubmitError translates Horizon result codes into transfer errors.
func mapSubmitError(err error) error {
	hErr := horizonclient.GetError(err)
	if hErr == nil {
		return fmt.Errorf("stellar: submit transaction: %w", err)
	}
	codes, cerr := hErr.ResultCodes()
	if cerr != nil || codes == nil {
		return fmt.Errorf("stellar: submit transaction: %w", err)
	}

	for _, c := range codes.OperationCodes {
		switch c {
		case "op_underfunded", "op_line_full":
			return fmt.Errorf("stellar: %s: %w", c, transfer.ErrInsufficientFunds)
		case "op_no_destination", "op_no_trust", "op_not_authorized", "op_no_issuer", "op_src_no_trust", "op_src_not_authorized":
			return fmt.Errorf("stellar: %s: %w", c, transfer.ErrInvalidTransfer)
		}
	}
	if codes.TransactionCode == "tx_insufficient_balance" {
		return fmt.Errorf("stellar: %s: %w", codes.TransactionCode, transfer.ErrInsufficientFunds)
	}
	if codes.TransactionCode == "tx_bad_auth" {
		return fmt.Errorf("stellar: %s: %w", codes.TransactionCode, transfer.ErrUnauthorized)
	}
	return fmt.Errorf("stellar: submit transaction (%s %v): %w", codes.TransactionCode, codes.OperationCodes, err)
}
