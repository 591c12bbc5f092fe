// Package memory provides an in-process transfer.Ledger. It is used by tests
// and by single-node deployments that keep balances alongside the engine.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/settlement/transfer"
	"github.com/xraph/settlement/types"
)

// Compile-time interface check.
var _ transfer.Ledger = (*Ledger)(nil)

// Ledger holds balances in memory. It is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	balances map[transfer.Account]uint64
	journal  []transfer.Transfer
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[transfer.Account]uint64)}
}

// Mint credits an account out of thin air. It exists to fund wallets in
// tests and local deployments.
func (l *Ledger) Mint(acct transfer.Account, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := types.CheckedAdd(l.balances[acct], amount)
	if err != nil {
		return fmt.Errorf("memory: mint %s: %w", acct, err)
	}
	l.balances[acct] = next
	return nil
}

// Balance returns the current balance of an account.
func (l *Ledger) Balance(acct transfer.Account) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[acct]
}

// Journal returns every applied transfer in order.
func (l *Ledger) Journal() []transfer.Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]transfer.Transfer, len(l.journal))
	copy(out, l.journal)
	return out
}

// Transfer applies all transfers or none.
func (l *Ledger) Transfer(ctx context.Context, transfers ...transfer.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[transfer.Account]uint64)
	balance := func(a transfer.Account) uint64 {
		if v, ok := staged[a]; ok {
			return v
		}
		return l.balances[a]
	}

	for i, t := range transfers {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("memory: transfer %d: %w", i, err)
		}
		if t.Authorizer != t.From.Owner {
			return fmt.Errorf("memory: transfer %d from %s: %w", i, t.From, transfer.ErrUnauthorized)
		}

		from, err := types.CheckedSub(balance(t.From), t.Amount)
		if err != nil {
			return fmt.Errorf("memory: transfer %d from %s: %w (have %d, need %d)",
				i, t.From, transfer.ErrInsufficientFunds, balance(t.From), t.Amount)
		}
		to, err := types.CheckedAdd(balance(t.To), t.Amount)
		if err != nil {
			return fmt.Errorf("memory: transfer %d to %s: %w", i, t.To, err)
		}
		staged[t.From] = from
		staged[t.To] = to
	}

	for a, v := range staged {
		l.balances[a] = v
	}
	l.journal = append(l.journal, transfers...)
	return nil
}
