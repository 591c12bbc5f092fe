package transfer

import (
	"errors"
	"testing"

	"github.com/xraph/settlement/id"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tr      Transfer
		wantErr error
	}{
		{
			name:    "ok",
			tr:      Transfer{From: Wallet("alice", "USDC"), To: Wallet("bob", "USDC"), Amount: 10, Authorizer: "alice"},
			wantErr: nil,
		},
		{
			name:    "asset mismatch",
			tr:      Transfer{From: Wallet("alice", "USDC"), To: Wallet("bob", "EURC"), Amount: 10, Authorizer: "alice"},
			wantErr: ErrAssetMismatch,
		},
		{
			name:    "missing authorizer",
			tr:      Transfer{From: Wallet("alice", "USDC"), To: Wallet("bob", "USDC"), Amount: 10},
			wantErr: ErrInvalidTransfer,
		},
		{
			name:    "self transfer",
			tr:      Transfer{From: Wallet("alice", "USDC"), To: Wallet("alice", "USDC"), Amount: 10, Authorizer: "alice"},
			wantErr: ErrInvalidTransfer,
		},
		{
			name:    "missing asset",
			tr:      Transfer{From: Wallet("alice", ""), To: Wallet("bob", ""), Amount: 10, Authorizer: "alice"},
			wantErr: ErrInvalidTransfer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tr.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDerivedAccounts(t *testing.T) {
	invID := id.NewInvoiceID()

	vault := EscrowVault(invID, "USDC")
	if vault.Owner != EscrowAuthority(invID) {
		t.Errorf("escrow vault owner = %q, want %q", vault.Owner, EscrowAuthority(invID))
	}
	if EscrowVault(invID, "USDC") != vault {
		t.Error("escrow vault derivation is not deterministic")
	}
	if EscrowVault(id.NewInvoiceID(), "USDC") == vault {
		t.Error("distinct invoices share an escrow vault")
	}

	pool := PoolVault("USDC")
	if pool.Owner != PoolAuthority("USDC") || pool.Asset != "USDC" {
		t.Errorf("unexpected pool vault %v", pool)
	}
	if PoolVault("EURC") == pool {
		t.Error("distinct assets share a pool vault")
	}
}
