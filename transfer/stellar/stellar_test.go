package stellar

import (
	"context"
	"errors"
	"testing"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/settlement/transfer"
	"github.com/xraph/settlement/types"
)

type mockClient struct {
	AccountDetailFunc     func(horizonclient.AccountRequest) (hProtocol.Account, error)
	SubmitTransactionFunc func(*txnbuild.Transaction) (hProtocol.Transaction, error)
}

func (m *mockClient) AccountDetail(req horizonclient.AccountRequest) (hProtocol.Account, error) {
	return m.AccountDetailFunc(req)
}

func (m *mockClient) SubmitTransaction(tx *txnbuild.Transaction) (hProtocol.Transaction, error) {
	return m.SubmitTransactionFunc(tx)
}

func newKeyring(t *testing.T, parties ...types.Party) *StaticKeyring {
	t.Helper()
	seeds := make(map[types.Party]string, len(parties))
	for _, p := range parties {
		kp, err := keypair.Random()
		require.NoError(t, err)
		seeds[p] = kp.Seed()
	}
	k, err := NewStaticKeyring(seeds)
	require.NoError(t, err)
	return k
}

func TestParseAsset(t *testing.T) {
	a, err := ParseAsset("native")
	require.NoError(t, err)
	assert.IsType(t, txnbuild.NativeAsset{}, a)

	a, err = ParseAsset("XLM")
	require.NoError(t, err)
	assert.IsType(t, txnbuild.NativeAsset{}, a)

	a, err = ParseAsset("USDC:GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN")
	require.NoError(t, err)
	assert.Equal(t, txnbuild.CreditAsset{Code: "USDC", Issuer: "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"}, a)

	_, err = ParseAsset("USDC")
	assert.ErrorIs(t, err, transfer.ErrInvalidTransfer)
}

func TestTransferSubmitsOneTransaction(t *testing.T) {
	pool := transfer.PoolVault("native")
	keys := newKeyring(t, pool.Owner, "alice", "bob")

	var submitted *txnbuild.Transaction
	client := &mockClient{
		AccountDetailFunc: func(req horizonclient.AccountRequest) (hProtocol.Account, error) {
			return hProtocol.Account{AccountID: req.AccountID, Sequence: 1}, nil
		},
		SubmitTransactionFunc: func(tx *txnbuild.Transaction) (hProtocol.Transaction, error) {
			submitted = tx
			return hProtocol.Transaction{Hash: "abc123"}, nil
		},
	}

	l := New(client, keys, network.TestNetworkPassphrase)
	err := l.Transfer(context.Background(),
		transfer.Transfer{From: pool, To: transfer.Wallet("alice", "native"), Amount: 12345, Authorizer: pool.Owner},
		transfer.Transfer{From: pool, To: transfer.Wallet("bob", "native"), Amount: 1, Authorizer: pool.Owner},
	)
	require.NoError(t, err)
	require.NotNil(t, submitted)

	ops := submitted.Operations()
	require.Len(t, ops, 2)

	poolAddr, _ := keys.Address(pool.Owner)
	aliceAddr, _ := keys.Address("alice")

	first, ok := ops[0].(*txnbuild.Payment)
	require.True(t, ok)
	assert.Equal(t, "0.0012345", first.Amount)
	assert.Equal(t, aliceAddr, first.Destination)
	assert.Equal(t, poolAddr, first.SourceAccount)
	assert.IsType(t, txnbuild.NativeAsset{}, first.Asset)

	second := ops[1].(*txnbuild.Payment)
	assert.Equal(t, "0.0000001", second.Amount)

	// One authorizer, one signature.
	assert.Len(t, submitted.Signatures(), 1)
}

func TestTransferSignsForEveryAuthorizer(t *testing.T) {
	keys := newKeyring(t, "alice", "bob", "carol")

	var submitted *txnbuild.Transaction
	client := &mockClient{
		AccountDetailFunc: func(req horizonclient.AccountRequest) (hProtocol.Account, error) {
			return hProtocol.Account{AccountID: req.AccountID, Sequence: 7}, nil
		},
		SubmitTransactionFunc: func(tx *txnbuild.Transaction) (hProtocol.Transaction, error) {
			submitted = tx
			return hProtocol.Transaction{Hash: "h"}, nil
		},
	}

	l := New(client, keys, network.TestNetworkPassphrase)
	err := l.Transfer(context.Background(),
		transfer.Transfer{From: transfer.Wallet("alice", "XLM"), To: transfer.Wallet("carol", "XLM"), Amount: 10, Authorizer: "alice"},
		transfer.Transfer{From: transfer.Wallet("bob", "XLM"), To: transfer.Wallet("carol", "XLM"), Amount: 10, Authorizer: "bob"},
	)
	require.NoError(t, err)
	assert.Len(t, submitted.Signatures(), 2)
}

func TestTransferRejectsBeforeSubmitting(t *testing.T) {
	keys := newKeyring(t, "alice")
	require.NoError(t, keys.Add("bob", mustRandomAddress(t)))

	client := &mockClient{
		AccountDetailFunc: func(horizonclient.AccountRequest) (hProtocol.Account, error) {
			t.Fatal("AccountDetail must not be called")
			return hProtocol.Account{}, nil
		},
		SubmitTransactionFunc: func(*txnbuild.Transaction) (hProtocol.Transaction, error) {
			t.Fatal("SubmitTransaction must not be called")
			return hProtocol.Transaction{}, nil
		},
	}
	l := New(client, keys, network.TestNetworkPassphrase)
	ctx := context.Background()

	t.Run("wrong authorizer", func(t *testing.T) {
		err := l.Transfer(ctx, transfer.Transfer{From: transfer.Wallet("alice", "XLM"), To: transfer.Wallet("bob", "XLM"), Amount: 1, Authorizer: "bob"})
		assert.ErrorIs(t, err, transfer.ErrUnauthorized)
	})

	t.Run("watch-only signer", func(t *testing.T) {
		err := l.Transfer(ctx, transfer.Transfer{From: transfer.Wallet("bob", "XLM"), To: transfer.Wallet("alice", "XLM"), Amount: 1, Authorizer: "bob"})
		assert.ErrorIs(t, err, ErrNoSigningKey)
	})

	t.Run("unknown party", func(t *testing.T) {
		err := l.Transfer(ctx, transfer.Transfer{From: transfer.Wallet("alice", "XLM"), To: transfer.Wallet("mallory", "XLM"), Amount: 1, Authorizer: "alice"})
		assert.ErrorIs(t, err, ErrUnknownParty)
	})

	t.Run("zero amounts only", func(t *testing.T) {
		err := l.Transfer(ctx, transfer.Transfer{From: transfer.Wallet("alice", "XLM"), To: transfer.Wallet("bob", "XLM"), Amount: 0, Authorizer: "alice"})
		assert.NoError(t, err)
	})
}

func TestTransferSubmitError(t *testing.T) {
	keys := newKeyring(t, "alice", "bob")
	client := &mockClient{
		AccountDetailFunc: func(req horizonclient.AccountRequest) (hProtocol.Account, error) {
			return hProtocol.Account{AccountID: req.AccountID, Sequence: 1}, nil
		},
		SubmitTransactionFunc: func(*txnbuild.Transaction) (hProtocol.Transaction, error) {
			return hProtocol.Transaction{}, errors.New("connection reset")
		},
	}

	l := New(client, keys, network.TestNetworkPassphrase)
	err := l.Transfer(context.Background(), transfer.Transfer{From: transfer.Wallet("alice", "XLM"), To: transfer.Wallet("bob", "XLM"), Amount: 1, Authorizer: "alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func mustRandomAddress(t *testing.T) string {
	t.Helper()
	kp, err := keypair.Random()
	require.NoError(t, err)
	return kp.Address()
}
