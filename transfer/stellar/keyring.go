package stellar

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stellar/go/keypair"

	"github.com/xraph/settlement/types"
)

var (
	ErrUnknownParty = errors.New("stellar: no key for party")
	ErrNoSigningKey = errors.New("stellar: party has no signing key")
)

// Keyring resolves engine parties to Stellar accounts.
type Keyring interface {
	// Address returns the public G... address of a party.
	Address(p types.Party) (string, error)
	// Signer returns the full keypair a party signs with.
	Signer(p types.Party) (*keypair.Full, error)
}

// StaticKeyring is a Keyring held in memory. Parties may be registered with a
// secret seed (can sign) or with a public address only (can receive).
type StaticKeyring struct {
	mu   sync.RWMutex
	keys map[types.Party]keypair.KP
}

// NewStaticKeyring parses a party to seed-or-address mapping.
func NewStaticKeyring(keys map[types.Party]string) (*StaticKeyring, error) {
	k := &StaticKeyring{keys: make(map[types.Party]keypair.KP, len(keys))}
	for p, s := range keys {
		if err := k.Add(p, s); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Add registers a party with either an S... seed or a G... address.
func (k *StaticKeyring) Add(p types.Party, seedOrAddress string) error {
	kp, err := keypair.Parse(seedOrAddress)
	if err != nil {
		return fmt.Errorf("stellar: parse key for %s: %w", p, err)
	}
	k.mu.Lock()
	k.keys[p] = kp
	k.mu.Unlock()
	return nil
}

func (k *StaticKeyring) Address(p types.Party) (string, error) {
	k.mu.RLock()
	kp, ok := k.keys[p]
	k.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownParty, p)
	}
	return kp.Address(), nil
}

func (k *StaticKeyring) Signer(p types.Party) (*keypair.Full, error) {
	k.mu.RLock()
	kp, ok := k.keys[p]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParty, p)
	}
	full, ok := kp.(*keypair.Full)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSigningKey, p)
	}
	return full, nil
}
