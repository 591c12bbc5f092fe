// Package lock serializes engine operations on the records they touch.
//
// Every mutating operation locks the invoice it works on and, for lottery
// operations, the pool of the invoice's asset. Keys are always acquired in
// sorted order so two operations can never wait on each other in a cycle.
package lock

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/types"
)

// Unlock releases every key taken by one Lock call.
type Unlock func()

// Locker acquires a set of keys exclusively.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (Unlock, error)
}

// InvoiceKey is the lock key of an invoice.
func InvoiceKey(invoiceID id.InvoiceID) string {
	return "invoice:" + invoiceID.String()
}

// PoolKey is the lock key of an asset's lottery pool.
func PoolKey(asset types.Asset) string {
	return "pool:" + string(asset)
}

// Normalize sorts keys and drops duplicates.
func Normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	out = append(out, keys...)
	sort.Strings(out)

	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}

// Compile-time interface check.
var _ Locker = (*Local)(nil)

// Local is an in-process Locker.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns a Locker for a single engine process.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) Lock(ctx context.Context, keys ...string) (Unlock, error) {
	keys = Normalize(keys)
	held := make([]string, 0, len(keys))

	for _, k := range keys {
		s := l.ref(k)
		select {
		case s.ch <- struct{}{}:
			held = append(held, k)
		case <-ctx.Done():
			l.unref(k)
			l.release(held)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(held) })
	}, nil
}

func (l *Local) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		s := l.slots[keys[i]]
		l.mu.Unlock()

		<-s.ch
		l.unref(keys[i])
	}
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// ProfileKey is the lock key of a party's profile.
func ProfileKey(owner types.Party) string {
	return "profile:" + string(owner)
}
