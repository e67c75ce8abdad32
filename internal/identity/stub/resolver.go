// Package stub provides an in-memory identity.Resolver for tests.
package stub

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"hat-store/internal/identity"
)

// Resolver implements identity.Resolver for testing.
type Resolver struct {
	mu        sync.Mutex
	Addresses map[uint64]common.Address
	Err       error
	Calls     int
}

// NewResolver creates a stub resolver with no known ids.
func NewResolver() *Resolver {
	return &Resolver{Addresses: make(map[uint64]common.Address)}
}

// Set registers the verified address of socialID.
func (r *Resolver) Set(socialID uint64, addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Addresses[socialID] = addr
}

// ResolveAddress returns the registered address, or none.
func (r *Resolver) ResolveAddress(_ context.Context, socialID uint64) (common.Address, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if r.Err != nil {
		return common.Address{}, false, r.Err
	}
	addr, ok := r.Addresses[socialID]
	return addr, ok, nil
}

var _ identity.Resolver = (*Resolver)(nil)
