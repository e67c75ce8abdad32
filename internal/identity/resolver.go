// Package identity resolves social ids to verified wallet addresses.
package identity

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Resolver resolves a social id to its first verified address.
type Resolver interface {
	// ResolveAddress returns (address, true, nil) when the id has a verified
	// address and (zero, false, nil) when it has none. Errors mean the
	// lookup itself failed.
	ResolveAddress(ctx context.Context, socialID uint64) (common.Address, bool, error)
}
