// Package chain talks to the hat contract: supply and balance reads, the
// sponsored mint, and calldata for wallet-submitted purchases.
package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Errors returned by chain clients.
var (
	// ErrReadOnly is returned by SubmitMint when the client has no signing key.
	ErrReadOnly = errors.New("chain client has no signing key")

	// ErrNegativeAmount is returned when a numeric read decodes to a negative value.
	ErrNegativeAmount = errors.New("negative amount")
)

// Client defines the hat contract operations the storefront needs.
// Every call is a fallible remote call.
type Client interface {
	// TotalSupply returns the contract's remaining supply counter.
	TotalSupply(ctx context.Context) (*big.Int, error)

	// BalanceOf returns how many hats the owner holds for the configured token id.
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)

	// SubmitMint simulates then sends a mint(recipient) transaction signed by
	// the storefront key. Returns the transaction hash.
	SubmitMint(ctx context.Context, recipient common.Address) (common.Hash, error)

	// WaitForReceipt blocks until the transaction is mined or ctx is done.
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)
}

// Receipt is the subset of a transaction receipt the storefront inspects.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber *big.Int
	GasUsed     uint64
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == types.ReceiptStatusSuccessful
}
