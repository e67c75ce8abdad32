// Package stub provides an in-memory chain.Client for tests.
package stub

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"hat-store/internal/chain"
)

// ErrNotMined is returned by WaitForReceipt for unknown transactions.
var ErrNotMined = errors.New("transaction not mined")

// Client implements chain.Client for testing.
// Balances are keyed by owner; successful mints increment the recipient's
// balance and decrement supply, mirroring the contract.
type Client struct {
	mu sync.Mutex

	Supply   *big.Int
	Balances map[common.Address]*big.Int

	// Injected failures.
	SupplyErr  error
	BalanceErr error
	SubmitErr  error
	ReceiptErr error

	// ReceiptStatus is the status reported for mined mints. Default success.
	ReceiptStatus uint64
	// BlockReceipts makes WaitForReceipt block until ctx is done.
	BlockReceipts bool

	SupplyCalls  int
	BalanceCalls int
	MintCalls    int
	WaitCalls    int
	Minted       []common.Address

	nextHash uint64
	pending  map[common.Hash]common.Address
}

// NewClient creates a stub client with the given remaining supply.
func NewClient(supply int64) *Client {
	return &Client{
		Supply:        big.NewInt(supply),
		Balances:      make(map[common.Address]*big.Int),
		ReceiptStatus: types.ReceiptStatusSuccessful,
		pending:       make(map[common.Hash]common.Address),
	}
}

// SetBalance sets the balance held by owner.
func (c *Client) SetBalance(owner common.Address, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[owner] = big.NewInt(amount)
}

// TotalSupply returns the stub supply.
func (c *Client) TotalSupply(_ context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SupplyCalls++
	if c.SupplyErr != nil {
		return nil, c.SupplyErr
	}
	if c.Supply == nil {
		return nil, nil
	}
	return new(big.Int).Set(c.Supply), nil
}

// BalanceOf returns the stub balance of owner, zero when unset.
func (c *Client) BalanceOf(_ context.Context, owner common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BalanceCalls++
	if c.BalanceErr != nil {
		return nil, c.BalanceErr
	}
	if b, ok := c.Balances[owner]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// SubmitMint records the mint and returns a synthetic hash.
func (c *Client) SubmitMint(_ context.Context, recipient common.Address) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MintCalls++
	if c.SubmitErr != nil {
		return common.Hash{}, c.SubmitErr
	}
	c.nextHash++
	hash := common.BigToHash(new(big.Int).SetUint64(c.nextHash))
	c.pending[hash] = recipient
	return hash, nil
}

// WaitForReceipt "mines" a previously submitted mint.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*chain.Receipt, error) {
	c.mu.Lock()
	c.WaitCalls++
	block := c.BlockReceipts
	c.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReceiptErr != nil {
		return nil, c.ReceiptErr
	}
	recipient, ok := c.pending[txHash]
	if !ok {
		return nil, ErrNotMined
	}
	delete(c.pending, txHash)

	if c.ReceiptStatus == types.ReceiptStatusSuccessful {
		bal, ok := c.Balances[recipient]
		if !ok {
			bal = new(big.Int)
		}
		c.Balances[recipient] = bal.Add(bal, big.NewInt(1))
		if c.Supply != nil && c.Supply.Sign() > 0 {
			c.Supply.Sub(c.Supply, big.NewInt(1))
		}
		c.Minted = append(c.Minted, recipient)
	}

	return &chain.Receipt{
		TxHash:      txHash,
		Status:      c.ReceiptStatus,
		BlockNumber: big.NewInt(1),
		GasUsed:     21000,
	}, nil
}

var _ chain.Client = (*Client)(nil)
