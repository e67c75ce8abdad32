package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"hat-store/internal/observability"
)

// Default configuration values.
const (
	DefaultPollInterval = 2 * time.Second
)

// Backend is the node surface EthClient needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EthClient implements Client against an EVM JSON-RPC node.
type EthClient struct {
	backend      Backend
	contract     *bind.BoundContract
	address      common.Address
	tokenID      *big.Int
	signer       *bind.TransactOpts // nil for read-only clients
	pollInterval time.Duration
	logger       *zap.Logger

	// serializes nonce assignment for the single storefront key
	submitMu sync.Mutex
}

type clientConfig struct {
	tokenID      *big.Int
	privateKey   string
	chainID      *big.Int
	pollInterval time.Duration
	logger       *zap.Logger
}

// ClientOption configures EthClient.
type ClientOption func(*clientConfig)

// WithTokenID sets the ERC-1155 token id read by BalanceOf. Default 0.
func WithTokenID(id *big.Int) ClientOption {
	return func(c *clientConfig) {
		c.tokenID = new(big.Int).Set(id)
	}
}

// WithPrivateKey sets the hex-encoded signing key used for mints.
func WithPrivateKey(hexKey string) ClientOption {
	return func(c *clientConfig) {
		c.privateKey = hexKey
	}
}

// WithChainID skips the eth_chainId lookup when signing.
func WithChainID(id *big.Int) ClientOption {
	return func(c *clientConfig) {
		c.chainID = new(big.Int).Set(id)
	}
}

// WithPollInterval sets the receipt polling interval.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.pollInterval = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// DialEthClient connects to the node at endpoint and binds the hat contract.
func DialEthClient(ctx context.Context, endpoint string, contract common.Address, opts ...ClientOption) (*EthClient, error) {
	rpc, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	c, err := NewEthClient(ctx, rpc, contract, opts...)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	return c, nil
}

// NewEthClient binds the hat contract on an existing backend.
func NewEthClient(ctx context.Context, backend Backend, contract common.Address, opts ...ClientOption) (*EthClient, error) {
	cfg := clientConfig{
		tokenID:      new(big.Int),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	c := &EthClient{
		backend:      backend,
		contract:     bind.NewBoundContract(contract, parsedHatABI, backend, backend, backend),
		address:      contract,
		tokenID:      cfg.tokenID,
		pollInterval: cfg.pollInterval,
		logger:       cfg.logger,
	}

	if cfg.privateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.privateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		chainID := cfg.chainID
		if chainID == nil {
			chainID, err = backend.ChainID(ctx)
			if err != nil {
				return nil, fmt.Errorf("get chain id: %w", err)
			}
		}
		signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			return nil, fmt.Errorf("create transactor: %w", err)
		}
		c.signer = signer
	}

	return c, nil
}

// Address returns the bound contract address.
func (c *EthClient) Address() common.Address {
	return c.address
}

// Signer returns the storefront signing address, or the zero address for
// read-only clients.
func (c *EthClient) Signer() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.From
}

// TotalSupply returns the contract's remaining supply counter.
func (c *EthClient) TotalSupply(ctx context.Context) (*big.Int, error) {
	start := time.Now()
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, MethodTotalSupply)
	observability.RecordChainCall(MethodTotalSupply, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("call totalSupply: %w", err)
	}
	return uintResult(out)
}

// BalanceOf returns the owner's balance of the configured token id.
func (c *EthClient) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	start := time.Now()
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, MethodBalanceOf, owner, c.tokenID)
	observability.RecordChainCall(MethodBalanceOf, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	return uintResult(out)
}

// SubmitMint simulates mint(recipient) from the storefront key, then sends it.
func (c *EthClient) SubmitMint(ctx context.Context, recipient common.Address) (common.Hash, error) {
	if c.signer == nil {
		return common.Hash{}, ErrReadOnly
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	start := time.Now()

	// Simulation surfaces reverts before a transaction is paid for.
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx, From: c.signer.From}, &out, MethodMint, recipient); err != nil {
		observability.RecordChainCall("simulate_mint", time.Since(start).Seconds(), err)
		return common.Hash{}, fmt.Errorf("simulate mint: %w", err)
	}

	opts := *c.signer
	opts.Context = ctx
	tx, err := c.contract.Transact(&opts, MethodMint, recipient)
	observability.RecordChainCall(MethodMint, time.Since(start).Seconds(), err)
	if err != nil {
		return common.Hash{}, fmt.Errorf("send mint: %w", err)
	}

	c.logger.Info("mint submitted",
		zap.String("recipient", recipient.Hex()),
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()),
	)
	return tx.Hash(), nil
}

// WaitForReceipt polls for the receipt until it is available or ctx is done.
func (c *EthClient) WaitForReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return &Receipt{
				TxHash:      txHash,
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber,
				GasUsed:     receipt.GasUsed,
			}, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.Debug("receipt retrieval failed", zap.String("tx", txHash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for receipt %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close closes the underlying connection when the backend owns one.
func (c *EthClient) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// uintResult decodes a single uint256 return value.
func uintResult(out []interface{}) (*big.Int, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected result count %d", len(out))
	}
	v, ok := abi.ConvertType(out[0], new(big.Int)).(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("unexpected result type %T", out[0])
	}
	if v.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	return v, nil
}

var _ Client = (*EthClient)(nil)
