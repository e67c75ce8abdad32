// Package engine decides which storefront screen a caller sees, what a
// purchase costs, and whether a sponsored discount mint is sent.
//
// Every decision re-reads chain state; nothing is cached across requests.
// Collaborator failures never abort a decision: they degrade it to an
// explicit unavailable state carrying a typed *domain.Failure.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"hat-store/internal/chain"
	"hat-store/internal/domain"
	"hat-store/internal/identity"
	"hat-store/internal/observability"
)

// Default timeouts.
const (
	DefaultReadTimeout = 5 * time.Second
	DefaultMintTimeout = 60 * time.Second
)

// errNoValue is reported when a collaborator returns neither a value nor an error.
var errNoValue = errors.New("empty result")

// Engine is the eligibility and pricing engine.
type Engine struct {
	chain       chain.Client
	resolver    identity.Resolver
	readTimeout time.Duration
	mintTimeout time.Duration
	logger      *zap.Logger
}

// Options contains configuration for creating an Engine.
type Options struct {
	Chain       chain.Client
	Resolver    identity.Resolver
	ReadTimeout time.Duration // Default: 5s per chain read or identity lookup
	MintTimeout time.Duration // Default: 60s for submit plus receipt
	Logger      *zap.Logger
}

// New creates a new engine.
func New(opts Options) *Engine {
	readTimeout := opts.ReadTimeout
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}

	mintTimeout := opts.MintTimeout
	if mintTimeout == 0 {
		mintTimeout = DefaultMintTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		chain:       opts.Chain,
		resolver:    opts.Resolver,
		readTimeout: readTimeout,
		mintTimeout: mintTimeout,
		logger:      logger,
	}
}

// DecideHomeScreen reads the remaining supply and picks the home screen.
// A failed read yields HomeUnavailable; no purchase is offered on it.
func (e *Engine) DecideHomeScreen(ctx context.Context) domain.HomeDecision {
	supply, failure := e.readSupply(ctx)
	if failure != nil {
		observability.RecordDecision("home", string(domain.HomeUnavailable))
		return domain.HomeDecision{Screen: domain.HomeUnavailable, Failure: failure}
	}

	screen := domain.HomeAvailable
	if supply.Sign() == 0 {
		screen = domain.HomeSoldOut
	}
	observability.RecordDecision("home", string(screen))
	return domain.HomeDecision{Screen: screen, Supply: supply}
}

// DecideDiscountEligibility resolves the caller's address and classifies it.
//
// Order: address resolution, supply, balance. A caller with no address is
// never read from chain.
func (e *Engine) DecideDiscountEligibility(ctx context.Context, id domain.Identity) domain.EligibilityDecision {
	d := e.decideDiscountEligibility(ctx, id)
	observability.RecordDecision("eligibility", d.Eligibility.String())
	return d
}

func (e *Engine) decideDiscountEligibility(ctx context.Context, id domain.Identity) domain.EligibilityDecision {
	addr, found, failure := e.resolveAddress(ctx, id)
	if failure != nil {
		return domain.EligibilityDecision{Eligibility: domain.EligibilityUnavailable, Failure: failure}
	}
	if !found {
		return domain.EligibilityDecision{Eligibility: domain.IneligibleNoAddress}
	}

	d := domain.EligibilityDecision{Address: addr, HasAddress: true}

	supply, failure := e.readSupply(ctx)
	if failure != nil {
		d.Eligibility = domain.EligibilityUnavailable
		d.Failure = failure
		return d
	}
	d.Supply = supply
	if supply.Sign() == 0 {
		d.Eligibility = domain.SupplyExhausted
		return d
	}

	balance, failure := e.readBalance(ctx, addr)
	if failure != nil {
		d.Eligibility = domain.EligibilityUnavailable
		d.Failure = failure
		return d
	}
	d.Balance = balance
	if balance.Sign() > 0 {
		d.Eligibility = domain.AlreadyHolder
		return d
	}

	d.Eligibility = domain.EligibleForMint
	return d
}

// PerformGatedMint sends the sponsored mint iff the decision is
// EligibleForMint, then waits for its receipt. It never retries and never
// rolls back; the caller's purchase proceeds regardless of the outcome.
//
// The mint is bounded by the mint timeout but detached from ctx
// cancellation, so an abandoned request still observes its mint's result.
func (e *Engine) PerformGatedMint(ctx context.Context, d domain.EligibilityDecision) domain.MintOutcome {
	if d.Eligibility != domain.EligibleForMint || !d.HasAddress {
		observability.RecordMintOutcome(string(domain.MintSkipped))
		return domain.MintOutcome{Status: domain.MintSkipped}
	}

	outcome := e.mint(ctx, d.Address)
	observability.RecordMintOutcome(string(outcome.Status))
	return outcome
}

func (e *Engine) mint(ctx context.Context, recipient common.Address) domain.MintOutcome {
	mintCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.mintTimeout)
	defer cancel()

	txHash, err := e.chain.SubmitMint(mintCtx, recipient)
	if err != nil {
		f := e.fail(domain.SubmitFailure, "mint", err)
		return domain.MintOutcome{Status: domain.MintFailed, Failure: f}
	}

	receipt, err := e.chain.WaitForReceipt(mintCtx, txHash)
	if err != nil {
		kind := domain.ReceiptFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.ReceiptTimeout
		}
		f := e.fail(kind, "waitForReceipt", err)
		return domain.MintOutcome{Status: domain.MintFailed, TxHash: txHash, Failure: f}
	}
	if !receipt.Succeeded() {
		f := e.fail(domain.ReceiptFailure, "waitForReceipt",
			fmt.Errorf("transaction %s reverted with status %d", txHash.Hex(), receipt.Status))
		return domain.MintOutcome{Status: domain.MintFailed, TxHash: txHash, Failure: f}
	}

	e.logger.Info("sponsored mint confirmed",
		zap.String("recipient", recipient.Hex()),
		zap.String("tx", txHash.Hex()),
	)
	return domain.MintOutcome{Status: domain.MintSubmitted, TxHash: txHash}
}

// resolveAddress prefers a well-formed typed address, then the identity service.
func (e *Engine) resolveAddress(ctx context.Context, id domain.Identity) (common.Address, bool, *domain.Failure) {
	typed := strings.TrimSpace(id.TypedAddress)
	if common.IsHexAddress(typed) {
		addr := common.HexToAddress(typed)
		if addr != (common.Address{}) {
			return addr, true, nil
		}
	}

	if id.SocialID == 0 || e.resolver == nil {
		return common.Address{}, false, nil
	}

	readCtx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()

	addr, found, err := e.resolver.ResolveAddress(readCtx, id.SocialID)
	if err != nil {
		return common.Address{}, false, e.fail(domain.ResolutionFailure, "resolveAddress", err)
	}
	if !found || addr == (common.Address{}) {
		return common.Address{}, false, nil
	}
	return addr, true, nil
}

func (e *Engine) readSupply(ctx context.Context) (*big.Int, *domain.Failure) {
	readCtx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()

	supply, err := e.chain.TotalSupply(readCtx)
	if err = checkAmount(supply, err); err != nil {
		return nil, e.fail(domain.ReadFailure, "totalSupply", err)
	}
	return supply, nil
}

func (e *Engine) readBalance(ctx context.Context, owner common.Address) (*big.Int, *domain.Failure) {
	readCtx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()

	balance, err := e.chain.BalanceOf(readCtx, owner)
	if err = checkAmount(balance, err); err != nil {
		return nil, e.fail(domain.ReadFailure, "balanceOf", err)
	}
	return balance, nil
}

// checkAmount rejects missing and negative reads.
func checkAmount(v *big.Int, err error) error {
	if err != nil {
		return err
	}
	if v == nil {
		return errNoValue
	}
	if v.Sign() < 0 {
		return chain.ErrNegativeAmount
	}
	return nil
}

// fail logs and counts a caught collaborator failure.
func (e *Engine) fail(kind domain.FailureKind, op string, err error) *domain.Failure {
	f := domain.NewFailure(kind, op, err)
	e.logger.Warn("collaborator call failed",
		zap.String("kind", string(kind)),
		zap.String("op", op),
		zap.Error(err),
	)
	observability.RecordFailure(string(kind), op)
	return f
}
