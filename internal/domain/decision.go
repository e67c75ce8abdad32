package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// HomeScreen is the outcome of the supply check on the home step.
type HomeScreen string

const (
	HomeAvailable   HomeScreen = "available"
	HomeSoldOut     HomeScreen = "sold_out"
	HomeUnavailable HomeScreen = "unavailable"
)

// HomeDecision is the result of deciding the home screen.
type HomeDecision struct {
	Screen  HomeScreen
	Supply  *big.Int // nil when the read failed
	Failure *Failure // set only when Screen == HomeUnavailable
}

// Eligibility is the discount eligibility of a caller.
type Eligibility string

const (
	IneligibleNoAddress    Eligibility = "ineligible_no_address"
	EligibleForMint        Eligibility = "eligible_for_mint"
	AlreadyHolder          Eligibility = "already_holder"
	SupplyExhausted        Eligibility = "supply_exhausted"
	EligibilityUnavailable Eligibility = "unavailable"
)

// String returns the string representation of Eligibility.
func (e Eligibility) String() string {
	return string(e)
}

// EligibilityDecision is the result of deciding discount eligibility.
// Address, Balance and Supply are populated as far as the decision got.
type EligibilityDecision struct {
	Eligibility Eligibility
	Address     common.Address
	HasAddress  bool
	Balance     *big.Int
	Supply      *big.Int
	Failure     *Failure // set only when Eligibility == EligibilityUnavailable
}

// PriceTier is one of the two accepted purchase prices.
type PriceTier string

const (
	PriceFull       PriceTier = "full"
	PriceDiscounted PriceTier = "discounted"
)

// Price is a tier together with its amount in wei.
type Price struct {
	Tier PriceTier
	Wei  *big.Int
}
