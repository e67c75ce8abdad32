package engine

import (
	"math/big"

	"github.com/shopspring/decimal"

	"hat-store/internal/domain"
)

// etherDecimals is the number of wei decimals in one ether.
const etherDecimals = 18

// Price amounts in wei.
var (
	// FullPriceWei is 0.005 ETH.
	FullPriceWei = big.NewInt(5_000_000_000_000_000)

	// DiscountedPriceWei is 0.0025 ETH.
	DiscountedPriceWei = big.NewInt(2_500_000_000_000_000)
)

// HolderPolicy decides what a caller who already holds a hat gets on the
// discount path.
type HolderPolicy string

const (
	// HolderKeepsDiscount offers already-holders the discounted purchase
	// without a second sponsored mint.
	HolderKeepsDiscount HolderPolicy = "keeps_discount"
)

// ActiveHolderPolicy is the single holder policy in force.
const ActiveHolderPolicy = HolderKeepsDiscount

// PriceFor maps an eligibility to its purchase price. It has no hidden state.
func PriceFor(e domain.Eligibility) domain.Price {
	if discounted(e) {
		return domain.Price{Tier: domain.PriceDiscounted, Wei: new(big.Int).Set(DiscountedPriceWei)}
	}
	return domain.Price{Tier: domain.PriceFull, Wei: new(big.Int).Set(FullPriceWei)}
}

// PriceForTier returns the price of a tier.
func PriceForTier(tier domain.PriceTier) domain.Price {
	if tier == domain.PriceDiscounted {
		return PriceFor(domain.EligibleForMint)
	}
	return PriceFor(domain.IneligibleNoAddress)
}

func discounted(e domain.Eligibility) bool {
	switch e {
	case domain.EligibleForMint:
		return true
	case domain.AlreadyHolder:
		return ActiveHolderPolicy == HolderKeepsDiscount
	}
	return false
}

// FormatEther renders a wei amount as a trimmed ether string, e.g. "0.0025".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -etherDecimals).String()
}
