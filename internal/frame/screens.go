package frame

import (
	"fmt"

	"hat-store/internal/domain"
	"hat-store/internal/engine"
)

// Storefront copy and artwork.
const (
	Title = "Pinta Hat Store"

	ImageHome    = "https://dweb.mypinata.cloud/ipfs/QmeC7uQZqkjmc1T6sufzbJWQpoeoYjQPxCXKUSoDrXfQFy"
	ImageAd      = "https://dweb.mypinata.cloud/ipfs/QmeUmBtAMBfwcFRLdoaCVJUNSXeAPzEy3dDGomL32X8HuP"
	ImageFinish  = "https://dweb.mypinata.cloud/ipfs/QmZPysm8ZiR9PaNxNGQvqdT2gBjdYsjNskDkZ1vkVs3Tju"
	ImageSoldOut = "https://dweb.mypinata.cloud/ipfs/QmeeXny8775RQBZDhSppkRN15zn5nFjQUKeKAvYvdNx986"

	ChannelURL = "https://warpcast.com/~/channel/pinata"

	AddressPlaceholder = "Wallet Address (not ens)"
)

// Frame routes, relative to the mount point.
const (
	RouteHome        = "/"
	RouteAd          = "/ad"
	RouteCoupon      = "/coupon"
	RouteFinish      = "/finish"
	RouteSoldOut     = "/sold-out"
	RouteBuy         = "/buy"
	RouteBuyDiscount = "/buy-discount"
)

// buyLabel renders the purchase button label for a tier.
func buyLabel(tier domain.PriceTier) string {
	return fmt.Sprintf("Buy for %s ETH", engine.FormatEther(engine.PriceForTier(tier).Wei))
}

// HomeScreen renders the landing frame.
func HomeScreen(d domain.HomeDecision) domain.RenderPayload {
	switch d.Screen {
	case domain.HomeAvailable:
		return domain.RenderPayload{
			Branch:       domain.BranchBuyFullPrice,
			ImageRef:     ImageHome,
			ActionTarget: RouteFinish,
			Intents: []domain.Intent{
				{Kind: domain.IntentTransaction, Label: buyLabel(domain.PriceFull), Target: RouteBuy},
				{Kind: domain.IntentButton, Label: "Watch ad for 1/2 off", Target: RouteAd},
			},
		}
	case domain.HomeSoldOut:
		return domain.RenderPayload{
			Branch:       domain.BranchSoldOut,
			ImageRef:     ImageHome,
			ActionTarget: RouteSoldOut,
			Intents: []domain.Intent{
				{Kind: domain.IntentButton, Label: "Sold out", Target: RouteSoldOut},
			},
		}
	default:
		return UnavailableScreen(RouteHome)
	}
}

// AdScreen renders the ad frame that asks for a wallet address.
func AdScreen(d domain.HomeDecision) domain.RenderPayload {
	switch d.Screen {
	case domain.HomeAvailable:
		return domain.RenderPayload{
			Branch:       domain.BranchAd,
			ImageRef:     ImageAd,
			ActionTarget: RouteCoupon,
			TextInput:    AddressPlaceholder,
			Intents: []domain.Intent{
				{Kind: domain.IntentButton, Label: "Receive Coupon", Target: RouteCoupon},
			},
		}
	case domain.HomeSoldOut:
		return SoldOutScreen()
	default:
		return UnavailableScreen(RouteAd)
	}
}

// CouponScreen renders the result of the discount path.
// A failed sponsored mint still offers the discounted purchase.
func CouponScreen(d domain.EligibilityDecision) domain.RenderPayload {
	switch d.Eligibility {
	case domain.EligibleForMint, domain.AlreadyHolder:
		return domain.RenderPayload{
			Branch:       domain.BranchBuyDiscounted,
			ImageRef:     ImageAd,
			ActionTarget: RouteFinish,
			Intents: []domain.Intent{
				{Kind: domain.IntentTransaction, Label: buyLabel(engine.PriceFor(d.Eligibility).Tier), Target: RouteBuyDiscount},
			},
		}
	case domain.IneligibleNoAddress:
		return domain.RenderPayload{
			Branch:       domain.BranchInvalidAddress,
			ImageRef:     ImageAd,
			ActionTarget: RouteFinish,
			TextInput:    AddressPlaceholder,
			Intents: []domain.Intent{
				{Kind: domain.IntentButton, Label: "No address connected, try again", Target: RouteCoupon},
				{Kind: domain.IntentTransaction, Label: buyLabel(domain.PriceFull), Target: RouteBuy},
			},
		}
	case domain.SupplyExhausted:
		return SoldOutScreen()
	default:
		return UnavailableScreen(RouteAd)
	}
}

// FinishScreen renders the thank-you frame.
func FinishScreen() domain.RenderPayload {
	return domain.RenderPayload{
		Branch:   domain.BranchFinish,
		ImageRef: ImageFinish,
		Intents: []domain.Intent{
			{Kind: domain.IntentLink, Label: "Join the Pinata Channel", Target: ChannelURL},
		},
	}
}

// SoldOutScreen renders the sold-out frame.
func SoldOutScreen() domain.RenderPayload {
	return domain.RenderPayload{
		Branch:   domain.BranchSoldOut,
		ImageRef: ImageSoldOut,
		Intents: []domain.Intent{
			{Kind: domain.IntentLink, Label: "Join the Pinata Channel", Target: ChannelURL},
		},
	}
}

// UnavailableScreen renders a retry frame that posts back to route.
func UnavailableScreen(route string) domain.RenderPayload {
	return domain.RenderPayload{
		Branch:       domain.BranchUnavailable,
		ImageRef:     ImageHome,
		ActionTarget: route,
		Intents: []domain.Intent{
			{Kind: domain.IntentButton, Label: "Store unavailable, retry", Target: route},
		},
	}
}
