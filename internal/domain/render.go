package domain

// IntentKind is the kind of affordance a frame button represents.
type IntentKind string

const (
	IntentButton      IntentKind = "button"
	IntentLink        IntentKind = "link"
	IntentTransaction IntentKind = "transactionButton"
)

// Intent is a single renderable affordance offered for the next step.
type Intent struct {
	Kind   IntentKind
	Label  string
	Target string // route for buttons/transactions, absolute URL for links
}

// Branch identifies which display branch produced a payload.
type Branch string

const (
	BranchBuyFullPrice   Branch = "buy-full-price"
	BranchBuyDiscounted  Branch = "buy-discounted"
	BranchSoldOut        Branch = "sold-out"
	BranchInvalidAddress Branch = "invalid-address"
	BranchUnavailable    Branch = "unavailable"
	BranchAd             Branch = "ad"
	BranchFinish         Branch = "finish"
)

// RenderPayload is the purchase intent handed to the transport for rendering.
// It is produced fresh per request and has no identity beyond its contents.
type RenderPayload struct {
	Branch       Branch
	ImageRef     string
	ActionTarget string // empty when the frame posts back to itself
	TextInput    string // placeholder; empty when no input is shown
	Intents      []Intent
}

// HasTransaction reports whether any intent triggers a wallet transaction.
func (p RenderPayload) HasTransaction() bool {
	for _, in := range p.Intents {
		if in.Kind == IntentTransaction {
			return true
		}
	}
	return false
}
