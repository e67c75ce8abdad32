package domain

// Step identifies which frame screen an interaction was posted to.
type Step string

const (
	StepHome    Step = "home"
	StepAd      Step = "ad"
	StepCoupon  Step = "coupon"
	StepFinish  Step = "finish"
	StepSoldOut Step = "sold-out"
)

// String returns the string representation of Step.
func (s Step) String() string {
	return string(s)
}

// IsValid checks if the step is a known value.
func (s Step) IsValid() bool {
	switch s {
	case StepHome, StepAd, StepCoupon, StepFinish, StepSoldOut:
		return true
	}
	return false
}

// Interaction is the inbound frame event forwarded by the transport.
// Nothing in it is trusted beyond routing; the engine re-reads chain state.
type Interaction struct {
	Step           Step
	CallerSocialID uint64 // 0 when the request is anonymous (initial GET)
	ButtonIndex    int
	TextInput      string
	// ConnectedAddress is the wallet address reported on transaction frames.
	ConnectedAddress string
}

// Identity is what the engine resolves into a wallet address.
type Identity struct {
	SocialID     uint64
	TypedAddress string // optional address typed into the frame's text input
}

// Identity returns the caller identity carried by the interaction.
func (i Interaction) Identity() Identity {
	return Identity{SocialID: i.CallerSocialID, TypedAddress: i.TextInput}
}
