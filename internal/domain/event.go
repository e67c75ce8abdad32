package domain

import "time"

// InteractionEvent is one analytics record for a frame interaction.
// Corresponds to the interaction_events table.
type InteractionEvent struct {
	EventID     string    // uuid, PK
	FrameID     string    // e.g. "hats-store"
	CustomID    string    // analytics label, e.g. "purchased"
	Route       string    // frame route that handled the request
	Branch      Branch    // display branch rendered
	SocialID    uint64    // 0 for anonymous requests
	ButtonIndex int       // 1-based button pressed, 0 when none
	OccurredAt  time.Time // UTC
}
