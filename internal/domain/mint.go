package domain

import "github.com/ethereum/go-ethereum/common"

// MintStatus is the outcome of a gated mint attempt.
type MintStatus string

const (
	MintSubmitted MintStatus = "submitted"
	MintSkipped   MintStatus = "skipped"
	MintFailed    MintStatus = "failed"

	// MintThrottled means the caller was eligible but the transport's mint
	// limit held the mint back.
	MintThrottled MintStatus = "throttled"
)

// MintOutcome describes what happened to a gated mint.
// TxHash is set whenever a transaction reached the node, even if the
// receipt later failed or timed out.
type MintOutcome struct {
	Status  MintStatus
	TxHash  common.Hash
	Failure *Failure
}
