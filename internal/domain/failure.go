package domain

import "fmt"

// FailureKind classifies a failed collaborator call.
type FailureKind string

const (
	ReadFailure       FailureKind = "read_failure"
	ResolutionFailure FailureKind = "resolution_failure"
	SubmitFailure     FailureKind = "submit_failure"
	ReceiptTimeout    FailureKind = "receipt_timeout"
	ReceiptFailure    FailureKind = "receipt_failure"
)

// Failure is a typed collaborator failure threaded through decisions so
// callers can tell a degraded decision from a genuine one.
type Failure struct {
	Kind FailureKind
	Op   string // collaborator operation, e.g. "totalSupply"
	Err  error
}

// NewFailure creates a Failure.
func NewFailure(kind FailureKind, op string, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Kind, f.Op)
	}
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Op, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
