package crag

import "context"

// Verdict indicates the grounding decision for a synthesised answer.
type Verdict int

const (
	VerdictGrounded Verdict = iota
	VerdictUngrounded
)

// String returns the string representation of Verdict
func (v Verdict) String() string {
	switch v {
	case VerdictGrounded:
		return "grounded"
	case VerdictUngrounded:
		return "ungrounded"
	default:
		return "unknown"
	}
}

// Rewriter reformulates a query before report retrieval.
type Rewriter interface {
	Rewrite(ctx context.Context, query string) string
}
