package consensus

import "github.com/pkg/errors"

// Sentinel errors this sub-session can produce. pkg/ecdsasign re-exports
// ErrAccessDenied and ErrConsensusUnreachable under its own error-kind names
// (spec.md §7) rather than mapping them, since ACL-admission and quorum-loss
// are genuinely this package's concern; the others it maps to its own kinds.
var (
	ErrAccessDenied         = errors.New("consensus: access denied")
	ErrConsensusUnreachable = errors.New("consensus: quorum unreachable")
	ErrInvalidState         = errors.New("consensus: invalid state for request")
	ErrTooEarly             = errors.New("consensus: too early for request")
	ErrNotMaster            = errors.New("consensus: operation is master-only")
	ErrUnknownNode          = errors.New("consensus: node not in consensus group")
	ErrDuplicateResponse    = errors.New("consensus: duplicate response from node")
)
