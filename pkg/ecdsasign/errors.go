package ecdsasign

import (
	"github.com/pkg/errors"

	"github.com/luxfi/signsession/pkg/consensus"
)

// Error kinds of spec.md §7. These are kinds, not exhaustive type names:
// callers compare with errors.Is. AccessDenied and ConsensusUnreachable are
// the consensus sub-session's own concern, so they're re-exported rather
// than re-declared.
var (
	ErrInvalidMessage        = errors.New("ecdsasign: invalid message")
	ErrInvalidStateForRequest = errors.New("ecdsasign: invalid state for request")
	ErrReplayProtection       = errors.New("ecdsasign: replay protection")
	ErrTooEarlyForRequest     = errors.New("ecdsasign: too early for request")
	ErrNodeDisconnected       = errors.New("ecdsasign: node disconnected")
	ErrAccessDenied           = consensus.ErrAccessDenied
	ErrConsensusUnreachable   = consensus.ErrConsensusUnreachable
	ErrKeyStorage             = errors.New("ecdsasign: key storage error")
	ErrIo                     = errors.New("ecdsasign: io error")
	ErrInternal               = errors.New("ecdsasign: internal invariant violation")
)
