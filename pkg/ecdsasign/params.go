package ecdsasign

import (
	"github.com/rs/zerolog"

	"github.com/luxfi/signsession/pkg/acl"
	"github.com/luxfi/signsession/pkg/cluster"
	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/keyshare"
	"github.com/luxfi/signsession/pkg/party"
)

// Params is everything a Session Controller needs from its collaborators,
// constructed by the (out-of-scope) CLI/RPC layer.
type Params struct {
	SessionID []byte
	Self      party.ID
	Master    party.ID
	Threshold int // t, the signing key's Shamir threshold
	AccessKey []byte
	Nonce     uint64 // the session's fixed session_nonce

	Group    curve.Curve
	Cluster  cluster.Transport
	KeyStore keyshare.Store
	ACL      acl.Checker
	Logger   zerolog.Logger
}

// State is the Session Controller's outer lifecycle (spec.md §4.6).
type State int

const (
	ConsensusEstablishing State = iota
	NoncesGenerating
	WaitingForInversedNonceShares
	SignatureComputing
	Finished
)

func (s State) String() string {
	switch s {
	case ConsensusEstablishing:
		return "ConsensusEstablishing"
	case NoncesGenerating:
		return "NoncesGenerating"
	case WaitingForInversedNonceShares:
		return "WaitingForInversedNonceShares"
	case SignatureComputing:
		return "SignatureComputing"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

type delegationRole int

const (
	noDelegation delegationRole = iota
	delegatedTo                 // this node forwarded the request elsewhere
	delegatedFrom               // this node is signing on behalf of peer
)

type delegationStatus struct {
	role delegationRole
	peer party.ID
}

// Result is the Session Controller's terminal value.
type Result struct {
	Signature curve.Signature
	Err       error
}
