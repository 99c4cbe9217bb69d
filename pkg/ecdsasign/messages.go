package ecdsasign

import (
	"github.com/luxfi/signsession/pkg/party"
)

// Wire payloads for the twelve message variants of pkg/wireenv. None of
// these carry curve.Scalar/curve.Point or keyshare.Version directly — those
// are either interfaces backed by unexported concrete types or fixed-size
// arrays cbor would rather not guess the shape of — so every such value
// crosses the wire as a plain byte slice and is reconstituted locally.

type consensusInitializePayload struct {
	RequesterSignature []byte
	Version            []byte
	MessageHash        []byte
	Candidates         party.IDSlice
}

type consensusConfirmPayload struct {
	Admitted bool
}

// dkgMessageKind distinguishes the two kinds of traffic the three DKG
// variants carry: a Feldman-commitment broadcast and a point-to-point
// share. Both are modeled as one payload shape so a node that hasn't yet
// bootstrapped its local DKG mirror can do so regardless of which kind
// happens to arrive first (spec.md §5's interleaving tolerance).
type dkgMessageKind uint8

const (
	dkgKindCommitment dkgMessageKind = iota
	dkgKindShare
)

type dkgMessagePayload struct {
	Kind        dkgMessageKind
	Members     party.IDSlice // always present; cheap, and lets a late bootstrap happen off any message from the master
	Commitments [][]byte      // set iff Kind == dkgKindCommitment
	Share       []byte        // set iff Kind == dkgKindShare
}

type inversedNonceCoeffSharePayload struct {
	Value []byte
}

type requestPartialSignaturePayload struct {
	RequestID     uint64
	Iota          []byte
	MessageHash   []byte
	OtherNodesIDs party.IDSlice
}

type partialSignaturePayload struct {
	RequestID uint64
	Share     []byte
}

type signingSessionCompletedPayload struct{}

type signingSessionErrorPayload struct {
	Kind    string
	Message string
}

type delegationPayload struct {
	RequesterSignature []byte
	Version            []byte
	MessageHash        []byte
}

type delegationCompletedPayload struct {
	R []byte
	S []byte
	V byte
}
