// Package keyshare is the read-only key-share storage collaborator of
// spec.md §6, plus a trusted-dealer implementation used to issue shares for
// tests and the cmd/signsimd demo. Production deployments back Store with
// whatever persistent, access-controlled storage the cluster already uses;
// this package never claims to be that.
package keyshare

import (
	"crypto/rand"

	"github.com/pkg/errors"

	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/party"
	"github.com/luxfi/signsession/pkg/polynomial"
)

// Version identifies a specific generation of a key's shares, as produced
// by the (out-of-scope) key generation or resharing sub-sessions.
type Version [32]byte

// Share is exactly the shape spec.md §6 promises a lookup will yield.
type Share struct {
	Threshold              int
	IDNumbers              map[party.ID]curve.Scalar
	SecretShare            curve.Scalar
	PolynomialPublicValues []curve.Point
	PublicKey              curve.Point
}

// ErrNotFound is returned when no share exists for the requested
// (sessionID, version) pair.
var ErrNotFound = errors.New("keyshare: no share for requested version")

// Store is the read-only collaborator spec.md treats as out of scope.
type Store interface {
	Lookup(sessionID []byte, version Version) (*Share, error)
}

// NodeStore is the Store a single cluster node actually holds: it never
// sees any other node's SecretShare, matching spec.md invariant 5.
type NodeStore struct {
	shares map[Version]*Share
}

// NewNodeStore creates an empty store for one node; call Install to add a
// key-share version to it.
func NewNodeStore() *NodeStore {
	return &NodeStore{shares: make(map[Version]*Share)}
}

// Install records a key-share version as locally available.
func (s *NodeStore) Install(version Version, share *Share) {
	s.shares[version] = share
}

// Lookup implements Store.
func (s *NodeStore) Lookup(_ []byte, version Version) (*Share, error) {
	share, ok := s.shares[version]
	if !ok {
		return nil, ErrNotFound
	}
	return share, nil
}

// Has reports whether this node holds a share for version, without
// returning the secret material. The signing session itself decides
// admission (spec.md invariant 3) with Lookup, not Has.
func (s *NodeStore) Has(version Version) bool {
	_, ok := s.shares[version]
	return ok
}

// Dealer is a trusted-dealer key generator: it splits a fresh random
// signing key into Shamir shares for a fixed party set. It stands in for
// the out-of-scope DKG/persistent-storage collaborators in tests and the
// CLI demo, never in a production deployment.
type Dealer struct {
	group     curve.Curve
	threshold int
	parties   party.IDSlice
}

// NewDealer creates a dealer for a (threshold, parties) key.
func NewDealer(group curve.Curve, threshold int, parties party.IDSlice) *Dealer {
	return &Dealer{group: group, threshold: threshold, parties: parties.Copy()}
}

// Issue generates a fresh key and returns one Share per party plus the
// version identifying this generation.
func (d *Dealer) Issue() (Version, map[party.ID]*Share, error) {
	poly := polynomial.NewPolynomial(d.group, d.threshold-1, nil)
	commitments := poly.Commit()
	publicKey := poly.Constant().ActOnBase()

	idNumbers := make(map[party.ID]curve.Scalar, len(d.parties))
	for _, id := range d.parties {
		idNumbers[id] = id.Scalar(d.group)
	}

	var version Version
	if _, err := rand.Read(version[:]); err != nil {
		return Version{}, nil, errors.Wrap(err, "keyshare: generate version")
	}

	shares := make(map[party.ID]*Share, len(d.parties))
	for _, id := range d.parties {
		shares[id] = &Share{
			Threshold:              d.threshold,
			IDNumbers:              idNumbers,
			SecretShare:            poly.Evaluate(id.Scalar(d.group)),
			PolynomialPublicValues: commitments,
			PublicKey:              publicKey,
		}
	}
	return version, shares, nil
}
