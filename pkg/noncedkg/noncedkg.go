// Package noncedkg implements the Nonce DKG sub-session of spec.md §4.3: a
// Feldman-VSS distributed key generation run three times in parallel by the
// Session Controller (for k, u and z), always over the same 2t+1-sized
// consensus group and always at polynomial degree 2t.
package noncedkg

import (
	"github.com/pkg/errors"

	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/party"
	"github.com/luxfi/signsession/pkg/polynomial"
)

// State is this sub-session's lifecycle, independent of the outer
// Session Controller's state (spec.md §4.3: "all three finish
// independently").
type State int

const (
	Created State = iota
	Initialized
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Initialized:
		return "Initialized"
	case Finished:
		return "Finished"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Initialize is the message that seeds every member's local mirror of this
// DKG: the group membership it runs over.
type Initialize struct {
	Members party.IDSlice
}

// Commitment is a member's Feldman commitments to the coefficients of its
// private degree-`degree` polynomial.
type Commitment struct {
	Commitments []curve.Point
}

// Share is a member's private evaluation of its polynomial at the
// recipient's x-coordinate. Never broadcast — sent point-to-point.
type Share struct {
	Value curve.Scalar
}

// Session is one run of the Nonce DKG (one of k, u, or z).
type Session struct {
	group     curve.Curve
	self      party.ID
	degree    int
	zeroShare bool

	state   State
	members party.IDSlice

	myPoly *polynomial.Polynomial

	commitments map[party.ID]Commitment
	shares      map[party.ID]Share

	combinedShare curve.Scalar
	jointPublic   curve.Point
}

// New creates an uninitialized DKG session. zeroShare forces this run's
// polynomial constant term to the additive identity (the inv_zero variant);
// otherwise the constant term is freshly random (sig_nonce/inv_nonce).
func New(group curve.Curve, self party.ID, degree int, zeroShare bool) *Session {
	return &Session{
		group:       group,
		self:        self,
		degree:      degree,
		zeroShare:   zeroShare,
		state:       Created,
		commitments: make(map[party.ID]Commitment),
		shares:      make(map[party.ID]Share),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Finished reports whether this DKG has produced a joint public key and a
// combined local share.
func (s *Session) Finished() bool { return s.state == Finished }

// JointPublic returns this DKG's joint public point. Valid only once
// Finished.
func (s *Session) JointPublic() curve.Point { return s.jointPublic }

// MyShare returns this node's combined share of the DKG's secret. Valid
// only once Finished.
func (s *Session) MyShare() curve.Scalar { return s.combinedShare }

// Initialize is called exactly once per node: the master calls it
// directly; a slave calls it lazily, the first time it observes a message
// from the master for this DKG (spec.md §4.1's "nonce-generation
// messages" handler). It generates this node's own polynomial and returns
// the commitment to broadcast plus the per-recipient shares to send
// point-to-point (including one addressed to self).
func (s *Session) Initialize(members party.IDSlice) (Commitment, map[party.ID]Share, error) {
	if s.state != Created {
		return Commitment{}, nil, errors.New("noncedkg: already initialized")
	}
	if !members.Contains(s.self) {
		return Commitment{}, nil, errors.New("noncedkg: self not a member of this DKG's group")
	}

	var constant curve.Scalar
	if s.zeroShare {
		constant = s.group.NewScalar() // additive identity
	}
	s.myPoly = polynomial.NewPolynomial(s.group, s.degree, constant)
	s.members = members.Copy().Sort()
	s.state = Initialized

	commitment := Commitment{Commitments: s.myPoly.Commit()}
	shares := make(map[party.ID]Share, len(s.members))
	for _, id := range s.members {
		shares[id] = Share{Value: s.myPoly.Evaluate(id.Scalar(s.group))}
	}

	// We are always our own first commitment.
	s.commitments[s.self] = commitment

	return commitment, shares, nil
}

// HandleCommitment records a member's commitments. Returns whether the DKG
// just finished as a result.
func (s *Session) HandleCommitment(from party.ID, msg Commitment) (bool, error) {
	if s.state == Failed {
		return false, errors.New("noncedkg: session failed")
	}
	if len(msg.Commitments) != s.degree+1 {
		return false, errors.Errorf("noncedkg: expected %d commitments from %v, got %d", s.degree+1, from, len(msg.Commitments))
	}
	s.commitments[from] = msg
	return s.tryFinish()
}

// HandleShare records the point-to-point share this node received from
// from. Returns whether the DKG just finished as a result.
func (s *Session) HandleShare(from party.ID, msg Share) (bool, error) {
	if s.state == Failed {
		return false, errors.New("noncedkg: session failed")
	}
	s.shares[from] = msg
	return s.tryFinish()
}

// tryFinish verifies and combines once every member's commitment and share
// have both arrived. It is safe to call repeatedly.
func (s *Session) tryFinish() (bool, error) {
	if s.state != Initialized {
		return false, nil
	}
	if len(s.members) == 0 {
		return false, nil
	}
	for _, id := range s.members {
		if _, ok := s.commitments[id]; !ok {
			return false, nil
		}
		if _, ok := s.shares[id]; !ok {
			return false, nil
		}
	}

	combined := s.group.NewScalar()
	jointPublic := s.group.NewPoint()
	for _, id := range s.members {
		share := s.shares[id]
		if !polynomial.VerifyShare(s.group, s.commitments[id].Commitments, s.self, share.Value) {
			s.state = Failed
			return false, errors.Errorf("noncedkg: invalid share from %v", id)
		}
		combined = combined.Add(share.Value)
		jointPublic = jointPublic.Add(s.commitments[id].Commitments[0])
	}

	s.combinedShare = combined
	s.jointPublic = jointPublic
	s.state = Finished
	return true, nil
}
