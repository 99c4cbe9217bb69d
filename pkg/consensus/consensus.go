// Package consensus implements the Consensus sub-session of spec.md §4.2:
// ACL-admission of a candidate participant set, followed by its second life
// as the transport for partial-signature job dissemination and collection.
// Grounded in the master/slave message-switch idiom of
// protocols/lss/dealer/dealer.go, generalized from key-generation rounds to
// this sub-session's two distinct phases.
package consensus

import (
	"github.com/pkg/errors"

	"github.com/luxfi/signsession/pkg/acl"
	"github.com/luxfi/signsession/pkg/party"
)

// State is the consensus sub-session's lifecycle (spec.md §4.2).
type State int

const (
	WaitingForInitialization State = iota
	EstablishingConsensus
	ConsensusEstablished
	WaitingForPartialResponses
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case WaitingForInitialization:
		return "WaitingForInitialization"
	case EstablishingConsensus:
		return "EstablishingConsensus"
	case ConsensusEstablished:
		return "ConsensusEstablished"
	case WaitingForPartialResponses:
		return "WaitingForPartialResponses"
	case Finished:
		return "Finished"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Initialize is the message that opens the ACL-admission round: the master
// broadcasts the candidate set it proposes.
type Initialize struct {
	Candidates party.IDSlice
}

// Confirm is each candidate's reply: whether its own local ACL check
// admitted it.
type Confirm struct {
	Admitted bool
}

// Job is disseminated by the master once the consensus group is known.
// Opaque to this package — it is whatever pkg/ecdsasign's partial-signing
// request carries.
type Job any

// JobResponse is a slave's reply to a disseminated Job. Equally opaque.
type JobResponse any

// Session is one run of ACL-admission plus (on the master) job
// dissemination/collection.
type Session struct {
	self         party.ID
	master       party.ID
	keyThreshold int // t; consensus requires 2t+1 admitted members
	acl          acl.Checker
	sessionID    []byte

	state State
	err   error

	candidates party.IDSlice
	responded  map[party.ID]bool
	admitted   map[party.ID]bool

	consensusGroup party.IDSlice
	active         map[party.ID]bool // consensusGroup minus nodes dropped by OnNodeError

	pendingJob    Job
	jobResponses  map[party.ID]JobResponse
}

// New creates a consensus sub-session. self is this node; master is the
// session's master (possibly self).
func New(self, master party.ID, keyThreshold int, checker acl.Checker, sessionID []byte) *Session {
	return &Session{
		self:         self,
		master:       master,
		keyThreshold: keyThreshold,
		acl:          checker,
		sessionID:    sessionID,
		state:        WaitingForInitialization,
		responded:    make(map[party.ID]bool),
		admitted:     make(map[party.ID]bool),
		active:       make(map[party.ID]bool),
		jobResponses: make(map[party.ID]JobResponse),
	}
}

// IsMaster reports whether this node drives the consensus group selection
// and job dissemination.
func (s *Session) IsMaster() bool { return s.self == s.master }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Err returns the terminal error once State()==Failed.
func (s *Session) Err() error { return s.err }

// ConsensusGroup returns the selected 2t+1-sized group. Valid only once
// ConsensusEstablished or later.
func (s *Session) ConsensusGroup() party.IDSlice { return s.consensusGroup }

// Active returns the consensus group minus any node dropped by OnNodeError
// — the set a completion broadcast should still reach.
func (s *Session) Active() party.IDSlice {
	out := make(party.IDSlice, 0, len(s.active))
	for id := range s.active {
		out = append(out, id)
	}
	return out.Sort()
}

// requiredGroupSize is 2t+1.
func (s *Session) requiredGroupSize() int { return 2*s.keyThreshold + 1 }

// Initialize opens the ACL-admission round over candidates. Master only.
// Returns the Initialize message to broadcast to every candidate but self.
func (s *Session) Initialize(candidates party.IDSlice) (Initialize, error) {
	if !s.IsMaster() {
		return Initialize{}, ErrNotMaster
	}
	if s.state != WaitingForInitialization {
		return Initialize{}, ErrInvalidState
	}
	s.candidates = candidates.Copy().Sort()
	s.state = EstablishingConsensus

	admitted, err := s.acl.Check(s.self, s.sessionID)
	if err != nil {
		return Initialize{}, errors.Wrap(err, "consensus: self ACL check")
	}
	s.recordConfirm(s.self, admitted)

	return Initialize{Candidates: s.candidates}, nil
}

// OnInitialize is the slave-side mirror: upon receiving the master's
// candidate set, it runs its own local ACL self-check and returns the
// Confirm message to send back.
func (s *Session) OnInitialize(from party.ID, msg Initialize) (Confirm, error) {
	if s.IsMaster() {
		return Confirm{}, errors.New("consensus: master does not receive its own Initialize")
	}
	if from != s.master {
		return Confirm{}, errors.New("consensus: Initialize from non-master node")
	}
	if s.state != WaitingForInitialization {
		return Confirm{}, ErrInvalidState
	}
	s.candidates = msg.Candidates.Copy().Sort()
	s.state = EstablishingConsensus

	admitted, err := s.acl.Check(s.self, s.sessionID)
	if err != nil {
		return Confirm{}, errors.Wrap(err, "consensus: self ACL check")
	}
	return Confirm{Admitted: admitted}, nil
}

// OnConfirm records a candidate's ACL-check reply. Master only. Returns
// whether the consensus group was just established.
func (s *Session) OnConfirm(from party.ID, msg Confirm) (bool, error) {
	if !s.IsMaster() {
		return false, ErrNotMaster
	}
	if s.state != EstablishingConsensus {
		return false, ErrInvalidState
	}
	if !s.candidates.Contains(from) {
		return false, ErrUnknownNode
	}
	if s.responded[from] {
		return false, errors.New("consensus: duplicate Confirm from node")
	}
	s.recordConfirm(from, msg.Admitted)
	return s.checkConsensus(), nil
}

func (s *Session) recordConfirm(from party.ID, admitted bool) {
	s.responded[from] = true
	if admitted {
		s.admitted[from] = true
	}
}

// checkConsensus decides, from the master's accumulated Confirm replies,
// whether the group is now established, unreachable, or still pending.
func (s *Session) checkConsensus() bool {
	need := s.requiredGroupSize()

	admittedIDs := make(party.IDSlice, 0, len(s.admitted))
	for id := range s.admitted {
		admittedIDs = append(admittedIDs, id)
	}
	admittedIDs.Sort()

	if len(admittedIDs) >= need {
		s.consensusGroup = admittedIDs[:need]
		s.active = make(map[party.ID]bool, need)
		for _, id := range s.consensusGroup {
			s.active[id] = true
		}
		s.state = ConsensusEstablished
		return true
	}

	stillPending := len(s.candidates) - len(s.responded)
	if len(admittedIDs)+stillPending < need {
		s.state = Failed
		s.err = ErrAccessDenied
	}
	return false
}

// AdoptConsensusGroup lets a slave learn the established group from the
// first nonce-DKG Initialize message it observes (spec.md's "nodes map
// from the initialiser"), since only the master runs select_consensus_group
// directly. Idempotent.
func (s *Session) AdoptConsensusGroup(group party.IDSlice) {
	if s.state != EstablishingConsensus && s.state != WaitingForInitialization {
		return
	}
	s.consensusGroup = group.Copy().Sort()
	s.active = make(map[party.ID]bool, len(s.consensusGroup))
	for _, id := range s.consensusGroup {
		s.active[id] = true
	}
	s.state = ConsensusEstablished
}

// DisseminateJobs is master-only: it records the job being disseminated and
// transitions to WaitingForPartialResponses. The caller (pkg/ecdsasign) is
// responsible for actually transmitting job to every other consensus-group
// member over the cluster transport; this method only tracks local state.
func (s *Session) DisseminateJobs(job Job) error {
	if !s.IsMaster() {
		return ErrNotMaster
	}
	if s.state != ConsensusEstablished {
		return ErrInvalidState
	}
	s.pendingJob = job
	s.jobResponses = make(map[party.ID]JobResponse)
	s.state = WaitingForPartialResponses
	return nil
}

// OnJobRequest is the slave-side mirror: it records the job it was handed
// so a later inspection (e.g. logging) can see it, and moves this node's
// own view to WaitingForPartialResponses.
func (s *Session) OnJobRequest(from party.ID, job Job) error {
	if from != s.master {
		return errors.New("consensus: job request from non-master node")
	}
	if s.state != ConsensusEstablished {
		return ErrInvalidState
	}
	s.pendingJob = job
	s.state = WaitingForPartialResponses
	return nil
}

// PendingJob returns the job this node is currently working (master: the
// job it disseminated; slave: the job it was handed).
func (s *Session) PendingJob() Job { return s.pendingJob }

// OnJobResponse records one node's partial-signature response. Master
// only. Returns whether every still-active consensus-group member has now
// responded.
func (s *Session) OnJobResponse(from party.ID, resp JobResponse) (bool, error) {
	if !s.IsMaster() {
		return false, ErrNotMaster
	}
	if s.state != WaitingForPartialResponses {
		return false, ErrTooEarly
	}
	if !s.active[from] {
		return false, ErrUnknownNode
	}
	if _, dup := s.jobResponses[from]; dup {
		return false, ErrDuplicateResponse
	}
	s.jobResponses[from] = resp

	if len(s.jobResponses) >= len(s.active) {
		s.state = Finished
		return true, nil
	}
	return false, nil
}

// OnNodeError drops id from the active set (spec.md's Open Question:
// mid-dissemination node failures are treated as fatal to that node's
// participation, never retried). Returns true if this took the session to
// Failed. Before the consensus group is established there is no active set
// yet to shrink — a candidate dying pre-admission is handled by the
// ordinary ACL-admission accounting in checkConsensus, so this is a no-op.
func (s *Session) OnNodeError(id party.ID) bool {
	switch s.state {
	case ConsensusEstablished, WaitingForPartialResponses:
	default:
		return false
	}
	delete(s.active, id)
	delete(s.jobResponses, id)

	if len(s.active) < s.requiredGroupSize() {
		s.state = Failed
		s.err = ErrConsensusUnreachable
		return true
	}
	if s.state == WaitingForPartialResponses && len(s.jobResponses) >= len(s.active) {
		s.state = Finished
	}
	return false
}

// Result returns the collected job responses once Finished, or the
// terminal error once Failed.
func (s *Session) Result() (map[party.ID]JobResponse, error) {
	switch s.state {
	case Finished:
		return s.jobResponses, nil
	case Failed:
		return nil, s.err
	default:
		return nil, ErrTooEarly
	}
}
