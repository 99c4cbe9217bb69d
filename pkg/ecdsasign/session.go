// Package ecdsasign is the Session Controller: the outer state machine that
// weaves the consensus sub-session, the Nonce DKG trio, the
// inversion-coefficient round, and partial signing into one externally
// driven threshold ECDSA signing session (spec.md §4.1).
//
// A Session is a passive object whose public methods (ProcessMessage,
// Initialize, Delegate, ...) each hold a single coarse mutex for the
// lifetime of one call — matching
// spec.md §5's scheduling model. Nothing here performs cooperative
// suspension; Wait is the only blocking call, released by closing done.
package ecdsasign

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/luxfi/signsession/pkg/acl"
	"github.com/luxfi/signsession/pkg/cluster"
	"github.com/luxfi/signsession/pkg/consensus"
	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/keyshare"
	"github.com/luxfi/signsession/pkg/noncedkg"
	"github.com/luxfi/signsession/pkg/party"
	"github.com/luxfi/signsession/pkg/polynomial"
	"github.com/luxfi/signsession/pkg/wireenv"
)

// sessionCore is immutable after New: metadata, the access key, and the
// collaborators this session talks to. Never mutated, never locked.
type sessionCore struct {
	id        []byte
	self      party.ID
	master    party.ID
	threshold int
	accessKey []byte
	nonce     uint64

	group    curve.Curve
	cluster  cluster.Transport
	keyStore keyshare.Store
	acl      acl.Checker
	log      zerolog.Logger

	done chan struct{}
}

func (c *sessionCore) isMaster() bool { return c.self == c.master }

// dkgSlot is one of the three Nonce DKG runs this controller drives,
// dispatched generically through handleDKGMessage (spec.md §9's "single
// DKG driver parameterised by an envelope-mapper function").
type dkgSlot struct {
	variant   wireenv.MessageVariant
	zeroShare bool
	session   *noncedkg.Session
}

// sessionData is everything spec.md §3 calls mutable, guarded by mu.
type sessionData struct {
	mu sync.Mutex

	state State

	messageHash []byte
	version     keyshare.Version
	keyShare    *keyshare.Share

	consensusSession *consensus.Session

	sigNonce *dkgSlot
	invNonce *dkgSlot
	invZero  *dkgSlot
	noncesDone bool

	inversedShares map[party.ID]curve.Scalar
	iota           curve.Scalar

	requestID uint64

	delegation *delegationStatus

	result *Result
}

// Session is the public Session Controller (SessionImpl in spec.md's
// naming).
type Session struct {
	core *sessionCore
	data *sessionData
}

// New constructs a fresh session in ConsensusEstablishing. It takes no
// requester signature: the only requester signature this package handles is
// the one passed to Delegate, which it forwards without interpreting its
// bytes, and the consensus Initialize message is sent without one.
func New(p Params) *Session {
	core := &sessionCore{
		id:        p.SessionID,
		self:      p.Self,
		master:    p.Master,
		threshold: p.Threshold,
		accessKey: p.AccessKey,
		nonce:     p.Nonce,
		group:     p.Group,
		cluster:   p.Cluster,
		keyStore:  p.KeyStore,
		acl:       p.ACL,
		log:       p.Logger.With().Hex("session_id", p.SessionID).Uint32("self", uint32(p.Self)).Logger(),
		done:      make(chan struct{}),
	}

	data := &sessionData{
		state:            ConsensusEstablishing,
		consensusSession: consensus.New(p.Self, p.Master, p.Threshold, p.ACL, p.SessionID),
		sigNonce:         &dkgSlot{variant: wireenv.VariantSignatureNonceGen, zeroShare: false},
		invNonce:         &dkgSlot{variant: wireenv.VariantInversionNonceGen, zeroShare: false},
		invZero:          &dkgSlot{variant: wireenv.VariantInversionZeroGen, zeroShare: true},
		inversedShares:   make(map[party.ID]curve.Scalar),
	}

	return &Session{core: core, data: data}
}

func (s *Session) slots() [3]*dkgSlot {
	return [3]*dkgSlot{s.data.sigNonce, s.data.invNonce, s.data.invZero}
}

// State reports the controller's current outer state.
func (s *Session) State() State {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	return s.data.state
}

// Wait blocks until result is populated, returning the signature or the
// terminal error (spec.md §4.1). The signature is held by the master and by a
// delegating requester; a slave finished by the master's completion message,
// which carries no payload, returns a zero Signature and a nil error.
func (s *Session) Wait() (curve.Signature, error) {
	<-s.core.done
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	return s.data.result.Signature, s.data.result.Err
}

// finalize sets result exactly once and notifies Wait (spec.md invariant 2).
// Must be called with mu held.
func (s *Session) finalize(result Result) {
	if s.data.result != nil {
		return
	}
	s.data.result = &result
	s.data.state = Finished
	close(s.core.done)
}

// Initialize is master-only: it resolves the key-share version, computes
// the candidate participant set, and opens the consensus sub-session's
// ACL-admission round.
func (s *Session) Initialize(version keyshare.Version, messageHash []byte) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	return s.initializeLocked(version, messageHash)
}

func (s *Session) initializeLocked(version keyshare.Version, messageHash []byte) error {
	if !s.core.isMaster() {
		return ErrInvalidMessage
	}
	if s.data.state != ConsensusEstablishing {
		return ErrInvalidStateForRequest
	}

	share, err := s.core.keyStore.Lookup(s.core.id, version)
	if err != nil {
		return errors.Wrap(ErrInvalidMessage, "unknown key-share version")
	}
	s.data.keyShare = share
	s.data.version = version
	s.data.messageHash = messageHash

	candidates := make(party.IDSlice, 0, len(share.IDNumbers))
	for id := range share.IDNumbers {
		if !s.core.cluster.IsConnected(id) && id != s.core.self {
			continue
		}
		if s.data.delegation != nil && s.data.delegation.role == delegatedFrom && id == s.data.delegation.peer {
			continue // the delegation-origin node holds no share; never a candidate
		}
		candidates = append(candidates, id)
	}
	if !candidates.Contains(s.core.self) {
		candidates = append(candidates, s.core.self)
	}
	candidates.Sort()

	initMsg, err := s.data.consensusSession.Initialize(candidates)
	if err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}

	payload := consensusInitializePayload{
		Version:     version[:],
		MessageHash: messageHash,
		Candidates:  initMsg.Candidates,
	}
	for _, id := range initMsg.Candidates {
		if id == s.core.self {
			continue
		}
		if err := s.sealSend(id, wireenv.VariantConsensusInitialize, payload); err != nil {
			s.core.log.Warn().Err(err).Uint32("to", uint32(id)).Msg("send consensus initialize")
		}
	}
	return nil
}

// AcceptDelegation is how a would-be master's session is wired up when it
// was created in response to an inbound Delegation message rather than an
// external RPC call: it records DelegatedFrom and runs the same
// initialization Initialize does.
func (s *Session) AcceptDelegation(from party.ID, version keyshare.Version, messageHash []byte) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	if s.data.delegation != nil {
		return ErrInvalidStateForRequest
	}
	s.data.delegation = &delegationStatus{role: delegatedFrom, peer: from}
	return s.initializeLocked(version, messageHash)
}

// Delegate forwards a signing request to master because this node holds no
// local share for version. Only callable before Initialize.
func (s *Session) Delegate(master party.ID, version keyshare.Version, messageHash, requesterSignature []byte) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	if s.core.self != s.core.master {
		return ErrInvalidMessage
	}
	if s.data.state != ConsensusEstablishing || s.data.delegation != nil {
		return ErrInvalidStateForRequest
	}
	if _, err := s.core.keyStore.Lookup(s.core.id, version); err == nil {
		return errors.Wrap(ErrInvalidMessage, "delegate called on a node that holds the share")
	}

	s.data.delegation = &delegationStatus{role: delegatedTo, peer: master}
	payload := delegationPayload{
		RequesterSignature: requesterSignature,
		Version:            version[:],
		MessageHash:        messageHash,
	}
	return s.sealSend(master, wireenv.VariantDelegation, payload)
}

// ProcessMessage is the unified inbound dispatcher of spec.md §4.1: checks
// the envelope, then routes each of the twelve variants to its handler.
func (s *Session) ProcessMessage(from party.ID, raw []byte) error {
	env, err := wireenv.Open(raw, s.core.accessKey)
	if err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	if !bytes.Equal(env.SessionID, s.core.id) {
		return ErrInvalidMessage
	}
	if env.Nonce != s.core.nonce {
		return ErrReplayProtection
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	switch env.Variant {
	case wireenv.VariantConsensusInitialize:
		return s.handleConsensusInitialize(from, env)
	case wireenv.VariantConsensusConfirm:
		return s.handleConsensusConfirm(from, env)
	case wireenv.VariantSignatureNonceGen:
		return s.handleDKGMessage(s.data.sigNonce, from, env)
	case wireenv.VariantInversionNonceGen:
		return s.handleDKGMessage(s.data.invNonce, from, env)
	case wireenv.VariantInversionZeroGen:
		return s.handleDKGMessage(s.data.invZero, from, env)
	case wireenv.VariantInversedNonceCoeffShare:
		return s.handleInversedNonceCoeffShare(from, env)
	case wireenv.VariantRequestPartialSignature:
		return s.handleRequestPartialSignature(from, env)
	case wireenv.VariantPartialSignature:
		return s.handlePartialSignature(from, env)
	case wireenv.VariantSigningSessionCompleted:
		return s.handleSigningSessionCompleted(from, env)
	case wireenv.VariantSigningSessionError:
		return s.handleSigningSessionError(from, env)
	case wireenv.VariantDelegation:
		return s.handleDelegationMessage(from, env)
	case wireenv.VariantDelegationCompleted:
		return s.handleDelegationCompleted(from, env)
	default:
		return ErrInvalidMessage
	}
}

func (s *Session) handleConsensusInitialize(from party.ID, env wireenv.Envelope) error {
	if s.core.isMaster() {
		return ErrInvalidMessage
	}
	var payload consensusInitializePayload
	if err := wireenv.Unmarshal(env, &payload); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	confirm, err := s.data.consensusSession.OnInitialize(from, consensus.Initialize{Candidates: payload.Candidates})
	if err != nil {
		return mapConsensusErr(err)
	}
	copy(s.data.version[:], payload.Version)
	s.data.messageHash = payload.MessageHash

	// Invariant 3: a node holding no local share for this version may only
	// ever act as an admission-checker, never a DKG contributor.
	share, err := s.core.keyStore.Lookup(s.core.id, s.data.version)
	if err != nil {
		confirm.Admitted = false
	} else {
		s.data.keyShare = share
	}

	return s.sealSend(from, wireenv.VariantConsensusConfirm, consensusConfirmPayload{Admitted: confirm.Admitted})
}

func (s *Session) handleConsensusConfirm(from party.ID, env wireenv.Envelope) error {
	if !s.core.isMaster() {
		return ErrInvalidMessage
	}
	var payload consensusConfirmPayload
	if err := wireenv.Unmarshal(env, &payload); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	established, err := s.data.consensusSession.OnConfirm(from, consensus.Confirm{Admitted: payload.Admitted})
	if err != nil {
		return mapConsensusErr(err)
	}
	if s.data.consensusSession.State() == consensus.Failed {
		s.propagateFatal(s.data.consensusSession.Err())
		return nil
	}
	if established {
		s.startNonceDKGs()
	}
	return nil
}

// startNonceDKGs is called once on the master after the consensus group is
// selected: it seeds all three DKGs over that group and transitions to
// NoncesGenerating (spec.md §4.1's "Consensus message" handler).
func (s *Session) startNonceDKGs() {
	group := s.data.consensusSession.ConsensusGroup()
	for _, slot := range s.slots() {
		if err := s.initDKGSlot(slot, group); err != nil {
			s.core.log.Error().Err(err).Str("dkg", slot.variant.String()).Msg("failed to start nonce DKG")
			s.propagateFatal(errors.Wrap(ErrInternal, err.Error()))
			return
		}
	}
	s.data.state = NoncesGenerating
}

// initDKGSlot generates this node's own polynomial for slot and
// disseminates it (commitment broadcast + per-recipient shares) to every
// other group member.
func (s *Session) initDKGSlot(slot *dkgSlot, group party.IDSlice) error {
	degree := 2 * s.core.threshold
	slot.session = noncedkg.New(s.core.group, s.core.self, degree, slot.zeroShare)

	commitment, shares, err := slot.session.Initialize(group)
	if err != nil {
		return err
	}
	if _, err := slot.session.HandleShare(s.core.self, shares[s.core.self]); err != nil {
		return err
	}

	commitPayload := dkgMessagePayload{
		Kind:        dkgKindCommitment,
		Members:     group,
		Commitments: pointsToBytes(commitment.Commitments),
	}
	for _, to := range group {
		if to == s.core.self {
			continue
		}
		if err := s.sealSend(to, slot.variant, commitPayload); err != nil {
			s.core.log.Warn().Err(err).Uint32("to", uint32(to)).Msg("send dkg commitment")
		}
		sharePayload := dkgMessagePayload{
			Kind:    dkgKindShare,
			Members: group,
			Share:   shares[to].Value.Bytes(),
		}
		if err := s.sealSend(to, slot.variant, sharePayload); err != nil {
			s.core.log.Warn().Err(err).Uint32("to", uint32(to)).Msg("send dkg share")
		}
	}
	return nil
}

// handleDKGMessage is the single driver behind the three nonce-generation
// variants (spec.md §9). It lazily bootstraps the local DKG mirror off
// whichever of the master's messages — commitment or share — happens to
// arrive first; a message from any other node before that is rejected.
func (s *Session) handleDKGMessage(slot *dkgSlot, from party.ID, env wireenv.Envelope) error {
	var payload dkgMessagePayload
	if err := wireenv.Unmarshal(env, &payload); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}

	if slot.session == nil {
		if from != s.core.master {
			return ErrInvalidMessage
		}
		if len(payload.Members) == 0 {
			return ErrTooEarlyForRequest
		}
		if err := s.initDKGSlot(slot, payload.Members); err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
		s.data.consensusSession.AdoptConsensusGroup(payload.Members)
		if s.data.state == ConsensusEstablishing {
			s.data.state = NoncesGenerating
		}
	}

	var finished bool
	var err error
	switch payload.Kind {
	case dkgKindCommitment:
		commitments, decodeErr := bytesToPoints(s.core.group, payload.Commitments)
		if decodeErr != nil {
			return errors.Wrap(ErrInvalidMessage, decodeErr.Error())
		}
		finished, err = slot.session.HandleCommitment(from, noncedkg.Commitment{Commitments: commitments})
	case dkgKindShare:
		finished, err = slot.session.HandleShare(from, noncedkg.Share{Value: s.core.group.NewScalar().SetBytes(payload.Share)})
	default:
		return ErrInvalidMessage
	}
	if err != nil {
		s.propagateFatal(errors.Wrap(ErrInternal, err.Error()))
		return nil
	}
	if finished {
		s.checkNoncesGenerated()
	}
	return nil
}

// checkNoncesGenerated is the monotonic three-way barrier of spec.md §9:
// once all three DKGs are finished, compute and ship this node's
// inversion-coefficient share.
func (s *Session) checkNoncesGenerated() {
	if s.data.noncesDone {
		return
	}
	for _, slot := range s.slots() {
		if slot.session == nil || !slot.session.Finished() {
			return
		}
	}
	s.data.noncesDone = true

	iotaShare := computeInversionCoeffShare(s.data.keyShare, s.data.invNonce.session.MyShare(), s.data.invZero.session.MyShare())

	if s.core.isMaster() {
		s.data.inversedShares[s.core.self] = iotaShare
		s.data.state = WaitingForInversedNonceShares
		s.tryCombineInversionCoeff()
		return
	}

	s.data.state = SignatureComputing
	if err := s.sealSend(s.core.master, wireenv.VariantInversedNonceCoeffShare, inversedNonceCoeffSharePayload{Value: iotaShare.Bytes()}); err != nil {
		s.core.log.Warn().Err(err).Msg("send inversed nonce coeff share")
	}
}

func (s *Session) handleInversedNonceCoeffShare(from party.ID, env wireenv.Envelope) error {
	if !s.core.isMaster() {
		return ErrInvalidMessage
	}
	if s.data.state == NoncesGenerating {
		return ErrTooEarlyForRequest
	}
	if s.data.state != WaitingForInversedNonceShares {
		return ErrInvalidStateForRequest
	}
	group := s.data.consensusSession.ConsensusGroup()
	if !group.Contains(from) {
		return ErrInvalidMessage
	}
	if _, dup := s.data.inversedShares[from]; dup {
		return ErrInvalidMessage
	}

	var payload inversedNonceCoeffSharePayload
	if err := wireenv.Unmarshal(env, &payload); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	s.data.inversedShares[from] = s.core.group.NewScalar().SetBytes(payload.Value)

	return s.tryCombineInversionCoeff()
}

// tryCombineInversionCoeff implements spec.md §4.4: once every
// consensus-group member's ι_i has arrived, Lagrange-combine them and move
// on to disseminating partial-signing jobs.
func (s *Session) tryCombineInversionCoeff() error {
	group := s.data.consensusSession.ConsensusGroup()
	if len(s.data.inversedShares) < len(group) {
		return nil
	}

	coeffs := polynomial.Lagrange(s.core.group, group)
	iota := s.core.group.NewScalar()
	for id, share := range s.data.inversedShares {
		iota = iota.Add(coeffs[id].Mul(share))
	}
	s.data.iota = iota

	return s.disseminatePartialSignatureJobs(group)
}

func (s *Session) disseminatePartialSignatureJobs(group party.IDSlice) error {
	s.data.requestID++
	payload := requestPartialSignaturePayload{
		RequestID:     s.data.requestID,
		Iota:          s.data.iota.Bytes(),
		MessageHash:   s.data.messageHash,
		OtherNodesIDs: group,
	}
	if err := s.data.consensusSession.DisseminateJobs(payload); err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	s.data.state = SignatureComputing

	for _, to := range group {
		if to == s.core.self {
			continue
		}
		if err := s.sealSend(to, wireenv.VariantRequestPartialSignature, payload); err != nil {
			s.core.log.Warn().Err(err).Uint32("to", uint32(to)).Msg("send partial signature request")
		}
	}

	job := newSigningJob(s.core.group, s.core.self, group, s.data.keyShare, s.data.sigNonce.session.JointPublic(), s.data.invNonce.session.MyShare())
	hash := curve.HashToScalar(s.core.group, s.data.messageHash)
	myShare := job.computeShare(s.data.iota, hash)
	return s.recordJobResponse(s.core.self, myShare)
}

func (s *Session) handleRequestPartialSignature(from party.ID, env wireenv.Envelope) error {
	if s.core.isMaster() || from != s.core.master {
		return ErrInvalidMessage
	}
	if s.data.state == NoncesGenerating || s.data.state == WaitingForInversedNonceShares {
		return ErrTooEarlyForRequest
	}
	if s.data.state != SignatureComputing {
		return ErrInvalidStateForRequest
	}

	var payload requestPartialSignaturePayload
	if err := wireenv.Unmarshal(env, &payload); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	if err := s.data.consensusSession.OnJobRequest(from, payload); err != nil {
		return mapConsensusErr(err)
	}

	job := newSigningJob(s.core.group, s.core.self, payload.OtherNodesIDs, s.data.keyShare, s.data.sigNonce.session.JointPublic(), s.data.invNonce.session.MyShare())
	iota := s.core.group.NewScalar().SetBytes(payload.Iota)
	hash := curve.HashToScalar(s.core.group, payload.MessageHash)
	share := job.computeShare(iota, hash)

	return s.sealSend(from, wireenv.VariantPartialSignature, partialSignaturePayload{RequestID: payload.RequestID, Share: share.Bytes()})
}

func (s *Session) handlePartialSignature(from party.ID, env wireenv.Envelope) error {
	if !s.core.isMaster() {
		return ErrInvalidMessage
	}
	if s.data.state != SignatureComputing {
		return ErrInvalidStateForRequest
	}
	var payload partialSignaturePayload
	if err := wireenv.Unmarshal(env, &payload); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	return s.recordJobResponse(from, s.core.group.NewScalar().SetBytes(payload.Share))
}

func (s *Session) recordJobResponse(from party.ID, share curve.Scalar) error {
	finished, err := s.data.consensusSession.OnJobResponse(from, share)
	if err != nil {
		return mapConsensusErr(err)
	}
	if finished {
		s.completeSignature()
	}
	return nil
}

func (s *Session) completeSignature() {
	responses, err := s.data.consensusSession.Result()
	if err != nil {
		s.propagateFatal(err)
		return
	}

	total := s.core.group.NewScalar()
	for _, resp := range responses {
		total = total.Add(resp.(curve.Scalar))
	}

	kPub := s.data.sigNonce.session.JointPublic()
	sig := curve.Signature{R: kPub.XScalar(), S: total, V: 0}
	if kPub.YIsOdd() {
		sig.V = 1
	}

	s.finalize(Result{Signature: sig})

	for _, to := range s.data.consensusSession.Active() {
		if to == s.core.self {
			continue
		}
		if err := s.sealSend(to, wireenv.VariantSigningSessionCompleted, signingSessionCompletedPayload{}); err != nil {
			s.core.log.Warn().Err(err).Uint32("to", uint32(to)).Msg("send signing session completed")
		}
	}

	if s.data.delegation != nil && s.data.delegation.role == delegatedFrom {
		if err := s.sealSend(s.data.delegation.peer, wireenv.VariantDelegationCompleted, delegationCompletedPayload{
			R: sig.R.Bytes(), S: sig.S.Bytes(), V: sig.V,
		}); err != nil {
			s.core.log.Warn().Err(err).Msg("send delegation completed")
		}
	}
}

func (s *Session) handleSigningSessionCompleted(from party.ID, _ wireenv.Envelope) error {
	if from != s.core.master {
		return ErrInvalidMessage
	}
	if s.data.state == Finished {
		return nil // duplicate, already terminal
	}
	if s.data.state != SignatureComputing {
		return ErrInvalidStateForRequest
	}
	s.finalize(Result{})
	return nil
}

func (s *Session) handleSigningSessionError(from party.ID, env wireenv.Envelope) error {
	var payload signingSessionErrorPayload
	if err := wireenv.Unmarshal(env, &payload); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	kind := errFromKindString(payload.Kind)

	if from == s.core.master {
		s.propagateFatal(kind)
		return nil
	}

	fatal := s.data.consensusSession.OnNodeError(from)
	if fatal {
		s.propagateFatal(s.data.consensusSession.Err())
	}
	return nil
}

// NotifyPeerUnreachable is how the cluster transport reports a peer it has
// locally detected as gone — a dropped connection, a watchdog timeout —
// distinct from a peer's own self-reported SigningSessionError. On master it
// goes through the same OnNodeError bookkeeping, since only master's
// consensus session tracks the active set used for job dissemination. On a
// slave only the loss of the master is acted on (a fatal
// ErrNodeDisconnected); any other unreachable peer is ignored.
func (s *Session) NotifyPeerUnreachable(id party.ID) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	if s.data.result != nil || id == s.core.self {
		return
	}
	if !s.core.isMaster() {
		if id == s.core.master {
			s.propagateFatal(ErrNodeDisconnected)
		}
		return
	}
	if s.data.consensusSession.OnNodeError(id) {
		s.propagateFatal(s.data.consensusSession.Err())
	}
}

// propagateFatal is how an error originating at this node — or reported by
// the consensus sub-session as unrecoverable — becomes the session's
// terminal result, per spec.md §7's propagation policy.
func (s *Session) propagateFatal(err error) {
	if s.data.result != nil {
		return
	}
	s.finalize(Result{Err: err})

	payload := signingSessionErrorPayload{Kind: errKindString(err), Message: err.Error()}
	if s.core.isMaster() {
		for _, to := range s.core.cluster.Nodes() {
			if to == s.core.self {
				continue
			}
			if sendErr := s.sealSend(to, wireenv.VariantSigningSessionError, payload); sendErr != nil {
				s.core.log.Warn().Err(sendErr).Uint32("to", uint32(to)).Msg("send signing session error")
			}
		}
	} else if sendErr := s.sealSend(s.core.master, wireenv.VariantSigningSessionError, payload); sendErr != nil {
		s.core.log.Warn().Err(sendErr).Msg("send signing session error")
	}

	if s.data.delegation != nil && s.data.delegation.role == delegatedFrom {
		if sendErr := s.sealSend(s.data.delegation.peer, wireenv.VariantSigningSessionError, payload); sendErr != nil {
			s.core.log.Warn().Err(sendErr).Msg("send signing session error to delegation peer")
		}
	}
}

func (s *Session) handleDelegationMessage(from party.ID, env wireenv.Envelope) error {
	// A well-formed deployment routes the very first Delegation envelope
	// for an unknown sub-session to AcceptDelegation before any call ever
	// reaches ProcessMessage; a second arrival (retransmission) on an
	// already-initialized session is simply redundant.
	if s.data.delegation != nil && s.data.delegation.role == delegatedFrom && from == s.data.delegation.peer {
		return nil
	}
	return ErrInvalidStateForRequest
}

func (s *Session) handleDelegationCompleted(from party.ID, env wireenv.Envelope) error {
	if s.data.delegation == nil || s.data.delegation.role != delegatedTo || from != s.data.delegation.peer {
		return ErrInvalidMessage
	}
	if s.data.state == Finished {
		return nil
	}
	var payload delegationCompletedPayload
	if err := wireenv.Unmarshal(env, &payload); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	sig := curve.Signature{
		R: s.core.group.NewScalar().SetBytes(payload.R),
		S: s.core.group.NewScalar().SetBytes(payload.S),
		V: payload.V,
	}
	s.finalize(Result{Signature: sig})
	return nil
}

func (s *Session) sealSend(to party.ID, variant wireenv.MessageVariant, payload interface{}) error {
	data, err := wireenv.Seal(s.core.id, s.core.accessKey, s.core.nonce, variant, payload)
	if err != nil {
		return errors.Wrap(err, "seal envelope")
	}
	if err := s.core.cluster.Send(to, data); err != nil {
		return errors.Wrap(err, "send envelope")
	}
	return nil
}

func pointsToBytes(points []curve.Point) [][]byte {
	out := make([][]byte, len(points))
	for i, p := range points {
		out[i] = p.Bytes()
	}
	return out
}

func bytesToPoints(group curve.Curve, raw [][]byte) ([]curve.Point, error) {
	out := make([]curve.Point, len(raw))
	for i, b := range raw {
		p := group.NewPoint()
		if err := p.SetBytes(b); err != nil {
			return nil, errors.Wrap(err, "decode curve point")
		}
		out[i] = p
	}
	return out, nil
}

func mapConsensusErr(err error) error {
	switch {
	case errors.Is(err, consensus.ErrTooEarly):
		return ErrTooEarlyForRequest
	case errors.Is(err, consensus.ErrInvalidState):
		return ErrInvalidStateForRequest
	case errors.Is(err, consensus.ErrAccessDenied):
		return ErrAccessDenied
	case errors.Is(err, consensus.ErrConsensusUnreachable):
		return ErrConsensusUnreachable
	default:
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
}

func errKindString(err error) string {
	switch {
	case errors.Is(err, ErrAccessDenied):
		return "AccessDenied"
	case errors.Is(err, ErrConsensusUnreachable):
		return "ConsensusUnreachable"
	case errors.Is(err, ErrNodeDisconnected):
		return "NodeDisconnected"
	case errors.Is(err, ErrKeyStorage):
		return "KeyStorage"
	case errors.Is(err, ErrIo):
		return "Io"
	default:
		return "Internal"
	}
}

func errFromKindString(kind string) error {
	switch kind {
	case "AccessDenied":
		return ErrAccessDenied
	case "ConsensusUnreachable":
		return ErrConsensusUnreachable
	case "NodeDisconnected":
		return ErrNodeDisconnected
	case "KeyStorage":
		return ErrKeyStorage
	case "Io":
		return ErrIo
	default:
		return ErrInternal
	}
}
