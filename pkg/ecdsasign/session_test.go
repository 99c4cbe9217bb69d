package ecdsasign

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/signsession/pkg/acl"
	"github.com/luxfi/signsession/pkg/cluster"
	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/keyshare"
	"github.com/luxfi/signsession/pkg/party"
	"github.com/luxfi/signsession/pkg/wireenv"
)

const (
	testSessionID = "ecdsasign-test-session"
	testAccessKey = "ecdsasign-test-access-key"
)

// harness wires one Session per id over a shared in-memory cluster, each
// dispatched through the default ProcessMessage path.
type harness struct {
	group    curve.Curve
	mc       *cluster.MemoryCluster
	sessions map[party.ID]*Session
}

func newHarness(ids party.IDSlice, threshold int, checker acl.Checker, version keyshare.Version, shares map[party.ID]*keyshare.Share, master party.ID) *harness {
	group := curve.Secp256k1{}
	mc := cluster.NewMemoryCluster()
	h := &harness{group: group, mc: mc, sessions: make(map[party.ID]*Session, len(ids))}

	for _, id := range ids {
		store := keyshare.NewNodeStore()
		if share, ok := shares[id]; ok {
			store.Install(version, share)
		}
		session := New(Params{
			SessionID: []byte(testSessionID),
			Self:      id,
			Master:    master,
			Threshold: threshold,
			AccessKey: []byte(testAccessKey),
			Nonce:     1,
			Group:     group,
			Cluster:   mc.NodeTransport(id),
			KeyStore:  store,
			ACL:       checker,
			Logger:    zerolog.Nop(),
		})
		h.sessions[id] = session
	}
	for _, id := range ids {
		id := id
		mc.Register(id, func(from party.ID, data []byte) {
			_ = h.sessions[id].ProcessMessage(from, data)
		})
	}
	return h
}

func testMessageHash(seed byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = seed + byte(i)
	}
	return out
}

func TestFullSigningSessionHappyPath(t *testing.T) {
	ids := party.IDSlice{1, 2, 3, 4, 5}
	threshold := 2
	group := curve.Secp256k1{}
	dealer := keyshare.NewDealer(group, threshold, ids)
	version, shares, err := dealer.Issue()
	require.NoError(t, err)

	checker := acl.NewAllowList(ids...)
	h := newHarness(ids, threshold, checker, version, shares, 1)

	messageHash := testMessageHash(1)
	require.NoError(t, h.sessions[1].Initialize(version, messageHash))

	sig, err := h.sessions[1].Wait()
	require.NoError(t, err)
	assert.False(t, sig.R.IsZero())
	assert.False(t, sig.S.IsZero())

	for _, id := range ids[1:] {
		_, err := h.sessions[id].Wait()
		require.NoError(t, err)
		assert.Equal(t, Finished, h.sessions[id].State())
	}
}

// TestNodeWithoutLocalShareForcedDenied exercises spec.md invariant 3: a
// node that is an otherwise-legitimate candidate (part of the key's
// IDNumbers, ACL-allowed, reachable) but whose local key-store lookup fails
// must still be refused admission into the consensus group.
func TestNodeWithoutLocalShareForcedDenied(t *testing.T) {
	ids := party.IDSlice{1, 2, 3, 4, 5}
	threshold := 1 // 2t+1 = 3
	group := curve.Secp256k1{}
	dealer := keyshare.NewDealer(group, threshold, ids)
	version, shares, err := dealer.Issue()
	require.NoError(t, err)

	// Node 5 is ACL-allowed and part of the key, but its local store is
	// never populated — simulating a corrupted or missing share on disk.
	brokenShares := make(map[party.ID]*keyshare.Share, len(shares))
	for id, share := range shares {
		if id == 5 {
			continue
		}
		brokenShares[id] = share
	}

	checker := acl.NewAllowList(ids...)
	h := newHarness(ids, threshold, checker, version, brokenShares, 1)

	messageHash := testMessageHash(2)
	require.NoError(t, h.sessions[1].Initialize(version, messageHash))

	_, err = h.sessions[1].Wait()
	require.NoError(t, err)

	group3 := h.sessions[1].data.consensusSession.ConsensusGroup()
	assert.Len(t, group3, 3)
	assert.False(t, group3.Contains(5))
}

func TestReplayProtectionRejectsMismatchedNonce(t *testing.T) {
	ids := party.IDSlice{1, 2, 3}
	threshold := 1
	group := curve.Secp256k1{}
	dealer := keyshare.NewDealer(group, threshold, ids)
	version, shares, err := dealer.Issue()
	require.NoError(t, err)

	checker := acl.NewAllowList(ids...)
	h := newHarness(ids, threshold, checker, version, shares, 1)

	stateBefore := h.sessions[2].State()

	badEnvelope, err := wireenv.Seal([]byte(testSessionID), []byte(testAccessKey), 999, wireenv.VariantConsensusConfirm, consensusConfirmPayload{Admitted: true})
	require.NoError(t, err)

	err = h.sessions[2].ProcessMessage(1, badEnvelope)
	assert.ErrorIs(t, err, ErrReplayProtection)
	assert.Equal(t, stateBefore, h.sessions[2].State())
}

func TestDelegationRoundTrip(t *testing.T) {
	ids := party.IDSlice{1, 2, 3, 4, 5}
	threshold := 2
	group := curve.Secp256k1{}
	dealer := keyshare.NewDealer(group, threshold, ids)
	version, shares, err := dealer.Issue()
	require.NoError(t, err)

	entryID := party.ID(100)
	checker := acl.NewAllowList(append(party.IDSlice{entryID}, ids...)...)

	h := newHarness(ids, threshold, checker, version, shares, 1)

	entrySession := New(Params{
		SessionID: []byte(testSessionID),
		Self:      entryID,
		Master:    entryID,
		Threshold: threshold,
		AccessKey: []byte(testAccessKey),
		Nonce:     1,
		Group:     group,
		Cluster:   h.mc.NodeTransport(entryID),
		KeyStore:  keyshare.NewNodeStore(),
		ACL:       checker,
		Logger:    zerolog.Nop(),
	})
	h.mc.Register(entryID, func(from party.ID, data []byte) {
		_ = entrySession.ProcessMessage(from, data)
	})

	// The node that actually holds the share must special-case the first
	// inbound Delegation envelope: accepting a delegated request — like
	// accepting any other unsolicited request — is session construction,
	// which is out of this package's scope. Everything after that first
	// envelope flows through the normal ProcessMessage dispatch.
	h.mc.Register(1, func(from party.ID, data []byte) {
		env, err := wireenv.Open(data, []byte(testAccessKey))
		require.NoError(t, err)
		if env.Variant == wireenv.VariantDelegation {
			var payload delegationPayload
			require.NoError(t, wireenv.Unmarshal(env, &payload))
			var v keyshare.Version
			copy(v[:], payload.Version)
			require.NoError(t, h.sessions[1].AcceptDelegation(from, v, payload.MessageHash))
			return
		}
		_ = h.sessions[1].ProcessMessage(from, data)
	})

	messageHash := testMessageHash(3)
	require.NoError(t, entrySession.Delegate(1, version, messageHash, []byte("requester-signature")))

	sig, err := entrySession.Wait()
	require.NoError(t, err)

	masterSig, err := h.sessions[1].Wait()
	require.NoError(t, err)

	assert.True(t, sig.R.Equal(masterSig.R))
	assert.True(t, sig.S.Equal(masterSig.S))
}

func TestDelegateRefusedWhenShareHeld(t *testing.T) {
	ids := party.IDSlice{1, 2, 3}
	threshold := 1
	group := curve.Secp256k1{}
	dealer := keyshare.NewDealer(group, threshold, ids)
	version, shares, err := dealer.Issue()
	require.NoError(t, err)

	checker := acl.NewAllowList(ids...)
	h := newHarness(ids, threshold, checker, version, shares, 1)

	err = h.sessions[1].Delegate(2, version, testMessageHash(4), []byte("sig"))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
