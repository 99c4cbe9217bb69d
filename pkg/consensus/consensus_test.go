package consensus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/signsession/pkg/acl"
	"github.com/luxfi/signsession/pkg/consensus"
	"github.com/luxfi/signsession/pkg/party"
)

func TestConsensusEstablishesGroupOfCorrectSize(t *testing.T) {
	sessionID := []byte("s1")
	candidates := party.IDSlice{0, 1, 2, 3, 4}
	allowed := acl.NewAllowList(candidates...)
	const t_ = 2 // 2t+1 = 5

	master := consensus.New(0, 0, t_, allowed, sessionID)
	slaves := make(map[party.ID]*consensus.Session, 4)
	for _, id := range candidates[1:] {
		slaves[id] = consensus.New(id, 0, t_, allowed, sessionID)
	}

	initMsg, err := master.Initialize(candidates)
	require.NoError(t, err)

	for id, slave := range slaves {
		confirm, err := slave.OnInitialize(0, initMsg)
		require.NoError(t, err)
		established, err := master.OnConfirm(id, confirm)
		require.NoError(t, err)
		if established {
			break
		}
	}

	require.Equal(t, consensus.ConsensusEstablished, master.State())
	assert.Len(t, master.ConsensusGroup(), 5)
}

func TestConsensusFailsWhenQuorumUnreachable(t *testing.T) {
	sessionID := []byte("s1")
	candidates := party.IDSlice{0, 1, 2, 3, 4}
	// Node 4 is never allowed; with t=2 (need 5), this alone dooms consensus.
	allowed := acl.NewAllowList(0, 1, 2, 3)
	const t_ = 2

	master := consensus.New(0, 0, t_, allowed, sessionID)
	_, err := master.Initialize(candidates)
	require.NoError(t, err)

	for _, id := range party.IDSlice{1, 2, 3, 4} {
		admitted := id != 4
		_, err := master.OnConfirm(id, consensus.Confirm{Admitted: admitted})
		require.NoError(t, err)
	}

	assert.Equal(t, consensus.Failed, master.State())
	assert.ErrorIs(t, master.Err(), consensus.ErrAccessDenied)
}

func TestJobDisseminationCollectsAllActiveResponses(t *testing.T) {
	sessionID := []byte("s1")
	candidates := party.IDSlice{0, 1, 2}
	allowed := acl.NewAllowList(candidates...)
	const t_ = 1 // 2t+1 = 3

	master := consensus.New(0, 0, t_, allowed, sessionID)
	_, err := master.Initialize(candidates)
	require.NoError(t, err)
	_, err = master.OnConfirm(1, consensus.Confirm{Admitted: true})
	require.NoError(t, err)
	established, err := master.OnConfirm(2, consensus.Confirm{Admitted: true})
	require.NoError(t, err)
	require.True(t, established)

	require.NoError(t, master.DisseminateJobs("job-payload"))

	finished, err := master.OnJobResponse(1, "resp-1")
	require.NoError(t, err)
	require.False(t, finished)

	finished, err = master.OnJobResponse(2, "resp-2")
	require.NoError(t, err)
	require.False(t, finished) // master's own share still missing

	finished, err = master.OnJobResponse(0, "resp-0")
	require.NoError(t, err)
	require.True(t, finished)

	responses, err := master.Result()
	require.NoError(t, err)
	assert.Len(t, responses, 3)
}

func TestOnNodeErrorDuringDisseminationDropsBelowQuorum(t *testing.T) {
	sessionID := []byte("s1")
	candidates := party.IDSlice{0, 1, 2}
	allowed := acl.NewAllowList(candidates...)
	const t_ = 1

	master := consensus.New(0, 0, t_, allowed, sessionID)
	_, err := master.Initialize(candidates)
	require.NoError(t, err)
	_, _ = master.OnConfirm(1, consensus.Confirm{Admitted: true})
	_, _ = master.OnConfirm(2, consensus.Confirm{Admitted: true})
	require.NoError(t, master.DisseminateJobs("job-payload"))

	failed := master.OnNodeError(2)
	assert.True(t, failed)
	assert.Equal(t, consensus.Failed, master.State())
}
