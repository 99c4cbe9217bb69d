package noncedkg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/noncedkg"
	"github.com/luxfi/signsession/pkg/party"
)

// run drives n sessions (one per id in members) to completion by exchanging
// every commitment and share locally, returning the finished sessions.
func run(t *testing.T, members party.IDSlice, degree int, zeroShare bool) map[party.ID]*noncedkg.Session {
	t.Helper()
	group := curve.Secp256k1{}

	sessions := make(map[party.ID]*noncedkg.Session, len(members))
	for _, id := range members {
		sessions[id] = noncedkg.New(group, id, degree, zeroShare)
	}

	commitments := make(map[party.ID]noncedkg.Commitment, len(members))
	allShares := make(map[party.ID]map[party.ID]noncedkg.Share, len(members))
	for _, id := range members {
		commitment, shares, err := sessions[id].Initialize(members)
		require.NoError(t, err)
		commitments[id] = commitment
		allShares[id] = shares
	}

	for _, dealer := range members {
		for _, recipient := range members {
			// Initialize already records a dealer's own commitment, but its
			// own share is delivered like any other.
			if recipient != dealer {
				_, err := sessions[recipient].HandleCommitment(dealer, commitments[dealer])
				require.NoError(t, err)
			}
			_, err := sessions[recipient].HandleShare(dealer, allShares[dealer][recipient])
			require.NoError(t, err)
		}
	}

	for _, id := range members {
		require.True(t, sessions[id].Finished(), "session %v did not finish", id)
	}
	return sessions
}

func TestNonceDKGAllNodesAgreeOnJointPublic(t *testing.T) {
	members := party.IDSlice{0, 1, 2, 3, 4}
	sessions := run(t, members, 4, false)

	want := sessions[members[0]].JointPublic()
	for _, id := range members[1:] {
		require.True(t, want.Equal(sessions[id].JointPublic()))
	}
}

func TestNonceDKGZeroShareHasZeroConstantTerm(t *testing.T) {
	members := party.IDSlice{0, 1, 2}
	sessions := run(t, members, 2, true)

	group := curve.Secp256k1{}
	require.True(t, sessions[members[0]].JointPublic().Equal(group.NewPoint()))
}

func TestNonceDKGRejectsForeignMember(t *testing.T) {
	group := curve.Secp256k1{}
	s := noncedkg.New(group, party.ID(9), 2, false)
	_, _, err := s.Initialize(party.IDSlice{0, 1, 2})
	require.Error(t, err)
}
