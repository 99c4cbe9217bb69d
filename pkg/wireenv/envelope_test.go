package wireenv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/signsession/pkg/wireenv"
)

type confirmPayload struct {
	Confirmed bool
}

func TestSealOpenRoundTrip(t *testing.T) {
	sessionID := []byte("session-1")
	accessKey := []byte("access-key-a")

	data, err := wireenv.Seal(sessionID, accessKey, 7, wireenv.VariantConsensusConfirm, confirmPayload{Confirmed: true})
	require.NoError(t, err)

	env, err := wireenv.Open(data, accessKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), env.Nonce)
	assert.Equal(t, wireenv.VariantConsensusConfirm, env.Variant)

	var payload confirmPayload
	require.NoError(t, wireenv.Unmarshal(env, &payload))
	assert.True(t, payload.Confirmed)
}

func TestOpenRejectsWrongAccessKey(t *testing.T) {
	sessionID := []byte("session-1")
	data, err := wireenv.Seal(sessionID, []byte("access-key-a"), 1, wireenv.VariantConsensusConfirm, confirmPayload{Confirmed: true})
	require.NoError(t, err)

	_, err = wireenv.Open(data, []byte("access-key-b"))
	assert.ErrorIs(t, err, wireenv.ErrBadTag)
}
