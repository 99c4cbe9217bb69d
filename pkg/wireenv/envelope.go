// Package wireenv implements the wire envelope shared by every message of
// spec.md §6: {session_id, sub_session_id, session_nonce} plus a payload,
// bound together by a tag derived from the session's access key so that
// concurrent signing sessions over the same SessionId (but different access
// keys) can never be confused for one another.
package wireenv

import (
	"encoding/binary"
	"hash"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"
)

// MessageVariant is the tagged union of the twelve wire messages of
// spec.md §6.
type MessageVariant uint8

const (
	VariantConsensusInitialize MessageVariant = iota
	VariantConsensusConfirm
	VariantSignatureNonceGen
	VariantInversionNonceGen
	VariantInversionZeroGen
	VariantInversedNonceCoeffShare
	VariantRequestPartialSignature
	VariantPartialSignature
	VariantSigningSessionCompleted
	VariantSigningSessionError
	VariantDelegation
	VariantDelegationCompleted
)

func (v MessageVariant) String() string {
	switch v {
	case VariantConsensusInitialize:
		return "ConsensusInitialize"
	case VariantConsensusConfirm:
		return "ConsensusConfirm"
	case VariantSignatureNonceGen:
		return "SignatureNonceGen"
	case VariantInversionNonceGen:
		return "InversionNonceGen"
	case VariantInversionZeroGen:
		return "InversionZeroGen"
	case VariantInversedNonceCoeffShare:
		return "InversedNonceCoeffShare"
	case VariantRequestPartialSignature:
		return "RequestPartialSignature"
	case VariantPartialSignature:
		return "PartialSignature"
	case VariantSigningSessionCompleted:
		return "SigningSessionCompleted"
	case VariantSigningSessionError:
		return "SigningSessionError"
	case VariantDelegation:
		return "Delegation"
	case VariantDelegationCompleted:
		return "DelegationCompleted"
	default:
		return "Unknown"
	}
}

// Envelope is the header every wire message carries, plus an opaque
// cbor-encoded payload specific to its Variant.
type Envelope struct {
	SessionID    []byte
	SubSessionID []byte // the session's access key, see spec.md §3
	Nonce        uint64
	Variant      MessageVariant
	Payload      []byte
	Tag          []byte
}

// ErrBadTag is returned by Open when the envelope's tag does not match the
// access key it claims to carry — either the access key is wrong (a
// different concurrent session) or the envelope was tampered with.
var ErrBadTag = errors.New("wireenv: envelope tag mismatch")

// Seal cbor-encodes payload and binds it, together with the header, to
// accessKey via an HKDF-derived blake3 tag.
func Seal(sessionID, accessKey []byte, nonce uint64, variant MessageVariant, payload interface{}) ([]byte, error) {
	body, err := cbor.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "wireenv: marshal payload")
	}

	env := Envelope{
		SessionID:    sessionID,
		SubSessionID: accessKey,
		Nonce:        nonce,
		Variant:      variant,
		Payload:      body,
	}
	env.Tag = tag(accessKey, env)

	out, err := cbor.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "wireenv: marshal envelope")
	}
	return out, nil
}

// Open decodes an envelope and verifies its tag against accessKey. The
// caller is still responsible for checking SessionID and Nonce per
// spec.md's replay-protection invariant.
func Open(data, accessKey []byte) (Envelope, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "wireenv: unmarshal envelope")
	}
	expected := tag(accessKey, Envelope{
		SessionID:    env.SessionID,
		SubSessionID: env.SubSessionID,
		Nonce:        env.Nonce,
		Variant:      env.Variant,
		Payload:      env.Payload,
	})
	if !hmacEqual(expected, env.Tag) {
		return Envelope{}, ErrBadTag
	}
	return env, nil
}

// Unmarshal decodes an envelope's payload into v.
func Unmarshal(env Envelope, v interface{}) error {
	return cbor.Unmarshal(env.Payload, v)
}

func tag(accessKey []byte, env Envelope) []byte {
	key := derivedKey(accessKey)
	h, err := blake3.NewKeyed(key)
	if err != nil {
		// blake3 keyed hashing only fails for a wrong key length, which
		// derivedKey never produces.
		panic(err)
	}
	_, _ = h.Write(env.SessionID)
	_, _ = h.Write(env.SubSessionID)
	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], env.Nonce)
	_, _ = h.Write(nonceBuf[:])
	_, _ = h.Write([]byte{byte(env.Variant)})
	_, _ = h.Write(env.Payload)
	return h.Sum(nil)
}

func derivedKey(accessKey []byte) []byte {
	newBlake3 := func() hash.Hash { return blake3.New() }
	reader := hkdf.New(newBlake3, accessKey, []byte("luxfi/signsession/envelope"), []byte("tag-key"))
	key := make([]byte, 32)
	if _, err := reader.Read(key); err != nil {
		panic(err)
	}
	return key
}

func hmacEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
