package curve

// Signature is an ECDSA (r, s) pair with the recovery bit the secret-store
// cluster needs to let a verifier recover the public key without being told
// which of the two candidate keys was used.
type Signature struct {
	R Scalar
	S Scalar
	V byte
}

// HashToScalar reduces a 32-byte message digest into a Scalar mod the group
// order, matching the convention used to fold `message_hash` into the
// partial signature computation.
func HashToScalar(group Curve, digest []byte) Scalar {
	return group.NewScalar().SetBytes(digest)
}

// Verify checks sig against publicKey and messageHash using the textbook
// ECDSA verification equation u1*G + u2*Q, where u1 = z*s^-1 and
// u2 = r*s^-1. It is the sanity check a signing session's caller runs over
// the (r, s) pair it was just handed — this package never produces a
// signature itself, only assembles the pieces the session computes.
func Verify(group Curve, publicKey Point, messageHash []byte, sig Signature) bool {
	if sig.R.IsZero() || sig.S.IsZero() {
		return false
	}
	sInv := group.NewScalar().Set(sig.S).Invert()
	z := HashToScalar(group, messageHash)
	u1 := group.NewScalar().Set(z).Mul(sInv)
	u2 := group.NewScalar().Set(sig.R).Mul(sInv)

	p := u1.ActOnBase().Add(u2.Act(publicKey))
	if p.IsIdentity() {
		return false
	}
	return p.XScalar().Equal(sig.R)
}
