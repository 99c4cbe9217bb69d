// Package curve wraps the secp256k1 group operations needed by the signing
// session: scalar arithmetic (for Shamir shares and the s-value), point
// arithmetic (for the joint public key and the nonce commitment), and the
// x-coordinate reduction used to derive the ECDSA `r` value.
package curve

import (
	"github.com/cronokirby/saferith"
)

// Curve is the group a signing session operates over. The session itself is
// curve-agnostic; only Secp256k1 is provided because that is what the
// underlying ECDSA scheme requires.
type Curve interface {
	Name() string
	NewScalar() Scalar
	NewPoint() Point
	// Order is the scalar field modulus, exposed for reducing arbitrary
	// byte strings (such as a message digest) into a Scalar.
	Order() *saferith.Modulus
}

// Scalar is an element of the curve's scalar field (mod the group order).
// Mutating methods both update the receiver and return it, so call chains
// such as `a.Mul(b).Add(c)` read left to right.
type Scalar interface {
	Set(Scalar) Scalar
	SetNat(*saferith.Nat) Scalar
	SetBytes([]byte) Scalar
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Negate() Scalar
	Invert() Scalar
	Equal(Scalar) bool
	IsZero() bool
	Bytes() []byte
	// ActOnBase returns scalar * G.
	ActOnBase() Point
	// Act returns scalar * p.
	Act(p Point) Point
}

// Point is an element of the curve's group.
type Point interface {
	Add(Point) Point
	Equal(Point) bool
	IsIdentity() bool
	// XScalar returns the point's affine x-coordinate reduced mod the
	// scalar field order, i.e. the ECDSA `r` candidate.
	XScalar() Scalar
	// YIsOdd reports the parity of the affine y-coordinate, i.e. the
	// ECDSA recovery bit.
	YIsOdd() bool
	Bytes() []byte
	SetBytes([]byte) error
}

// Secp256k1 is the curve used by the signing session.
type Secp256k1 struct{}

func (Secp256k1) Name() string { return "secp256k1" }

func (Secp256k1) NewScalar() Scalar {
	return &scalar{}
}

func (Secp256k1) NewPoint() Point {
	var p point
	p.inner.X.SetInt(0)
	p.inner.Y.SetInt(0)
	p.inner.Z.SetInt(0)
	return &p
}

func (Secp256k1) Order() *saferith.Modulus {
	return secp256k1Order
}

// secp256k1Order is the well-known order of the secp256k1 base point.
var secp256k1Order = saferith.ModulusFromBytes([]byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe,
	0xba, 0xae, 0xdc, 0xe6, 0xaf, 0x48, 0xa0, 0x3b,
	0xbf, 0xd2, 0x5e, 0x8c, 0xd0, 0x36, 0x41, 0x41,
})
