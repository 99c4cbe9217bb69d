package curve

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// point is the secp256k1 implementation of Point, kept in affine form.
type point struct {
	inner secp256k1.JacobianPoint
}

func (p *point) Add(other Point) Point {
	o := other.(*point)
	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(&p.inner, &o.inner, &sum)
	sum.ToAffine()
	return &point{inner: sum}
}

func (p *point) Equal(other Point) bool {
	o := other.(*point)
	if p.IsIdentity() && o.IsIdentity() {
		return true
	}
	return p.inner.X.Equals(&o.inner.X) && p.inner.Y.Equals(&o.inner.Y) && !p.IsIdentity() && !o.IsIdentity()
}

func (p *point) IsIdentity() bool {
	return (p.inner.X.IsZero() && p.inner.Y.IsZero()) || p.inner.Z.IsZero()
}

// XScalar reduces the affine x-coordinate mod the scalar field order; this
// is the ECDSA `r` candidate from a nonce commitment k*G.
func (p *point) XScalar() Scalar {
	xBytes := p.inner.X.Bytes()
	var s secp256k1.ModNScalar
	s.SetByteSlice(xBytes[:])
	return &scalar{inner: s}
}

func (p *point) YIsOdd() bool {
	return p.inner.Y.IsOdd()
}

func (p *point) Bytes() []byte {
	if p.IsIdentity() {
		return []byte{0x00}
	}
	xBytes := p.inner.X.Bytes()
	prefix := byte(0x02)
	if p.inner.Y.IsOdd() {
		prefix = 0x03
	}
	out := make([]byte, 0, 33)
	out = append(out, prefix)
	out = append(out, xBytes[:]...)
	return out
}

func (p *point) SetBytes(b []byte) error {
	if len(b) == 1 && b[0] == 0x00 {
		p.inner.X.SetInt(0)
		p.inner.Y.SetInt(0)
		p.inner.Z.SetInt(0)
		return nil
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return errors.New("curve: invalid point encoding")
	}
	pub.AsJacobian(&p.inner)
	return nil
}
