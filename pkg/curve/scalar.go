package curve

import (
	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// scalar is the secp256k1 implementation of Scalar, backed by decred's
// constant-time mod-n scalar type.
type scalar struct {
	inner secp256k1.ModNScalar
}

func (s *scalar) Set(other Scalar) Scalar {
	o := other.(*scalar)
	s.inner.Set(&o.inner)
	return s
}

func (s *scalar) SetNat(n *saferith.Nat) Scalar {
	s.inner.SetByteSlice(n.Bytes())
	return s
}

func (s *scalar) SetBytes(b []byte) Scalar {
	s.inner.SetByteSlice(b)
	return s
}

func (s *scalar) Add(other Scalar) Scalar {
	o := other.(*scalar)
	s.inner.Add(&o.inner)
	return s
}

func (s *scalar) Sub(other Scalar) Scalar {
	o := other.(*scalar)
	var neg secp256k1.ModNScalar
	neg.Set(&o.inner)
	neg.Negate()
	s.inner.Add(&neg)
	return s
}

func (s *scalar) Mul(other Scalar) Scalar {
	o := other.(*scalar)
	s.inner.Mul(&o.inner)
	return s
}

func (s *scalar) Negate() Scalar {
	s.inner.Negate()
	return s
}

func (s *scalar) Invert() Scalar {
	s.inner.InverseNonConst()
	return s
}

func (s *scalar) Equal(other Scalar) bool {
	o := other.(*scalar)
	return s.inner.Equals(&o.inner)
}

func (s *scalar) IsZero() bool {
	return s.inner.IsZero()
}

func (s *scalar) Bytes() []byte {
	b := s.inner.Bytes()
	return b[:]
}

func (s *scalar) ActOnBase() Point {
	var jac secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&s.inner, &jac)
	jac.ToAffine()
	return &point{inner: jac}
}

func (s *scalar) Act(p Point) Point {
	pp := p.(*point)
	var jac secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&s.inner, &pp.inner, &jac)
	jac.ToAffine()
	return &point{inner: jac}
}
