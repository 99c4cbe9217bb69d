// Package sample provides uniform random sampling of curve scalars.
package sample

import (
	"io"

	"github.com/cronokirby/saferith"
	"github.com/luxfi/signsession/pkg/curve"
)

// Scalar draws a uniformly random, non-zero scalar from r.
func Scalar(r io.Reader, group curve.Curve) curve.Scalar {
	buf := make([]byte, 32)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			panic(err)
		}
		n := new(saferith.Nat).SetBytes(buf)
		s := group.NewScalar().SetNat(n)
		if !s.IsZero() {
			return s
		}
	}
}
