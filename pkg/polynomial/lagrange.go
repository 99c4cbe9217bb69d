package polynomial

import (
	"github.com/cronokirby/saferith"
	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/party"
)

func oneNat() *saferith.Nat {
	return new(saferith.Nat).SetUint64(1)
}

// Lagrange computes, for every id in ids, the coefficient lambda_id such
// that sum_id lambda_id * f(id) = f(0) for any polynomial of degree <
// len(ids). This is the combination step used by the master to recombine
// per-node inversion-coefficient shares; partial signatures are instead
// weighted by each contributor with LagrangeFor and summed by the master.
func Lagrange(group curve.Curve, ids party.IDSlice) map[party.ID]curve.Scalar {
	out := make(map[party.ID]curve.Scalar, len(ids))
	for _, id := range ids {
		out[id] = LagrangeFor(group, ids, id)
	}
	return out
}

// LagrangeFor computes a single Lagrange coefficient for target, evaluated
// at x=0, over the node set ids (target must be a member of ids).
func LagrangeFor(group curve.Curve, ids party.IDSlice, target party.ID) curve.Scalar {
	xTarget := target.Scalar(group)

	num := group.NewScalar().SetNat(oneNat())
	den := group.NewScalar().SetNat(oneNat())

	for _, id := range ids {
		if id == target {
			continue
		}
		xj := id.Scalar(group)

		// num *= (0 - x_j) = -x_j
		negXj := group.NewScalar().Set(xj).Negate()
		num = num.Mul(negXj)

		// den *= (x_target - x_j)
		diff := group.NewScalar().Set(xTarget).Sub(xj)
		den = den.Mul(diff)
	}

	return num.Mul(den.Invert())
}
