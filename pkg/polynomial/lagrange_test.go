package polynomial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/party"
	"github.com/luxfi/signsession/pkg/polynomial"
)

func idRange(n int) party.IDSlice {
	ids := make(party.IDSlice, n)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}
	return ids
}

func TestLagrangeSumsToOne(t *testing.T) {
	group := curve.Secp256k1{}

	allIDs := idRange(10)
	coefsEven := polynomial.Lagrange(group, allIDs)
	coefsOdd := polynomial.Lagrange(group, allIDs[:len(allIDs)-1])

	sumEven := group.NewScalar()
	for _, c := range coefsEven {
		sumEven = sumEven.Add(c)
	}
	sumOdd := group.NewScalar()
	for _, c := range coefsOdd {
		sumOdd = sumOdd.Add(c)
	}

	one := group.NewScalar().SetBytes([]byte{1})
	assert.True(t, sumEven.Equal(one))
	assert.True(t, sumOdd.Equal(one))
}

func TestPolynomialEvaluateMatchesCommit(t *testing.T) {
	group := curve.Secp256k1{}
	poly := polynomial.NewPolynomial(group, 2, nil)
	commitments := poly.Commit()

	id := party.ID(3)
	share := poly.Evaluate(id.Scalar(group))
	assert.True(t, polynomial.VerifyShare(group, commitments, id, share))
}

func TestLagrangeReconstructsSecret(t *testing.T) {
	group := curve.Secp256k1{}
	degree := 2
	poly := polynomial.NewPolynomial(group, degree, nil)

	ids := idRange(degree + 1)
	shares := make(map[party.ID]curve.Scalar, len(ids))
	for _, id := range ids {
		shares[id] = poly.Evaluate(id.Scalar(group))
	}

	coeffs := polynomial.Lagrange(group, ids)
	reconstructed := group.NewScalar()
	for _, id := range ids {
		contribution := group.NewScalar().Set(coeffs[id]).Mul(shares[id])
		reconstructed = reconstructed.Add(contribution)
	}

	assert.True(t, reconstructed.Equal(poly.Constant()))
}
