// Package polynomial implements Shamir/Feldman secret-sharing polynomials
// over a curve's scalar field, and the Lagrange coefficients used to
// recombine shares.
package polynomial

import (
	"crypto/rand"

	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/party"
	"github.com/luxfi/signsession/pkg/sample"
)

// Polynomial is f(x) = a_0 + a_1*x + ... + a_degree*x^degree.
type Polynomial struct {
	group        curve.Curve
	coefficients []curve.Scalar
}

// NewPolynomial creates a random polynomial of the given degree. If
// constant is non-nil it is used as f(0) (the secret); this is how the
// Nonce DKG trio distinguishes sig_nonce/inv_nonce (random constant) from
// inv_zero (constant term forced to the additive identity).
func NewPolynomial(group curve.Curve, degree int, constant curve.Scalar) *Polynomial {
	coeffs := make([]curve.Scalar, degree+1)
	if constant != nil {
		coeffs[0] = constant
	} else {
		coeffs[0] = sample.Scalar(rand.Reader, group)
	}
	for i := 1; i <= degree; i++ {
		coeffs[i] = sample.Scalar(rand.Reader, group)
	}
	return &Polynomial{group: group, coefficients: coeffs}
}

// Degree returns the polynomial's degree.
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// Constant returns f(0), the shared secret.
func (p *Polynomial) Constant() curve.Scalar {
	return p.coefficients[0]
}

// Evaluate computes f(x) via Horner's method.
func (p *Polynomial) Evaluate(x curve.Scalar) curve.Scalar {
	result := p.group.NewScalar()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		result = result.Mul(x).Add(p.coefficients[i])
	}
	return result
}

// Commit returns the Feldman commitments g^{a_i} to each coefficient, used
// by recipients to verify a share without learning the polynomial.
func (p *Polynomial) Commit() []curve.Point {
	out := make([]curve.Point, len(p.coefficients))
	for i, c := range p.coefficients {
		out[i] = c.ActOnBase()
	}
	return out
}

// VerifyShare checks that share = f(id) is consistent with the Feldman
// commitments to f, without knowledge of f itself.
func VerifyShare(group curve.Curve, commitments []curve.Point, id party.ID, share curve.Scalar) bool {
	x := id.Scalar(group)
	expected := evaluateCommitment(group, commitments, x)
	return share.ActOnBase().Equal(expected)
}

func evaluateCommitment(group curve.Curve, commitments []curve.Point, x curve.Scalar) curve.Point {
	result := group.NewPoint()
	xPower := group.NewScalar().SetNat(oneNat())
	for _, c := range commitments {
		result = result.Add(xPower.Act(c))
		xPower = xPower.Mul(x)
	}
	return result
}
