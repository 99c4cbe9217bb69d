package ecdsasign

import (
	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/keyshare"
	"github.com/luxfi/signsession/pkg/party"
	"github.com/luxfi/signsession/pkg/polynomial"
)

// signingJob is the black box spec.md §4.5 describes: parameterised by a
// node's key-share, the sig-nonce joint public k·G, and its inv-nonce
// share, it produces that node's contribution to the final signature.
//
// Each contributor pre-multiplies its raw share by its own Lagrange
// coefficient over the consensus group before sending it to master, so
// aggregation there is a plain sum — the detail spec.md's supplemented
// feature #2 traces to the original's other_nodes_ids field.
type signingJob struct {
	group         curve.Curve
	self          party.ID
	otherNodesIDs party.IDSlice
	keyShare      *keyshare.Share
	kPub          curve.Point
	uShare        curve.Scalar
}

func newSigningJob(group curve.Curve, self party.ID, otherNodesIDs party.IDSlice, keyShare *keyshare.Share, kPub curve.Point, uShare curve.Scalar) *signingJob {
	return &signingJob{
		group:         group,
		self:          self,
		otherNodesIDs: otherNodesIDs,
		keyShare:      keyShare,
		kPub:          kPub,
		uShare:        uShare,
	}
}

// r returns the ECDSA r candidate derived from the sig-nonce joint public.
func (j *signingJob) r() curve.Scalar {
	return j.kPub.XScalar()
}

// computeShare produces this node's pre-weighted contribution to s, given
// the master-combined inversion coefficient ι and the message hash reduced
// to a scalar.
func (j *signingJob) computeShare(iota, hash curve.Scalar) curve.Scalar {
	lambda := polynomial.LagrangeFor(j.group, j.otherNodesIDs, j.self)
	inner := hash.Add(j.r().Mul(iota))
	return lambda.Mul(j.uShare).Mul(inner)
}

// computeInversionCoeffShare implements spec.md §4.4: ι_i = s_i·u_i + z_i,
// where s_i is this node's long-term signing-key share.
func computeInversionCoeffShare(keyShare *keyshare.Share, uShare, zShare curve.Scalar) curve.Scalar {
	return keyShare.SecretShare.Mul(uShare).Add(zShare)
}
