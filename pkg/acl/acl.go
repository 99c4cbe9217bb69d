// Package acl is the access-control storage collaborator of spec.md §6: a
// check of whether a requester may use a given signing session's key.
package acl

import "github.com/luxfi/signsession/pkg/party"

// Checker answers the ACL question backing the consensus sub-session's
// KeyAccessJob. Production deployments back this with the cluster's
// contract-backed ACL storage; this package only ships an in-memory
// allow-list for tests and the CLI demo.
type Checker interface {
	Check(requester party.ID, sessionID []byte) (bool, error)
}

// AllowList grants access to a fixed set of requesters, independent of
// session ID. Denials (e.g. to simulate scenario S3 of spec.md §8) are
// expressed by omission.
type AllowList struct {
	allowed map[party.ID]bool
}

// NewAllowList creates an AllowList permitting exactly the given requesters.
func NewAllowList(allowed ...party.ID) *AllowList {
	m := make(map[party.ID]bool, len(allowed))
	for _, id := range allowed {
		m[id] = true
	}
	return &AllowList{allowed: m}
}

// Check implements Checker.
func (a *AllowList) Check(requester party.ID, _ []byte) (bool, error) {
	return a.allowed[requester], nil
}

// Deny removes a previously-allowed requester, e.g. to simulate an ACL
// revocation mid-run.
func (a *AllowList) Deny(requester party.ID) {
	delete(a.allowed, requester)
}
