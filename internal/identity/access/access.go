// Package access gates every read of true-identity data behind a capability
// token. Code outside this package cannot forge a usable Grant: the only
// constructor is Audited, which records who asked and why before handing the
// token out. A zero-value Grant is rejected by every consumer.
package access

import (
	"context"

	"idlink/internal/audit"
)

// Grant is the capability required by any function that touches true-identity
// data. Receiving one as a parameter marks the call path as identity-reading.
type Grant struct {
	requester string
	reason    string
	audited   bool
}

// Audited emits an identity-access audit event and returns the Grant that
// authorizes the read. requester identifies who is asking (admin subject or
// the user themself), subject is the messaging-platform ID whose identity is
// read, reason is the human-supplied justification shown in audit trails.
func Audited(ctx context.Context, emitter audit.Emitter, requester, subject, reason string) (Grant, error) {
	event := audit.Event{
		Subject: subject,
		Action:  string(audit.EventIdentityAccessed),
		Reason:  reason,
		ActorID: requester,
	}
	if err := emitter.Emit(ctx, event); err != nil {
		return Grant{}, err
	}
	return Grant{requester: requester, reason: reason, audited: true}, nil
}

// Valid reports whether the grant came out of the audited path. Consumers
// must refuse zero-value grants.
func (g Grant) Valid() bool { return g.audited }

// Requester returns who the grant was issued to.
func (g Grant) Requester() string { return g.requester }

// Reason returns the justification recorded when the grant was issued.
func (g Grant) Reason() string { return g.reason }
