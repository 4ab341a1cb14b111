package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: account creation/deletion, true-identity accesses.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// Examples: bans, denied joins, admin logins.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// Subject is the messaging-platform identifier the event is about.
	Subject string `json:"subject"`
	Action  string `json:"action"`
	Reason  string `json:"reason,omitempty"`
	// ActorID tracks who performed the action when different from Subject
	// (admin operations, identity accesses on a user's behalf).
	ActorID string `json:"actor_id,omitempty"`
	// SubjectIDHash is the hashed institutional identifier involved, kept for
	// traceability without storing raw identifiers.
	SubjectIDHash string `json:"subject_id_hash,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
}

// AuditEvent names every action the system records.
type AuditEvent string

const (
	EventUserCreated      AuditEvent = "user_created"
	EventUserDeleted      AuditEvent = "user_deleted"
	EventIdentityAccessed AuditEvent = "identity_accessed"

	EventBanCreated            AuditEvent = "ban_created"
	EventJoinDenied            AuditEvent = "join_denied_ban"
	EventAccountCreationDenied AuditEvent = "account_creation_denied"
	EventAdminLogin            AuditEvent = "admin_login"
	EventCooldownCleared       AuditEvent = "cooldown_cleared"

	EventUserCounted AuditEvent = "users_counted"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventUserCreated:      CategoryCompliance,
	EventUserDeleted:      CategoryCompliance,
	EventIdentityAccessed: CategoryCompliance,

	EventBanCreated:            CategorySecurity,
	EventJoinDenied:            CategorySecurity,
	EventAccountCreationDenied: CategorySecurity,
	EventAdminLogin:            CategorySecurity,
	EventCooldownCleared:       CategorySecurity,

	EventUserCounted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
