package models

// DenyCode is the short machine-readable identifier callers use for
// localization and logging. Values are a stable contract.
type DenyCode string

const (
	// CodeDiscordAlreadyExists: messaging-platform account already exists.
	CodeDiscordAlreadyExists DenyCode = "pc.dae"
	// CodeAlreadyLinked: institutional account already linked elsewhere.
	CodeAlreadyLinked DenyCode = "pc.ala"
	// CodeEmailRejected: email rejected by the configured validator.
	CodeEmailRejected DenyCode = "pc.erj"
	// CodeCreationBanned: creation denied, active ban.
	CodeCreationBanned DenyCode = "pc.cba"
	// CodeJoinBanned: join denied, active ban.
	CodeJoinBanned DenyCode = "pc.jba"
)

// DenyDetail carries structured denial detail for callers that need it
// separately from the prose reason. A fixed struct instead of an open map
// keeps the contract checkable.
type DenyDetail struct {
	BanReason string
}

// Advisory is the allow/deny outcome of a permission check. Policy denials
// are values, never errors; infrastructure failures travel separately.
type Advisory struct {
	Allowed bool
	// Reason is a human-readable explanation, set only when denied.
	Reason string
	Code   DenyCode
	Detail DenyDetail
}

// Allow is the advisory for a permitted action.
func Allow() Advisory {
	return Advisory{Allowed: true}
}

// Deny builds a denial advisory with its machine code.
func Deny(reason string, code DenyCode) Advisory {
	return Advisory{Reason: reason, Code: code}
}

// DenyWithBanReason builds a denial advisory carrying the ban reason as
// structured detail.
func DenyWithBanReason(reason string, code DenyCode, banReason string) Advisory {
	return Advisory{Reason: reason, Code: code, Detail: DenyDetail{BanReason: banReason}}
}

// AdminStatus describes a user's ability to perform admin actions.
type AdminStatus int

const (
	// NotAdmin: the user is not present in the admin allowlist.
	NotAdmin AdminStatus = iota
	// AdminNotIdentifiable: allowlisted, but the user's true identity is not
	// currently accessible. Accountability is a prerequisite for admin power,
	// so this is distinct from NotAdmin.
	AdminNotIdentifiable
	// Admin: allowlisted and identifiable.
	Admin
)

func (s AdminStatus) String() string {
	switch s {
	case NotAdmin:
		return "not_admin"
	case AdminNotIdentifiable:
		return "admin_not_identifiable"
	case Admin:
		return "admin"
	default:
		return "unknown"
	}
}
