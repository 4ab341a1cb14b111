// Package ban holds the validity rule for moderation bans.
package ban

import (
	"time"

	"idlink/internal/identity/models"
)

// IsActiveAt reports whether the ban is enforceable at the given instant.
// A ban with no expiry is always active; otherwise it is active strictly
// before its expiry (a ban expiring at T is inactive at exactly T).
//
// Callers scanning several bans in one decision must pass the same now for
// each, typically requestcontext.Now(ctx).
func IsActiveAt(b models.Ban, now time.Time) bool {
	if b.ExpiresAt == nil {
		return true
	}
	return now.Before(*b.ExpiresAt)
}

// FirstActiveAt returns the first active ban in bans, or nil. The store
// contract orders bans most-recently-issued first, so "first active" is the
// newest active ban.
func FirstActiveAt(bans []models.Ban, now time.Time) *models.Ban {
	for i := range bans {
		if IsActiveAt(bans[i], now) {
			return &bans[i]
		}
	}
	return nil
}
