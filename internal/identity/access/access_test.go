package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlink/internal/audit"
)

func TestAuditedEmitsEventAndReturnsValidGrant(t *testing.T) {
	store := audit.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	ctx := context.Background()

	grant, err := Audited(ctx, pub, "admin-1", "discord-9", "moderation review")
	require.NoError(t, err)

	assert.True(t, grant.Valid())
	assert.Equal(t, "admin-1", grant.Requester())
	assert.Equal(t, "moderation review", grant.Reason())

	events, err := store.ListBySubject(ctx, "discord-9")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventIdentityAccessed), events[0].Action)
	assert.Equal(t, "admin-1", events[0].ActorID)
}

func TestZeroValueGrantIsInvalid(t *testing.T) {
	var g Grant
	assert.False(t, g.Valid())
}
