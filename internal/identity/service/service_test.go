package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idlink/internal/audit"
	"idlink/internal/identity/cooldown"
	"idlink/internal/identity/models"
	"idlink/internal/identity/perms"
	"idlink/internal/identity/store"
	dErrors "idlink/pkg/domain-errors"
	"idlink/pkg/requestcontext"
)

type LifecycleSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
	cooldown   *cooldown.Service
	svc        *Service
	now        time.Time
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.auditStore = audit.NewInMemoryStore()
	publisher := audit.NewPublisher(s.auditStore)

	var err error
	s.cooldown, err = cooldown.New(cooldown.NewInMemory(), time.Hour)
	s.Require().NoError(err)

	engine, err := perms.New(s.store, nil)
	s.Require().NoError(err)

	s.svc, err = New(s.store, engine, s.cooldown,
		WithAuditPublisher(publisher),
		WithMeta(Meta{InstanceName: "Test Instance", UnlinkCooldown: time.Hour}),
	)
	s.Require().NoError(err)

	s.now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *LifecycleSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *LifecycleSuite) createUser(discordID, institutionID string, keepIdentity bool) models.User {
	s.T().Helper()
	user, advisory, err := s.svc.CreateUser(s.ctx(), discordID, institutionID, discordID+"@example.edu", keepIdentity)
	s.Require().NoError(err)
	s.Require().True(advisory.Allowed)
	return user
}

func (s *LifecycleSuite) actions(subject string) []string {
	s.T().Helper()
	events, err := s.auditStore.ListBySubject(context.Background(), subject)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *LifecycleSuite) TestCreateUserPersistsAndAudits() {
	user := s.createUser("discord-1", "inst-1", true)

	s.Equal(models.HashIdentifier("inst-1"), user.InstitutionIDHash)
	s.Equal(s.now, user.CreatedAt)

	exists, err := s.store.UserExists(s.ctx(), "discord-1")
	s.NoError(err)
	s.True(exists)

	identifiable, err := s.store.IsUserIdentifiable(s.ctx(), user)
	s.NoError(err)
	s.True(identifiable)

	s.Contains(s.actions("discord-1"), string(audit.EventUserCreated))
}

func (s *LifecycleSuite) TestCreateUserWithoutKeepingIdentity() {
	user := s.createUser("discord-1", "inst-1", false)

	identifiable, err := s.store.IsUserIdentifiable(s.ctx(), user)
	s.NoError(err)
	s.False(identifiable)
}

func (s *LifecycleSuite) TestCreateUserDeniedForDuplicateDiscordAccount() {
	s.createUser("discord-1", "inst-1", true)

	_, advisory, err := s.svc.CreateUser(s.ctx(), "discord-1", "inst-2", "b@example.edu", true)
	s.NoError(err)
	s.False(advisory.Allowed)
	s.Equal(models.CodeDiscordAlreadyExists, advisory.Code)

	// Nothing persisted, and the denial is in the audit trail.
	n, err := s.svc.CountUsers(s.ctx())
	s.NoError(err)
	s.Equal(1, n)
	s.Contains(s.actions("discord-1"), string(audit.EventAccountCreationDenied))
}

func (s *LifecycleSuite) TestCreateUserDeniedForRelinkedInstitution() {
	s.createUser("discord-1", "inst-1", true)

	_, advisory, err := s.svc.CreateUser(s.ctx(), "discord-2", "inst-1", "b@example.edu", true)
	s.NoError(err)
	s.False(advisory.Allowed)
	s.Equal(models.CodeAlreadyLinked, advisory.Code)
}

func (s *LifecycleSuite) TestCreateUserDeniedByActiveBan() {
	hash := models.HashIdentifier("inst-1")
	_, err := s.svc.CreateBan(s.ctx(), hash, "spam", "admin-1", nil)
	s.Require().NoError(err)

	_, advisory, err := s.svc.CreateUser(s.ctx(), "discord-1", "inst-1", "a@example.edu", true)
	s.NoError(err)
	s.False(advisory.Allowed)
	s.Equal(models.CodeCreationBanned, advisory.Code)
	s.Equal("spam", advisory.Detail.BanReason)
}

func (s *LifecycleSuite) TestDeleteUserBlockedByCooldown() {
	user := s.createUser("discord-1", "inst-1", true)
	s.Require().NoError(s.cooldown.Refresh(s.ctx(), user.InstitutionIDHash))

	err := s.svc.DeleteUser(s.ctx(), "discord-1")
	s.Require().Error(err)
	s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))

	exists, err := s.store.UserExists(s.ctx(), "discord-1")
	s.NoError(err)
	s.True(exists)
}

func (s *LifecycleSuite) TestDeleteUserSucceedsAfterCooldownExpiry() {
	user := s.createUser("discord-1", "inst-1", true)
	s.Require().NoError(s.cooldown.Refresh(s.ctx(), user.InstitutionIDHash))

	later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
	s.Require().NoError(s.svc.DeleteUser(later, "discord-1"))

	exists, err := s.store.UserExists(s.ctx(), "discord-1")
	s.NoError(err)
	s.False(exists)
	s.Contains(s.actions("discord-1"), string(audit.EventUserDeleted))
}

func (s *LifecycleSuite) TestDeleteUnknownUser() {
	err := s.svc.DeleteUser(s.ctx(), "nobody")
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *LifecycleSuite) TestCreateBanEngagesCooldown() {
	user := s.createUser("discord-1", "inst-1", true)

	ban, err := s.svc.CreateBan(s.ctx(), user.InstitutionIDHash, "harassment", "admin-1", nil)
	s.Require().NoError(err)
	s.Equal(s.now, ban.IssuedAt)
	s.NotEqual("", ban.ID.String())

	// The freshly banned user cannot immediately unlink.
	err = s.svc.DeleteUser(s.ctx(), "discord-1")
	s.Require().Error(err)
	s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))
}

func (s *LifecycleSuite) TestCreateBanRequiresReason() {
	_, err := s.svc.CreateBan(s.ctx(), "some-hash", "", "admin-1", nil)
	s.Require().Error(err)
	s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
}

func (s *LifecycleSuite) TestAccessTrueIdentityAuditsAndEngagesCooldown() {
	user := s.createUser("discord-1", "inst-1", true)

	identity, err := s.svc.AccessTrueIdentity(s.ctx(), "discord-1", "admin-1", "abuse report follow-up")
	s.Require().NoError(err)
	s.Equal("discord-1@example.edu", identity.Email)

	actions := s.actions("discord-1")
	s.Contains(actions, string(audit.EventIdentityAccessed))

	ok, err := s.cooldown.CanUnlink(s.ctx(), user.InstitutionIDHash)
	s.NoError(err)
	s.False(ok)
}

func (s *LifecycleSuite) TestAccessTrueIdentityRequiresReason() {
	s.createUser("discord-1", "inst-1", true)

	_, err := s.svc.AccessTrueIdentity(s.ctx(), "discord-1", "admin-1", "")
	s.Require().Error(err)
	s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
}

func (s *LifecycleSuite) TestAccessTrueIdentityWhenNotKept() {
	s.createUser("discord-1", "inst-1", false)

	_, err := s.svc.AccessTrueIdentity(s.ctx(), "discord-1", "admin-1", "abuse report")
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *LifecycleSuite) TestClearCooldownPermitsImmediateRemoval() {
	user := s.createUser("discord-1", "inst-1", true)
	s.Require().NoError(s.cooldown.Refresh(s.ctx(), user.InstitutionIDHash))

	s.Require().NoError(s.svc.ClearCooldown(s.ctx(), "discord-1", "admin-1"))
	s.Require().NoError(s.svc.DeleteUser(s.ctx(), "discord-1"))

	s.Contains(s.actions("discord-1"), string(audit.EventCooldownCleared))
}

func (s *LifecycleSuite) TestCountUsers() {
	s.createUser("discord-1", "inst-1", true)
	s.createUser("discord-2", "inst-2", false)

	n, err := s.svc.CountUsers(s.ctx())
	s.NoError(err)
	s.Equal(2, n)
}

func (s *LifecycleSuite) TestMeta() {
	meta := s.svc.Meta()
	s.Equal("Test Instance", meta.InstanceName)
	s.Equal(time.Hour, meta.UnlinkCooldown)
}
