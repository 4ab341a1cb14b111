package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"idlink/internal/audit"
	"idlink/internal/identity/cooldown"
	"idlink/internal/identity/models"
	"idlink/internal/identity/perms"
	"idlink/internal/identity/service"
	"idlink/internal/identity/store"
	jwttoken "idlink/internal/jwt_token"
	"idlink/internal/platform/logger"
)

const (
	testAdminID  = "admin-1"
	testPassword = "correct horse battery staple"
)

type HandlerSuite struct {
	suite.Suite
	server     *httptest.Server
	auditStore *audit.InMemoryStore
	cooldown   *cooldown.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	st := store.NewInMemory()
	s.auditStore = audit.NewInMemoryStore()
	publisher := audit.NewPublisher(s.auditStore)
	log := logger.New()

	var err error
	s.cooldown, err = cooldown.New(cooldown.NewInMemory(), time.Hour)
	s.Require().NoError(err)

	engine, err := perms.New(st, []string{testAdminID}, perms.WithLogger(log))
	s.Require().NoError(err)

	users, err := service.New(st, engine, s.cooldown,
		service.WithAuditPublisher(publisher),
		service.WithMeta(service.Meta{InstanceName: "Test Instance", UnlinkCooldown: time.Hour}),
	)
	s.Require().NoError(err)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	s.Require().NoError(err)

	tokens := jwttoken.NewJWTService("test-signing-key", "idlink-test", time.Hour)
	handler := NewHandler(users, engine, tokens, map[string]string{
		testAdminID: string(passwordHash),
	}, log, publisher)

	s.server = httptest.NewServer(NewRouter(handler))
	s.T().Cleanup(s.server.Close)
}

func (s *HandlerSuite) request(method, path, token string, body any) (*http.Response, map[string]any) {
	s.T().Helper()

	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func (s *HandlerSuite) login() string {
	s.T().Helper()
	resp, body := s.request(http.MethodPost, "/api/v1/admin/login", "", AdminLoginRequest{
		AdminID:  testAdminID,
		Password: testPassword,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	s.Require().NotEmpty(token)
	return token
}

func (s *HandlerSuite) register(discordID, institutionID string) {
	s.T().Helper()
	resp, _ := s.request(http.MethodPost, "/api/v1/register", "", RegisterRequest{
		DiscordID:     discordID,
		InstitutionID: institutionID,
		Email:         discordID + "@example.edu",
		KeepIdentity:  true,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
}

func (s *HandlerSuite) TestHealthz() {
	resp, err := s.server.Client().Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlerSuite) TestMeta() {
	resp, body := s.request(http.MethodGet, "/api/v1/meta", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("Test Instance", body["instance_name"])
	s.EqualValues(3600, body["unlink_cooldown_seconds"])
}

func (s *HandlerSuite) TestRegisterAndDuplicateDenied() {
	s.register("discord-1", "inst-1")

	resp, body := s.request(http.MethodPost, "/api/v1/register", "", RegisterRequest{
		DiscordID:     "discord-1",
		InstitutionID: "inst-2",
		Email:         "other@example.edu",
		KeepIdentity:  true,
	})
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal(false, body["allowed"])
	s.Equal(string(models.CodeDiscordAlreadyExists), body["code"])
}

func (s *HandlerSuite) TestRegisterValidation() {
	resp, body := s.request(http.MethodPost, "/api/v1/register", "", RegisterRequest{
		DiscordID:     "discord-1",
		InstitutionID: "inst-1",
		Email:         "not-an-email",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("bad_request", body["error"])
}

func (s *HandlerSuite) TestRegisterCheckDoesNotPersist() {
	resp, body := s.request(http.MethodPost, "/api/v1/register/check", "", RegisterCheckRequest{
		DiscordID:     "discord-1",
		InstitutionID: "inst-1",
		Email:         "a@example.edu",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, body["allowed"])

	// Still allowed afterwards: the check persisted nothing.
	resp, body = s.request(http.MethodPost, "/api/v1/register/check", "", RegisterCheckRequest{
		DiscordID:     "discord-1",
		InstitutionID: "inst-1",
		Email:         "a@example.edu",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, body["allowed"])
}

func (s *HandlerSuite) TestJoinCheckDeniedAfterBan() {
	s.register("discord-1", "inst-1")
	token := s.login()

	hash := models.HashIdentifier("inst-1")
	resp, _ := s.request(http.MethodPost, "/api/v1/admin/ban", token, CreateBanRequest{
		InstitutionIDHash: hash,
		Reason:            "spam",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp, body := s.request(http.MethodPost, "/api/v1/check/join", "", JoinCheckRequest{DiscordID: "discord-1"})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(false, body["allowed"])
	s.Equal(string(models.CodeJoinBanned), body["code"])
	s.Equal("spam", body["ban_reason"])
}

func (s *HandlerSuite) TestJoinCheckUnknownUser() {
	resp, body := s.request(http.MethodPost, "/api/v1/check/join", "", JoinCheckRequest{DiscordID: "nobody"})
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("not_found", body["error"])
}

func (s *HandlerSuite) TestAdminLoginRejectsBadPassword() {
	resp, body := s.request(http.MethodPost, "/api/v1/admin/login", "", AdminLoginRequest{
		AdminID:  testAdminID,
		Password: "wrong",
	})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("unauthorized", body["error"])
}

func (s *HandlerSuite) TestAdminRoutesRequireToken() {
	resp, body := s.request(http.MethodGet, "/api/v1/admin/users/count", "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("unauthorized", body["error"])

	resp, _ = s.request(http.MethodGet, "/api/v1/admin/users/count", "garbage-token", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestAdminUserLookup() {
	s.register("discord-1", "inst-1")
	token := s.login()

	resp, body := s.request(http.MethodGet, "/api/v1/admin/user/discord-1", token, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("discord-1", body["discord_id"])
	s.Equal(models.HashIdentifier("inst-1"), body["institution_id_hash"])
	// The lookup never exposes the stored identity.
	s.NotContains(body, "email")
}

func (s *HandlerSuite) TestIdentityAccessFlow() {
	s.register("discord-1", "inst-1")
	token := s.login()

	resp, body := s.request(http.MethodPost, "/api/v1/admin/identity", token, IdentityAccessRequest{
		DiscordID: "discord-1",
		Reason:    "abuse report follow-up",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("discord-1@example.edu", body["email"])

	events, err := s.auditStore.ListBySubject(s.T().Context(), "discord-1")
	s.Require().NoError(err)

	var found bool
	for _, e := range events {
		if e.Action == string(audit.EventIdentityAccessed) {
			found = true
			s.Equal(testAdminID, e.ActorID)
			s.Equal("abuse report follow-up", e.Reason)
		}
	}
	s.True(found, "identity access must appear in the audit trail")
}

func (s *HandlerSuite) TestIdentityAccessRequiresReason() {
	s.register("discord-1", "inst-1")
	token := s.login()

	resp, _ := s.request(http.MethodPost, "/api/v1/admin/identity", token, IdentityAccessRequest{
		DiscordID: "discord-1",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerSuite) TestDeleteUserBlockedThenCleared() {
	s.register("discord-1", "inst-1")
	token := s.login()

	// Identity access engages the cooldown.
	resp, _ := s.request(http.MethodPost, "/api/v1/admin/identity", token, IdentityAccessRequest{
		DiscordID: "discord-1",
		Reason:    "routine check",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body := s.request(http.MethodDelete, "/api/v1/admin/user/discord-1", token, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("forbidden", body["error"])

	resp, _ = s.request(http.MethodDelete, "/api/v1/admin/user/discord-1/cooldown", token, nil)
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)

	resp, _ = s.request(http.MethodDelete, "/api/v1/admin/user/discord-1", token, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
}

func (s *HandlerSuite) TestCountUsers() {
	for i := 1; i <= 3; i++ {
		s.register(fmt.Sprintf("discord-%d", i), fmt.Sprintf("inst-%d", i))
	}
	token := s.login()

	resp, body := s.request(http.MethodGet, "/api/v1/admin/users/count", token, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.EqualValues(3, body["count"])
}

func (s *HandlerSuite) TestBanValidation() {
	token := s.login()

	resp, body := s.request(http.MethodPost, "/api/v1/admin/ban", token, CreateBanRequest{
		InstitutionIDHash: "not-a-hash",
		Reason:            "spam",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("bad_request", body["error"])
}
