package store

import (
	"context"
	"sort"
	"sync"

	"idlink/internal/identity/access"
	"idlink/internal/identity/models"
	"idlink/pkg/platform/sentinel"
)

// InMemoryStore keeps the full facade in memory. It intentionally favors
// clarity over performance and backs unit tests and local development.
type InMemoryStore struct {
	mu         sync.RWMutex
	users      map[string]models.User         // by discord ID
	byHash     map[string]string              // institution hash -> discord ID
	identities map[string]models.TrueIdentity // by discord ID
	bans       map[string][]models.Ban        // by institution hash
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		users:      make(map[string]models.User),
		byHash:     make(map[string]string),
		identities: make(map[string]models.TrueIdentity),
		bans:       make(map[string][]models.Ban),
	}
}

func (s *InMemoryStore) UserExists(_ context.Context, discordID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[discordID]
	return ok, nil
}

func (s *InMemoryStore) GetUser(_ context.Context, discordID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[discordID]; ok {
		return user, nil
	}
	return models.User{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *InMemoryStore) CreateUser(_ context.Context, user models.User, identity *models.TrueIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.DiscordID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byHash[user.InstitutionIDHash]; ok {
		return sentinel.ErrConflict
	}
	s.users[user.DiscordID] = user
	s.byHash[user.InstitutionIDHash] = user.DiscordID
	if identity != nil {
		s.identities[user.DiscordID] = *identity
	}
	return nil
}

func (s *InMemoryStore) DeleteUser(_ context.Context, discordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[discordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, discordID)
	delete(s.byHash, user.InstitutionIDHash)
	delete(s.identities, discordID)
	return nil
}

func (s *InMemoryStore) IsAccountLinked(_ context.Context, institutionIDHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byHash[institutionIDHash]
	return ok, nil
}

func (s *InMemoryStore) GetBansFor(_ context.Context, institutionIDHash string) ([]models.Ban, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bans := append([]models.Ban{}, s.bans[institutionIDHash]...)
	// Newest first, matching the Postgres ORDER BY.
	sort.SliceStable(bans, func(i, j int) bool {
		return bans[i].IssuedAt.After(bans[j].IssuedAt)
	})
	return bans, nil
}

func (s *InMemoryStore) CreateBan(_ context.Context, ban models.Ban) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[ban.InstitutionIDHash] = append(s.bans[ban.InstitutionIDHash], ban)
	return nil
}

func (s *InMemoryStore) IsUserIdentifiable(_ context.Context, user models.User) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.identities[user.DiscordID]
	return ok, nil
}

func (s *InMemoryStore) GetTrueIdentity(_ context.Context, user models.User, grant access.Grant) (models.TrueIdentity, error) {
	if !grant.Valid() {
		return models.TrueIdentity{}, ErrUnauditedAccess
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identity, ok := s.identities[user.DiscordID]; ok {
		return identity, nil
	}
	return models.TrueIdentity{}, sentinel.ErrNotFound
}
