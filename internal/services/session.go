package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m4rcusml/event-planner/internal/domain"
)

// SessionService keeps the local session cache in step with the identity
// provider: the cached identity and profile are loaded once at cold start so
// the app can render before any remote round-trip, refreshed on every
// auth-state change, and cleared on sign-out.
type SessionService struct {
	auth     domain.AuthProvider
	profiles domain.ProfileRepository
	cache    domain.SessionStore
	log      *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	identity *domain.Identity
	profile  *domain.Profile
	remove   func()
}

// NewSessionService wires the session bootstrap.
func NewSessionService(
	auth domain.AuthProvider,
	profiles domain.ProfileRepository,
	cache domain.SessionStore,
	log *slog.Logger,
) *SessionService {
	return &SessionService{
		auth:     auth,
		profiles: profiles,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

// Start loads the cached session and registers for auth-state changes.
func (s *SessionService) Start(ctx context.Context) {
	identity, err := s.cache.LoadIdentity()
	if err != nil {
		s.log.Warn("load cached identity failed", "error", err)
	}
	profile, err := s.cache.LoadProfile()
	if err != nil {
		s.log.Warn("load cached profile failed", "error", err)
	}
	s.mu.Lock()
	s.identity = identity
	s.profile = profile
	s.mu.Unlock()

	s.remove = s.auth.OnAuthStateChanged(func(identity *domain.Identity) {
		s.handleAuthChange(ctx, identity)
	})
}

// Stop deregisters the auth listener.
func (s *SessionService) Stop() {
	if s.remove != nil {
		s.remove()
		s.remove = nil
	}
}

// CurrentIdentity returns the identity as of the last auth change or cached
// cold-start load, or nil when signed out.
func (s *SessionService) CurrentIdentity() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// CurrentProfile returns the profile document for the current identity, or
// nil when signed out or not yet fetched.
func (s *SessionService) CurrentProfile() *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *SessionService) handleAuthChange(ctx context.Context, identity *domain.Identity) {
	if identity == nil {
		s.mu.Lock()
		s.identity = nil
		s.profile = nil
		s.mu.Unlock()
		if err := s.cache.Clear(); err != nil {
			s.log.Warn("clear session cache failed", "error", err)
		}
		s.log.Info("session cleared")
		return
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	if err := s.cache.SaveIdentity(identity); err != nil {
		s.log.Warn("persist identity failed", "userId", identity.ID, "error", err)
	}

	profile, err := s.fetchOrCreateProfile(ctx, identity)
	if err != nil {
		// The cached profile (if any) keeps rendering until the next
		// auth change or reconnect.
		s.log.Warn("profile bootstrap failed", "userId", identity.ID, "error", err)
		return
	}
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	if err := s.cache.SaveProfile(profile); err != nil {
		s.log.Warn("persist profile failed", "userId", identity.ID, "error", err)
	}
}

// fetchOrCreateProfile reads the identity's profile document, creating a
// minimal one on first sign-in.
func (s *SessionService) fetchOrCreateProfile(ctx context.Context, identity *domain.Identity) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, identity.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	profile = &domain.Profile{
		ID:        identity.ID,
		Email:     identity.Email,
		CreatedAt: s.now().Format(time.RFC3339),
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}
	s.log.Info("profile created", "userId", identity.ID)
	return profile, nil
}
