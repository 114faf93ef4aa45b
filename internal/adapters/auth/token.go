// Package auth adapts the external identity provider. The sync core only
// consumes the current identity's id and email; sign-in and sign-up flows
// live with the provider.
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/m4rcusml/event-planner/internal/domain"
)

type idClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenProvider is an AuthProvider fed by HS256 identity tokens. SignIn
// verifies a token and publishes the identity; SignOut publishes nil. Both
// fire the auth-state-change listeners.
type TokenProvider struct {
	secret []byte

	mu        sync.Mutex
	current   *domain.Identity
	listeners []authListener
	nextID    int
}

type authListener struct {
	id int
	fn func(*domain.Identity)
}

// NewTokenProvider returns a provider that verifies HS256 tokens signed
// with secret.
func NewTokenProvider(secret string) *TokenProvider {
	return &TokenProvider{secret: []byte(secret)}
}

// SignIn verifies token and makes its identity current.
func (p *TokenProvider) SignIn(token string) (*domain.Identity, error) {
	identity, err := p.Verify(token)
	if err != nil {
		return nil, err
	}
	p.publish(identity)
	return identity, nil
}

// SignOut clears the current identity.
func (p *TokenProvider) SignOut() {
	p.publish(nil)
}

// CurrentUser returns the signed-in identity, or nil.
func (p *TokenProvider) CurrentUser() *domain.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// OnAuthStateChanged registers fn for sign-in and sign-out events.
func (p *TokenProvider) OnAuthStateChanged(fn func(*domain.Identity)) (remove func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, authListener{id: id, fn: fn})
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// Verify validates an HS256 token and extracts the identity.
func (p *TokenProvider) Verify(token string) (*domain.Identity, error) {
	claims := &idClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: token missing subject", domain.ErrNotAuthenticated)
	}
	return &domain.Identity{ID: claims.Subject, Email: claims.Email}, nil
}

// Issue signs an identity token. Used by tests and development tooling; in
// production tokens come from the identity provider.
func (p *TokenProvider) Issue(userID, email string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := idClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (p *TokenProvider) publish(identity *domain.Identity) {
	p.mu.Lock()
	p.current = identity
	fns := make([]func(*domain.Identity), 0, len(p.listeners))
	for _, l := range p.listeners {
		fns = append(fns, l.fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(identity)
	}
}
