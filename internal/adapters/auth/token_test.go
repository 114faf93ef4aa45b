package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4rcusml/event-planner/internal/domain"
)

func TestTokenProvider_IssueVerifyRoundTrip(t *testing.T) {
	p := NewTokenProvider("test-secret")

	token, err := p.Issue("u1", "maria@example.com", time.Hour)
	require.NoError(t, err)

	identity, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.ID)
	assert.Equal(t, "maria@example.com", identity.Email)
}

func TestTokenProvider_Verify_WrongSecret(t *testing.T) {
	issuer := NewTokenProvider("secret-a")
	verifier := NewTokenProvider("secret-b")

	token, err := issuer.Issue("u1", "maria@example.com", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestTokenProvider_Verify_Expired(t *testing.T) {
	p := NewTokenProvider("test-secret")

	token, err := p.Issue("u1", "maria@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestTokenProvider_Verify_Garbage(t *testing.T) {
	p := NewTokenProvider("test-secret")

	_, err := p.Verify("not.a.token")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestTokenProvider_SignInSignOut(t *testing.T) {
	p := NewTokenProvider("test-secret")
	require.Nil(t, p.CurrentUser())

	var changes []*domain.Identity
	remove := p.OnAuthStateChanged(func(identity *domain.Identity) {
		changes = append(changes, identity)
	})
	defer remove()

	token, err := p.Issue("u1", "maria@example.com", time.Hour)
	require.NoError(t, err)

	identity, err := p.SignIn(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.ID)
	assert.Equal(t, "u1", p.CurrentUser().ID)

	p.SignOut()
	assert.Nil(t, p.CurrentUser())

	require.Len(t, changes, 2)
	assert.Equal(t, "u1", changes[0].ID)
	assert.Nil(t, changes[1])
}

func TestTokenProvider_SignIn_InvalidTokenDoesNotPublish(t *testing.T) {
	p := NewTokenProvider("test-secret")

	calls := 0
	remove := p.OnAuthStateChanged(func(*domain.Identity) { calls++ })
	defer remove()

	_, err := p.SignIn("garbage")
	require.Error(t, err)
	assert.Nil(t, p.CurrentUser())
	assert.Zero(t, calls)
}

func TestTokenProvider_RemoveListener(t *testing.T) {
	p := NewTokenProvider("test-secret")

	calls := 0
	remove := p.OnAuthStateChanged(func(*domain.Identity) { calls++ })
	remove()
	remove() // idempotent

	p.SignOut()
	token, err := p.Issue("u1", "x@y.com", time.Hour)
	require.NoError(t, err)
	_, err = p.SignIn(token)
	require.NoError(t, err)

	assert.Zero(t, calls)
}
