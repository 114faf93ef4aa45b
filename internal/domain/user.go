package domain

import "context"

// Identity is the authenticated caller as reported by the external identity
// provider. Only the id and email are consumed by this core; sign-in and
// sign-up flows live outside it.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is the user's document in the users collection.
type Profile struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	BirthDate string `json:"birthDate,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// AuthProvider exposes the current identity and an auth-state-change event.
// Implementations wrap an external identity provider.
type AuthProvider interface {
	// CurrentUser returns the signed-in identity, or nil when signed out.
	CurrentUser() *Identity
	// OnAuthStateChanged registers fn to run on every sign-in (non-nil
	// identity) and sign-out (nil). The returned function removes the
	// listener.
	OnAuthStateChanged(fn func(*Identity)) (remove func())
}

// SessionStore persists the authenticated identity and its profile document
// locally so the app can render immediately on cold start, before any remote
// round-trip completes.
type SessionStore interface {
	SaveIdentity(identity *Identity) error
	LoadIdentity() (*Identity, error)
	SaveProfile(profile *Profile) error
	LoadProfile() (*Profile, error)
	Clear() error
}

// ProfileRepository defines storage operations for profile documents.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	Save(ctx context.Context, profile *Profile) error
}
