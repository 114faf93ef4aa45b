package docstore

import (
	"context"
	"fmt"

	"github.com/m4rcusml/event-planner/internal/domain"
)

type profileRepository struct {
	store domain.RemoteStore
}

// NewProfileRepository returns a ProfileRepository backed by the given store.
// Profiles are keyed by the identity id.
func NewProfileRepository(store domain.RemoteStore) domain.ProfileRepository {
	return &profileRepository{store: store}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	doc, err := r.store.Get(ctx, domain.CollectionUsers, id)
	if err != nil {
		return nil, err
	}
	return ProfileFromDocument(doc)
}

func (r *profileRepository) Save(ctx context.Context, p *domain.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("%w: profile id is required", domain.ErrInvalidInput)
	}
	if err := r.store.Set(ctx, domain.CollectionUsers, p.ID, ProfileToData(p), true); err != nil {
		return fmt.Errorf("save profile %s: %w", p.ID, err)
	}
	return nil
}
