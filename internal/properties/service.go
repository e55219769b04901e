package properties

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListForCommunity returns the community's properties. An unknown community is
// ErrNotFound; a community without properties yields an empty slice.
func (s *Service) ListForCommunity(ctx context.Context, communityID uuid.UUID) ([]Property, error) {
	if communityID == uuid.Nil {
		return nil, fmt.Errorf("%w: community id required", shared.ErrValidation)
	}
	exists, err := s.repo.CommunityExists(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: community %s", shared.ErrNotFound, communityID)
	}
	props, err := s.repo.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if props == nil {
		props = []Property{}
	}
	return props, nil
}
