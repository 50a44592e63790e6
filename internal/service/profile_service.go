package service

import (
	"context"
	"strings"

	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

type ProfileService struct {
	store  domain.Store
	logger *zerolog.Logger
}

func NewProfileService(store domain.Store, logger *zerolog.Logger) *ProfileService {
	return &ProfileService{
		store:  store,
		logger: logger,
	}
}

func (s *ProfileService) SaveProfile(ctx context.Context, p *models.UserProfile) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return s.store.UpsertProfile(ctx, p)
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	return s.store.GetProfile(ctx, userID)
}

func (s *ProfileService) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	return s.store.GetProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}
