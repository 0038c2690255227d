package repository

import (
	"context"

	"telegram-notify-relay/internal/domain/model"
)

// ServiceRepository persists registered services and their chat grants.
// Lookups by unique key (API key, ID) are index-backed.
type ServiceRepository interface {
	Create(ctx context.Context, tx Tx, s *model.Service) error
	// FindByAPIKey matches the key exactly; unknown keys yield domain.ErrNotFound.
	FindByAPIKey(ctx context.Context, tx Tx, apiKey string) (*model.Service, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Service, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Service, error)
	// UpdateAuthorizations replaces the full grant set atomically.
	UpdateAuthorizations(ctx context.Context, tx Tx, serviceID string, chatIDs []string) error
	UpdateDetails(ctx context.Context, tx Tx, s *model.Service) error
	Delete(ctx context.Context, tx Tx, id string) error
}
