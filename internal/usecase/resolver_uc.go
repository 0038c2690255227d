package usecase

import (
	"context"
	"errors"

	"telegram-notify-relay/internal/domain"
	"telegram-notify-relay/internal/domain/ports/repository"
)

// Grant is the authorization view of one service: which chats it may message.
type Grant struct {
	ServiceID   string
	ServiceName string
	ChatIDs     []string
}

// PermissionResolver maps an API key to the service's granted chat set.
type PermissionResolver interface {
	// Resolve matches apiKey exactly; unknown keys yield domain.ErrUnauthorized
	// without revealing whether any service exists. A matched service with no
	// grants resolves to an empty (valid) chat set.
	Resolve(ctx context.Context, apiKey string) (*Grant, error)
}

var _ PermissionResolver = (*permissionResolver)(nil)

type permissionResolver struct {
	services repository.ServiceRepository
}

func NewPermissionResolver(services repository.ServiceRepository) *permissionResolver {
	return &permissionResolver{services: services}
}

func (r *permissionResolver) Resolve(ctx context.Context, apiKey string) (*Grant, error) {
	if apiKey == "" {
		return nil, domain.ErrUnauthorized
	}
	svc, err := r.services.FindByAPIKey(ctx, repository.NoTX, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	chatIDs := make([]string, len(svc.AuthorizedChatIDs))
	copy(chatIDs, svc.AuthorizedChatIDs)
	return &Grant{
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		ChatIDs:     chatIDs,
	}, nil
}
