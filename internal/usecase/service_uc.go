package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-notify-relay/internal/domain"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/repository"
)

// ServiceUseCase backs the admin surface for registered services.
type ServiceUseCase interface {
	Create(ctx context.Context, name, label, description string) (*model.Service, error)
	Get(ctx context.Context, id string) (*model.Service, error)
	List(ctx context.Context) ([]*model.Service, error)
	UpdateDetails(ctx context.Context, id, name, label, description string) (*model.Service, error)
	// SetAuthorizations replaces the service's granted chat set atomically.
	SetAuthorizations(ctx context.Context, id string, chatIDs []string) error
	Delete(ctx context.Context, id string) error
}

var _ ServiceUseCase = (*serviceUC)(nil)

type serviceUC struct {
	services repository.ServiceRepository
	chats    repository.ChatRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewServiceUseCase(services repository.ServiceRepository, chats repository.ChatRepository, tm repository.TransactionManager, logger *zerolog.Logger) *serviceUC {
	return &serviceUC{services: services, chats: chats, tm: tm, log: logger}
}

func (uc *serviceUC) Create(ctx context.Context, name, label, description string) (*model.Service, error) {
	svc, err := model.NewService("", name, label, description)
	if err != nil {
		return nil, err
	}
	if err := uc.services.Create(ctx, repository.NoTX, svc); err != nil {
		return nil, err
	}
	uc.log.Info().Str("service", svc.Name).Msg("service created")
	return svc, nil
}

func (uc *serviceUC) Get(ctx context.Context, id string) (*model.Service, error) {
	return uc.services.FindByID(ctx, repository.NoTX, id)
}

func (uc *serviceUC) List(ctx context.Context) ([]*model.Service, error) {
	return uc.services.ListAll(ctx, repository.NoTX)
}

func (uc *serviceUC) UpdateDetails(ctx context.Context, id, name, label, description string) (*model.Service, error) {
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}
	svc, err := uc.services.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	svc.Name = name
	svc.Label = label
	svc.Description = description
	svc.Touch()
	if err := uc.services.UpdateDetails(ctx, repository.NoTX, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// SetAuthorizations validates every chat exists, then swaps the grant set in
// one transaction so a concurrent notify sees either the old or the new set.
func (uc *serviceUC) SetAuthorizations(ctx context.Context, id string, chatIDs []string) error {
	if _, err := uc.services.FindByID(ctx, repository.NoTX, id); err != nil {
		return err
	}
	for _, cid := range chatIDs {
		if _, err := uc.chats.FindByID(ctx, repository.NoTX, cid); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidArgument
			}
			return err
		}
	}
	return uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return uc.services.UpdateAuthorizations(ctx, tx, id, chatIDs)
	})
}

func (uc *serviceUC) Delete(ctx context.Context, id string) error {
	if err := uc.services.Delete(ctx, repository.NoTX, id); err != nil {
		return err
	}
	uc.log.Info().Str("service", id).Msg("service deleted")
	return nil
}
