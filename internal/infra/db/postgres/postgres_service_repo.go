package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-notify-relay/internal/domain"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/repository"
)

var _ repository.ServiceRepository = (*PostgresServiceRepo)(nil)

type PostgresServiceRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresServiceRepo(pool *pgxpool.Pool) *PostgresServiceRepo {
	return &PostgresServiceRepo{pool: pool}
}

func (r *PostgresServiceRepo) Create(ctx context.Context, tx repository.Tx, s *model.Service) error {
	const q = `
INSERT INTO services (id, name, label, description, api_key, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.Name, s.Label, s.Description, s.APIKey, s.CreatedAt, s.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *PostgresServiceRepo) FindByAPIKey(ctx context.Context, tx repository.Tx, apiKey string) (*model.Service, error) {
	const q = `
SELECT id, name, label, description, api_key, created_at, updated_at
  FROM services WHERE api_key=$1;`
	s, err := r.scanOne(ctx, tx, q, apiKey)
	if err != nil {
		return nil, err
	}
	return r.loadGrants(ctx, tx, s)
}

func (r *PostgresServiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Service, error) {
	const q = `
SELECT id, name, label, description, api_key, created_at, updated_at
  FROM services WHERE id=$1;`
	s, err := r.scanOne(ctx, tx, q, id)
	if err != nil {
		return nil, err
	}
	return r.loadGrants(ctx, tx, s)
}

func (r *PostgresServiceRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Service, error) {
	const q = `
SELECT id, name, label, description, api_key, created_at, updated_at
  FROM services ORDER BY name;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Label, &s.Description, &s.APIKey, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	for _, s := range out {
		if _, err := r.loadGrants(ctx, tx, s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateAuthorizations replaces the service's grant set. Callers wanting
// atomicity run it under the TransactionManager; the use case does.
func (r *PostgresServiceRepo) UpdateAuthorizations(ctx context.Context, tx repository.Tx, serviceID string, chatIDs []string) error {
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM service_chat_grants WHERE service_id=$1;`, serviceID); err != nil {
		return err
	}
	const ins = `INSERT INTO service_chat_grants (service_id, chat_id) VALUES ($1,$2) ON CONFLICT DO NOTHING;`
	for _, cid := range chatIDs {
		if _, err := execSQL(ctx, r.pool, tx, ins, serviceID, cid); err != nil {
			return err
		}
	}
	_, err := execSQL(ctx, r.pool, tx, `UPDATE services SET updated_at=NOW() WHERE id=$1;`, serviceID)
	return err
}

func (r *PostgresServiceRepo) UpdateDetails(ctx context.Context, tx repository.Tx, s *model.Service) error {
	const q = `
UPDATE services SET name=$2, label=$3, description=$4, updated_at=$5 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, s.ID, s.Name, s.Label, s.Description, s.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresServiceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM services WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresServiceRepo) scanOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Service, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	var s model.Service
	if err := row.Scan(&s.ID, &s.Name, &s.Label, &s.Description, &s.APIKey, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresServiceRepo) loadGrants(ctx context.Context, tx repository.Tx, s *model.Service) (*model.Service, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT chat_id FROM service_chat_grants WHERE service_id=$1;`, s.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s.AuthorizedChatIDs = s.AuthorizedChatIDs[:0]
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		s.AuthorizedChatIDs = append(s.AuthorizedChatIDs, cid)
	}
	return s, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
