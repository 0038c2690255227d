package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-notify-relay/internal/domain"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/repository"
)

var _ repository.ChatRepository = (*PostgresChatRepo)(nil)

type PostgresChatRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresChatRepo(pool *pgxpool.Pool) *PostgresChatRepo {
	return &PostgresChatRepo{pool: pool}
}

const chatColumns = `id, chat_id, title, username, chat_type, label, description, is_tester, created_at, updated_at`

func (r *PostgresChatRepo) Create(ctx context.Context, tx repository.Tx, c *model.Chat) error {
	const q = `
INSERT INTO chats (` + chatColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.ChatID, c.Title, c.Username, string(c.ChatType), c.Label, c.Description, c.IsTester, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *PostgresChatRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Chat, error) {
	return r.scanOne(ctx, tx, `SELECT `+chatColumns+` FROM chats WHERE id=$1;`, id)
}

func (r *PostgresChatRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Chat, error) {
	return r.scanOne(ctx, tx, `SELECT `+chatColumns+` FROM chats WHERE chat_id=$1;`, chatID)
}

func (r *PostgresChatRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Chat, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT `+chatColumns+` FROM chats ORDER BY title;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert inserts by Telegram chat ID or refreshes title/username/type of an
// existing row. Label, description and the tester flag are admin-owned and
// left untouched; chats absent from a discovery batch are never deleted.
func (r *PostgresChatRepo) Upsert(ctx context.Context, tx repository.Tx, c *model.Chat) (bool, error) {
	const q = `
INSERT INTO chats (` + chatColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (chat_id) DO UPDATE SET
  title=EXCLUDED.title, username=EXCLUDED.username, chat_type=EXCLUDED.chat_type, updated_at=EXCLUDED.updated_at
RETURNING (xmax = 0);`
	row, err := pickRow(ctx, r.pool, tx, q,
		c.ID, c.ChatID, c.Title, c.Username, string(c.ChatType), c.Label, c.Description, c.IsTester, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return false, err
	}
	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		return false, err
	}
	return inserted, nil
}

func (r *PostgresChatRepo) UpdateDetails(ctx context.Context, tx repository.Tx, c *model.Chat) error {
	const q = `
UPDATE chats SET title=$2, username=$3, chat_type=$4, label=$5, description=$6, is_tester=$7, updated_at=$8
 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.Title, c.Username, string(c.ChatType), c.Label, c.Description, c.IsTester, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresChatRepo) DeleteAll(ctx context.Context, tx repository.Tx) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM chats;`)
	return err
}

func (r *PostgresChatRepo) scanOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Chat, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	c, err := scanChat(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanChat(row pgx.Row) (*model.Chat, error) {
	var c model.Chat
	var chatType string
	if err := row.Scan(&c.ID, &c.ChatID, &c.Title, &c.Username, &chatType, &c.Label, &c.Description, &c.IsTester, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ChatType = model.ChatType(chatType)
	return &c, nil
}
