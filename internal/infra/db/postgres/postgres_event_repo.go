package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-notify-relay/internal/domain"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/repository"
)

var _ repository.MessageEventRepository = (*PostgresEventRepo)(nil)

type PostgresEventRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresEventRepo(pool *pgxpool.Pool) *PostgresEventRepo {
	return &PostgresEventRepo{pool: pool}
}

func (r *PostgresEventRepo) Record(ctx context.Context, tx repository.Tx, e *model.MessageEvent) error {
	const q = `
INSERT INTO message_events (id, service_id, chat_id, message_content, telegram_message_id, success, error_message, sent_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, e.ServiceID, e.ChatID, e.MessageContent, e.TelegramMessageID, e.Success, e.ErrorMessage, e.SentAt)
	return err
}

func (r *PostgresEventRepo) List(ctx context.Context, tx repository.Tx, f repository.EventFilter) ([]*model.MessageEvent, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ServiceID != "" {
		add("service_id=$%d", f.ServiceID)
	}
	if f.ChatID != "" {
		add("chat_id=$%d", f.ChatID)
	}
	if f.Success != nil {
		add("success=$%d", *f.Success)
	}
	if !f.Since.IsZero() {
		add("sent_at >= $%d", f.Since)
	}

	q := `SELECT id, service_id, chat_id, message_content, telegram_message_id, success, error_message, sent_at FROM message_events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY sent_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := pickRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.MessageEvent
	for rows.Next() {
		var e model.MessageEvent
		if err := rows.Scan(&e.ID, &e.ServiceID, &e.ChatID, &e.MessageContent, &e.TelegramMessageID, &e.Success, &e.ErrorMessage, &e.SentAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *PostgresEventRepo) Stats(ctx context.Context, tx repository.Tx) (*repository.EventStats, error) {
	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE success),
       COUNT(*) FILTER (WHERE NOT success)
  FROM message_events;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	var st repository.EventStats
	if err := row.Scan(&st.Total, &st.Successful, &st.Failed); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &st, nil
}
