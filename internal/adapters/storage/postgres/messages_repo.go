package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"health-record-portal/internal/domain/messages"
)

const messageColumns = `id, sender_id, recipient_id, body, created_at, read_at`

type MessagesRepo struct {
	db *sql.DB
}

func NewMessagesRepo(db *sql.DB) *MessagesRepo {
	return &MessagesRepo{db: db}
}

func (r *MessagesRepo) Create(ctx context.Context, m messages.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, m.ID, m.SenderID, m.RecipientID, m.Body, m.CreatedAt, m.ReadAt)
	return err
}

func (r *MessagesRepo) Get(ctx context.Context, id string) (messages.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	return scanMessage(row)
}

// Conversation takes the newest limit rows and returns them oldest first.
func (r *MessagesRepo) Conversation(ctx context.Context, a, b string, limit int) ([]messages.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+`
			FROM messages
			WHERE (sender_id = $1 AND recipient_id = $2)
			   OR (sender_id = $2 AND recipient_id = $1)
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		) latest
		ORDER BY created_at ASC, id ASC
	`, a, b, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]messages.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessagesRepo) MarkRead(ctx context.Context, id string, at time.Time) (messages.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE messages
		SET read_at = COALESCE(read_at, $2)
		WHERE id = $1
		RETURNING `+messageColumns, id, at)
	return scanMessage(row)
}

func scanMessage(s scanner) (messages.Message, error) {
	var m messages.Message
	if err := s.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.CreatedAt, &m.ReadAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return messages.Message{}, messages.ErrNotFound
		}
		return messages.Message{}, err
	}
	return m, nil
}
