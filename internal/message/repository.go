package message

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgForeignKeyViolation       = "23503"
	pgInvalidTextRepresentation = "22P02"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create persists one message. The room must exist; a room deleted between
// the existence check and the insert surfaces as a foreign key violation and
// is reported the same way.
func (r *Repository) Create(ctx context.Context, roomID, senderName, content string) (*Message, error) {
	exists, err := r.roomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	msg := &Message{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderName: senderName,
		Content:    content,
	}
	query := `
		INSERT INTO messages (id, room_id, sender_name, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query, msg.ID, msg.RoomID, msg.SenderName, msg.Content).
		Scan(&msg.CreatedAt)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return msg, nil
}

// List returns a room's messages in creation order, with skip/take paging.
func (r *Repository) List(ctx context.Context, roomID string, skip, take int) ([]*Message, error) {
	exists, err := r.roomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	query := `
		SELECT id, room_id, sender_name, content, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC
		OFFSET $2 LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, roomID, skip, take)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []*Message{}
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderName, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		if pgCode(err) == pgInvalidTextRepresentation {
			return ErrNotFound
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) roomExists(ctx context.Context, roomID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM rooms WHERE id = $1)", roomID).Scan(&exists)
	if err != nil {
		// A malformed UUID cannot name an existing room.
		if pgCode(err) == pgInvalidTextRepresentation {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
