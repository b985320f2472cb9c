package room

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes we care about.
const (
	pgUniqueViolation           = "23505"
	pgInvalidTextRepresentation = "22P02"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, name string) (*Room, error) {
	rm := &Room{ID: uuid.NewString(), Name: name}
	query := `
		INSERT INTO rooms (id, name) VALUES ($1, $2)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, rm.ID, rm.Name).
		Scan(&rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return rm, nil
}

func (r *Repository) List(ctx context.Context) ([]*Room, error) {
	query := `
		SELECT r.id, r.name, r.created_at, r.updated_at, COUNT(m.id)
		FROM rooms r
		LEFT JOIN messages m ON m.room_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []*Room{}
	for rows.Next() {
		rm := &Room{}
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.CreatedAt, &rm.UpdatedAt, &rm.MessageCount); err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*Room, error) {
	query := `
		SELECT r.id, r.name, r.created_at, r.updated_at, COUNT(m.id)
		FROM rooms r
		LEFT JOIN messages m ON m.room_id = r.id
		WHERE r.id = $1
		GROUP BY r.id
	`
	rm := &Room{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&rm.ID, &rm.Name, &rm.CreatedAt, &rm.UpdatedAt, &rm.MessageCount)
	if errors.Is(err, sql.ErrNoRows) || isBadID(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rm, nil
}

func (r *Repository) UpdateName(ctx context.Context, id, name string) (*Room, error) {
	rm := &Room{ID: id, Name: name}
	query := `
		UPDATE rooms SET name = $2, updated_at = $3
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, id, name, time.Now().UTC()).
		Scan(&rm.CreatedAt, &rm.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) || isBadID(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return rm, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = $1", id)
	if err != nil {
		if isBadID(err) {
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// isBadID reports a malformed UUID hitting a UUID-typed bind parameter.
// Callers treat garbage ids the same as unknown ids: not found.
func isBadID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}
