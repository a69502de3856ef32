package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/garnizeh/careerprep/pkg/models"
)

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, fmt.Errorf("user is nil")
	}

	out := *u
	out.ID = uuid.NewString()
	if _, err := r.conn.Exec(ctx, `INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`, out.ID, out.Username, out.PasswordHash, toUnix(now())); err != nil {
		return nil, translate(err)
	}

	return &out, nil
}

func (r *SQLiteRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, username, password_hash FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, username, password_hash FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &u, nil
}
