package db

import (
	"context"

	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
)

func (s *DB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	const query = `SELECT id, username, email, password_hash, is_verified, created_at, updated_at
		FROM users WHERE email = $1`

	var u entity.User
	err = s.conn.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}

	return &u, nil
}

func (s *DB) CreateUser(ctx context.Context, user entity.NewUser) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	const query = `INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $3, $4)`

	_, err = s.conn.Exec(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash)
	err = s.mapError(err)
	return err
}

func (s *DB) DeleteUser(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteUser")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	err = s.mapError(err)
	return err
}

// MarkUserVerified returns goerror.ErrNotFound when no user has the email.
func (s *DB) MarkUserVerified(ctx context.Context, email string) (err error) {
	ctx, span := s.startSpan(ctx, "MarkUserVerified")
	defer func() { s.endSpan(span, err) }()

	const query = `UPDATE users SET is_verified = TRUE, updated_at = now() WHERE email = $1`

	tag, err := s.conn.Exec(ctx, query, email)
	if err != nil {
		err = s.mapError(err)
		return err
	}

	if tag.RowsAffected() == 0 {
		err = goerror.ErrNotFound
		return err
	}

	return nil
}
