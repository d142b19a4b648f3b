package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/authgate/internal/identity/entity"
)

// IssueOTP retires every active record of the email and inserts rec in one
// transaction. The advisory lock serializes concurrent issuers of the same email.
func (s *DB) IssueOTP(ctx context.Context, rec entity.OTPRecord) (err error) {
	ctx, span := s.startSpan(ctx, "IssueOTP")
	defer func() { s.endSpan(span, err) }()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.Email); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE otp_records SET is_used = TRUE WHERE email = $1 AND is_used = FALSE`, rec.Email); err != nil {
			return err
		}

		const insert = `INSERT INTO otp_records (id, email, code_hash, expires_at, is_used) VALUES ($1, $2, $3, $4, FALSE)`
		_, err := tx.Exec(ctx, insert, rec.ID, rec.Email, rec.CodeHash, rec.ExpiresAt)
		return err
	})
}

// ConsumeOTP flips the matching active record to used with a single
// conditional UPDATE. Concurrent callers block on the row lock and re-check
// is_used, so at most one of them gets a row back.
func (s *DB) ConsumeOTP(ctx context.Context, email, codeHash string, at time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "ConsumeOTP")
	defer func() { s.endSpan(span, err) }()

	const query = `UPDATE otp_records SET is_used = TRUE, used_at = $3
		WHERE email = $1 AND code_hash = $2 AND is_used = FALSE AND expires_at >= $3
		RETURNING id`

	var id int64
	err = s.conn.QueryRow(ctx, query, email, codeHash, at).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
