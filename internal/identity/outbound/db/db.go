// Package db stores identity users and OTP records in PostgreSQL.
package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "identity.outbound.db"

	pgUniqueViolation = "23505"
)

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

// withTx runs fn inside a read-committed transaction. pgx rolls back when fn
// returns an error and commits otherwise.
func (s *DB) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return s.mapError(pgx.BeginTxFunc(ctx, s.conn, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn))
}

// mapError translates driver errors into goerror sentinels so callers never
// import pgx.
func (s *DB) mapError(err error) error {
	var pgErr *pgconn.PgError

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return goerror.ErrNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		return goerror.ErrConflict
	default:
		return err
	}
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer(tracerName).Start(ctx, name)
}

// endSpan marks the span failed unless err is an expected outcome of the query.
func (s *DB) endSpan(span trace.Span, err error) {
	defer span.End()

	if err == nil || errors.Is(err, goerror.ErrNotFound) || errors.Is(err, goerror.ErrConflict) {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
