// Package base содержит общую часть postgres-репозиториев: пул соединений и перевод ошибок драйвера в ошибки model.
package base

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/queueless/booking/internal/model"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return r.pool.QueryRow(ctx, query, args...)
}

func (r *Repository) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return r.pool.Query(ctx, query, args...)
}

// ExecCAS выполняет условный UPDATE/DELETE.
// true означает, что изменена ровно одна строка, то есть условие WHERE ещё выполнялось.
func (r *Repository) ExecCAS(ctx context.Context, op string, conflict error, query string, args ...any) (bool, error) {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, Translate(op, err, conflict)
	}
	return tag.RowsAffected() == 1, nil
}

// Translate переводит ошибку pgx в ошибку model.
// Нарушение уникальности становится conflict, если он задан.
func Translate(op string, err error, conflict error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return model.ErrNotFound
	case conflict != nil && isUniqueViolation(err):
		return conflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
