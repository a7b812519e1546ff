// Package service holds the application services: cart management, the
// checkout conversion, payment orchestration and the reservation reaper.
package service

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// DB is the slice of pgxpool.Pool the services need. Tests substitute a
// fake that hands out stub transactions.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
