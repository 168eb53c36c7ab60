package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medialog/medialog/internal/domain"
)

// maxTxAttempts bounds retries of a unit of work on transient aborts.
const maxTxAttempts = 3

// Postgres SQLSTATE codes for the write-conflict class.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// RunAtomic executes fn inside a SERIALIZABLE transaction. All reads and
// writes issued through the tx commit or roll back as one. Transient aborts
// (serialization failure, deadlock) retry the whole body up to maxTxAttempts;
// once the budget is exhausted the error surfaces as domain.ErrConflict. A
// context deadline aborts the transaction and surfaces domain.ErrTimeout.
func (s *Store) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: unit of work exceeded deadline", domain.ErrTimeout)
		}
		if !isRetryableTxError(err) {
			return err
		}
		s.logger.Warn().Int("attempt", attempt).Err(err).Msg("store: transaction aborted, retrying")
		lastErr = err
	}
	return fmt.Errorf("%w: transaction aborted after %d attempts: %v", domain.ErrConflict, maxTxAttempts, lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		// No-op if the tx already committed.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// isRetryableTxError reports whether err belongs to the write-conflict class
// that a fresh attempt can resolve.
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}
