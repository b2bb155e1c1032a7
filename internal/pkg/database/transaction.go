package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxFunc defines a transaction function
type TxFunc func(ctx context.Context, tx *gorm.DB) error

// Transaction executes a function within a database transaction
func (db *DB) Transaction(ctx context.Context, fn TxFunc) error {
	return db.TransactionWithOptions(ctx, &sql.TxOptions{}, fn)
}

// TransactionWithOptions executes a function within a database transaction with custom options
func (db *DB) TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn TxFunc) error {
	db.logger.WithContext(ctx).Debug("starting database transaction")

	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(ctx, tx); err != nil {
			db.logger.WithContext(ctx).Debug("transaction failed, rolling back",
				zap.Error(err),
			)
			return err
		}

		db.logger.WithContext(ctx).Debug("transaction committed successfully")
		return nil
	}, opts)
}

// TransactionManager provides transaction management utilities
type TransactionManager struct {
	db *DB
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// Execute executes a function within a transaction with automatic retry
func (tm *TransactionManager) Execute(ctx context.Context, fn TxFunc) error {
	return tm.ExecuteWithRetry(ctx, 3, fn)
}

// ExecuteWithRetry executes a function within a transaction with retry on specific errors
func (tm *TransactionManager) ExecuteWithRetry(ctx context.Context, maxRetries int, fn TxFunc) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			tm.db.logger.WithContext(ctx).Warn("retrying transaction",
				zap.Int("attempt", i+1),
				zap.Int("max_retries", maxRetries),
				zap.Error(lastErr),
			)
		}

		err := tm.db.Transaction(ctx, fn)
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("transaction failed after %d retries: %w", maxRetries, lastErr)
}

// ReadOnly executes a read-only transaction
func (tm *TransactionManager) ReadOnly(ctx context.Context, fn TxFunc) error {
	return tm.db.TransactionWithOptions(ctx, &sql.TxOptions{
		ReadOnly: true,
	}, fn)
}

// IsRetryableError checks if an error is retryable.
// Unique-key violations are included: a concurrent insert racing on the same
// unique value must be retried so the loser can take the lookup path.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if IsDuplicateKeyError(err) {
		return true
	}

	// PostgreSQL serialization failure error code: 40001
	// PostgreSQL deadlock detected error code: 40P01
	errMsg := err.Error()

	return errMsg == "ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)" ||
		errMsg == "ERROR: deadlock detected (SQLSTATE 40P01)" ||
		errMsg == "ERROR: could not serialize access due to read/write dependencies among transactions (SQLSTATE 40001)"
}
