package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// Transactor runs fn inside a database transaction. fn's error rolls the
// transaction back, a nil return commits it.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type DBTransactor struct {
	db *sql.DB
}

func NewDBTransactor(db *sql.DB) *DBTransactor {
	return &DBTransactor{db: db}
}

func (t *DBTransactor) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
