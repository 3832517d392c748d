package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// WithTx runs fn inside a single transaction on one pooled connection.
// It commits when fn returns nil and rolls back on error or panic; panics are
// rethrown after the rollback. The connection goes back to the pool on every path.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logrus.Errorf("WithTx: rollback failed after %v: %v", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("error committing transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}
