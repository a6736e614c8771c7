package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// TxRunner runs units of work in a postgres transaction.
type TxRunner struct {
	db *sqlx.DB
}

var _ core.TxRunner = (*TxRunner)(nil) // interface compliance check

func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return MapError(errors.Wrap(err, "beginning transaction"))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return MapError(err)
	}
	if err = tx.Commit(); err != nil {
		return MapError(errors.Wrap(err, "committing transaction"))
	}
	return nil
}

// postgres error codes
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeQueryCanceled       = "57014"
)

// MapError turns driver failures into core datastore errors, keeping the driver error as context.
// Other errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	cause := errors.Cause(err)
	switch cause {
	case sql.ErrNoRows:
		return core.ErrNotFound
	case context.DeadlineExceeded:
		return errors.Wrap(core.ErrTimeout, err.Error())
	}
	if pqErr, ok := cause.(*pq.Error); ok {
		switch pqErr.Code {
		case codeUniqueViolation:
			return errors.Wrap(core.ErrUniqueViolation, pqErr.Constraint)
		case codeForeignKeyViolation:
			return errors.Wrap(core.ErrForeignKeyViolation, pqErr.Constraint)
		case codeQueryCanceled:
			return errors.Wrap(core.ErrTimeout, pqErr.Message)
		}
	}
	return err
}
