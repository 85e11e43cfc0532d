package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"
)

// Tx is a unit of work that is either committed or rolled back as a whole.
type Tx interface {
	Commit() error
	Rollback() error
}

// UnitOfWork starts transactions.
type UnitOfWork[T Tx] interface {
	Begin(ctx context.Context) (T, error)
}

// RowError reports the row that aborted a transactional import.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// RunRows applies fn to every row of rows inside one transaction. The first failure
// (a read error, an fn error or a panic) rolls everything back; otherwise the
// transaction is committed. It returns the number of rows applied.
func RunRows[T Tx](ctx context.Context, uow UnitOfWork[T], rows *Reader, fn func(ctx context.Context, tx T, row Row) error) (applied int, err error) {
	tx, err := uow.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			err = multierr.Append(fmt.Errorf("panic while applying rows: %v", p), tx.Rollback())
			applied = 0
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			err = multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}
		applied = 0
	}()

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return applied, ctxErr
		}

		row, readErr := rows.Next()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return applied, readErr
		}

		if applyErr := fn(ctx, tx, row); applyErr != nil {
			return applied, &RowError{Line: row.Line, Err: applyErr}
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return applied, fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return applied, nil
}
