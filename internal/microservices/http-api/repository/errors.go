package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("duplicate key")
	ErrInvalidReference = errors.New("invalid reference")
)

// Postgres SQLSTATE codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ConstraintError reports which constraint a write violated.
type ConstraintError struct {
	Kind       error
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v (%s): %v", e.Kind, e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// translateError maps driver errors onto the repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConstraintError{Kind: ErrDuplicate, Constraint: pgErr.ConstraintName, Err: err}
		case pgForeignKeyViolation:
			return &ConstraintError{Kind: ErrInvalidReference, Constraint: pgErr.ConstraintName, Err: err}
		}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConstraintError{Kind: ErrDuplicate, Err: err}
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &ConstraintError{Kind: ErrInvalidReference, Err: err}
	}
	return err
}

// ConstraintName returns the violated constraint, or "" when err is not a constraint error.
func ConstraintName(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}
