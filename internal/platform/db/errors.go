package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Wrap classifies a storage error into the shared error taxonomy. Errors already
// classified pass through untouched.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s: duplicate %s", shared.ErrValidation, op, pgErr.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %s: %s", shared.ErrConcurrencyConflict, op, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrPersistence, op, err)
}

func isClassified(err error) bool {
	for _, target := range []error{
		shared.ErrNotFound,
		shared.ErrNoPropertiesInCommunity,
		shared.ErrValidation,
		shared.ErrPersistence,
		shared.ErrConcurrencyConflict,
		shared.ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
