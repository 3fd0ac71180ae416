// Package repository implements domain repository interfaces using SQLite.
package repository

import (
	"database/sql"
	"errors"

	internaldb "github.com/admbtski/miglee-sub001/internal/db"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

var errVersionMoved = errors.New("membership version changed since read")

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if internaldb.IsSerializationFailure(err) {
		return &domain.TransientConflictError{Err: err}
	}
	if internaldb.IsUniqueViolation(err) {
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return err
}
