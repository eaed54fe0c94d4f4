package db

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
)

// SQLSTATE codes the classifier understands.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
	codeInvalidDatetime     = "22007"
	codeDatetimeOverflow    = "22008"
)

// pgError is satisfied by pgdriver.Error.
type pgError interface {
	error
	Field(k byte) string
}

var keyDetail = regexp.MustCompile(`^Key \(([^)]+)\)=`)

// Classify translates a storage error into the apperr taxonomy. Errors that
// are already classified pass through unchanged; nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if apperr.As(err) != nil {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}

	var pe pgError
	if !errors.As(err, &pe) {
		return apperr.Upstream("storage query failed", err)
	}

	switch pe.Field('C') {
	case codeUniqueViolation:
		field := keyColumns(pe)
		return &apperr.Error{
			Kind:    apperr.KindConflict,
			Field:   field,
			Message: fmt.Sprintf("Ya existe un registro con este %s", field),
			Err:     err,
		}
	case codeForeignKeyViolation:
		field := keyColumns(pe)
		return &apperr.Error{
			Kind:    apperr.KindValidation,
			Message: apperr.ErrValidation.Message,
			Fields:  []apperr.FieldError{{Field: field, Message: "hace referencia a un registro inexistente"}},
			Err:     err,
		}
	case codeNotNullViolation, codeCheckViolation, codeInvalidText, codeInvalidDatetime, codeDatetimeOverflow:
		field := pe.Field('c')
		if field == "" {
			field = pe.Field('n')
		}
		return &apperr.Error{
			Kind:    apperr.KindValidation,
			Message: apperr.ErrValidation.Message,
			Fields:  []apperr.FieldError{{Field: field, Message: pe.Field('M')}},
			Err:     err,
		}
	}
	return apperr.Upstream("storage query failed", err)
}

// keyColumns extracts the column list from a "Key (a, b)=(...)" detail,
// falling back to the constraint name.
func keyColumns(pe pgError) string {
	if m := keyDetail.FindStringSubmatch(pe.Field('D')); m != nil {
		return m[1]
	}
	if c := pe.Field('c'); c != "" {
		return c
	}
	return pe.Field('n')
}

// Affected returns apperr.ErrNotFound when a write touched no rows.
func Affected(result sql.Result, err error) error {
	if err != nil {
		return Classify(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apperr.Upstream("read rows affected", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
