// Package apperr defines the error taxonomy shared by the verifier, the gate,
// the validators and every repository. Callers branch on Kind, never on
// storage codes or message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind uint8

const (
	KindUpstream Kind = iota
	KindMissingToken
	KindInvalidToken
	KindUnknownUser
	KindUnauthenticated
	KindForbidden
	KindAccountDisabled
	KindValidation
	KindConflict
	KindNotFound
)

var kindNames = map[Kind]string{
	KindUpstream:        "upstream_failure",
	KindMissingToken:    "missing_token",
	KindInvalidToken:    "invalid_token",
	KindUnknownUser:     "unknown_user",
	KindUnauthenticated: "unauthenticated",
	KindForbidden:       "forbidden",
	KindAccountDisabled: "account_disabled",
	KindValidation:      "validation",
	KindConflict:        "conflict",
	KindNotFound:        "not_found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindMissingToken, KindInvalidToken, KindUnknownUser, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden, KindAccountDisabled:
		return http.StatusForbidden
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is one failed constraint of a payload field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	// Field names the colliding column for conflicts.
	Field string
	// Fields carries per-field detail for validation failures.
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingToken    = &Error{Kind: KindMissingToken, Message: "Token no proporcionado"}
	ErrInvalidToken    = &Error{Kind: KindInvalidToken, Message: "Token inválido"}
	ErrUnknownUser     = &Error{Kind: KindUnknownUser, Message: "Usuario no encontrado"}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "Usuario no autenticado"}
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "No tiene permisos para realizar esta acción"}
	ErrAccountDisabled = &Error{Kind: KindAccountDisabled, Message: "Cuenta desactivada"}
	ErrValidation      = &Error{Kind: KindValidation, Message: "Datos inválidos"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "El registro ya existe"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "Recurso no encontrado"}
	ErrUpstream        = &Error{Kind: KindUpstream, Message: "Error interno del servidor"}
)

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Conflict(field, message string) error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

// Invalid reports a single-field validation failure.
func Invalid(field, message string) error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

func Validation(fields []FieldError) error {
	return &Error{Kind: KindValidation, Message: ErrValidation.Message, Fields: fields}
}

// Upstream wraps an unclassified failure of a collaborator.
func Upstream(op string, err error) error {
	return &Error{Kind: KindUpstream, Message: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain. Anything
// unclassified is an upstream failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// WithMessage returns a copy of err's classification carrying message.
// Unclassified errors are returned unchanged.
func WithMessage(err error, message string) error {
	e := As(err)
	if e == nil {
		return err
	}
	cp := *e
	cp.Message = message
	return &cp
}
