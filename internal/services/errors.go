package services

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrStore        = errors.New("store error")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgStringTooLong       = "22001"
)

// Error carries a failure kind, the message shown to the caller and the
// underlying cause. errors.Is matches both the kind and the cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func validationError(message string) error {
	return newError(ErrValidation, message, nil)
}

func notFoundError(message string, cause error) error {
	return newError(ErrNotFound, message, cause)
}

// PublicMessage returns the caller-facing message for err, or fallback when
// err does not carry one.
func PublicMessage(err error, fallback string) string {
	var serviceErr *Error
	if errors.As(err, &serviceErr) && serviceErr.Message != "" {
		return serviceErr.Message
	}
	return fallback
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func isStringTooLong(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgStringTooLong
}

// storeError translates a repository failure into the service taxonomy.
// Raw engine errors are logged and never surface in the message.
func storeError(logger *zap.Logger, op string, err error, notFoundMessage string) error {
	if err == nil {
		return nil
	}
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) && notFoundMessage != "" {
		return notFoundError(notFoundMessage, err)
	}
	// A length-capped column rejects the value; that is bad input, not a store fault.
	if isStringTooLong(err) {
		return newError(ErrValidation, "Value is too long", err)
	}
	logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return newError(ErrStore, "Database error", err)
}
