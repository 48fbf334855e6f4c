// Package apperror carries the error kinds the domain services return and their HTTP mapping.
package apperror

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindInvalidArgument Kind = "invalid_argument"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Unauthorized(msg string) *Error    { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error       { return New(KindForbidden, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func InvalidArgument(msg string) *Error { return New(KindInvalidArgument, msg) }
func Conflict(msg string) *Error        { return New(KindConflict, msg) }

// Internal wraps a storage or infrastructure failure. The message is what callers see.
func Internal(err error, msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// OrInternal returns err unchanged when it already carries a kind and wraps it as Internal
// otherwise.
func OrInternal(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Internal(err, msg)
}

// KindOf reports the kind of err; errors that did not come from this package are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps a kind to the HTTP status of the public API.
// Conflicts answer 400: duplicate pending requests and already-joined staff are documented as 400.
func Status(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInvalidArgument, KindConflict:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ToFiber converts a service error for the fiber ErrorHandler.
func ToFiber(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindInternal {
			// keep the cause for the error handler log, the client only sees the message
			return err
		}
		return fiber.NewError(Status(e.Kind), e.Message)
	}
	return err
}

// ErrorHandler renders every error as {"error": msg}. Anything that is not a client error is logged.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		msg := "internal server error"
		var e *Error
		if errors.As(err, &e) {
			if e.Kind != KindInternal {
				return c.Status(Status(e.Kind)).JSON(fiber.Map{"error": e.Message})
			}
			msg = e.Message
		}

		logger.Error("unexpected error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
	}
}
