package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrInternal       = errors.New("internal server error")
	ErrRateLimited    = errors.New("too many requests")
	ErrSessionExpired = errors.New("session expired or invalid")
	ErrBadRequest     = errors.New("bad request")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Domain errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrAlreadyCheckedIn   = errors.New("already checked in today")
	ErrNotParticipant     = errors.New("not a participant of this event")
	ErrAlreadyParticipant = errors.New("already a participant of this event")
	ErrCreatorCannotLeave = errors.New("event creator cannot leave the event")
	ErrNoFreezeAvailable  = errors.New("no streak freeze available")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}

// CodeInternal is reported for any error without a mapping
const CodeInternal = "INTERNAL_ERROR"

type mapping struct {
	target error
	status int
	code   string
}

// ordered: domain errors first so they win over the generic sentinel they wrap
var mappings = []mapping{
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrAccountInactive, http.StatusForbidden, "ACCOUNT_INACTIVE"},
	{ErrInvalidResetToken, http.StatusBadRequest, "INVALID_RESET_TOKEN"},
	{ErrAlreadyCheckedIn, http.StatusConflict, "ALREADY_CHECKED_IN"},
	{ErrNotParticipant, http.StatusForbidden, "NOT_PARTICIPANT"},
	{ErrAlreadyParticipant, http.StatusConflict, "ALREADY_PARTICIPANT"},
	{ErrCreatorCannotLeave, http.StatusBadRequest, "CREATOR_CANNOT_LEAVE"},
	{ErrNoFreezeAvailable, http.StatusBadRequest, "NO_FREEZE_AVAILABLE"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrSessionExpired, http.StatusUnauthorized, "SESSION_EXPIRED"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{ErrBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
	{ErrConflict, http.StatusConflict, "CONFLICT"},
	{ErrDuplicateEntry, http.StatusConflict, "DUPLICATE_ENTRY"},
	{ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
}

func lookup(err error) (mapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return mapping{}, false
}

// HTTPStatus maps an error to the status code a handler should answer with.
func HTTPStatus(err error) int {
	if m, ok := lookup(err); ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// Code returns a stable machine readable code for err.
func Code(err error) string {
	if m, ok := lookup(err); ok {
		return m.code
	}
	return CodeInternal
}
