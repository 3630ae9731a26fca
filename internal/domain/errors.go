package domain

import (
	"errors"
	"strconv"
	"strings"
)

// ErrKind classifies an Error; the HTTP layer picks the status from it.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"
	KindAuth           ErrKind = "auth"
	KindForbidden      ErrKind = "forbidden"
	KindNotFound       ErrKind = "not_found"
	KindConflict       ErrKind = "conflict"
	KindTooLarge       ErrKind = "too_large"
	KindRateLimited    ErrKind = "rate_limited"
	KindInfrastructure ErrKind = "infrastructure"
	KindInternal       ErrKind = "internal"
)

// Error carries a stable Code and a client-safe Message. Cause is for logs only.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteByte('/')
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	e := New(kind, code, msg)
	e.Cause = cause
	return e
}

// WithMeta replaces the meta map of err and returns it.
func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

// with attaches key/value pairs to e.
func (e *Error) with(kv ...string) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]string, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Meta[kv[i]] = kv[i+1]
	}
	return e
}

func asError(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}

// Is reports whether err wraps a domain error with the given code.
func Is(err error, code string) bool {
	de, ok := asError(err)
	return ok && de.Code == code
}

// KindOf returns the kind of a domain error, or "" for foreign errors.
func KindOf(err error) ErrKind {
	if de, ok := asError(err); ok {
		return de.Kind
	}
	return ""
}

// CodeOf returns the code of a domain error, or "non_domain_error".
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if de, ok := asError(err); ok {
		return de.Code
	}
	return "non_domain_error"
}

// request shape

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return New(KindValidation, "missing_field", "missing required field").with("field", field)
}

func ErrMissingFields() *Error {
	return New(KindValidation, "missing_fields", "missing fields")
}

func ErrInvalidField(field, reason string) *Error {
	return New(KindValidation, "invalid_field", "invalid field").with("field", field, "reason", reason)
}

func ErrValidation(msg string, meta map[string]string) *Error {
	return WithMeta(New(KindValidation, "validation_failed", msg), meta)
}

func ErrInvalidSubscription(value string) *Error {
	return New(KindValidation, "invalid_subscription", "invalid subscription").with("subscription", value)
}

func ErrAlreadyVerified() *Error {
	return New(KindValidation, "already_verified", "verification has already been passed")
}

// avatar upload

func ErrNoFile() *Error {
	return New(KindValidation, "no_file", "no file").with("field", "avatar")
}

func ErrUnsupportedImage(reason string) *Error {
	return New(KindValidation, "unsupported_image", "unsupported image").with("reason", reason)
}

func ErrFileTooLarge(limit int64) *Error {
	return New(KindTooLarge, "file_too_large", "file too large").with("limit_bytes", strconv.FormatInt(limit, 10))
}

// credentials and bearer tokens

// ErrInvalidCredentials covers both unknown email and wrong password.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, "invalid_credentials", "email or password is wrong")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "missing token")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, "token_invalid", "invalid or expired token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, "token_expired", "invalid or expired token")
}

func ErrIdentityNotFound() *Error {
	return New(KindAuth, "identity_not_found", "identity not found")
}

// lookups

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

func ErrVerifyTokenNotFound() *Error {
	return New(KindNotFound, "verify_token_not_found", "verification token not found")
}

func ErrContactNotFound() *Error {
	return New(KindNotFound, "contact_not_found", "contact not found")
}

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, "email_in_use", "email in use")
}

func ErrRateLimited(scope string) *Error {
	return New(KindRateLimited, "rate_limited", "too many requests").with("scope", scope)
}

// backends

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrMailFailed(cause error) *Error {
	return Wrap(KindInternal, "mail_failed", "verification email could not be sent", cause)
}

func ErrStorageFailed(cause error) *Error {
	return Wrap(KindInternal, "storage_failed", "file storage failed", cause)
}

func ErrImageProcessingFailed(cause error) *Error {
	return Wrap(KindInternal, "image_processing_failed", "image processing failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
