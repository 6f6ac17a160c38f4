package domain

import (
	"github.com/cockroachdb/errors"
)

// Error taxonomy. Every error produced by the core is marked with exactly one of
// these; callers classify with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authentication error")
	ErrUpstream   = errors.New("upstream error")
	ErrLocalIO    = errors.New("local io error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

func Validationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

func NotFoundf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

func Conflictf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConflict)
}

func Authf(format string, args ...interface{}) error {
	return errors.Mark(
		errors.WithHint(errors.Newf(format, args...), "re-authenticate with the hosting provider to refresh the access token"),
		ErrAuth,
	)
}

// WrapAuth marks a provider/transport rejection of the caller's credential.
func WrapAuth(err error, msg string) error {
	return errors.Mark(
		errors.WithHint(errors.Wrap(err, msg), "the token needs the repo and user:email scopes"),
		ErrAuth,
	)
}

func WrapUpstream(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrUpstream)
}

func Upstreamf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUpstream)
}

func WrapLocalIO(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrLocalIO)
}

// ErrorKind names the taxonomy bucket of err, or "internal" when unmarked.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrLocalIO):
		return "local_io"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
