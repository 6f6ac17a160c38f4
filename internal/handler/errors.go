package handler

import (
	"streakd/commons/error_handler"
	"streakd/internal/domain"
	"streakd/internal/logger"
	"streakd/internal/repository"

	"github.com/cockroachdb/errors"
)

// errorCode maps the domain error taxonomy onto response codes
func errorCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return error_handler.CodeValidationError
	case errors.Is(err, domain.ErrAuth):
		return error_handler.CodeUnauthorized
	case errors.Is(err, domain.ErrNotFound), repository.IsNotFoundError(err):
		return error_handler.CodeNotFound
	case errors.Is(err, domain.ErrConflict), repository.IsOptimisticLockError(err):
		return error_handler.CodeConflict
	case errors.Is(err, domain.ErrUpstream):
		return error_handler.CodeBadGateway
	default:
		return error_handler.CodeInternalServerError
	}
}

// toErrorCollection turns err into a single-entry collection. Internal errors are
// logged and reported generically; hints attached to the error ride along as data.
func toErrorCollection(log logger.Logger, msg string, err error) *error_handler.ErrorCollection {
	code := errorCode(err)
	if code == error_handler.CodeInternalServerError {
		log.Error(msg, logger.Error(err))
		return error_handler.NewErrorCollection().AddError(code, "Internal server error", nil)
	}

	log.Warn(msg,
		logger.String("kind", domain.ErrorKind(err)),
		logger.Error(err))

	var data any
	if hint := errors.FlattenHints(err); hint != "" {
		data = map[string]string{"hint": hint}
	}
	return error_handler.NewErrorCollection().AddError(code, err.Error(), data)
}

func validationError(message string) *error_handler.ErrorCollection {
	return error_handler.NewErrorCollection().AddError(error_handler.CodeValidationError, message, nil)
}
