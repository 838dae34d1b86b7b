package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/careops/internal/domain/mortality"
	apperrors "github.com/yanqian/careops/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

// fromDomainError maps service error codes onto statuses. Inference failures
// only ever expose the generic prediction message.
func fromDomainError(err error) *HTTPError {
	switch {
	case apperrors.IsCode(err, apperrors.CodeInvalidInput):
		return NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, apperrors.MessageOf(err), err)
	case apperrors.IsCode(err, apperrors.CodeInferenceFailed):
		return NewHTTPError(http.StatusInternalServerError, apperrors.CodeInferenceFailed, mortality.PredictionFailedMessage, err)
	case apperrors.IsCode(err, apperrors.CodeUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, apperrors.CodeUnauthorized, apperrors.MessageOf(err), err)
	default:
		return asHTTPError(err)
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
