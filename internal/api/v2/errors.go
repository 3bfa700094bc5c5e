package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

const componentAPI = "api-v2"

// internalErrorDetail replaces the message of unexpected failures in responses.
const internalErrorDetail = "Internal server error"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Detail        string `json:"detail"`
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"` // request id, for matching logs
}

// HandleError writes the error response for err and logs it.
func (c *Controller) HandleError(ctx echo.Context, err error) error {
	code := statusForError(err)
	category := errors.CategoryFor(err)

	detail := err.Error()
	if code >= http.StatusInternalServerError {
		detail = internalErrorDetail
	}

	resp := &ErrorResponse{
		Detail:        detail,
		Error:         string(category),
		CorrelationID: correlationID(ctx),
	}

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("method", ctx.Request().Method),
		logger.String("path", ctx.Request().URL.Path),
		logger.Int("code", code),
		logger.String("category", string(category)),
		logger.Error(err),
	}
	log := c.logger.WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Debug("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

// statusForError maps an error category to an HTTP status.
func statusForError(err error) int {
	switch errors.CategoryFor(err) {
	case errors.CategoryNotFound, errors.CategoryLimit:
		return http.StatusNotFound
	case errors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryCancellation:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// correlationID reuses the request id assigned by middleware when there is one.
func correlationID(ctx echo.Context) string {
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

func validationError(format string, args ...any) error {
	return errors.New(fmt.Errorf(format, args...)).
		Component(componentAPI).
		Category(errors.CategoryValidation).
		Build()
}
