package prism

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/putto11262002/prism/core"
	"github.com/putto11262002/prism/pkg/router"
)

// ErrorResponse is the JSON body returned for a failed intent.
type ErrorResponse struct {
	Status  int            `json:"-"`
	Code    core.ErrorCode `json:"code"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e ErrorResponse) StatusCode() int {
	return e.Status
}

func (e ErrorResponse) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e ErrorResponse) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(e)
}

// NewErrorResponse builds the response for err with a user facing message.
func NewErrorResponse(err *core.AppError) ErrorResponse {
	return ErrorResponse{
		Status:  statusFor(err),
		Code:    err.Code(),
		Title:   err.Code().Title(),
		Message: err.Friendly(),
		Details: err.Details(),
	}
}

func statusFor(err *core.AppError) int {
	switch err.Code() {
	case core.ValidationError:
		return http.StatusBadRequest
	case core.AuthError:
		return http.StatusUnauthorized
	case core.RoomError:
		if _, ok := err.Details()["invite_code"]; ok {
			return http.StatusNotFound
		}
		return http.StatusConflict
	case core.NetworkError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// appErrorMapper maps AppError values and validator failures to responses.
func appErrorMapper(err error) (router.Error, bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		err = ValidationAppError(err)
	}
	var appErr *core.AppError
	if !errors.As(err, &appErr) {
		return nil, false
	}
	return NewErrorResponse(appErr), true
}

// errMalformedBody is returned when a request body is not valid JSON.
var errMalformedBody = core.NewAppError(core.ValidationError,
	"The request could not be read", map[string]any{"field": "body"})
