package prism

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/putto11262002/prism/core"
	"github.com/putto11262002/prism/pkg/router"
)

const (
	fallbackTitle   = "Something went wrong"
	fallbackMessage = "We hit an unexpected bump. Let's refresh and try again."
)

// FallbackResponse is the view returned in place of a handler that panicked.
// When the panic value is an error its message is shown.
func FallbackResponse(rec any) ErrorResponse {
	msg := fallbackMessage
	if err, ok := rec.(error); ok && err.Error() != "" {
		msg = err.Error()
	}
	return ErrorResponse{
		Status:  http.StatusInternalServerError,
		Code:    core.UnknownError,
		Title:   fallbackTitle,
		Message: msg,
	}
}

// Supervise recovers panics raised while serving a request, logs them and
// responds with fallback instead. A nil fallback uses FallbackResponse.
func Supervise(logger *slog.Logger, fallback func(any) ErrorResponse) router.Middleware {
	if fallback == nil {
		fallback = FallbackResponse
	}
	return func(next http.Handler) router.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if recErr, ok := rec.(error); ok && errors.Is(recErr, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.Error(fmt.Sprintf("recovered: %v", rec),
					slog.String("path", r.URL.Path), slog.String("stack", string(debug.Stack())))
				err = fallback(rec)
			}()
			next.ServeHTTP(w, r)
			return nil
		}
	}
}
