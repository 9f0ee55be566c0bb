package router

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"reflect"
	"runtime"

	"github.com/go-chi/chi/v5"
)

// Error is an error that renders itself as the response body.
type Error interface {
	error
	StatusCode() int
	Encode(w io.Writer) error
}

// JsonError encodes as {"code": ..., "error": ..., "details": ...}.
type JsonError struct {
	Code    int            `json:"code"`
	Err     string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func (e JsonError) StatusCode() int { return e.Code }

func (e JsonError) Error() string { return e.Err }

func (e JsonError) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(e)
}

// WithDetails returns a copy of e carrying details.
func (e JsonError) WithDetails(details map[string]any) JsonError {
	e.Details = details
	return e
}

var DefaultError = JsonError{
	Code: http.StatusInternalServerError,
	Err:  "internal server error",
}

// Router is a wrapper around chi.Router that provides error handling.
// Handlers can return an error that will then get mapped to an error response.
// Error mappers can be registered to turn domain errors into custom error responses.
type Router struct {
	chi.Router
	errorMappers []ErrorMapper
	defaultError Error
	logger       *slog.Logger
}

func New(opts ...RouterOption) *Router {
	return new(chi.NewRouter(), opts...)
}

type RouterOption func(*Router)

func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithDefaultError(err Error) RouterOption {
	return func(r *Router) {
		r.defaultError = err
	}
}

func WithErrorMapper(fn ErrorMapper) RouterOption {
	return func(r *Router) {
		r.errorMappers = append(r.errorMappers, fn)
	}
}

func new(chiRouter chi.Router, opts ...RouterOption) *Router {
	router := &Router{
		Router:       chiRouter,
		defaultError: DefaultError,
		logger:       slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}

	for _, opt := range opts {
		opt(router)
	}
	return router
}

// derive wraps chiRouter with the same error handling as a.
func (a *Router) derive(chiRouter chi.Router) *Router {
	return &Router{
		Router:       chiRouter,
		errorMappers: a.errorMappers,
		defaultError: a.defaultError,
		logger:       a.logger,
	}
}

// HandlerFunc is a function that handles an HTTP request and returns an error.
// When the handler fails to handler to request it should not write anything to the response writer
// instead it should return an error that will be mapped to an error response.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

type Middleware func(http.Handler) HandlerFunc

// ErrorMapper maps go errors to API errors. It reports false when it does
// not recognise the error.
type ErrorMapper func(error) (Error, bool)

func (a *Router) RegisterErrorMapper(fn ErrorMapper) {
	a.errorMappers = append(a.errorMappers, fn)
}

// mapError maps a go error to an API error.
// The mapping works as following:
//   - if the error is, or wraps, an API Error it will be returned as is.
//   - otherwise the error mappers are tried in registration order.
//   - if no error mapper recognises the error the default error will be returned.
func (a *Router) mapError(err error) Error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	for _, fn := range a.errorMappers {
		if mapped, ok := fn(err); ok {
			return mapped
		}
	}
	return a.defaultError
}

func (a *Router) handleWithErr(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		resError := a.mapError(err)
		handlerFn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
		level := slog.LevelInfo
		if resError.StatusCode() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.Log(r.Context(), level, err.Error(),
			slog.String("handler", handlerFn.Name()), slog.Int("status", resError.StatusCode()))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resError.StatusCode())
		if err := resError.Encode(w); err != nil {
			a.logger.Error("encode error response", slog.String("err", err.Error()))
		}
	}
}

func (a *Router) Get(path string, h HandlerFunc) {
	a.Router.Get(path, a.handleWithErr(h))
}

func (a *Router) Post(path string, h HandlerFunc) {
	a.Router.Post(path, a.handleWithErr(h))
}

func (a *Router) Put(path string, h HandlerFunc) {
	a.Router.Put(path, a.handleWithErr(h))
}

func (a *Router) Patch(path string, h HandlerFunc) {
	a.Router.Patch(path, a.handleWithErr(h))
}

func (a *Router) Delete(path string, h HandlerFunc) {
	a.Router.Delete(path, a.handleWithErr(h))
}

func (a *Router) Route(path string, f func(r *Router)) {
	a.Router.Route(path, func(r chi.Router) {
		f(a.derive(r))
	})
}

func (a *Router) Group(f func(r *Router)) *Router {
	ch := a.Router.Group(func(r chi.Router) {
		f(a.derive(r))
	})
	return a.derive(ch)
}

func (a *Router) Use(middleware Middleware) {
	a.Router.Use(func(h http.Handler) http.Handler {
		return a.handleWithErr(middleware(h))
	})
}

func (a *Router) With(middleware Middleware) *Router {
	ch := a.Router.With(func(h http.Handler) http.Handler {
		return a.handleWithErr(middleware(h))
	})
	return a.derive(ch)
}

// Mount attaches another Router under pattern.
func (a *Router) Mount(pattern string, sub *Router) {
	a.Router.Mount(pattern, sub.Router)
}
