package prism

import (
	"errors"
	"net/http"
	"testing"

	"github.com/putto11262002/prism/core"
	"github.com/putto11262002/prism/pkg/router"
	"github.com/stretchr/testify/assert"
)

func panicking(r *router.Router) {
	r.Get("/boom/error", func(w http.ResponseWriter, r *http.Request) error {
		panic(errors.New("the view could not render"))
	})
	r.Get("/boom/value", func(w http.ResponseWriter, r *http.Request) error {
		panic(42)
	})
}

func TestSupervise(t *testing.T) {
	t.Run("fallback view", func(t *testing.T) {
		f := NewAppFixture(t, WithEndpoints(panicking))
		defer f.tearDown()

		e := f.expectError(http.MethodGet, "/api/boom/error", nil, http.StatusInternalServerError, core.UnknownError)
		assert.Equal(t, "Something went wrong", e.Title)
		assert.Equal(t, "the view could not render", e.Message)

		e = f.expectError(http.MethodGet, "/api/boom/value", nil, http.StatusInternalServerError, core.UnknownError)
		assert.Equal(t, "We hit an unexpected bump. Let's refresh and try again.", e.Message)

		// the app keeps serving after a panic
		f.doInto(http.MethodGet, "/api/healthz", nil, http.StatusOK, nil)
	})

	t.Run("custom fallback", func(t *testing.T) {
		fallback := func(any) ErrorResponse {
			return ErrorResponse{Status: http.StatusServiceUnavailable, Code: core.NetworkError, Message: "down"}
		}
		f := NewAppFixture(t, WithEndpoints(panicking), WithFallback(fallback))
		defer f.tearDown()

		e := f.expectError(http.MethodGet, "/api/boom/value", nil, http.StatusServiceUnavailable, core.NetworkError)
		assert.Equal(t, "down", e.Message)
	})

	t.Run("room state survives", func(t *testing.T) {
		f := NewAppFixture(t, WithEndpoints(panicking))
		defer f.tearDown()
		f.createRoom("Team Sync")

		f.do(http.MethodGet, "/api/boom/error", nil)
		assert.Equal(t, core.ActiveRoom, f.state().State)
	})
}
