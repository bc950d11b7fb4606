package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecovery_HandlesPanic(t *testing.T) {
	panics := 0
	handled := false
	mw := Recovery(discardLogger(), func(w http.ResponseWriter, r *http.Request, err any) {
		handled = true
		assert.Equal(t, "boom", err)
		w.WriteHeader(http.StatusInternalServerError)
	}, func() { panics++ })

	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, handled)
	assert.Equal(t, 1, panics)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	panics := 0
	mw := Recovery(discardLogger(), func(http.ResponseWriter, *http.Request, any) {
		t.Fatal("abort must not reach the panic handler")
	}, func() { panics++ })

	handler := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Zero(t, panics)
}

func TestRecovery_NoPanic(t *testing.T) {
	mw := Recovery(discardLogger(), func(http.ResponseWriter, *http.Request, any) {
		t.Fatal("unexpected panic handler call")
	}, nil)

	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLogging_ObservesStatus(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{"implicit ok", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("hi")) }, http.StatusOK},
		{"explicit status", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) }, http.StatusNotFound},
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStatus int
			var gotPath string
			mw := Logging(discardLogger(), func(r *http.Request, status int, d time.Duration) {
				gotStatus = status
				gotPath = r.URL.Path
				assert.GreaterOrEqual(t, d, time.Duration(0))
			})

			mw(tt.handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/players", nil))

			assert.Equal(t, tt.want, gotStatus)
			assert.Equal(t, "/api/v1/players", gotPath)
		})
	}
}

func TestLogging_NilObserver(t *testing.T) {
	rec := httptest.NewRecorder()
	Logging(discardLogger(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "ok", rec.Body.String())
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	rw := &ResponseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	_, _, err := rw.Hijack()
	require.Error(t, err)
	assert.Equal(t, http.StatusOK, rw.Status())
}
