package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReadiness struct {
	err error
}

func (s stubReadiness) CheckReadiness(context.Context) error { return s.err }

type stubPurge struct {
	queued bool
}

func (s stubPurge) Trigger() bool { return s.queued }

func newTestServer(ready ReadinessChecker, purge PurgeTrigger) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", ready, purge, logger)
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(stubReadiness{}, stubPurge{})

	rec := doRequest(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		s := newTestServer(stubReadiness{}, stubPurge{})
		rec := doRequest(s, http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		s := newTestServer(stubReadiness{err: errors.New("store unreachable")}, stubPurge{})
		rec := doRequest(s, http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "store unreachable")
	})
}

func TestPurgeEndpoint(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		s := newTestServer(stubReadiness{}, stubPurge{queued: true})
		rec := doRequest(s, http.MethodPost, "/admin/purge")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.JSONEq(t, `{"status":"purge in progress"}`, rec.Body.String())
	})

	t.Run("already queued", func(t *testing.T) {
		s := newTestServer(stubReadiness{}, stubPurge{queued: false})
		rec := doRequest(s, http.MethodPost, "/admin/purge")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.JSONEq(t, `{"status":"purge already queued"}`, rec.Body.String())
	})

	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(stubReadiness{}, nil)
		rec := doRequest(s, http.MethodPost, "/admin/purge")
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		s := newTestServer(stubReadiness{}, stubPurge{queued: true})
		rec := doRequest(s, http.MethodGet, "/admin/purge")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(stubReadiness{}, stubPurge{})
	rec := doRequest(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
}
