package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/api"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/config"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	cfg := &config.Config{Host: "127.0.0.1", Port: "0", LogLevel: "error"}
	handlers := api.NewHandlers(nil, nil, nil, nil, nil, logger.NewNop())
	return New(cfg, handlers, logger.NewNop())
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/sync", nil)
	req.Header.Set("Origin", "https://efiling.example.gov.in")
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunStopsWithContext(t *testing.T) {
	srv := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
