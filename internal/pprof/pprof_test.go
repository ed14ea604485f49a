package pprof

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/planrunner/internal/logger"
)

func TestHandlerServesIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")
}

func TestStartStop(t *testing.T) {
	s := New("127.0.0.1:0", logger.NewWriter(logger.LevelNone, io.Discard, ""))
	assert.Nil(t, s.Addr())
	require.NoError(t, s.Start())
	require.Error(t, s.Start())

	resp, err := http.Get("http://" + s.Addr().String() + "/debug/pprof/heap?debug=1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Nil(t, s.Addr())
}
