package tracking

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushgatewaySinkPushesGroupedMetrics(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewPushgatewaySink(srv.URL, "hotel_cancel", time.Second)
	ctx := context.Background()
	id, err := sink.StartRun(ctx, "cv")
	require.NoError(t, err)
	require.NoError(t, sink.LogParam(ctx, "n_estimators", "160"))
	require.NoError(t, sink.LogMetric(ctx, "mean_score", 0.81))
	require.NoError(t, sink.EndRun(ctx, StatusFinished))

	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasPrefix(path, "/metrics/job/hotel_cancel/"), path)
	assert.Contains(t, path, "/run_id/"+id)
	assert.Contains(t, path, "/run_name/cv")
	assert.NotEmpty(t, body)
}

func TestPushgatewaySinkRequiresRun(t *testing.T) {
	sink := NewPushgatewaySink("http://127.0.0.1:1", "job", time.Second)
	assert.Error(t, sink.LogMetric(context.Background(), "f1", 1))
}

func TestPushgatewaySinkPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewPushgatewaySink(srv.URL, "job", time.Second)
	ctx := context.Background()
	_, err := sink.StartRun(ctx, "cv")
	require.NoError(t, err)
	assert.Error(t, sink.EndRun(ctx, StatusFailed))
}
