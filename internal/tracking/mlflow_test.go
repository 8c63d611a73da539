package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelcancel/internal/errors"
)

type mlflowServer struct {
	mu        sync.Mutex
	calls     []string
	payloads  map[string][]map[string]interface{}
	hasExp    bool
	failPaths map[string]bool
}

func newMLflowServer(t *testing.T, hasExperiment bool) (*mlflowServer, *httptest.Server) {
	s := &mlflowServer{payloads: map[string][]map[string]interface{}{}, hasExp: hasExperiment, failPaths: map[string]bool{}}
	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *mlflowServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint := r.URL.Path[len(mlflowAPI):]
	s.calls = append(s.calls, endpoint)

	if r.Method == http.MethodPost {
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		s.payloads[endpoint] = append(s.payloads[endpoint], payload)
	}
	if s.failPaths[endpoint] {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error_code":"INTERNAL_ERROR","message":"backend down"}`))
		return
	}

	switch endpoint {
	case "experiments/get-by-name":
		if !s.hasExp {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":"RESOURCE_DOES_NOT_EXIST","message":"no experiment"}`))
			return
		}
		_, _ = w.Write([]byte(`{"experiment":{"experiment_id":"7","name":"hotel"}}`))
	case "experiments/create":
		_, _ = w.Write([]byte(`{"experiment_id":"9"}`))
	case "runs/create":
		_, _ = w.Write([]byte(`{"run":{"info":{"run_id":"run-123","status":"RUNNING"}}}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func TestMLflowSinkFullRun(t *testing.T) {
	server, srv := newMLflowServer(t, true)
	sink := NewMLflowSink(srv.URL, "hotel", time.Second)
	ctx := context.Background()

	id, err := sink.StartRun(ctx, "cv")
	require.NoError(t, err)
	assert.Equal(t, "run-123", id)
	require.NoError(t, sink.LogParam(ctx, "n_estimators", "160"))
	require.NoError(t, sink.LogMetric(ctx, "f1", 0.75))
	require.NoError(t, sink.LogArtifact(ctx, "model", "models/model_pipe.gob"))
	require.NoError(t, sink.EndRun(ctx, StatusFinished))
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{
		"experiments/get-by-name", "runs/create", "runs/log-parameter",
		"runs/log-metric", "runs/set-tag", "runs/update",
	}, server.calls)
	assert.Equal(t, "7", server.payloads["runs/create"][0]["experiment_id"])
	assert.Equal(t, 0.75, server.payloads["runs/log-metric"][0]["value"])
	assert.Equal(t, "artifact.model", server.payloads["runs/set-tag"][0]["key"])
	assert.Equal(t, "FINISHED", server.payloads["runs/update"][0]["status"])
}

func TestMLflowSinkCreatesMissingExperiment(t *testing.T) {
	server, srv := newMLflowServer(t, false)
	sink := NewMLflowSink(srv.URL, "hotel", time.Second)

	_, err := sink.StartRun(context.Background(), "cv")
	require.NoError(t, err)
	assert.Contains(t, server.calls, "experiments/create")
	assert.Equal(t, "9", server.payloads["runs/create"][0]["experiment_id"])
}

func TestMLflowSinkSurfacesServerErrors(t *testing.T) {
	server, srv := newMLflowServer(t, true)
	server.failPaths["runs/log-metric"] = true
	sink := NewMLflowSink(srv.URL, "hotel", time.Second)
	ctx := context.Background()

	_, err := sink.StartRun(ctx, "cv")
	require.NoError(t, err)
	err = sink.LogMetric(ctx, "f1", 1)
	require.Error(t, err)
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
	assert.Contains(t, err.Error(), "backend down")
}

func TestMLflowSinkUnreachable(t *testing.T) {
	sink := NewMLflowSink("http://127.0.0.1:1", "hotel", 200*time.Millisecond)
	_, err := sink.StartRun(context.Background(), "cv")
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
}

func TestMLflowSinkRejectsBadTrackingURI(t *testing.T) {
	sink := NewMLflowSink("http://bad host", "hotel", 200*time.Millisecond)
	_, err := sink.StartRun(context.Background(), "cv")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.Contains(t, err.Error(), "failed to build mlflow request")
}
