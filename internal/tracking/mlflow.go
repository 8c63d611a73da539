package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"hotelcancel/internal/errors"
)

const mlflowAPI = "/api/2.0/mlflow/"

// MLflowSink logs runs through the MLflow tracking REST API
type MLflowSink struct {
	baseURL      string
	experiment   string
	experimentID string
	httpClient   *http.Client
	runID        string
}

// NewMLflowSink creates a client for the tracking server at baseURL
func NewMLflowSink(baseURL, experiment string, timeout time.Duration) *MLflowSink {
	return &MLflowSink{
		baseURL:    baseURL,
		experiment: experiment,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StartRun resolves (or creates) the experiment, then creates a run in it
func (m *MLflowSink) StartRun(ctx context.Context, name string) (string, error) {
	if m.experimentID == "" {
		id, err := m.resolveExperiment(ctx)
		if err != nil {
			return "", err
		}
		m.experimentID = id
	}

	body, err := m.post(ctx, "runs/create", map[string]interface{}{
		"experiment_id": m.experimentID,
		"run_name":      name,
		"start_time":    time.Now().UnixMilli(),
		"tags":          []map[string]string{{"key": "mlflow.runName", "value": name}},
	})
	if err != nil {
		return "", err
	}
	runID := gjson.GetBytes(body, "run.info.run_id").String()
	if runID == "" {
		return "", errors.ExternalServiceError("mlflow", fmt.Errorf("runs/create returned no run id: %s", body))
	}
	m.runID = runID
	return runID, nil
}

func (m *MLflowSink) resolveExperiment(ctx context.Context) (string, error) {
	query := url.Values{"experiment_name": {m.experiment}}
	status, body, err := m.do(ctx, http.MethodGet, "experiments/get-by-name?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	if status == http.StatusOK {
		if id := gjson.GetBytes(body, "experiment.experiment_id").String(); id != "" {
			return id, nil
		}
	}
	if status != http.StatusOK && gjson.GetBytes(body, "error_code").String() != "RESOURCE_DOES_NOT_EXIST" {
		return "", apiError("experiments/get-by-name", status, body)
	}

	body, err = m.post(ctx, "experiments/create", map[string]string{"name": m.experiment})
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(body, "experiment_id").String()
	if id == "" {
		return "", errors.ExternalServiceError("mlflow", fmt.Errorf("experiments/create returned no id: %s", body))
	}
	return id, nil
}

func (m *MLflowSink) LogParam(ctx context.Context, key, value string) error {
	if err := m.requireRun(); err != nil {
		return err
	}
	_, err := m.post(ctx, "runs/log-parameter", map[string]string{
		"run_id": m.runID, "key": key, "value": value,
	})
	return err
}

func (m *MLflowSink) LogMetric(ctx context.Context, key string, value float64) error {
	if err := m.requireRun(); err != nil {
		return err
	}
	_, err := m.post(ctx, "runs/log-metric", map[string]interface{}{
		"run_id":    m.runID,
		"key":       key,
		"value":     value,
		"timestamp": time.Now().UnixMilli(),
		"step":      0,
	})
	return err
}

// LogArtifact tags the run with the artifact location; the REST tracking API
// has no upload endpoint
func (m *MLflowSink) LogArtifact(ctx context.Context, name, path string) error {
	if err := m.requireRun(); err != nil {
		return err
	}
	_, err := m.post(ctx, "runs/set-tag", map[string]string{
		"run_id": m.runID, "key": "artifact." + name, "value": path,
	})
	return err
}

func (m *MLflowSink) EndRun(ctx context.Context, status Status) error {
	if err := m.requireRun(); err != nil {
		return err
	}
	_, err := m.post(ctx, "runs/update", map[string]interface{}{
		"run_id":   m.runID,
		"status":   string(status),
		"end_time": time.Now().UnixMilli(),
	})
	if err == nil {
		m.runID = ""
	}
	return err
}

func (m *MLflowSink) Close() error {
	m.httpClient.CloseIdleConnections()
	return nil
}

func (m *MLflowSink) post(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding mlflow request")
	}
	status, body, err := m.do(ctx, http.MethodPost, endpoint, data)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError(endpoint, status, body)
	}
	return body, nil
}

func (m *MLflowSink) do(ctx context.Context, method, endpoint string, data []byte) (int, []byte, error) {
	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+mlflowAPI+endpoint, reader)
	if err != nil {
		return 0, nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to build mlflow request"))
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.ExternalServiceError("mlflow", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.ExternalServiceError("mlflow", err)
	}
	return resp.StatusCode, body, nil
}

func (m *MLflowSink) requireRun() error {
	if m.runID == "" {
		return errors.InvalidInput("no active tracking run")
	}
	return nil
}

func apiError(endpoint string, status int, body []byte) error {
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = string(body)
	}
	return errors.ExternalServiceError("mlflow", fmt.Errorf("%s returned status %d: %s", endpoint, status, msg))
}
