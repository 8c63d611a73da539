package tracking

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"hotelcancel/internal/errors"
)

// PushgatewaySink exposes a run as Prometheus gauges and pushes them to a
// Pushgateway when the run ends, grouped by run id
type PushgatewaySink struct {
	url        string
	job        string
	httpClient *http.Client

	registry  *prometheus.Registry
	metrics   *prometheus.GaugeVec
	params    *prometheus.GaugeVec
	artifacts *prometheus.GaugeVec
	success   prometheus.Gauge

	runID   string
	runName string
}

// NewPushgatewaySink creates a sink pushing to url under job
func NewPushgatewaySink(url, job string, timeout time.Duration) *PushgatewaySink {
	return &PushgatewaySink{
		url:        url,
		job:        job,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *PushgatewaySink) StartRun(_ context.Context, name string) (string, error) {
	p.registry = prometheus.NewRegistry()
	p.metrics = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hotelcancel_run_metric",
		Help: "Evaluation metric recorded for a pipeline run.",
	}, []string{"name"})
	p.params = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hotelcancel_run_param_info",
		Help: "Parameters of a pipeline run, always 1.",
	}, []string{"name", "value"})
	p.artifacts = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hotelcancel_run_artifact_bytes",
		Help: "Size of artifacts written by a pipeline run.",
	}, []string{"name"})
	p.success = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hotelcancel_run_success",
		Help: "1 when the run finished, 0 when it failed.",
	})
	p.registry.MustRegister(p.metrics, p.params, p.artifacts, p.success)

	p.runID = newRunID()
	p.runName = name
	return p.runID, nil
}

func (p *PushgatewaySink) LogParam(_ context.Context, key, value string) error {
	if err := p.requireRun(); err != nil {
		return err
	}
	p.params.WithLabelValues(key, value).Set(1)
	return nil
}

func (p *PushgatewaySink) LogMetric(_ context.Context, key string, value float64) error {
	if err := p.requireRun(); err != nil {
		return err
	}
	p.metrics.WithLabelValues(key).Set(value)
	return nil
}

func (p *PushgatewaySink) LogArtifact(_ context.Context, name, path string) error {
	if err := p.requireRun(); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.FileNotFound(path, err)
	}
	p.artifacts.WithLabelValues(name).Set(float64(info.Size()))
	return nil
}

// EndRun pushes every gauge of the run in a single request
func (p *PushgatewaySink) EndRun(ctx context.Context, status Status) error {
	if err := p.requireRun(); err != nil {
		return err
	}
	if status == StatusFinished {
		p.success.Set(1)
	}
	err := push.New(p.url, p.job).
		Client(p.httpClient).
		Gatherer(p.registry).
		Grouping("run_id", p.runID).
		Grouping("run_name", p.runName).
		PushContext(ctx)
	if err != nil {
		return errors.ExternalServiceError("pushgateway", err)
	}
	p.runID = ""
	return nil
}

func (p *PushgatewaySink) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *PushgatewaySink) requireRun() error {
	if p.runID == "" {
		return errors.InvalidInput("no active tracking run")
	}
	return nil
}
