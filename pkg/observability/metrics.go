package observability

import (
	"context"
	"errors"
	"strconv"

	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the workflow collectors.
type Metrics struct {
	Transitions      *prometheus.CounterVec
	Requests         *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	StaleResponses   *prometheus.CounterVec
	ArtifactsLive    prometheus.Gauge
	ArtifactRevokes  *prometheus.CounterVec
	ArtifactBytes    prometheus.Counter
	RequestsInFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracescribe_transitions_total",
				Help: "Workflow transitions by intent and target step",
			},
			[]string{"intent", "to"},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracescribe_format_requests_total",
				Help: "Completed format requests by template and outcome",
			},
			[]string{"template", "outcome", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracescribe_format_request_duration_seconds",
				Help:    "Duration of format requests",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
			},
			[]string{"template"},
		),
		StaleResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracescribe_stale_responses_total",
				Help: "Format responses dropped because the attempt was superseded",
			},
			[]string{"template"},
		),
		ArtifactsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracescribe_artifacts_live",
			Help: "Artifact handles currently held by workflows",
		}),
		ArtifactRevokes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracescribe_artifact_revocations_total",
				Help: "Artifact handle revocations by result",
			},
			[]string{"result"},
		),
		ArtifactBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracescribe_artifact_bytes_total",
			Help: "Bytes of formatted documents received",
		}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracescribe_format_requests_in_flight",
			Help: "Format requests started whose response has not arrived yet",
		}),
	}
	reg.MustRegister(
		m.Transitions,
		m.Requests,
		m.RequestDuration,
		m.StaleResponses,
		m.ArtifactsLive,
		m.ArtifactRevokes,
		m.ArtifactBytes,
		m.RequestsInFlight,
	)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.Intent, e.To.String()).Inc()
		},
		OnRequestStart: func(ctx context.Context, e *domain.RequestEvent) {
			m.RequestsInFlight.Inc()
		},
		OnRequestDone: func(ctx context.Context, e *domain.RequestEvent) {
			m.RequestsInFlight.Dec()
			outcome, status := "success", "200"
			if e.Err != nil {
				outcome, status = "failure", "0"
				var apiErr *domain.APIError
				if errors.As(e.Err, &apiErr) {
					status = strconv.Itoa(apiErr.StatusCode)
				}
			}
			m.Requests.WithLabelValues(string(e.Template), outcome, status).Inc()
			m.RequestDuration.WithLabelValues(string(e.Template)).Observe(e.Duration.Seconds())
		},
		OnStaleResponse: func(ctx context.Context, e *domain.RequestEvent) {
			m.RequestsInFlight.Dec()
			m.StaleResponses.WithLabelValues(string(e.Template)).Inc()
		},
		OnArtifactCreated: func(ctx context.Context, e *domain.ArtifactEvent) {
			m.ArtifactsLive.Inc()
			m.ArtifactBytes.Add(float64(e.Size))
		},
		OnArtifactRevoked: func(ctx context.Context, e *domain.ArtifactEvent) {
			m.ArtifactsLive.Dec()
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.ArtifactRevokes.WithLabelValues(result).Inc()
		},
	}
}
