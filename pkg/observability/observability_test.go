package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordWorkflow(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	var buf bytes.Buffer
	hooks := Compose(m.Hooks(), LoggingHooks(logging.NewWithWriter(&buf, slog.LevelDebug)))
	o := workflow.New(workflow.WithHooks(hooks))

	require.NoError(t, o.SelectTemplate(ctx, domain.TemplateSOP))
	a, err := o.UploadFile(ctx, domain.BytesFile("a.txt", []byte("x")))
	require.NoError(t, err)
	b, err := o.UploadFile(ctx, domain.BytesFile("b.txt", []byte("y")))
	require.NoError(t, err)

	o.Complete(ctx, a, []byte("late"), nil)
	o.Complete(ctx, b, []byte("doc"), nil)
	o.Reset(ctx)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResponses.WithLabelValues("sop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("sop", "success", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ArtifactsLive))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ArtifactBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtifactRevokes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues(workflow.IntentReset, "select")))

	logs := buf.String()
	assert.Contains(t, logs, "stale_response")
	assert.Contains(t, logs, "artifact_revoked")
}

func TestMetrics_FailureStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())
	o := workflow.New(workflow.WithHooks(m.Hooks()))

	require.NoError(t, o.SelectTemplate(ctx, domain.TemplateCAPA))
	a, err := o.UploadFile(ctx, domain.BytesFile("a.txt", []byte("x")))
	require.NoError(t, err)
	o.Complete(ctx, a, nil, &domain.APIError{StatusCode: 500, Message: "engine overloaded"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("capa", "failure", "500")))
}

func TestCompose_Order(t *testing.T) {
	var order []string
	h := Compose(
		domain.LifecycleHooks{OnTransition: func(context.Context, *domain.TransitionEvent) { order = append(order, "a") }},
		domain.LifecycleHooks{},
		domain.LifecycleHooks{OnTransition: func(context.Context, *domain.TransitionEvent) { order = append(order, "b") }},
	)
	h.OnTransition(context.Background(), &domain.TransitionEvent{})
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Nil(t, h.OnRequestStart)
}
