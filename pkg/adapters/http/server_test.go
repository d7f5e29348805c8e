package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/adapters/memory"
	"github.com/aretw0/tracescribe/pkg/client"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/observability"
	"github.com/aretw0/tracescribe/pkg/session"
	"github.com/aretw0/tracescribe/pkg/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	api      *httptest.Server
	registry *memory.Registry
	hits     *atomic.Int32
	manager  *session.Manager
}

// newFixture starts the JSON API in front of a fake formatting service driven by format.
func newFixture(t *testing.T, format http.HandlerFunc, opts ...Option) *fixture {
	t.Helper()

	hits := &atomic.Int32{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		format(w, r)
	}))
	t.Cleanup(upstream.Close)

	registry := memory.NewRegistry()
	manager := session.NewManager(func() *workflow.Orchestrator {
		return workflow.New(workflow.WithRegistry(registry))
	}, client.New(upstream.URL))

	api := httptest.NewServer(NewHandler(manager, opts...))
	t.Cleanup(func() {
		api.Close()
		_ = manager.CloseAll(context.Background())
	})

	return &fixture{api: api, registry: registry, hits: hits, manager: manager}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.api.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/sessions", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeSession(t, resp).ID
}

func (f *fixture) selectTemplate(t *testing.T, id, template string) *http.Response {
	t.Helper()
	return f.do(t, http.MethodPost, "/sessions/"+id+"/template",
		strings.NewReader(`{"template":"`+template+`"}`), "application/json")
}

func (f *fixture) upload(t *testing.T, id, name string, data []byte, extra map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return f.do(t, http.MethodPost, "/sessions/"+id+"/upload", &buf, mw.FormDataContentType())
}

func decodeSession(t *testing.T, resp *http.Response) SessionResponse {
	t.Helper()
	var out SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Detail
}

func okFormat(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("PK-formatted"))
}

func TestScenario_Success(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sop", r.FormValue("template_type"))
		okFormat(w, r)
	})
	id := f.createSession(t)

	resp := f.selectTemplate(t, id, "sop")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StepUpload, decodeSession(t, resp).State.Step)

	resp = f.upload(t, id, "notes.txt", bytes.Repeat([]byte("a"), 2048), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StepResult, decodeSession(t, resp).State.Step)

	resp = f.do(t, http.MethodGet, "/sessions/"+id+"/artifact?wait=true", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="sop_formatted.docx"`, resp.Header.Get("Content-Disposition"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "PK-formatted", string(body))

	state := decodeSession(t, f.do(t, http.MethodGet, "/sessions/"+id, nil, "")).State
	assert.True(t, state.Succeeded())
	assert.Equal(t, "sop_formatted.docx", state.Artifact.SuggestedName)
}

func TestScenario_ServerError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"engine overloaded"}`))
	})
	id := f.createSession(t)
	require.Equal(t, http.StatusOK, f.selectTemplate(t, id, "capa").StatusCode)
	require.Equal(t, http.StatusOK, f.upload(t, id, "r.docx", []byte("doc"), nil).StatusCode)

	resp := f.do(t, http.MethodGet, "/sessions/"+id+"/artifact?wait=true", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	state := decodeSession(t, f.do(t, http.MethodGet, "/sessions/"+id, nil, "")).State
	assert.Equal(t, domain.StepResult, state.Step)
	assert.Equal(t, "engine overloaded", state.Error)
	assert.Nil(t, state.Artifact)

	// Try Again
	resp = f.do(t, http.MethodPost, "/sessions/"+id+"/back", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state = decodeSession(t, resp).State
	assert.Equal(t, domain.StepUpload, state.Step)
	assert.Equal(t, domain.TemplateCAPA, state.SelectedTemplate)
}

func TestScenario_TooLargeRejectedLocally(t *testing.T) {
	f := newFixture(t, okFormat)
	id := f.createSession(t)
	require.Equal(t, http.StatusOK, f.selectTemplate(t, id, "sop").StatusCode)

	resp := f.upload(t, id, "big.pdf", make([]byte, 11*1024*1024), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "File too large. Maximum size is 10 MB.", decodeError(t, resp))

	resp = f.upload(t, id, "tool.exe", []byte("x"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Please upload a .docx, .pdf, or .txt file", decodeError(t, resp))

	assert.Zero(t, f.hits.Load())
	state := decodeSession(t, f.do(t, http.MethodGet, "/sessions/"+id, nil, "")).State
	assert.Equal(t, domain.StepUpload, state.Step)
	assert.Empty(t, state.Error)
}

func TestScenario_ResetRevokesArtifact(t *testing.T) {
	f := newFixture(t, okFormat)
	id := f.createSession(t)

	resp := f.upload(t, id, "a.txt", []byte("hello"), map[string]string{"template_type": "training"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/sessions/"+id+"/artifact?wait=true", nil, "").StatusCode)
	assert.Equal(t, 1, f.registry.Len())

	resp = f.do(t, http.MethodPost, "/sessions/"+id+"/reset", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.NewWorkflowState(), decodeSession(t, resp).State)
	assert.Equal(t, 0, f.registry.Len())

	resp = f.do(t, http.MethodGet, "/sessions/"+id+"/artifact", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpload_TemplateTypeField(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.FormValue("template_type"))
		mu.Unlock()
		okFormat(w, r)
	})
	id := f.createSession(t)
	require.Equal(t, http.StatusOK, f.selectTemplate(t, id, "sop").StatusCode)

	// On Upload the field switches the template before submitting.
	resp := f.upload(t, id, "a.txt", []byte("hello"), map[string]string{"template_type": "capa"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.TemplateCAPA, decodeSession(t, resp).State.SelectedTemplate)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/sessions/"+id+"/artifact?wait=true", nil, "").StatusCode)

	// On Result a different template is refused instead of being ignored.
	resp = f.upload(t, id, "b.txt", []byte("hello"), map[string]string{"template_type": "sop"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	state := decodeSession(t, f.do(t, http.MethodGet, "/sessions/"+id, nil, "")).State
	assert.True(t, state.Succeeded())
	assert.Equal(t, "a.txt", state.PendingFile.Name)

	resp = f.upload(t, id, "c.txt", []byte("hello"), map[string]string{"template_type": "capa"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/sessions/"+id+"/artifact?wait=true", nil, "").StatusCode)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"capa", "capa"}, seen)
}

func TestErrors(t *testing.T) {
	f := newFixture(t, okFormat)
	id := f.createSession(t)

	resp := f.do(t, http.MethodGet, "/sessions/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session not found", decodeError(t, resp))

	resp = f.selectTemplate(t, id, "memo")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/sessions/"+id+"/back", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/sessions/"+id+"/template", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodDelete, "/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInfoEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	f := newFixture(t, okFormat, WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	resp := f.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/templates", nil, "")
	var templates []domain.TemplateDescriptor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&templates))
	require.Len(t, templates, 6)
	assert.Equal(t, domain.TemplateSOP, templates[0].ID)

	resp = f.do(t, http.MethodGet, "/metrics", nil, "")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "tracescribe_")

	resp = f.do(t, http.MethodOptions, "/sessions", nil, "")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_Session(t *testing.T) {
	f := newFixture(t, okFormat)
	id := f.createSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.api.URL+"/sessions/"+id+"/events?watch=selected_template", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				lines <- strings.TrimPrefix(line, "data: ")
			}
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l := <-lines:
			return l
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
			return ""
		}
	}
	assert.Equal(t, "connected", next())
	assert.Contains(t, next(), `"step":"select"`)

	require.Equal(t, http.StatusOK, f.selectTemplate(t, id, "deviation").StatusCode)

	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(next()), &diff))
	assert.Equal(t, id, diff.SessionID)
	require.NotNil(t, diff.SelectedTemplate)
	assert.Equal(t, domain.TemplateDeviation, *diff.SelectedTemplate)
	require.NotNil(t, diff.Step)
	assert.Equal(t, domain.StepUpload, *diff.Step)
}

func TestStreamManager_Broadcast(t *testing.T) {
	sm := NewStreamManager(slogDiscard())
	ch, cancel := sm.Subscribe("s1")

	sm.Broadcast("s1", "hello")
	sm.Broadcast("s2", "ignored")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}

func slogDiscard() *slog.Logger {
	return logging.NewNop()
}
