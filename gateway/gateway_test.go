package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu       sync.Mutex
	analyses []pipeline.Analysis
	err      error
}

func (m *memRecorder) Record(_ context.Context, a *pipeline.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.analyses = append(m.analyses, *a)
	return nil
}

func newTestApp(t *testing.T, opts ...Option) *fiber.App {
	t.Helper()
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	return New(config.Default(), opts...)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func postParse(t *testing.T, app *fiber.App, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/pipelines/parse", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, app, req)
}

func TestPing(t *testing.T) {
	app := newTestApp(t)
	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"Ping": "Pong"}`, string(body))
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status": "ok"}`, string(body))
}

func TestParsePipeline(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "chain",
			body: `{"nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}], "edges": [{"source": "a", "target": "b"}, {"source": "b", "target": "c"}]}`,
			want: `{"num_nodes": 3, "num_edges": 2, "is_dag": true}`,
		},
		{
			name: "cycle",
			body: `{"nodes": [{"id": "a"}, {"id": "b"}], "edges": [{"source": "a", "target": "b"}, {"source": "b", "target": "a"}]}`,
			want: `{"num_nodes": 2, "num_edges": 2, "is_dag": false}`,
		},
		{
			name: "empty",
			body: `{"nodes": [], "edges": []}`,
			want: `{"num_nodes": 0, "num_edges": 0, "is_dag": true}`,
		},
		{
			name: "self loop",
			body: `{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "a"}]}`,
			want: `{"num_nodes": 1, "num_edges": 1, "is_dag": false}`,
		},
		{
			name: "dangling",
			body: `{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "zzz"}]}`,
			want: `{"num_nodes": 1, "num_edges": 1, "is_dag": true}`,
		},
		{
			name: "unknown source",
			body: `{"nodes": [{"id": "a"}], "edges": [{"source": "zzz", "target": "a"}]}`,
			want: `{"num_nodes": 1, "num_edges": 1, "is_dag": false}`,
		},
		{
			name: "editor payload",
			body: `{"nodes": [{"id": "input-1", "type": "customInput", "position": {"x": 0, "y": 0}, "data": {"inputName": "q"}}, {"id": "llm-1", "type": "llm"}],
			        "edges": [{"id": "reactflow__edge-input-1", "source": "input-1", "sourceHandle": "input-1-value", "target": "llm-1", "targetHandle": "llm-1-prompt", "animated": true}]}`,
			want: `{"num_nodes": 2, "num_edges": 1, "is_dag": true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			resp, body := postParse(t, app, tt.body)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, tt.want, string(body))
		})
	}
}

func TestParsePipelineMalformed(t *testing.T) {
	app := newTestApp(t)
	for _, body := range []string{`{not json`, ``, `[1, 2`} {
		resp, out := postParse(t, app, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.JSONEq(t, `{"error": "invalid body"}`, string(out))
	}
}

func TestParsePipelineWrongType(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		field  string
		reason string
	}{
		{"nodes not an array", `{"nodes": "a", "edges": []}`, `^nodes$`, "must be an array, got string"},
		{"numeric node id", `{"nodes": [{"id": 1}], "edges": []}`, `^nodes(\[0\])?\.id$`, "must be a string, got number"},
		{"boolean edge target", `{"edges": [{"source": "a", "target": true}]}`, `^edges(\[0\])?\.target$`, "must be a string, got bool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			resp, body := postParse(t, app, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

			var out struct {
				Error   string       `json:"error"`
				Details []FieldError `json:"details"`
			}
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, "invalid pipeline", out.Error)
			require.Len(t, out.Details, 1)
			assert.Regexp(t, tt.field, out.Details[0].Field)
			assert.Equal(t, tt.reason, out.Details[0].Reason)
		})
	}
}

func TestParsePipelineInvalid(t *testing.T) {
	app := newTestApp(t)
	resp, body := postParse(t, app, `{"nodes": [{"id": "a"}], "edges": [{"source": "a"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{
		"error": "invalid pipeline",
		"details": [{"field": "edges[0].target", "reason": "is required"}]
	}`, string(body))
}

func TestParsePipelineRecords(t *testing.T) {
	rec := &memRecorder{}
	app := newTestApp(t, WithRecorder(rec))

	req := httptest.NewRequest(http.MethodPost, "/pipelines/parse",
		strings.NewReader(`{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "a"}]}`))
	req.Header.Set("X-Request-ID", "req-1")
	resp, _ := do(t, app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get("X-Request-ID"))

	require.Len(t, rec.analyses, 1)
	got := rec.analyses[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, 1, got.NumNodes)
	assert.Equal(t, 1, got.NumEdges)
	assert.False(t, got.IsDAG)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestParsePipelineRecorderFailure(t *testing.T) {
	rec := &memRecorder{err: errors.New("db down")}
	app := newTestApp(t, WithRecorder(rec))

	resp, body := postParse(t, app, `{"nodes": [], "edges": []}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"num_nodes": 0, "num_edges": 0, "is_dag": true}`, string(body))
}

func TestParsePipelineNotRecordedWhenRejected(t *testing.T) {
	rec := &memRecorder{}
	app := newTestApp(t, WithRecorder(rec))

	resp, _ := postParse(t, app, `{"nodes": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, rec.analyses)
}

func TestCORS(t *testing.T) {
	app := newTestApp(t)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/pipelines/parse", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		resp, _ := do(t, app, req)

		assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
		for _, m := range []string{http.MethodPost, http.MethodConnect, http.MethodTrace} {
			assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), m)
		}
		assert.Contains(t, strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers")), "content-type")
	})

	t.Run("simple request from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		resp, _ := do(t, app, req)
		assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.test")
		resp, _ := do(t, app, req)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t)
	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotEmpty(t, out["error"])
}

func TestMetrics(t *testing.T) {
	app := newTestApp(t)
	resp, _ := postParse(t, app, `{"nodes": [{"id": "a"}], "edges": []}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pipeline_analyses_total{verdict="dag"}`)
}

func TestMetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics = false
	app := New(cfg, WithLogger(log.New(io.Discard)))
	resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
