package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/cellrev/internal/cells"
	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/generate"
	"github.com/jpl-au/cellrev/internal/metrics"
	"github.com/jpl-au/cellrev/internal/render"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/session"
	"github.com/jpl-au/cellrev/internal/store"
)

type testEnv struct {
	svc     service.Service
	srv     *Server
	http    *httptest.Server
	metrics *metrics.Metrics
}

func setup(t *testing.T, provider generate.Provider) *testEnv {
	t.Helper()
	svc, err := cells.Open(filepath.Join(t.TempDir(), "cellrev.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	_, err = svc.Import(context.Background(), []store.CellInput{
		{ID: "1", Primary: "The cat sat on the mat", Secondary: "The dog sat on the rug"},
		{ID: "2", Primary: "Hello world", Secondary: "Hello world"},
		{ID: "3", Primary: "Good morning", Secondary: "Good evening friends"},
	}, service.ImportOptions{Author: "test"})
	require.NoError(t, err)

	cfg := &config.Config{}
	quiet, retries := 10, 0
	cfg.Session.QuietMs = &quiet
	cfg.Processing.MaxRetries = &retries

	var gen *generate.Generator
	if provider != nil {
		gen = generate.New(svc, provider, cfg)
	}
	m := metrics.New()
	srv := New(svc, Options{Config: cfg, Gen: gen, Metrics: m})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.reg.CloseAll)
	return &testEnv{svc: svc, srv: srv, http: ts, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.http.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeAs[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestPreview(t *testing.T) {
	e := setup(t, nil)

	resp, data := e.do(t, http.MethodPost, "/api/preview", map[string]string{
		"primary": "The cat sat", "secondary": "The dog sat",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	got := decodeAs[render.Cell](t, data)
	assert.Equal(t, `The <span class="removed" data-diff-id="p1">cat</span> sat`, got.Primary)
	assert.Equal(t, `The <span class="added" data-diff-id="p1">dog</span> sat`, got.Secondary)
	assert.Equal(t, "different", got.Status)

	tests := []struct {
		name string
		body any
	}{
		{"null secondary", `{"primary":"a","secondary":null}`},
		{"missing primary", `{"secondary":"b"}`},
		{"empty body", ""},
		{"malformed", `{"primary":`},
		{"trailing data", `{"primary":"a","secondary":"b"} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := e.do(t, http.MethodPost, "/api/preview", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))
			assert.NotEmpty(t, decodeAs[errorBody](t, data).Error)
		})
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Previews.WithLabelValues("ok")))
}

func TestCellEndpoints(t *testing.T) {
	e := setup(t, nil)

	resp, data := e.do(t, http.MethodGet, "/api/cells/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cv := decodeAs[cellView](t, data)
	assert.Equal(t, "1", cv.ID)
	assert.Equal(t, []string{"p1", "p2"}, cv.Diff.Pairs)

	resp, _ = e.do(t, http.MethodGet, "/api/cells/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Save keeps approvals and returns the committed render.
	resp, _ = e.do(t, http.MethodPost, "/api/cells/2/approve", map[string]string{"column": "secondary", "status": "green"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, data = e.do(t, http.MethodPost, "/api/cells/2/save", map[string]string{"text": "Hello <b>there</b>"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	saved := decodeAs[service.SaveResult](t, data)
	assert.Equal(t, 2, saved.Version)
	assert.Equal(t, `Hello <span class="added" data-diff-id="p1">there</span>`, saved.Rendered.Secondary)

	resp, data = e.do(t, http.MethodGet, "/api/cells/2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cv = decodeAs[cellView](t, data)
	assert.Equal(t, "affirmed", cv.Approvals.Secondary)
	assert.Equal(t, Author, cv.Author)

	resp, data = e.do(t, http.MethodPost, "/api/cells/2/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, store.NoApprovals, decodeAs[store.Approvals](t, data))

	resp, _ = e.do(t, http.MethodPost, "/api/cells/2/approve", map[string]string{"column": "secondary", "status": "purple"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = e.do(t, http.MethodGet, "/api/cells/2/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeAs[[]store.CellJSON](t, data), 2)
}

func TestComments(t *testing.T) {
	e := setup(t, nil)

	resp, data := e.do(t, http.MethodGet, "/api/cells/1/comment", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", decodeAs[commentBody](t, data).Comment)

	resp, data = e.do(t, http.MethodPost, "/api/cells/1/comment", map[string]string{"comment": "check\r\nthis"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "check\nthis", decodeAs[commentBody](t, data).Comment)

	resp, _ = e.do(t, http.MethodPost, "/api/cells/missing/comment", map[string]string{"comment": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestList(t *testing.T) {
	e := setup(t, nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2", "3"}},
		{"?status=same", []string{"2"}},
		{"?sort=-ratio", []string{"2", "1", "3"}},
		{"?lt=100", []string{"1", "3"}},
		{"?gt=50&sort=ratio", []string{"1", "2"}},
		{"?limit=1&offset=1", []string{"2"}},
		{"?q=morning", []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, data := e.do(t, http.MethodGet, "/api/cells"+tt.query, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
			out := decodeAs[listResponse](t, data)
			ids := make([]string, len(out.Cells))
			for i, c := range out.Cells {
				ids[i] = c.ID
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, int64(3), out.Total)
		})
	}

	for _, q := range []string{"?sort=sideways", "?min=abc", "?limit=-1", "?status=odd", "?approval=blue"} {
		resp, _ := e.do(t, http.MethodGet, "/api/cells"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestStatsAndRatios(t *testing.T) {
	e := setup(t, nil)

	resp, data := e.do(t, http.MethodPost, "/api/ratios", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, map[string]int{"updated": 0}, decodeAs[map[string]int](t, data))

	resp, data = e.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeAs[store.Stats](t, data)
	assert.Equal(t, int64(3), st.Cells)
	assert.Equal(t, int64(1), st.Same)
}

func upper(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "Good morning") {
		return "", errors.New("quota exceeded")
	}
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "The ") || strings.HasPrefix(line, "Hello") {
			return strings.ToUpper(line), nil
		}
	}
	return "", errors.New("unexpected prompt")
}

func TestRegenerate(t *testing.T) {
	e := setup(t, generate.ProviderFunc(upper))

	resp, data := e.do(t, http.MethodPost, "/api/cells/2/regenerate", map[string]string{"variant": "alt1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	res := decodeAs[generate.Result](t, data)
	assert.Equal(t, "HELLO WORLD", res.Text)
	require.NotNil(t, res.Saved)
	assert.Equal(t, "different", res.Saved.Rendered.Status)

	resp, _ = e.do(t, http.MethodPost, "/api/cells/2/regenerate", map[string]string{"variant": "alt9"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/cells/2/regenerate", map[string]string{"variant": "custom"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = e.do(t, http.MethodPost, "/api/regenerate", map[string]any{"ids": []string{"1", "3", "nope"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	bulk := decodeAs[bulkResponse](t, data)
	assert.Equal(t, 1, bulk.Succeeded)
	assert.Equal(t, 2, bulk.Failed)
	require.Len(t, bulk.Results, 3)
	assert.Equal(t, "THE CAT SAT ON THE MAT", bulk.Results[0].Text)
	assert.Contains(t, bulk.Results[1].Error, "quota")
	assert.Contains(t, bulk.Results[2].Error, "not found")

	resp, _ = e.do(t, http.MethodPost, "/api/regenerate", map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.Regenerated.WithLabelValues("default", "error")))
}

func TestRegenerate_NoGenerator(t *testing.T) {
	e := setup(t, nil)
	resp, _ := e.do(t, http.MethodPost, "/api/cells/1/regenerate", map[string]string{})
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func openSession(t *testing.T, e *testEnv, id string) Snapshot {
	t.Helper()
	resp, data := e.do(t, http.MethodPost, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	return decodeAs[Snapshot](t, data)
}

func TestSessionLifecycle(t *testing.T) {
	e := setup(t, nil)

	snap := openSession(t, e, "2")
	require.NotEmpty(t, snap.Session)
	assert.Equal(t, session.Editing, snap.Frame.State)
	assert.Equal(t, session.ViewEdit, snap.Frame.View)
	assert.Equal(t, "Hello world", snap.Frame.Input)
	tok := []string{SessionHeader, snap.Session}

	resp, data := e.do(t, http.MethodPost, "/api/sessions/2/input", map[string]string{"text": "Hello there"}, tok...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	// The debounced preview lands shortly after.
	require.Eventually(t, func() bool {
		_, data := e.do(t, http.MethodGet, "/api/sessions/2", nil, tok...)
		s := decodeAs[Snapshot](t, data)
		return strings.Contains(s.Frame.Secondary, "there")
	}, 2*time.Second, 10*time.Millisecond)

	_, data = e.do(t, http.MethodGet, "/api/sessions/2", nil, tok...)
	snap = decodeAs[Snapshot](t, data)
	assert.Equal(t, []string{"p1"}, snap.Correlations)

	resp, data = e.do(t, http.MethodPost, "/api/sessions/2/hover", map[string]any{"pair": "p1", "entering": true}, tok...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, []string{"p1"}, decodeAs[Snapshot](t, data).Highlighted)

	resp, _ = e.do(t, http.MethodPost, "/api/sessions/2/hover", map[string]any{"pair": "p7", "entering": true}, tok...)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = e.do(t, http.MethodPost, "/api/sessions/2/scroll", map[string]any{"pane": "input", "position": 0.25}, tok...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, map[string]float64{"primary": 0.25, "secondary": 0.25, "input": 0.25}, decodeAs[Snapshot](t, data).Scroll)

	resp, data = e.do(t, http.MethodPost, "/api/sessions/2/save", nil, tok...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	snap = decodeAs[Snapshot](t, data)
	assert.Equal(t, session.Idle, snap.Frame.State)
	assert.Equal(t, session.ViewDiff, snap.Frame.View)
	assert.Equal(t, `Hello <span class="added" data-diff-id="p1">there</span>`, snap.Frame.Secondary)
	assert.Empty(t, snap.Highlighted, "highlight released with its binding")

	c, err := e.svc.Get(context.Background(), "2", false)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", c.Secondary)

	// Saving again without editing is a conflict.
	resp, _ = e.do(t, http.MethodPost, "/api/sessions/2/save", nil, tok...)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, data = e.do(t, http.MethodPost, "/api/sessions/2/edit", nil, tok...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "Hello there", decodeAs[Snapshot](t, data).Frame.Input)

	resp, _ = e.do(t, http.MethodDelete, "/api/sessions/2", nil, tok...)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/sessions/2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Saves.WithLabelValues("ok")))
	assert.Equal(t, float64(0), testutil.ToFloat64(e.metrics.OpenSessions))
}

func TestSessionCancel(t *testing.T) {
	e := setup(t, nil)
	snap := openSession(t, e, "1")
	committed := snap.Frame.Secondary

	resp, _ := e.do(t, http.MethodPost, "/api/sessions/1/input", map[string]string{"text": "Something else"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, data := e.do(t, http.MethodPost, "/api/sessions/1/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeAs[Snapshot](t, data)
	assert.Equal(t, session.Idle, snap.Frame.State)
	assert.Equal(t, committed, snap.Frame.Secondary)
	assert.Empty(t, snap.Frame.Input)

	resp, _ = e.do(t, http.MethodPost, "/api/sessions/1/input", map[string]string{"text": "x"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	c, err := e.svc.Get(context.Background(), "1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Version)
}

func TestSessionSingleEditor(t *testing.T) {
	e := setup(t, nil)
	first := openSession(t, e, "1")
	openSession(t, e, "3")

	_, data := e.do(t, http.MethodGet, "/api/sessions/1", nil)
	assert.Equal(t, session.Idle, decodeAs[Snapshot](t, data).Frame.State)

	// Reopening a cell invalidates the old token.
	openSession(t, e, "1")
	resp, _ := e.do(t, http.MethodGet, "/api/sessions/1", nil, SessionHeader, first.Session)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionRegenerate(t *testing.T) {
	e := setup(t, generate.ProviderFunc(upper))
	openSession(t, e, "2")

	resp, data := e.do(t, http.MethodPost, "/api/sessions/2/regenerate", map[string]string{"variant": "alt2"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	snap := decodeAs[Snapshot](t, data)
	assert.Equal(t, "HELLO WORLD", snap.Frame.Input)
	assert.Equal(t, session.Editing, snap.Frame.State)

	c, err := e.svc.Get(context.Background(), "2", false)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Version, "regenerated draft is not saved until the reviewer saves")

	openSession(t, e, "3")
	resp, data = e.do(t, http.MethodPost, "/api/sessions/3/regenerate", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, decodeAs[errorBody](t, data).Error, "quota")
}

func TestMetricsEndpoint(t *testing.T) {
	e := setup(t, nil)
	e.do(t, http.MethodGet, "/healthz", nil)

	resp, data := e.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `cellrev_http_requests_total{code="200",route="healthz"} 1`)
}

func TestServeShutdown(t *testing.T) {
	e := setup(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
