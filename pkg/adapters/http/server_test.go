package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/espalier/internal/compiler"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	espalierhttp "github.com/aretw0/espalier/pkg/adapters/http"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/persistence/middleware"
	"github.com/aretw0/espalier/pkg/typecheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graph = `
root: greeting
nodes:
  greeting:
    template: "Hello, {NAME}"
  port:
    option: PORT
    type: int
  mode:
    switch: MODE
    cases:
      fast: {option: FAST.LEVEL}
      slow: 0
`

func newHandler(t *testing.T, opts ...espalierhttp.Option) http.Handler {
	t.Helper()
	g, err := compiler.New().CompileBytes([]byte(graph))
	require.NoError(t, err)
	return espalierhttp.NewHandler(g, opts...)
}

func post(t *testing.T, h http.Handler, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestEvaluate(t *testing.T) {
	h := newHandler(t)

	w, out := post(t, h, "/evaluate", espalierhttp.Request{Config: map[string]any{"NAME": "ana"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello, ana", out["value"])

	w, out = post(t, h, "/evaluate", espalierhttp.Request{Node: "greeting"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, out["error"], "NAME")

	w, _ = post(t, h, "/evaluate", espalierhttp.Request{Node: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluate_BaseConfigAndHandlers(t *testing.T) {
	h := newHandler(t,
		espalierhttp.WithBaseConfig(config.New(map[string]any{"NAME": "base", "PORT": "x"})),
		espalierhttp.WithHandlers(typecheck.Enforce()),
	)

	_, out := post(t, h, "/evaluate", espalierhttp.Request{})
	assert.Equal(t, "Hello, base", out["value"])

	_, out = post(t, h, "/evaluate", espalierhttp.Request{Config: map[string]any{"NAME": "body"}})
	assert.Equal(t, "Hello, body", out["value"])

	w, _ := post(t, h, "/evaluate", espalierhttp.Request{Node: "port"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestValidate(t *testing.T) {
	h := newHandler(t)

	w, out := post(t, h, "/validate", espalierhttp.Request{Node: "mode", Config: map[string]any{"MODE": "slow"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["valid"])

	w, out = post(t, h, "/validate", espalierhttp.Request{Node: "mode", Config: map[string]any{"MODE": "fast"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, false, out["valid"])
}

func TestKeysAndExplain(t *testing.T) {
	h := newHandler(t)
	cfg := map[string]any{"MODE": "fast", "FAST": map[string]any{"LEVEL": 3}}

	w, out := post(t, h, "/keys", espalierhttp.Request{Node: "mode", Config: cfg})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"FAST.LEVEL", "MODE"}, out["keys"])

	w, out = post(t, h, "/explain", espalierhttp.Request{Node: "mode", Config: map[string]any{"MODE": "fast"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["sufficient"])
	assert.Equal(t, []any{"FAST.LEVEL", "MODE"}, out["keys"])
}

func TestGetEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)
	store := middleware.Chain(memory.NewStore(), middleware.NewMetricsMiddleware(metrics))
	_, err := store.Exists(t.Context(), "fp")
	require.NoError(t, err)

	h := newHandler(t, espalierhttp.WithGatherer(reg), espalierhttp.WithVersion("1.2.3"))

	for path, want := range map[string]string{
		"/health":  `"status":"ok"`,
		"/info":    `"version":"1.2.3"`,
		"/nodes":   `["greeting","mode","port"]`,
		"/metrics": "espalier_cache_operations_total",
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), want)
		})
	}
}
