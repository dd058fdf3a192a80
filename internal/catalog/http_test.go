package catalog_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"MiniCatalog/internal/auth"
	"MiniCatalog/internal/catalog"
	"MiniCatalog/pkg/kit"
)

const jwtSecret = "0123456789abcdef0123456789abcdef"

func newCatalogTS(t *testing.T, s *catalog.Server, deps catalog.HTTPDeps) *httptest.Server {
	t.Helper()

	if s.Catalog == nil {
		s.Catalog = catalog.New(zap.NewNop())
	}
	deps.Log = zap.NewNop()
	deps.Service = "catalog"

	ts := httptest.NewServer(catalog.NewHandler(s, deps))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestCatalogHTTPFlow(t *testing.T) {
	ts := newCatalogTS(t, &catalog.Server{}, catalog.HTTPDeps{})

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/products/1", map[string]any{"price": "10.50", "tags": []int64{100, 200}}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"new":true}`, string(body))

	resp, body = doJSON(t, http.MethodPut, ts.URL+"/products/2", map[string]any{"price": "20", "tags": []int64{200, 300}}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = doJSON(t, http.MethodPut, ts.URL+"/products/2", map[string]any{"price": "20.00"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"new":false}`, string(body))

	_, body = doJSON(t, http.MethodGet, ts.URL+"/tags/200/min", nil, nil)
	assert.JSONEq(t, `{"price":"10.50"}`, string(body))

	_, body = doJSON(t, http.MethodGet, ts.URL+"/tags/200/max", nil, nil)
	assert.JSONEq(t, `{"price":"20.00"}`, string(body))

	_, body = doJSON(t, http.MethodGet, ts.URL+"/tags/200/range?low=10&high=15", nil, nil)
	assert.JSONEq(t, `{"count":1}`, string(body))

	_, body = doJSON(t, http.MethodGet, ts.URL+"/tags/999/min", nil, nil)
	assert.JSONEq(t, `{"price":"0.00"}`, string(body))

	_, body = doJSON(t, http.MethodPost, ts.URL+"/price-hike", map[string]any{"low": 1, "high": 2, "rate": 10}, nil)
	assert.JSONEq(t, `{"increase":"3.05"}`, string(body))

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/products/1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":1,"tags":[100,200],"price":"11.55"}`, string(body))

	_, body = doJSON(t, http.MethodPost, ts.URL+"/products/1/tags/remove", map[string]any{"tags": []int64{100, 5}}, nil)
	assert.JSONEq(t, `{"sum":100}`, string(body))

	_, body = doJSON(t, http.MethodDelete, ts.URL+"/products/1", nil, nil)
	assert.JSONEq(t, `{"sum":200}`, string(body))

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/products/1", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = doJSON(t, http.MethodGet, ts.URL+"/products/1/price", nil, nil)
	assert.JSONEq(t, `{"price":"0.00"}`, string(body))

	_, body = doJSON(t, http.MethodGet, ts.URL+"/products", nil, nil)
	assert.JSONEq(t, `[{"id":2,"tags":[200,300],"price":"22.00"}]`, string(body))
}

func TestCatalogHTTPBadInput(t *testing.T) {
	ts := newCatalogTS(t, &catalog.Server{}, catalog.HTTPDeps{})

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/products/1", map[string]any{"price": "1.234"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "bad price")

	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/products/x", map[string]any{"price": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/products/1", map[string]any{"price": "1", "color": "red"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/tags/1/range?low=abc&high=2", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalogHTTPOperatorAuth(t *testing.T) {
	tm := auth.NewTokenMaker(jwtSecret)
	ts := newCatalogTS(t, &catalog.Server{Tokens: tm}, catalog.HTTPDeps{})

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/products/1", map[string]any{"price": "1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/products/1", map[string]any{"price": "1"},
		map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	viewer, err := tm.New("someone", "viewer", time.Minute)
	require.NoError(t, err)
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/products/1", map[string]any{"price": "1"},
		map[string]string{"Authorization": "Bearer " + viewer})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := tm.New("ops", auth.RoleOperator, time.Minute)
	require.NoError(t, err)
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/products/1", map[string]any{"price": "1"},
		map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// reads stay open
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/products/1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCatalogHTTPRateLimit(t *testing.T) {
	ts := newCatalogTS(t, &catalog.Server{Limiter: kit.NewIPRateLimiter(2, 60)}, catalog.HTTPDeps{})

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/products/1", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/products/1", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/products", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCatalogHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newCatalogTS(t, &catalog.Server{}, catalog.HTTPDeps{
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   "scrape",
	})

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/products/7", map[string]any{"price": "1", "tags": []int64{1, 2}}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{"Authorization": "Bearer scrape"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	text := string(body)
	assert.True(t, strings.Contains(text, "catalog_records 1"), text)
	assert.True(t, strings.Contains(text, "catalog_tags 2"), text)
	assert.Contains(t, text, `catalog_operations_total{op="insert"} 1`)
	assert.Contains(t, text, "http_requests_total")
}
