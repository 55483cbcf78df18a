package apiserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkoehler/netverdict/internal/engine"
	"github.com/bkoehler/netverdict/internal/rules"
)

const testRulesDoc = `
version: 1
hypotheses:
  dns: {score: 10}
  network: {score: 10}
elimination_rules:
  - id: wired
    if: {connection_type: ethernet}
    eliminate: [network]
    explanation: Wired connection rules out the local network path
rules:
  - id: dns-slow
    if: {dns_latency_ms: {">": 200}}
    then: {dns: 40}
    explanation: DNS resolution above 200ms
`

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	rs, _, err := rules.Parse([]byte(testRulesDoc))
	require.NoError(t, err)
	return engine.New(rs)
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAnalyze_BeforeFirstRuleSetLoads(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := doRequest(t, s, http.MethodPost, "/v1/analyze", `{"signals":{"x":1}}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_READY")
}

func TestAnalyze_ReturnsVerdict(t *testing.T) {
	s := newTestServer(t, Options{})
	s.SetEngine(testEngine(t))

	rec := doRequest(t, s, http.MethodPost, "/v1/analyze",
		`{"signals":{"dns_latency_ms":420,"connection_type":"ethernet"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AnalysisID)
	assert.Equal(t, "dns", resp.Result.PrimaryCause)
	assert.Equal(t, []string{"network"}, resp.Result.EliminatedCauses)
	assert.Contains(t, resp.Explanation, "Most likely bottleneck: DNS resolution")
}

func TestAnalyze_BadRequests(t *testing.T) {
	s := newTestServer(t, Options{})
	s.SetEngine(testEngine(t))

	rec := doRequest(t, s, http.MethodPost, "/v1/analyze", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/v1/analyze", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing 'signals'")
}

func TestAnalyze_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, Options{})
	s.SetEngine(testEngine(t))

	rec := doRequest(t, s, http.MethodGet, "/v1/analyze", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestAnalyze_CacheHitOnRepeatedSignals(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestServer(t, Options{CacheSize: 16, Registry: reg})
	s.SetEngine(testEngine(t))

	body := `{"signals":{"dns_latency_ms":420}}`
	first := doRequest(t, s, http.MethodPost, "/v1/analyze", body)
	second := doRequest(t, s, http.MethodPost, "/v1/analyze", body)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.CacheMissesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.CacheHitsTotal))

	// The cached verdict matches the fresh one.
	var a, b analyzeResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.Result, b.Result)
}

func TestSetEngine_PurgesCacheAndCountsReloads(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestServer(t, Options{CacheSize: 16, Registry: reg})
	s.SetEngine(testEngine(t))

	body := `{"signals":{"dns_latency_ms":420}}`
	doRequest(t, s, http.MethodPost, "/v1/analyze", body)
	s.SetEngine(testEngine(t))
	doRequest(t, s, http.MethodPost, "/v1/analyze", body)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.CacheMissesTotal),
		"swap must purge the cache, so the repeat request misses")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.ReloadsTotal),
		"the first SetEngine is initial load, not a reload")
}

func TestRules_SummarizesLoadedRuleSet(t *testing.T) {
	s := newTestServer(t, Options{})
	s.SetEngine(testEngine(t))

	rec := doRequest(t, s, http.MethodGet, "/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp rulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Version)
	assert.Equal(t, []string{"dns", "network"}, resp.Hypotheses)
	assert.Equal(t, []string{"wired"}, resp.EliminationRuleIDs)
	assert.Equal(t, []string{"dns-slow"}, resp.ScoringRuleIDs)
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, Options{})

	assert.Equal(t, http.StatusOK, doRequest(t, s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, s, http.MethodGet, "/readyz", "").Code)

	s.SetEngine(testEngine(t))
	assert.Equal(t, http.StatusOK, doRequest(t, s, http.MethodGet, "/readyz", "").Code)
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMetricsEndpointExposesRequestCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestServer(t, Options{Registry: reg})

	doRequest(t, s, http.MethodGet, "/healthz", "")
	rec := doRequest(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "netverdict_api_requests_total")
}

func TestFingerprint_IsOrderInsensitive(t *testing.T) {
	a, ok := fingerprint(engine.Signals{"x": 1, "y": "wifi", "z": true})
	require.True(t, ok)
	b, ok := fingerprint(engine.Signals{"z": true, "y": "wifi", "x": 1})
	require.True(t, ok)
	assert.Equal(t, a, b)

	c, ok := fingerprint(engine.Signals{"x": 2, "y": "wifi", "z": true})
	require.True(t, ok)
	assert.NotEqual(t, a, c)
}
