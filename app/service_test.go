package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpipredict/cpi-predictor/config"
	"github.com/cpipredict/cpi-predictor/core/factory"
	coremetrics "github.com/cpipredict/cpi-predictor/core/metrics"
	"github.com/cpipredict/cpi-predictor/test/util"
)

type recordingSink struct {
	mu      sync.Mutex
	preds   []coremetrics.PredictionEvent
	rejects []coremetrics.RejectionEvent
	closed  bool
}

func (r *recordingSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preds = append(r.preds, ev)
	return nil
}

func (r *recordingSink) RecordRejection(ev coremetrics.RejectionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejects = append(r.rejects, ev)
	return nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

var recorder = &recordingSink{}

func init() {
	_ = coremetrics.RegisterMetricsSink("recording", func(map[string]any) (coremetrics.MetricsSink, error) {
		return recorder, nil
	})
}

func testConfig(sinks ...string) *config.Config {
	cfg := &config.Config{}
	cfg.Chart = config.ChartConfig{Width: 200, Height: 400}
	for _, s := range sinks {
		cfg.Metrics.Sinks = append(cfg.Metrics.Sinks, factory.ModuleConfig{Type: s})
	}
	cfg.SetDefaults()
	return cfg
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	return rr
}

func TestService_Routes(t *testing.T) {
	svc, err := New(testConfig())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	h := svc.Handler()

	for _, path := range []string{"/predict", "/api/predict"} {
		rr := do(h, http.MethodPost, path, `{"semesters":[1,2,3],"cpi":[6,6.5,7]}`)
		require.Equal(t, http.StatusOK, rr.Code, path)
		var out struct {
			Ans  float64 `json:"ans"`
			Plot string  `json:"plot"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		assert.InDelta(t, 7.5, out.Ans, 1e-9)
		assert.NotEmpty(t, out.Plot)
	}

	rr := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = do(h, http.MethodGet, "/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = do(h, http.MethodPost, "/predict", `{"semesters":[1,2],"cpi":[1]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"detail":"semesters and cpi arrays must be the same length"}`, rr.Body.String())
}

func TestService_CORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"https://frontend.example"}, AllowCredentials: true}
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "https://frontend.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "https://frontend.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestService_EventsReachSink(t *testing.T) {
	svc, err := New(testConfig("recording"))
	require.NoError(t, err)
	h := svc.Handler()

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/predict", `{"semesters":[1,2,3],"cpi":[2,5,9]}`).Code)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/predict", `{}`).Code)
	require.NoError(t, svc.Close())

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.preds, 1)
	assert.True(t, recorder.preds[0].Clamped)
	assert.Equal(t, 3, recorder.preds[0].Points)
	require.Len(t, recorder.rejects, 1)
	assert.Equal(t, coremetrics.ReasonMissing, recorder.rejects[0].Reason)
	assert.True(t, recorder.closed)
}

func TestService_ServeAndShutdown(t *testing.T) {
	svc, err := New(testConfig())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), util.MetricTimeout)
	defer waitCancel()
	require.NoError(t, util.WaitForServer(waitCtx, url+"/healthz"))

	resp, err := http.Post(url+"/predict", "application/json", strings.NewReader(`{"semesters":[1],"cpi":[8]}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
