package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodiebox/boxsense/internal/config"
)

// fakeUpstream mimics the xAI completions endpoint with scripted texts
type fakeUpstream struct {
	mu        sync.Mutex
	responses []string
	status    int
	calls     int
	prompts   []string
	requests  []upstreamRequest
}

type upstreamRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Seed        int     `json:"seed"`
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var req upstreamRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.prompts = append(f.prompts, req.Prompt)
	f.requests = append(f.requests, req)

	idx := f.calls
	f.calls++

	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		w.Write([]byte(`{"error": "upstream unavailable"}`))
		return
	}

	text := ""
	if len(f.responses) > 0 {
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		text = f.responses[idx]
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]string{{"text": text}},
	})
}

func (f *fakeUpstream) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeUpstream) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func newTestRouter(upstreamURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		XAI: config.XAIConfig{
			APIKey:  "test-key",
			APIURL:  upstreamURL,
			Model:   "grok-3",
			Timeout: 5 * time.Second,
		},
		Server: config.ServerConfig{
			Port:            "8080",
			RequestTimeout:  30 * time.Second,
			CacheTTL:        time.Minute,
			RateLimitPerMin: 6000,
		},
	}

	return newServer(cfg).setupRouter()
}

func postJSON(r *gin.Engine, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	// Health must not depend on upstream reachability
	r := newTestRouter("http://127.0.0.1:1/v1/completions")

	tests := []struct {
		name           string
		method         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "GET /health returns healthy",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"healthy"}`,
		},
		{
			name:           "POST /health not routed",
			method:         http.MethodPost,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, "/health", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestPredictBoxScore_MissingFutureBoxInfo(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{"4.20"}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{name: "empty body", body: map[string]interface{}{}},
		{name: "only historical data", body: map[string]interface{}{"historical_data": "past boxes"}},
		{name: "blank future box info", body: map[string]interface{}{"future_box_info": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/predict_box_score", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Missing future box info"}`, w.Body.String())
		})
	}

	assert.Equal(t, 0, upstream.callCount())
}

func TestPredictBoxScore_Success(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{"4.1", "4.2", "4.0", "4.3", "4.4"}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)

	w := postJSON(r, "/predict_box_score", map[string]interface{}{
		"historical_data": "DK-2504-CLA-2L: 4.23",
		"future_box_info": "DK-2505-CLA-2L: 8 products",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"predicted_box_score":"4.20"}`, w.Body.String())
	assert.Equal(t, 5, upstream.callCount())

	for _, req := range upstream.requests {
		assert.Equal(t, "grok-3", req.Model)
		assert.Equal(t, 0.0, req.Temperature)
		assert.Equal(t, 50, req.MaxTokens)
		assert.Equal(t, 42, req.Seed)
		assert.Contains(t, req.Prompt, "DK-2504-CLA-2L: 4.23")
		assert.Contains(t, req.Prompt, "DK-2505-CLA-2L: 8 products")
	}
}

func TestPredictBoxScore_DefaultHistoricalData(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{"4.20"}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)

	w := postJSON(r, "/predict_box_score", map[string]interface{}{
		"future_box_info": "DK-2505-CLA-2L: 8 products",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, upstream.lastPrompt(), "No historical data provided")
}

func TestPredictBoxScore_InvalidSample(t *testing.T) {
	tests := []struct {
		name        string
		responses   []string
		expectedErr string
	}{
		{
			name:        "non-numeric sample",
			responses:   []string{"4.2", "N/A"},
			expectedErr: "Invalid score format: N/A",
		},
		{
			name:        "sample above range",
			responses:   []string{"5.50"},
			expectedErr: "Invalid score format: 5.50",
		},
		{
			name:        "sample below range",
			responses:   []string{"0.90"},
			expectedErr: "Invalid score format: 0.90",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &fakeUpstream{responses: tt.responses}
			srv := httptest.NewServer(upstream)
			defer srv.Close()

			r := newTestRouter(srv.URL)

			w := postJSON(r, "/predict_box_score", map[string]interface{}{
				"future_box_info": "DK-2505-CLA-2L",
			})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.expectedErr+`"}`, w.Body.String())
		})
	}
}

func TestPredictBoxScore_UpstreamFailure(t *testing.T) {
	upstream := &fakeUpstream{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)

	w := postJSON(r, "/predict_box_score", map[string]interface{}{
		"future_box_info": "DK-2505-CLA-2L",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "Error calling Grok 3")
	assert.Contains(t, response["error"], "upstream status 503")
}

func TestAnalyzeBI_MissingQuery(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{"analysis"}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)

	w := postJSON(r, "/analyze_bi", map[string]interface{}{
		"data_context": "intake per market",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing query"}`, w.Body.String())
	assert.Equal(t, 0, upstream.callCount())
}

func TestAnalyzeBI_SuccessWithoutDataContext(t *testing.T) {
	analysis := `{"results": {"intake_delta": 42}} Intake in Denmark rose on stronger ad spend.`
	upstream := &fakeUpstream{responses: []string{analysis}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)

	w := postJSON(r, "/analyze_bi", map[string]interface{}{
		"query": "What drove Q2 intake in Denmark?",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, analysis, response["analysis"])

	require.Equal(t, 1, upstream.callCount())
	prompt := upstream.lastPrompt()
	assert.Contains(t, prompt, "No data context provided")
	assert.Contains(t, prompt, "What drove Q2 intake in Denmark?")

	req := upstream.requests[0]
	assert.Equal(t, 0.7, req.Temperature)
	assert.Equal(t, 1000, req.MaxTokens)
	assert.Equal(t, 42, req.Seed)
}

func TestAnalyzeBI_EmptyUpstreamResponse(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{""}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)

	w := postJSON(r, "/analyze_bi", map[string]interface{}{
		"query": "What drove Q2 intake in Denmark?",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Grok 3 returned an empty response"}`, w.Body.String())
}

func TestAnalyzeBI_SecondIdenticalRequestServedFromCache(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{"stable analysis"}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)
	body := map[string]interface{}{"query": "Average CAC in Sweden?"}

	first := postJSON(r, "/analyze_bi", body)
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(r, "/analyze_bi", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// Cached response, upstream only hit once
	assert.Equal(t, 1, upstream.callCount())
}

func TestMetricsEndpoint(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{"4.20"}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)

	postJSON(r, "/predict_box_score", map[string]interface{}{"future_box_info": "DK-2505"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, float64(5), stats["completion_calls"])
}

func TestUpstreamHealthEndpoint(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{"4.20"}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	r := newTestRouter(srv.URL)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health/upstream", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Services map[string]struct {
			Healthy bool `json:"healthy"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Services, "xai-api")
}
