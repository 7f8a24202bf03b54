package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/agentarena/internal/bedrock"
	"github.com/agentarena/agentarena/internal/compare"
	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/logging"
	"github.com/agentarena/agentarena/internal/metrics"
	"github.com/agentarena/agentarena/internal/store"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Agents = []config.AgentEntry{
		{Name: "A", AgentID: "id-a", AgentAliasID: "alias-a", SessionID: "sess-a"},
		{Name: "B", AgentID: "id-b", AgentAliasID: "alias-b", SessionID: "sess-b"},
	}
	return cfg
}

func newTestServer(t *testing.T, cfg config.Config, invoker bedrock.Invoker, opts ...Option) *Server {
	t.Helper()
	if invoker == nil {
		invoker = &bedrock.MockInvoker{RegionName: cfg.Region}
	}
	return New(cfg, invoker, logging.New(nil, "silent"), opts...)
}

func testHistory(t *testing.T) *store.HistoryStore {
	t.Helper()
	db, err := store.Open(":memory:", logging.New(nil, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewHistoryStore(db)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Auth.Token = "secret"
	s := newTestServer(t, cfg, nil)

	rec := doJSON(t, s.Handler(), "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(2), resp["agents"])
}

func TestAuthRequiredWhenTokenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Auth.Token = "secret"
	s := newTestServer(t, cfg, nil)
	h := s.Handler()

	rec := doJSON(t, h, "GET", "/api/agents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, "GET", "/api/agents", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, "GET", "/api/agents", "secret", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNoTokenLeavesAPIOpen(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := doJSON(t, s.Handler(), "GET", "/api/agents", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompareUsesConfiguredAgents(t *testing.T) {
	invoker := &bedrock.MockInvoker{
		RegionName: "us-west-2",
		InvokeFunc: func(ctx context.Context, req bedrock.InvokeRequest) (<-chan bedrock.StreamEvent, error) {
			return bedrock.ChunkStream("reply from " + req.AgentID), nil
		},
	}
	s := newTestServer(t, testConfig(), invoker)

	rec := doJSON(t, s.Handler(), "POST", "/api/compare", "", compareRequest{Prompt: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var batch compare.Batch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch.Results, 2)
	assert.Equal(t, "reply from id-a", batch.Results["A"].Response)
	assert.Equal(t, "reply from id-b", batch.Results["B"].Response)
	assert.NotEmpty(t, batch.ID)
}

func TestCompareValidationFailure(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := doJSON(t, s.Handler(), "POST", "/api/compare", "", compareRequest{Prompt: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error  string   `json:"error"`
		Issues []string `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	assert.Contains(t, resp.Issues, "prompt must not be empty")
}

func TestCompareInvalidBody(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest("POST", "/api/compare", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := doJSON(t, s.Handler(), "GET", "/api/agents", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Region string                `json:"region"`
		Agents []compare.AgentConfig `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "us-west-2", resp.Region)
	require.Len(t, resp.Agents, 2)
	assert.Equal(t, "id-a", resp.Agents[0].AgentID)
}

func TestHistoryLifecycle(t *testing.T) {
	hs := testHistory(t)
	s := newTestServer(t, testConfig(), nil, WithHistory(hs))
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/api/compare", "", compareRequest{Prompt: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var batch compare.Batch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))

	// list shows the saved batch
	rec = doJSON(t, h, "GET", "/api/history", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Batches []store.BatchSummary `json:"batches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Batches, 1)
	assert.Equal(t, batch.ID, list.Batches[0].ID)
	assert.Equal(t, 2, list.Batches[0].Agents)

	// fetch it back
	rec = doJSON(t, h, "GET", "/api/history/"+batch.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var loaded compare.Batch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loaded))
	assert.Equal(t, batch.Prompt, loaded.Prompt)
	assert.Len(t, loaded.Results, 2)

	// export carries the attachment filename
	rec = doJSON(t, h, "GET", "/api/history/"+batch.ID+"/export", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "agentarena_comparison_")

	var export map[string]struct {
		Success bool   `json:"success"`
		Model   string `json:"model"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &export))
	require.Contains(t, export, "A")
	assert.True(t, export["A"].Success)

	// clear removes everything
	rec = doJSON(t, h, "DELETE", "/api/history", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, "GET", "/api/history", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Batches)
}

func TestHistoryNotFound(t *testing.T) {
	s := newTestServer(t, testConfig(), nil, WithHistory(testHistory(t)))

	rec := doJSON(t, s.Handler(), "GET", "/api/history/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := doJSON(t, s.Handler(), "GET", "/api/history", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s.Handler(), "DELETE", "/api/history", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := metrics.New()
	s := newTestServer(t, testConfig(), nil, WithMetrics(rec))
	h := s.Handler()

	res := doJSON(t, h, "POST", "/api/compare", "", compareRequest{Prompt: "hi"})
	require.Equal(t, http.StatusOK, res.Code)

	res = doJSON(t, h, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "agentarena_comparisons_total 1")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := doJSON(t, s.Handler(), "GET", "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketStreamsCompareEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Auth.Token = "secret"
	s := newTestServer(t, cfg, nil)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=secret"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// wait until the hub sees the client before triggering the run
	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	rec := doJSON(t, s.Handler(), "POST", "/api/compare", "secret", compareRequest{Prompt: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var events []string
	for i := 0; i < 4; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		assert.Equal(t, "event", f.Type)
		assert.Equal(t, uint64(i+1), f.Seq)
		events = append(events, f.Event)
	}

	assert.Equal(t, "compare.started", events[0])
	assert.Equal(t, "compare.completed", events[3])
	assert.Equal(t, []string{"agent.result", "agent.result"}, events[1:3])
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Auth.Token = "secret"
	s := newTestServer(t, cfg, nil)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=wrong"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestResolveAuthEnvFallback(t *testing.T) {
	t.Setenv("AGENTARENA_SERVER_TOKEN", "from-env")

	auth := ResolveAuth(config.ServerAuth{})
	assert.Equal(t, "from-env", auth.Token)

	auth = ResolveAuth(config.ServerAuth{Token: "explicit"})
	assert.Equal(t, "explicit", auth.Token)
}

func TestResolveBindAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:18790", resolveBindAddr(config.ServerConfig{Port: 18790, Bind: "loopback"}))
	assert.Equal(t, "0.0.0.0:18790", resolveBindAddr(config.ServerConfig{Port: 18790, Bind: "lan"}))
}

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("abc", "abc"))
	assert.False(t, safeEqual("abc", "abd"))
	assert.False(t, safeEqual("abc", "abcd"))
	assert.False(t, safeEqual("", "abc"))
}
