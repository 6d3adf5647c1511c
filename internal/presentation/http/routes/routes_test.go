package routes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/application/container"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/presentation/http/middleware"
	"github.com/bernice-stories/bernice/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *container.Container) {
	t.Helper()
	settings := &config.Settings{
		Port:           "0",
		DatabaseDriver: config.DriverMemory,
		JWTSecret:      "routes-test",
		DemoAddress:    "user123",
	}
	c, err := container.NewContainer(context.Background(), settings, logging.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return SetupRoutes(c), c
}

type request struct {
	method  string
	path    string
	body    any
	address string
	token   string
}

func do(t *testing.T, r http.Handler, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	httpReq := httptest.NewRequest(req.method, req.path, body)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.address != "" {
		httpReq.Header.Set(middleware.AddressHeader, req.address)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httpReq)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, request{method: http.MethodGet, path: "/api/v1/health"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["database"])
}

func TestDemoStoryLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/stories", address: "alice",
		body: map[string]any{"title": "The Lighthouse", "maxChapters": 5, "tags": []string{"mystery"}}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	storyID := created["id"].(string)
	assert.Equal(t, "alice", created["creator"].(map[string]any)["address"])

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/stories/" + storyID + "/chapters", address: "alice",
		body: map[string]any{"content": "A"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w)
	assert.Equal(t, float64(1), first["chapterNumber"])
	assert.Equal(t, true, first["isWinner"])

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/stories/" + storyID + "/chapters", address: "bob",
		body: map[string]any{"content": "B1"}})
	require.Equal(t, http.StatusCreated, w.Code)
	b1 := decode(t, w)
	assert.Equal(t, float64(2), b1["chapterNumber"])

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/stories/" + storyID + "/chapters", address: "carol",
		body: map[string]any{"content": "B2"}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/stories/" + storyID + "/chapters/2/submissions"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/voting"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/submissions/" + b1["id"].(string) + "/votes", address: "alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	vote := decode(t, w)
	assert.NotEmpty(t, vote["transactionHash"])

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/submissions/" + b1["id"].(string) + "/votes", address: "alice"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w)["code"])

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/stories/" + storyID + "/chapters/2/finalize"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	winner := decode(t, w)["winner"].(map[string]any)
	assert.Equal(t, "B1", winner["content"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/stories/" + storyID})
	require.Equal(t, http.StatusOK, w.Code)
	st := decode(t, w)["story"].(map[string]any)
	assert.Equal(t, float64(2), st["currentChapter"])
	assert.Equal(t, false, st["isComplete"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/stories/" + storyID + "/progress"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), decode(t, w)["totalChapters"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/users/alice/votes"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/users/bob/submissions"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/users/alice/submissions"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/stories?status=active&sortBy=popular"})
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.Equal(t, float64(1), list["count"])
	assert.Equal(t, "A", list["stories"].([]any)[0].(map[string]any)["excerpt"])
}

func TestDemoErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/stories/missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/stories", body: map[string]any{"title": "  "}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/stories?sortBy=sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/demo/stories/x/chapters/zero/submissions"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/submissions/missing/votes"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIdentityResolution(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, request{method: http.MethodGet, path: "/api/v1/auth/me"})
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "default", me["source"])
	assert.Equal(t, "user123", me["user"].(map[string]any)["address"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/auth/me", address: "0xabc"})
	assert.Equal(t, "header", decode(t, w)["source"])

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/auth/session",
		body: map[string]any{"address": "0xdef", "username": "dee"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode(t, w)["token"].(string)

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/auth/me", token: token, address: "0xabc"})
	require.Equal(t, http.StatusOK, w.Code)
	me = decode(t, w)
	assert.Equal(t, "token", me["source"])
	assert.Equal(t, "0xdef", me["user"].(map[string]any)["address"])
	assert.Equal(t, "dee", me["user"].(map[string]any)["username"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/auth/me", token: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/auth/session", body: map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChainUnavailable(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, request{method: http.MethodGet, path: "/api/v1/chain/status"})
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Equal(t, false, status["enabled"])
	assert.NotEmpty(t, status["error"])

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/chain/stories/count"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "UNAVAILABLE", decode(t, w)["code"])

	// Malformed input is rejected before availability is considered.
	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/chain/stories/abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, request{method: http.MethodPost, path: "/api/v1/chain/stories/1/finalize"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/chain/tx/unknown"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/chain/networks"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["networks"])
}

func TestDrafts(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, request{method: http.MethodGet, path: "/api/v1/drafts/bernice_title", address: "alice"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, request{method: http.MethodPut, path: "/api/v1/drafts/bernice_title", address: "alice",
		body: map[string]any{"content": "Half a title"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/drafts/bernice_title", address: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Half a title", decode(t, w)["content"])

	// Drafts are scoped to their owner.
	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/drafts/bernice_title", address: "bob"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/drafts", address: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = do(t, r, request{method: http.MethodDelete, path: "/api/v1/drafts/bernice_title", address: "alice"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, request{method: http.MethodPut, path: "/api/v1/drafts/other_key", address: "alice",
		body: map[string]any{"content": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogLevels(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, request{method: http.MethodGet, path: "/api/v1/system/log-levels"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "story")

	w = do(t, r, request{method: http.MethodPut, path: "/api/v1/system/log-levels",
		body: map[string]any{"channel": "story", "level": "debug"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/system/log-levels"})
	assert.Equal(t, "DEBUG", decode(t, w)["story"])

	w = do(t, r, request{method: http.MethodPut, path: "/api/v1/system/log-levels",
		body: map[string]any{"channel": "story", "level": "loud"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, request{method: http.MethodGet, path: "/api/v1/system/stats"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "connections")
}

func readUntil(t *testing.T, reader *bufio.Reader, want string) {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) == want {
			return
		}
	}
}

func TestSSEStreamsStoryEvents(t *testing.T) {
	r, c := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readUntil(t, reader, "event: connected")
	require.Eventually(t, func() bool { return c.Broadcaster.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	w := do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/stories", body: map[string]any{"title": "Streamed"}})
	require.Equal(t, http.StatusCreated, w.Code)

	readUntil(t, reader, "event: story_created")
}

func TestWebSocketStreamsStoryEvents(t *testing.T) {
	r, c := newTestRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Hub.Run(ctx)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return c.Hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	w := do(t, r, request{method: http.MethodPost, path: "/api/v1/demo/stories", body: map[string]any{"title": "Socketed"}})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	var event map[string]any
	require.NoError(t, json.Unmarshal(message, &event))
	assert.Equal(t, "story_created", event["type"])
	assert.Equal(t, "demo", event["source"])
}
