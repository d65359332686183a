package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annel0/worldstream/internal/app"
	"github.com/annel0/worldstream/internal/config"
	"github.com/annel0/worldstream/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController запоминает команды и отдаёт фиксированный срез
type fakeController struct {
	mu       sync.Mutex
	snapshot *app.Snapshot
	palette  world.Palette
	moves    [][2]float64
	resets   int
	err      error
}

func (f *fakeController) Snapshot() *app.Snapshot { return f.snapshot }

func (f *fakeController) Reset(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.resets++
	return len(f.snapshot.Chunks), nil
}

func (f *fakeController) SetPalette(ctx context.Context, p world.Palette) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.palette = p
	return f.err
}

func (f *fakeController) MoveTo(ctx context.Context, x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.moves = append(f.moves, [2]float64{x, y})
	return nil
}

func testSnapshot() *app.Snapshot {
	return &app.Snapshot{
		SessionID: "session",
		Tick:      12,
		Center:    app.ChunkRef{X: 1, Y: 0},
		Chunks: []app.ChunkInfo{
			{ChunkRef: app.ChunkRef{X: 0, Y: 0}, State: "loaded", Obstacles: 1},
			{ChunkRef: app.ChunkRef{X: 1, Y: 0}, State: "loaded", Obstacles: 1},
		},
		Obstacles: []app.ObstacleInfo{
			{ID: 1, Chunk: app.ChunkRef{X: 0, Y: 0}, Kind: "tree", MinX: 10, MinY: 10, MaxX: 20, MaxY: 20},
			{ID: 2, Chunk: app.ChunkRef{X: 1, Y: 0}, Kind: "rock", MinX: 300, MinY: 40, MaxX: 310, MaxY: 50},
		},
	}
}

func newTestServer(t *testing.T, ctrl WorldController) *InspectServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewInspectServer(Config{Controller: ctrl, Registry: prometheus.NewRegistry()})
}

func doRequest(t *testing.T, s *InspectServer, method, path, body string) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp GenericResponse
	if strings.HasPrefix(path, "/api") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, &fakeController{snapshot: testSnapshot()})

	w, _ := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tick":12`)

	w, _ = doRequest(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "worldstream_http_request_duration_seconds")
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, &fakeController{snapshot: testSnapshot()})

	w, resp := doRequest(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "session", data["session_id"])
	assert.Equal(t, float64(2), data["active_chunks"])
	assert.Contains(t, data, "server")
}

func TestChunksAndObstacles(t *testing.T) {
	s := newTestServer(t, &fakeController{snapshot: testSnapshot()})

	w, resp := doRequest(t, s, http.MethodGet, "/api/world/chunks", "")
	require.Equal(t, http.StatusOK, w.Code)
	chunks := resp.Data.(map[string]interface{})["chunks"].([]interface{})
	assert.Len(t, chunks, 2)

	_, resp = doRequest(t, s, http.MethodGet, "/api/world/obstacles", "")
	assert.Equal(t, float64(2), resp.Data.(map[string]interface{})["count"])

	_, resp = doRequest(t, s, http.MethodGet, "/api/world/obstacles?min_x=0&min_y=0&max_x=100&max_y=100", "")
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"], "в прямоугольник попадает только дерево")
	first := data["obstacles"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "tree", first["kind"])

	w, _ = doRequest(t, s, http.MethodGet, "/api/world/obstacles?min_x=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = doRequest(t, s, http.MethodGet, "/api/world/obstacles?min_x=a&min_y=0&max_x=1&max_y=1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = doRequest(t, s, http.MethodGet, "/api/world/obstacles?min_x=5&min_y=0&max_x=1&max_y=1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommands(t *testing.T) {
	ctrl := &fakeController{snapshot: testSnapshot()}
	s := newTestServer(t, ctrl)

	w, resp := doRequest(t, s, http.MethodPost, "/api/world/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), resp.Data.(map[string]interface{})["unloaded"])
	assert.Equal(t, 1, ctrl.resets)

	w, _ = doRequest(t, s, http.MethodPost, "/api/world/move", `{"x": 512.5, "y": -3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][2]float64{{512.5, -3}}, ctrl.moves)

	w, _ = doRequest(t, s, http.MethodPost, "/api/world/move", `{"x": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "y обязателен")

	w, _ = doRequest(t, s, http.MethodPost, "/api/world/move", `{"x": 1e300, "y": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "слишком далёкая точка отклоняется")
	w, _ = doRequest(t, s, http.MethodPost, "/api/world/move", `{"x": 0, "y": -1e16}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, ctrl.moves, 1, "отклонённые команды не доходят до тика")

	w, _ = doRequest(t, s, http.MethodPut, "/api/world/palette",
		`[{"type":"cactus","scale":1.5,"solid":true,"weight":2,"spawn_probability":0.5}]`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, world.Palette{{Kind: "cactus", Scale: 1.5, Solid: true, SelectionWeight: 2, SpawnProbability: 0.5}}, ctrl.palette)

	w, _ = doRequest(t, s, http.MethodPut, "/api/world/palette", `[{"type":"cactus","scale":1,"spawn_probability":3}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, s, http.MethodPut, "/api/world/palette", `{"not":"a list"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommandErrorStatus(t *testing.T) {
	ctrl := &fakeController{snapshot: testSnapshot(), err: app.ErrQueueFull}
	s := newTestServer(t, ctrl)

	w, resp := doRequest(t, s, http.MethodPost, "/api/world/reset", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)

	ctrl.err = context.DeadlineExceeded
	w, _ = doRequest(t, s, http.MethodPost, "/api/world/move", `{"x": 0, "y": 0}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestWithRunner(t *testing.T) {
	opts := config.Default().WorldOptions()
	opts.RenderDistance = 1
	m, err := world.NewChunkManager(opts)
	require.NoError(t, err)

	runner := app.NewRunner(m, nil, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	s := newTestServer(t, runner)

	w, _ := doRequest(t, s, http.MethodPost, "/api/world/move", `{"x": 1000, "y": 1000}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Eventually(t, func() bool {
		_, resp := doRequest(t, s, http.MethodGet, "/api/world/chunks", "")
		center := resp.Data.(map[string]interface{})["center"].(map[string]interface{})
		return center["x"] == float64(3) && center["y"] == float64(3)
	}, time.Second, 10*time.Millisecond)

	w, _ = doRequest(t, s, http.MethodPut, "/api/world/palette", `[{"type":"tree","scale":1,"weight":1,"spawn_probability":2}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
