package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchvision/pov-overlay/server/cache"
	"github.com/matchvision/pov-overlay/server/match"
	"github.com/matchvision/pov-overlay/server/models"
	"github.com/matchvision/pov-overlay/server/povsync"
	"github.com/matchvision/pov-overlay/server/session"
	"github.com/matchvision/pov-overlay/server/tracking"
)

const shootoutDataset = `{
	"videoW": 1000,
	"videoH": 1000,
	"fps": 30,
	"frames": [
		{"frame": 0, "t": 0, "tracks": [{"id": 2, "conf": 0.9, "bbox": [0, 0, 100, 100]}]},
		{"frame": 1, "t": 1.0, "tracks": []}
	]
}`

func testCatalog() *match.Catalog {
	return match.NewCatalog([]match.Game{
		{
			ID:       "test-game",
			HomeTeam: models.Team{Name: "Home", ShortName: "HOM"},
			AwayTeam: models.Team{Name: "Away", ShortName: "AWY"},
			Status:   match.StatusLive,
			Playable: true,

			TrackingSource: "tracks.json",
			Roles:          map[int]models.Role{2: models.RolePenaltyTaker},
			Windows: map[models.Role]povsync.Window{
				models.RolePenaltyTaker: povsync.NewWindow(6.5, 1.0),
			},
			Fallback: map[models.Role]models.ProjectedPosition{
				models.RolePenaltyTaker: {X: 7.8, Y: 41.7},
			},
			Players: []models.Player{
				{Role: models.RolePenaltyTaker, Name: "Taker", Number: 8},
			},
			Events: []match.Event{
				{Time: 8.0, Type: match.EventGoal, Team: "home", Player: "Taker"},
			},
		},
		{
			ID:       "display-only",
			HomeTeam: models.Team{Name: "One", ShortName: "ONE"},
			AwayTeam: models.Team{Name: "Two", ShortName: "TWO"},
			Status:   match.StatusUpcoming,
		},
	})
}

type testServer struct {
	router  *gin.Engine
	manager *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracks.json"), []byte(shootoutDataset), 0o644))

	logger := zap.NewNop()
	store := tracking.NewStore(tracking.StoreOptions{
		DataDir:      dir,
		FetchTimeout: 2 * time.Second,
		Retries:      1,
		RetryDelay:   10 * time.Millisecond,
	}, logger)

	datasets := cache.NewMemoryCache(8, time.Minute, logger)
	t.Cleanup(func() { datasets.Close() })

	catalog := testCatalog()
	manager := session.NewManager(session.ManagerConfig{
		DriftTolerance: 0.1,
		SessionTTL:     time.Minute,
		LoadWorkers:    1,
		LoadQueue:      4,
	}, store, datasets, catalog, logger)
	t.Cleanup(func() { manager.Shutdown(time.Second) })

	games := NewGamesHandler(catalog, logger)
	sessions := NewSessionHandler(manager, logger)
	ws := NewWebSocketHandler(manager, logger)

	router := gin.New()
	router.GET("/ws/sessions/:id", ws.Handle)
	v1 := router.Group("/api/v1")
	{
		v1.GET("/games", games.List)
		v1.GET("/games/:id", games.Get)
		v1.POST("/sessions", sessions.Create)
		v1.GET("/sessions/:id", sessions.Status)
		v1.GET("/sessions/:id/overlay", sessions.Overlay)
		v1.GET("/sessions/:id/stats", sessions.Stats)
	}

	return &testServer{router: router, manager: manager}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) createReadySession(t *testing.T) string {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/v1/sessions", `{"game_id":"test-game"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotEmpty(t, snap.ID)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		w = ts.do(t, http.MethodGet, "/api/v1/sessions/"+snap.ID, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		if snap.Status == session.StatusReady {
			return snap.ID
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never became ready, last: %+v", snap)
	return ""
}

func TestListGames(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/games", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Games []match.Game `json:"games"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Games, 2)
}

func TestGetGame(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/games/test-game", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"players"`)
	assert.Contains(t, w.Body.String(), "Taker")

	w = ts.do(t, http.MethodGet, "/api/v1/games/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSessionValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"missing body", `{}`, http.StatusBadRequest},
		{"unknown game", `{"game_id":"nope"}`, http.StatusNotFound},
		{"display only game", `{"game_id":"display-only"}`, http.StatusUnprocessableEntity},
		{"playable game", `{"game_id":"test-game"}`, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/sessions", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestSessionStatusNotFound(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/sessions/unknown-id", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOverlayEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createReadySession(t)

	w := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/overlay?t=0.5&playing=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	var frame session.OverlayFrame
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &frame))

	assert.True(t, frame.Tracking)
	assert.Equal(t, 0.5, frame.T)
	assert.True(t, frame.Playing)
	assert.Equal(t,
		models.ProjectedPosition{X: 5, Y: 5, Visible: true},
		frame.Positions[models.RolePenaltyTaker])
	assert.Contains(t, frame.Clips, models.RolePenaltyTaker)
}

func TestOverlayInvalidTime(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createReadySession(t)

	w := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/overlay?t=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/overlay?t=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOverlayScoreTransition(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createReadySession(t)

	var frame session.OverlayFrame

	w := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/overlay?t=7.0", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &frame))
	assert.Equal(t, 0, frame.Score.Home.Scored)

	w = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/overlay?t=9.0", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &frame))
	assert.Equal(t, 1, frame.Score.Home.Scored)
	assert.Equal(t, "home", frame.Score.JustScored)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createReadySession(t)

	w := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats session.ManagerStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.ActiveSessions)
}
