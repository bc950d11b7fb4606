package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/lobbyhub/internal/api/apierr"
	"github.com/mcoot/lobbyhub/internal/api/response"
	"github.com/mcoot/lobbyhub/internal/factory"
	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/storage/memory"
)

// testServer wraps a started test app and its handler
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithApp(t, factory.NewTestApp())
}

func newTestServerWithApp(t *testing.T, app *factory.TestApp) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	app.Start(ctx)
	t.Cleanup(func() {
		cancel()
		app.Wait()
		_ = app.Close()
	})

	return &testServer{
		handler: app.Handler(),
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// join adds a player through the registry, as a websocket join would
func (ts *testServer) join(t *testing.T, username string, cid model.ConnectionID) model.Player {
	t.Helper()
	p, err := ts.app.Registry.Join(username, cid)
	require.NoError(t, err)
	return p
}

func (ts *testServer) waitForPlayers(t *testing.T, n int) response.PlayersResponse {
	t.Helper()
	var resp response.PlayersResponse
	require.Eventually(t, func() bool {
		rr := ts.request(http.MethodGet, "/api/v1/players", nil)
		if rr.Code != http.StatusOK {
			return false
		}
		resp = response.PlayersResponse{}
		_ = json.Unmarshal(rr.Body.Bytes(), &resp)
		return resp.Count == n
	}, time.Second, 5*time.Millisecond)
	return resp
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	ts.join(t, "alice", "conn-1")

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp response.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Players)
	assert.Equal(t, 0, resp.Connections)
}

// downStorage is a memory backend whose Ping always fails
type downStorage struct {
	*memory.Storage
}

func (downStorage) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHealthCheckDegraded(t *testing.T) {
	ts := newTestServerWithApp(t, factory.NewTestAppWithStorage(downStorage{memory.New()}))

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp response.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unreachable", resp.Storage)
}

func TestListPlayers(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.waitForPlayers(t, 0)
	assert.NotNil(t, resp.Players)

	ts.join(t, "alice", "conn-1")
	ts.join(t, "bob", "conn-2")
	ts.app.Registry.Unlink("conn-2")

	// The mirror is asynchronous
	require.Eventually(t, func() bool {
		rr := ts.request(http.MethodGet, "/api/v1/players", nil)
		var r response.PlayersResponse
		_ = json.Unmarshal(rr.Body.Bytes(), &r)
		return r.Count == 2 && !r.Players[1].Connected
	}, time.Second, 5*time.Millisecond)

	resp = ts.waitForPlayers(t, 2)
	require.Len(t, resp.Players, 2)
	assert.Equal(t, "alice", resp.Players[0].Username)
	assert.True(t, resp.Players[0].Connected)
	assert.Equal(t, "bob", resp.Players[1].Username)

	rr := ts.request(http.MethodGet, "/api/v1/players/"+resp.Players[1].ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var bob response.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bob))
	assert.False(t, bob.Connected)
}

func TestListPlayersOmitsCredentials(t *testing.T) {
	ts := newTestServer(t)
	p := ts.join(t, "alice", "conn-1")
	ts.waitForPlayers(t, 1)

	rr := ts.request(http.MethodGet, "/api/v1/players", nil)
	assert.NotContains(t, rr.Body.String(), string(p.Credential))
	assert.NotContains(t, rr.Body.String(), "credential")
}

func TestGetPlayer(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueUUID("player-1", "secret-1")
	ts.join(t, "alice", "conn-1")
	ts.waitForPlayers(t, 1)

	rr := ts.request(http.MethodGet, "/api/v1/players/player-1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp response.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "player-1", resp.ID)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, string(model.StatusIdling), resp.Status)
	assert.Equal(t, ts.app.MockClock.Now(), resp.JoinedAt)
}

func TestGetPlayerNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodePlayerNotFound, decodeError(t, rr).Code)
}

func TestGamesLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueUUID("player-1", "secret-1", "player-2", "secret-2", "game-1")
	ready := true
	for _, cid := range []model.ConnectionID{"conn-1", "conn-2"} {
		ts.join(t, "user-"+string(cid), cid)
		_, err := ts.app.Registry.Ready(&ready, cid)
		require.NoError(t, err)
	}

	var games response.GamesResponse
	require.Eventually(t, func() bool {
		rr := ts.request(http.MethodGet, "/api/v1/games", nil)
		games = response.GamesResponse{}
		_ = json.Unmarshal(rr.Body.Bytes(), &games)
		return len(games.Games) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "game-1", games.Games[0].ID)
	assert.Equal(t, []string{"player-1", "player-2"}, games.Games[0].PlayerIDs)
	assert.Equal(t, string(model.GameStatusStarted), games.Games[0].Status)

	rr := ts.request(http.MethodGet, "/api/v1/games/game-1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/games/game-1/end", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var ended response.Game
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ended))
	assert.Equal(t, string(model.GameStatusEnded), ended.Status)
	assert.NotNil(t, ended.EndedAt)

	rr = ts.request(http.MethodPost, "/api/v1/games/game-1/end", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeGameEnded, decodeError(t, rr).Code)
}

func TestGameNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/games/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeGameNotFound, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPost, "/api/v1/games/missing/end", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodDelete, "/api/v1/players", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.join(t, "alice", "conn-1")

	rr := ts.request(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "lobbyhub_players 1")
}

func TestMetricsCountRequestsByRoute(t *testing.T) {
	ts := newTestServer(t)

	ts.request(http.MethodGet, "/api/v1/players/missing-1", nil)
	ts.request(http.MethodGet, "/api/v1/players/missing-2", nil)

	rr := ts.request(http.MethodGet, "/metrics", nil)
	assert.Contains(t, rr.Body.String(),
		`lobbyhub_http_requests_total{method="GET",route="/api/v1/players/{id}",status="404"} 2`)
}
