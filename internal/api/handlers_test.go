package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acameron/roomcast/internal/config"
	"github.com/acameron/roomcast/internal/server"
	"github.com/acameron/roomcast/internal/stats"
	"github.com/acameron/roomcast/internal/testutil"
	"github.com/acameron/roomcast/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestApp(t *testing.T) (*App, *http.ServeMux, *server.Hub) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	hub := server.NewHub(testutil.TestLogger(t), su)

	cfg, err := config.NewConfig("localhost:8000", []string{"http://localhost:3000"})
	assert.NoError(t, err, "expected valid test config")

	mux := http.NewServeMux()
	app, err := NewApp(mux, testutil.TestLogger(t), hub, cfg)
	assert.NoError(t, err, "expected app to be created")

	return app, mux, hub
}

func joinTestUser(t *testing.T, hub *server.Hub, connId, username, room string) {
	c := server.NewClient(connId, nil, hub, testutil.TestLogger(t))
	hub.RegisterClient(c)
	assert.NoError(t, hub.Join(c, username, room), "expected test user to join")
}

func TestListRooms(t *testing.T) {
	t.Run("no rooms", func(t *testing.T) {
		_, mux, _ := newTestApp(t)

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "expected 200")
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), "expected JSON content type")
		assert.JSONEq(t, "[]", rec.Body.String(), "expected empty array, not null")
	})

	t.Run("rooms sorted by name", func(t *testing.T) {
		_, mux, hub := newTestApp(t)
		joinTestUser(t, hub, "conn1", "alice", "general")
		joinTestUser(t, hub, "conn2", "bob", "general")
		joinTestUser(t, hub, "conn3", "carol", "random")

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "expected 200")

		var rooms []types.RoomInfo
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms), "expected valid JSON body")
		assert.Equal(t, []types.RoomInfo{
			{Name: "general", UserCount: 2, Users: []string{"alice", "bob"}},
			{Name: "random", UserCount: 1, Users: []string{"carol"}},
		}, rooms, "expected room snapshots sorted by name")
	})
}

func TestRoomUsers(t *testing.T) {
	t.Run("existing room", func(t *testing.T) {
		_, mux, hub := newTestApp(t)
		joinTestUser(t, hub, "conn1", "alice", "general")
		joinTestUser(t, hub, "conn2", "bob", "general")

		req := httptest.NewRequest(http.MethodGet, "/api/users/general", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "expected 200")

		var resp RoomUsersResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected valid JSON body")
		assert.Equal(t, RoomUsersResponse{
			Room:      "general",
			UserCount: 2,
			Users:     []string{"alice", "bob"},
		}, resp, "expected member list in join order")
	})

	t.Run("unknown room", func(t *testing.T) {
		_, mux, _ := newTestApp(t)

		req := httptest.NewRequest(http.MethodGet, "/api/users/missing", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, "expected 404 for unknown room")

		var errResp ApiError
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp), "expected valid JSON body")
		assert.Equal(t, http.StatusNotFound, errResp.StatusCode, "expected status in body")
		assert.Equal(t, "not found", errResp.Message, "expected lowercase status text")
	})
}
