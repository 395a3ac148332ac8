package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/acameron/roomcast/internal/server"
	"github.com/gorilla/websocket"
)

// RoomUsersResponse is the member list for one named room.
type RoomUsersResponse struct {
	Room      string   `json:"room"`
	UserCount int      `json:"userCount"`
	Users     []string `json:"users"`
}

func (a *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Printf("json encode: %v", err)
	}
}

func (a *App) listRooms(w http.ResponseWriter, r *http.Request) {
	a.writeJson(w, http.StatusOK, a.hub.Rooms())
}

func (a *App) roomUsers(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("room")

	info, ok := a.hub.RoomInfo(name)
	if !ok {
		errResp := NewNotFoundError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	a.writeJson(w, http.StatusOK, RoomUsersResponse{
		Room:      info.Name,
		UserCount: info.UserCount,
		Users:     info.Users,
	})
}

func (a *App) serveWs(w http.ResponseWriter, r *http.Request) {
	connId, err := a.sid.Generate()
	if err != nil {
		a.log.Print("generate connection id:", err)
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(a.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(connId, conn, a.hub, a.log)
	a.hub.RegisterClient(client)
	go client.Write()
	go client.Read()
}
