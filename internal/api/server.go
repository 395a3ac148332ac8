package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/acameron/roomcast/internal/config"
	"github.com/acameron/roomcast/internal/server"
	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
)

// App is the HTTP surface: the websocket upgrade endpoint and the
// read-only room snapshot queries.
type App struct {
	log            *log.Logger
	hub            *server.Hub
	sid            *shortid.Shortid
	allowedOrigins []string
	srv            *http.Server
}

func NewApp(mux *http.ServeMux, logger *log.Logger, hub *server.Hub, cfg *config.Config) (*App, error) {
	sid, err := shortid.New(1, shortid.DefaultABC, uint64(time.Now().UnixNano()))
	if err != nil {
		return nil, fmt.Errorf("shortid: %w", err)
	}

	a := &App{
		log:            logger,
		hub:            hub,
		sid:            sid,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /api/rooms", a.listRooms)
	mux.HandleFunc("GET /api/users/{room}", a.roomUsers)
	mux.HandleFunc("GET /ws", a.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
	)(mux)

	a.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return a, nil
}

func (a *App) Start() error {
	a.log.Printf("starting server on %s\n", a.srv.Addr)
	return a.srv.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.log.Println("shutting down HTTP server...")
	if err := a.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
