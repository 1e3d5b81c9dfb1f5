// internal/handlers/api_server.go
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jason-s-yu/gridclash/internal/auth"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/game"
	"github.com/jason-s-yu/gridclash/internal/lobby"
	"github.com/jason-s-yu/gridclash/internal/middleware"
	"github.com/jason-s-yu/gridclash/internal/minigame"
	"github.com/jason-s-yu/gridclash/internal/store"
	"github.com/sirupsen/logrus"
)

// Server binds the HTTP and websocket surface to the session services. It keeps no game
// state: every request reads and writes through the store.
type Server struct {
	store    store.Store
	players  *auth.Resolver
	lobby    *lobby.Registry
	engine   *game.Engine
	arbiter  *minigame.Arbiter
	hub      *feed.Hub
	log      logrus.FieldLogger
	now      func() time.Time

	// AllowClientResolve enables POST /matches/{id}/resolve for trusted clients.
	AllowClientResolve bool
}

func NewServer(st store.Store, reg *lobby.Registry, engine *game.Engine, arbiter *minigame.Arbiter, hub *feed.Hub, logger logrus.FieldLogger) *Server {
	return &Server{
		store:    st,
		players:  auth.NewResolver(st, logger),
		lobby:    reg,
		engine:   engine,
		arbiter:  arbiter,
		hub:      hub,
		log:      logger,
		now:      time.Now,
	}
}

// RouterOptions tunes the outer middleware.
type RouterOptions struct {
	CORSOrigins        []string
	RateLimitPerMinute int
}

// Router builds the chi router with every route mounted.
func (s *Server) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LogMiddleware(s.log))
	r.Use(chimw.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, 1*time.Minute))
	}

	r.Get("/healthz", s.healthz)
	r.Post("/session", s.createSession)
	r.Get("/ws", s.serveWS)

	r.Group(func(r chi.Router) {
		r.Use(s.requirePlayer)

		r.Get("/me", s.me)

		r.Post("/rooms", s.createRoom)
		r.Post("/rooms/join", s.joinRoom)
		r.Get("/rooms/{roomID}", s.getRoom)
		r.Post("/rooms/{roomID}/leave", s.leaveRoom)
		r.Post("/rooms/{roomID}/start", s.startGame)

		r.Post("/team", s.joinTeam)
		r.Post("/ready", s.toggleReady)

		r.Get("/games/{gameID}", s.getGame)
		r.Post("/games/{gameID}/challenge", s.challengeSquare)

		r.Get("/matches/{matchID}", s.getMatch)
		r.Post("/matches/{matchID}/move", s.submitMove)
		r.Post("/matches/{matchID}/expire", s.expireMatch)
		r.Post("/matches/{matchID}/resolve", s.resolveMatch)
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
