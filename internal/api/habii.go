package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"

	"github.com/habii/habii-server/internal/config"
	"github.com/habii/habii-server/internal/database"
	"github.com/habii/habii-server/internal/relay"
	"github.com/habii/habii-server/internal/stats"
)

type HabiiApp struct {
	log             *log.Logger
	db              database.HabiiRepository
	mux             *http.Server
	rs              *relay.RelayServer
	stats           stats.StatsProvider
	signingKey      []byte
	allowedOrigins  []string
	generateShortId func() (string, error)
}

func NewHabiiApp(mux *http.ServeMux, logger *log.Logger, rs *relay.RelayServer, db database.HabiiRepository, su stats.StatsProvider, cfg *config.Config) *HabiiApp {
	s := &HabiiApp{
		log:             logger,
		db:              db,
		rs:              rs,
		stats:           su,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	su.RegisterMetric("NumAuthFailures")

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/creatures", s.authMiddleware(s.createCreature))
	mux.Handle("DELETE /api/creatures", s.authMiddleware(s.deleteCreature))
	mux.Handle("GET /api/creatures", s.authMiddleware(s.getCreature))
	mux.Handle("GET /api/creatures/list", s.authMiddleware(s.listCreatures))
	mux.Handle("POST /api/creatures/actions", s.authMiddleware(s.creatureAction))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *HabiiApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *HabiiApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
