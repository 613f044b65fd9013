package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/johnrmarty/chat-prd/internal/completion"
	"github.com/johnrmarty/chat-prd/internal/config"
	"github.com/johnrmarty/chat-prd/internal/database"
	"github.com/johnrmarty/chat-prd/internal/hub"
	"github.com/johnrmarty/chat-prd/internal/stats"
	"github.com/teris-io/shortid"
)

type ChatPrdApp struct {
	log             *log.Logger
	db              database.ProjectRepository
	mux             *http.Server
	hub             *hub.Hub
	completions     completion.Service
	stats           stats.StatsProvider
	signingKey      []byte
	allowedOrigins  []string
	generateShortId func() (string, error)
}

func NewChatPrdApp(mux *http.ServeMux, logger *log.Logger, h *hub.Hub, db database.ProjectRepository, cmpl completion.Service, sp stats.StatsProvider, cfg *config.Config) *ChatPrdApp {
	s := &ChatPrdApp{
		log:             logger,
		db:              db,
		hub:             h,
		completions:     cmpl,
		stats:           sp,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/projects", s.authMiddleware(s.createProject))
	mux.Handle("GET /api/projects", s.authMiddleware(s.getProject))
	mux.Handle("DELETE /api/projects", s.authMiddleware(s.deleteProject))
	mux.Handle("POST /api/projects/members", s.authMiddleware(s.addMember))
	mux.Handle("DELETE /api/projects/members", s.authMiddleware(s.removeMember))
	mux.Handle("POST /api/completions", s.authMiddleware(s.generateContent))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	ch := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	ch = s.errorHandler(ch)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: ch,
	}

	s.mux = srv
	return s
}

func (s *ChatPrdApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatPrdApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
