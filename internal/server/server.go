package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/planetevo/apiserver/config"
	"github.com/planetevo/apiserver/internal/db"
	"github.com/planetevo/apiserver/internal/handlers"
	applog "github.com/planetevo/apiserver/internal/middleware"
	"github.com/planetevo/apiserver/internal/mq"
	"github.com/planetevo/apiserver/internal/services"
	"github.com/planetevo/apiserver/internal/store"
)

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
	logger     *slog.Logger
}

// Services groups the use-cases served over HTTP.
type Services struct {
	Users       *services.UserService
	GameRuns    *services.GameRunService
	Leaderboard *services.LeaderboardService
}

// New opens the database pool and the optional event broker and wires the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	events, err := mq.Open(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	gameRunRepo := store.NewGameRunRepository(dbConn)

	runService := services.NewGameRunService(userRepo, gameRunRepo, logger)
	if events != nil {
		runService.WithEvents(events, cfg.Events.Channel)
		logger.Info("publishing game run events",
			slog.String("backend", events.Name()),
			slog.String("channel", cfg.Events.Channel),
		)
	}

	router := NewRouter(cfg, logger, dbConn, Services{
		Users:       services.NewUserService(userRepo),
		GameRuns:    runService,
		Leaderboard: services.NewLeaderboardService(gameRunRepo),
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.RequestTimeout >= httpServer.WriteTimeout {
		httpServer.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
		logger:     logger,
	}, nil
}

// NewRouter builds the chi router with middleware and all API routes.
func NewRouter(cfg config.Config, logger *slog.Logger, pinger handlers.Pinger, svc Services) *chi.Mux {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		applog.Logger(logger),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(timeout),
	)

	router.Get("/", handlers.Root)
	router.Get("/healthz", handlers.Healthz(pinger))
	router.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, svc.Users, svc.GameRuns, logger)
		})
		r.Route("/game-runs", func(r chi.Router) {
			handlers.GameRunRouter(r, svc.GameRuns, logger)
		})
		r.Route("/leaderboard", func(r chi.Router) {
			handlers.LeaderboardRouter(r, svc.Leaderboard, logger)
		})
	})

	return router
}

// Router exposes the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.events != nil {
		if closeErr := s.events.Close(); closeErr != nil {
			s.logger.Warn("close event broker failed", slog.String("error", closeErr.Error()))
		}
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
