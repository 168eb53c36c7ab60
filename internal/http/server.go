package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/medialog/medialog/internal/auth"
	"github.com/medialog/medialog/internal/config"
	"github.com/medialog/medialog/internal/repository"
	"github.com/medialog/medialog/internal/review"
	"github.com/medialog/medialog/internal/store"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	store    *store.Store
	repo     *repository.Repository
	reviews  *review.Service
	tokens   *auth.Manager
	validate *validator.Validate
	logger   zerolog.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, reviews *review.Service, tokens *auth.Manager, logger zerolog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(cfg.RateLimitRPM, time.Minute))

	s := &Server{
		cfg:      cfg,
		store:    st,
		repo:     repo,
		reviews:  reviews,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	authed := auth.Middleware(s.tokens, s.repo.Users)

	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	s.router.Route("/titles", func(r chi.Router) {
		r.Get("/", s.handleListTitles)
		r.Get("/{id}", s.handleGetTitle)
		r.Get("/{id}/rating", s.handleGetTitleRating)
		r.Get("/{id}/ranking", s.handleGetTitleRanking)
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Post("/", s.handleCreateTitle)
			r.Put("/{id}", s.handleUpdateTitle)
		})
		r.Group(func(r chi.Router) {
			r.Use(authed, auth.RequireAdmin)
			r.Patch("/{id}/status", s.handleUpdateTitleStatus)
			r.Delete("/{id}", s.handleDeleteTitle)
		})
	})

	s.router.Route("/reviews", func(r chi.Router) {
		r.Get("/", s.handleListReviews)
		r.Get("/export", s.handleExportReviews)
		r.Get("/{id}", s.handleGetReview)
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Post("/", s.handleCreateReview)
			r.Put("/{id}", s.handleUpdateReview)
			r.Delete("/{id}", s.handleDeleteReview)
			r.Post("/{id}/like", s.handleLikeReview)
			r.Post("/{id}/dislike", s.handleDislikeReview)
		})
	})

	s.router.Route("/categories", func(r chi.Router) {
		r.Get("/", s.handleListCategories)
		r.Group(func(r chi.Router) {
			r.Use(authed, auth.RequireAdmin)
			r.Post("/", s.handleCreateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})
	})
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
