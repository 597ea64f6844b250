package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dylanmazurek/debridify/internal/config"
	"github.com/dylanmazurek/debridify/internal/logger"
	"github.com/dylanmazurek/debridify/pkg/credentials"
	"github.com/dylanmazurek/debridify/pkg/debrid"
	"github.com/dylanmazurek/debridify/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const sessionName = "debridify"

type Server struct {
	cfg      *config.Config
	repo     *debrid.Repository
	store    *store.Store
	creds    credentials.Store
	selector credentials.Selector
	sessions sessions.Store
	router   chi.Router
	logger   zerolog.Logger
}

// New wires the HTTP API. creds must be the store the repository resolves keys
// from; session keys reach it through credentials.ContextStore. selector and st
// may be nil.
func New(cfg *config.Config, repo *debrid.Repository, st *store.Store, creds credentials.Store, selector credentials.Selector) *Server {
	s := &Server{
		cfg:      cfg,
		repo:     repo,
		store:    st,
		creds:    creds,
		selector: selector,
		sessions: newCookieStore(cfg.SessionSecret),
		logger:   logger.New("server"),
	}

	s.router = s.routes()
	return s
}

// newCookieStore signs and encrypts session cookies. Without a configured
// secret a random one is used and sessions do not survive a restart.
func newCookieStore(secret string) *sessions.CookieStore {
	var seed []byte
	if secret != "" {
		seed = []byte(secret)
	} else {
		seed = make([]byte, 32)
		_, _ = rand.Read(seed)
	}

	hashKey := sha256.Sum256(append([]byte("hash:"), seed...))
	blockKey := sha256.Sum256(append([]byte("block:"), seed...))

	cs := sessions.NewCookieStore(hashKey[:], blockKey[:])
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return cs
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	r.Use(s.recoverer)
	r.Use(s.basicAuth)

	base := "/" + strings.Trim(s.cfg.URLBase, "/")

	api := chi.NewRouter()
	api.Use(s.session)

	api.Get("/providers", s.handleProviders)
	api.Post("/session", s.handleLogin)
	api.Put("/session/provider", s.handleSelectProvider)
	api.Delete("/session", s.handleLogout)

	api.Group(func(r chi.Router) {
		r.Use(s.requireProvider)

		r.Get("/user", s.handleUser)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/torrents", s.handleTorrents)
		r.Post("/torrents", s.handleAddTorrent)
		r.Get("/torrents/{id}", s.handleTorrent)
		r.Delete("/torrents/{id}", s.handleDeleteTorrent)
		r.Post("/torrents/{id}/files", s.handleSelectFiles)
		r.Post("/torrents/{id}/restart", s.handleRestartTorrent)
		r.Post("/cached", s.handleCheckCached)
		r.Post("/unrestrict", s.handleUnrestrict)
		r.Post("/downloads", s.handleDownload)
		r.Get("/links", s.handleLinks)
		r.Delete("/links", s.handleDeleteLink)
		r.Get("/hosts", s.handleHosts)
	})

	api.Get("/imports", s.handleImports)
	api.Get("/history", s.handleHistory)

	if base == "/" {
		r.Mount("/api", api)
	} else {
		r.Route(base, func(r chi.Router) {
			r.Mount("/api", api)
		})
	}

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.BindAddress, s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Msgf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.logger.Info().Msg("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
