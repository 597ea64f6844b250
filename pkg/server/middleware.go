package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/dylanmazurek/debridify/pkg/credentials"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey int

const (
	providerKey ctxKey = iota
	sessionProviderKey
)

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		_log := s.logger.With().Str("request_id", id).Logger()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(_log.WithContext(r.Context())))

		_log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zerolog.Ctx(r.Context()).Error().Interface("panic", rec).Msg("handler panicked")
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// basicAuth guards everything when auth is configured. Passwords are bcrypt hashes.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.NeedsAuth() {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.Auth.Username)) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(s.cfg.Auth.PasswordHash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="debridify"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// session places the session's provider and that provider's key in the request context.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(r, sessionName)
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("discarding unreadable session")
		}

		ctx := r.Context()
		if p, ok := sess.Values["provider"].(string); ok && p != "" {
			provider := models.Provider(p)
			ctx = context.WithValue(ctx, sessionProviderKey, provider)

			if key, ok := sess.Values[keyField(provider)].(string); ok && key != "" {
				ctx = credentials.WithCredential(ctx, provider, key)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func keyField(p models.Provider) string {
	return "key:" + string(p)
}

// requireProvider resolves the provider for the request and checks a key exists
// for it. Order: ?provider=, session, stored selection, config default.
func (s *Server) requireProvider(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, err := s.resolveProvider(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: models.KindValidation.String()})
			return
		}
		if p == "" {
			writeState(w, http.StatusConflict, "needs_provider_selection", "select a provider first")
			return
		}

		if !s.hasCredential(ctx, p) {
			writeState(w, http.StatusUnauthorized, "needs_login", "no API key stored for "+p.DisplayName())
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, providerKey, p)))
	})
}

func (s *Server) resolveProvider(r *http.Request) (models.Provider, error) {
	if q := r.URL.Query().Get("provider"); q != "" {
		return models.ParseProvider(q)
	}

	if p, ok := r.Context().Value(sessionProviderKey).(models.Provider); ok && p.Valid() {
		return p, nil
	}

	if s.selector != nil {
		p, err := s.selector.Active(r.Context())
		if err == nil && p.Valid() {
			return p, nil
		}
		if err != nil && !errors.Is(err, credentials.ErrNoProvider) {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("reading active provider")
		}
	}

	if s.cfg.DefaultProvider != "" {
		return models.ParseProvider(s.cfg.DefaultProvider)
	}

	return "", nil
}

func (s *Server) hasCredential(ctx context.Context, p models.Provider) bool {
	if dc, ok := s.cfg.Debrid(string(p)); ok && dc.APIKey != "" {
		return true
	}

	if s.creds == nil {
		return false
	}

	key, err := s.creds.Get(ctx, p)
	return err == nil && key != ""
}

func providerFrom(ctx context.Context) models.Provider {
	p, _ := ctx.Value(providerKey).(models.Provider)
	return p
}
