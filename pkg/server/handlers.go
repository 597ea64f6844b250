package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dylanmazurek/debridify/internal/request"
	"github.com/dylanmazurek/debridify/pkg/credentials"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/store"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: message, Kind: models.KindValidation.String()})
}

type providerView struct {
	models.ProviderInfo
	Active    bool `json:"active"`
	LoggedIn  bool `json:"logged_in"`
	AuthQuery bool `json:"auth_query"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	active, _ := s.resolveProvider(r)

	out := make([]providerView, 0, 3)
	for _, info := range s.repo.Providers() {
		out = append(out, providerView{
			ProviderInfo: info,
			Active:       info.ID == active,
			LoggedIn:     s.hasCredential(r.Context(), info.ID),
			AuthQuery:    info.AuthMode == request.AuthQueryParam,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

type loginRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// handleLogin stores the key in the session and makes its provider active.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	p, err := models.ParseProvider(req.Provider)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		badRequest(w, "api_key is required")
		return
	}

	sess, _ := s.sessions.Get(r, sessionName)
	sess.Values["provider"] = string(p)
	sess.Values[keyField(p)] = key
	if err := sess.Save(r, w); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to save session"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"provider": p, "state": "logged_in"})
}

func (s *Server) handleSelectProvider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	p, err := models.ParseProvider(req.Provider)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	sess, _ := s.sessions.Get(r, sessionName)
	sess.Values["provider"] = string(p)
	if err := sess.Save(r, w); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to save session"})
		return
	}

	state := "ready"
	if !s.hasCredential(credentials.WithCredential(r.Context(), p, sessionKey(sess.Values, p)), p) {
		state = "needs_login"
	}

	writeJSON(w, http.StatusOK, map[string]any{"provider": p, "state": state})
}

func sessionKey(values map[any]any, p models.Provider) string {
	key, _ := values[keyField(p)].(string)
	return key
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.sessions.Get(r, sessionName)
	sess.Values = make(map[any]any)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to clear session"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.repo.GetUser(r.Context(), providerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func parseFilter(r *http.Request) (models.TorrentFilter, bool) {
	q := r.URL.Query()
	var f models.TorrentFilter

	for name, dst := range map[string]*int{"offset": &f.Offset, "limit": &f.Limit} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, false
			}
			*dst = n
		}
	}

	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, false
		}
		f.ActiveOnly = b
	}

	return f, true
}

func (s *Server) handleTorrents(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(r)
	if !ok {
		badRequest(w, "invalid offset, limit or active")
		return
	}

	torrents, err := s.repo.GetTorrents(r.Context(), providerFrom(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, torrents)
}

type dashboard struct {
	Provider models.Provider         `json:"provider"`
	User     *models.UnifiedUser     `json:"user"`
	Torrents []models.UnifiedTorrent `json:"torrents"`
}

// handleDashboard fetches the account and the latest torrents concurrently.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p := providerFrom(r.Context())
	out := dashboard{Provider: p}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		user, err := s.repo.GetUser(ctx, p)
		out.User = user
		return err
	})
	g.Go(func() error {
		torrents, err := s.repo.GetTorrents(ctx, p, models.TorrentFilter{Limit: 50})
		out.Torrents = torrents
		return err
	})

	if err := g.Wait(); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTorrent(w http.ResponseWriter, r *http.Request) {
	details, err := s.repo.GetTorrentDetails(r.Context(), providerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

type addTorrentRequest struct {
	Magnet      string `json:"magnet"`
	Action      string `json:"action,omitempty"`
	DeleteAfter bool   `json:"delete_after,omitempty"`
	Track       bool   `json:"track,omitempty"`
}

// handleAddTorrent submits a magnet. With an action or track set and a store
// available, the import is tracked and its record is returned instead.
func (s *Server) handleAddTorrent(w http.ResponseWriter, r *http.Request) {
	var req addTorrentRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	ctx := r.Context()
	p := providerFrom(ctx)

	if s.store != nil && (req.Track || req.Action != "" || req.DeleteAfter) {
		sessionCred, _ := credentials.ContextStore{}.Get(ctx, p)

		imp, err := s.store.AddTorrent(ctx, store.ImportRequest{
			Provider:    p,
			Magnet:      req.Magnet,
			Action:      req.Action,
			DeleteAfter: req.DeleteAfter,
			Credential:  sessionCred,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, imp)
		return
	}

	added, err := s.repo.AddMagnet(ctx, p, req.Magnet)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleDeleteTorrent(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteTorrent(r.Context(), providerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files []string `json:"files"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := s.repo.SelectFiles(r.Context(), providerFrom(r.Context()), chi.URLParam(r, "id"), req.Files); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestartTorrent(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.RestartTorrent(r.Context(), providerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCheckCached takes magnet links or info hashes.
func (s *Server) handleCheckCached(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hashes []string `json:"hashes"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	cached, err := s.repo.CheckCached(r.Context(), providerFrom(r.Context()), req.Hashes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cached)
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(r)
	if !ok {
		badRequest(w, "invalid offset or limit")
		return
	}

	links, err := s.repo.GetDownloads(r.Context(), providerFrom(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, links)
}

// handleDeleteLink takes the id as a query parameter; AllDebrid ids are URLs.
func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteDownload(r.Context(), providerFrom(r.Context()), r.URL.Query().Get("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.repo.GetHosts(r.Context(), providerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, hosts)
}

type linkRequest struct {
	Link string `json:"link"`
}

func (s *Server) handleUnrestrict(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	link, err := s.repo.UnrestrictLink(r.Context(), providerFrom(r.Context()), req.Link)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "downloads are not enabled"})
		return
	}

	var req linkRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	path, err := s.store.DownloadLink(r.Context(), providerFrom(r.Context()), req.Link, "", "", "")
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.Import{})
		return
	}

	writeJSON(w, http.StatusOK, s.store.Imports())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil || s.store.History() == nil {
		writeJSON(w, http.StatusOK, []store.HistoryEntry{})
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.store.History().List(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
