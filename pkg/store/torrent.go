package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dylanmazurek/debridify/pkg/credentials"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/google/uuid"
)

type ImportState string

const (
	StateQueued      ImportState = "queued"
	StateDownloading ImportState = "downloading"
	StateProcessing  ImportState = "processing"
	StateCompleted   ImportState = "completed"
	StateError       ImportState = "error"
)

const (
	ActionNone     = "none"
	ActionDownload = "download"
)

type ImportRequest struct {
	Provider    models.Provider `json:"provider"`
	Magnet      string          `json:"magnet"`
	Action      string          `json:"action,omitempty"`       // none or download
	DeleteAfter bool            `json:"delete_after,omitempty"` // remove from the provider once done

	// Credential scopes background polling to this key, for keys that live
	// only in a session.
	Credential string `json:"-"`
}

type Import struct {
	ID          string                 `json:"id"`
	Provider    models.Provider        `json:"provider"`
	TorrentID   string                 `json:"torrent_id"`
	Name        string                 `json:"name,omitempty"`
	Hash        string                 `json:"hash,omitempty"`
	Action      string                 `json:"action"`
	DeleteAfter bool                   `json:"delete_after,omitempty"`
	State       ImportState            `json:"state"`
	Torrent     *models.UnifiedTorrent `json:"torrent,omitempty"`
	Files       []string               `json:"files,omitempty"`
	Error       string                 `json:"error,omitempty"`
	AddedAt     time.Time              `json:"added_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`

	credential string
}

func (i *Import) scope(ctx context.Context) context.Context {
	if i.credential == "" {
		return ctx
	}

	return credentials.WithCredential(ctx, i.Provider, i.credential)
}

func (i *Import) terminal() bool {
	return i.State == StateCompleted || i.State == StateError
}

func (i *Import) snapshot() Import {
	c := *i
	if i.Torrent != nil {
		t := *i.Torrent
		c.Torrent = &t
	}
	c.Files = append([]string(nil), i.Files...)
	return c
}

// AddTorrent submits the magnet and starts tracking it.
func (s *Store) AddTorrent(ctx context.Context, req ImportRequest) (*Import, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	switch action {
	case "":
		action = ActionNone
	case ActionNone, ActionDownload:
	default:
		return nil, models.NewValidationError(req.Provider, "add", "unknown action %q", req.Action)
	}

	if action == ActionDownload && s.downloader == nil {
		return nil, models.NewValidationError(req.Provider, "add", "downloads are not enabled")
	}

	added, err := s.repo.AddMagnet(ctx, req.Provider, req.Magnet)
	if err != nil {
		return nil, err
	}

	imp := &Import{
		ID:          uuid.NewString(),
		Provider:    req.Provider,
		TorrentID:   added.ID,
		Name:        added.Name,
		Hash:        added.Hash,
		Action:      action,
		DeleteAfter: req.DeleteAfter,
		State:       StateQueued,
		AddedAt:     time.Now().UTC(),
		credential:  req.Credential,
	}

	s.mu.Lock()
	s.imports[imp.ID] = imp
	out := imp.snapshot()
	s.mu.Unlock()

	s.logger.Info().
		Str("import", imp.ID).
		Str("provider", string(imp.Provider)).
		Str("torrent_id", imp.TorrentID).
		Str("action", action).
		Msg("Tracking import")

	return &out, nil
}

// Imports returns every tracked import, oldest first.
func (s *Store) Imports() []Import {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Import, 0, len(s.imports))
	for _, imp := range s.imports {
		out = append(out, imp.snapshot())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].AddedAt.Before(out[j].AddedAt)
	})

	return out
}

func (s *Store) Import(id string) (Import, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	imp, ok := s.imports[id]
	if !ok {
		return Import{}, false
	}

	return imp.snapshot(), true
}

// Forget stops tracking an import. It does not touch the provider.
func (s *Store) Forget(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.imports[id]
	delete(s.imports, id)
	return ok
}

// Refresh polls every unfinished import once.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.RLock()
	pending := make([]string, 0, len(s.imports))
	for id, imp := range s.imports {
		if !imp.terminal() && imp.State != StateProcessing {
			pending = append(pending, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range pending {
		if ctx.Err() != nil {
			return
		}
		s.refreshImport(ctx, id)
	}
}

func (s *Store) refreshImport(ctx context.Context, id string) {
	s.mu.RLock()
	imp, ok := s.imports[id]
	if !ok {
		s.mu.RUnlock()
		return
	}
	provider, torrentID := imp.Provider, imp.TorrentID
	ctx = imp.scope(ctx)
	s.mu.RUnlock()

	torrent, err := s.repo.GetTorrentInfo(ctx, provider, torrentID)
	if err != nil {
		if gone(err) {
			s.onFailed(ctx, id, err)
			return
		}

		s.logger.Warn().Err(err).Str("import", id).Msg("Error checking torrent status")
		return
	}

	s.mu.Lock()
	changed := imp.Torrent == nil ||
		imp.Torrent.Status != torrent.Status ||
		imp.Torrent.Progress != torrent.Progress ||
		imp.Torrent.IsReady != torrent.IsReady
	imp.Torrent = torrent
	if torrent.Name != "" {
		imp.Name = torrent.Name
	}
	if torrent.Hash != "" {
		imp.Hash = torrent.Hash
	}
	if imp.State == StateQueued && torrent.Status != models.StatusQueued {
		imp.State = StateDownloading
	}
	snap := imp.snapshot()
	s.mu.Unlock()

	if changed {
		s.logger.Debug().Msgf("%s <- (%s) Download Progress: %.2f%%", provider, snap.Name, torrent.Progress)
		s.bus.Publish(Event{Type: EventTorrentChanged, Import: snap, Torrent: *torrent})
	}

	switch {
	case torrent.Status == models.StatusError:
		s.onFailed(ctx, id, fmt.Errorf("provider reports %s", torrent.Status))
	case finished(torrent):
		s.processCompleted(ctx, id)
	}
}

// finished treats either readiness signal as done; providers do not keep them in sync.
func finished(t *models.UnifiedTorrent) bool {
	return t.IsReady || t.Status == models.StatusCompleted || t.Status == models.StatusSeeding
}

// gone reports errors that will not clear on a later poll.
func gone(err error) bool {
	var e *models.Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Kind == models.KindValidation || (e.Kind == models.KindHTTP && e.StatusCode == http.StatusNotFound)
}

func (s *Store) processCompleted(ctx context.Context, id string) {
	s.mu.Lock()
	imp, ok := s.imports[id]
	if !ok || imp.terminal() || imp.State == StateProcessing {
		s.mu.Unlock()
		return
	}
	imp.State = StateProcessing
	snap := imp.snapshot()
	s.mu.Unlock()

	timer := time.Now()

	var files []string
	if snap.Action == ActionDownload {
		var err error
		files, err = s.downloadFiles(ctx, snap)
		if err != nil {
			s.onFailed(ctx, id, err)
			return
		}
	}

	s.onSuccess(ctx, id, files, timer)
}

func (s *Store) downloadFiles(ctx context.Context, imp Import) ([]string, error) {
	details, err := s.repo.GetTorrentDetails(ctx, imp.Provider, imp.TorrentID)
	if err != nil {
		return nil, err
	}

	links := details.Torrent.Links
	if len(links) == 0 {
		return nil, fmt.Errorf("no download links for %s", imp.Name)
	}

	dir := filepath.Join(s.downloadFolder, sanitizeName(imp.Name, imp.TorrentID))

	paths := make([]string, 0, len(links))
	for _, link := range links {
		path, err := s.DownloadLink(ctx, imp.Provider, link, dir, imp.TorrentID, imp.Name)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// DownloadLink unrestricts link, downloads it into dir and records it in the history.
func (s *Store) DownloadLink(ctx context.Context, p models.Provider, link, dir, torrentID, name string) (string, error) {
	if s.downloader == nil {
		return "", models.NewValidationError(p, "download", "downloads are not enabled")
	}
	if dir == "" {
		dir = s.downloadFolder
	}

	unrestricted, err := s.repo.UnrestrictLink(ctx, p, link)
	if err != nil {
		return "", err
	}

	path, err := s.downloader.Download(ctx, unrestricted.UnrestrictedLink, dir, unrestricted.Filename)
	if err != nil {
		return "", err
	}

	if s.history != nil {
		entry := &HistoryEntry{
			Provider:     string(p),
			TorrentID:    torrentID,
			Name:         name,
			OriginalLink: link,
			Filename:     filepath.Base(path),
			Filesize:     unrestricted.Filesize,
			Path:         path,
		}
		if err := s.history.Record(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to record download history")
		}
	}

	return path, nil
}

func (s *Store) onSuccess(ctx context.Context, id string, files []string, timer time.Time) {
	s.mu.Lock()
	imp, ok := s.imports[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	imp.State = StateCompleted
	imp.Files = files
	imp.CompletedAt = &now
	snap := imp.snapshot()
	s.mu.Unlock()

	s.logger.Info().Msgf("Adding %s took %s", snap.Name, time.Since(timer))

	evt := Event{Type: EventImportCompleted, Import: snap}
	if snap.Torrent != nil {
		evt.Torrent = *snap.Torrent
	}
	s.bus.Publish(evt)

	if snap.DeleteAfter {
		s.deleteRemote(ctx, snap)
	}
}

func (s *Store) onFailed(ctx context.Context, id string, err error) {
	s.mu.Lock()
	imp, ok := s.imports[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	imp.State = StateError
	imp.Error = models.Message(err)
	imp.CompletedAt = &now
	snap := imp.snapshot()
	s.mu.Unlock()

	s.logger.Error().Err(err).Msgf("error occurred while processing torrent %s", snap.Name)

	evt := Event{Type: EventImportFailed, Import: snap}
	if snap.Torrent != nil {
		evt.Torrent = *snap.Torrent
	}
	s.bus.Publish(evt)

	if snap.DeleteAfter {
		s.deleteRemote(ctx, snap)
	}
}

func (s *Store) deleteRemote(ctx context.Context, imp Import) {
	if err := s.repo.DeleteTorrent(ctx, imp.Provider, imp.TorrentID); err != nil {
		s.logger.Warn().Err(err).Msgf("failed to delete torrent %s", imp.TorrentID)
	}
}

// Wait polls a torrent until it is finished or failed, doubling the interval up
// to 30s between polls. onChange, when set, sees every poll result.
func (s *Store) Wait(ctx context.Context, p models.Provider, id string, interval time.Duration, onChange func(models.UnifiedTorrent)) (*models.UnifiedTorrent, error) {
	if interval <= 0 {
		interval = s.refreshInterval
	}

	backoff := time.NewTimer(0)
	defer backoff.Stop()

	next := interval
	for {
		select {
		case <-ctx.Done():
			return nil, &models.Error{Kind: models.KindTransport, Provider: p, Op: "wait", Err: ctx.Err()}
		case <-backoff.C:
		}

		torrent, err := s.repo.GetTorrentInfo(ctx, p, id)
		if err != nil {
			return nil, err
		}

		if onChange != nil {
			onChange(*torrent)
		}

		if torrent.Status == models.StatusError {
			return torrent, models.NewEnvelopeError(p, "wait", 0, "", fmt.Sprintf("torrent %s failed on the provider", id))
		}
		if finished(torrent) {
			return torrent, nil
		}

		backoff.Reset(next)
		next = min(next*2, 30*time.Second)
	}
}

func sanitizeName(name, fallback string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)

	if name == "" || name == "." || name == ".." {
		return fallback
	}

	return name
}
