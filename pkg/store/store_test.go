package store

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dylanmazurek/debridify/pkg/debrid"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sintel = "magnet:?xt=urn:btih:08ada5a7a6183aae1e09d831df6748d566095a10&dn=Sintel"

type fakeProvider struct {
	mu       sync.Mutex
	statuses []models.TorrentStatus
	err      error
	deleted  []string
}

var _ models.Client = (*fakeProvider)(nil)

func (f *fakeProvider) Provider() models.Provider { return models.RealDebrid }

func (f *fakeProvider) GetUser(context.Context) (*models.UnifiedUser, error) {
	return &models.UnifiedUser{ID: "1", Provider: models.RealDebrid}, nil
}

func (f *fakeProvider) GetTorrents(context.Context, models.TorrentFilter) ([]models.UnifiedTorrent, error) {
	return nil, nil
}

func (f *fakeProvider) GetTorrent(_ context.Context, id string) (*models.TorrentDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	status := models.StatusDownloading
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
	}

	t := models.UnifiedTorrent{ID: id, Name: "Sintel", Status: status, Provider: models.RealDebrid}
	if status == models.StatusCompleted {
		t.Progress = 100
		t.IsReady = true
		t.Links = []string{"https://hoster.example/sintel.mkv"}
	}

	return &models.TorrentDetails{Torrent: t}, nil
}

func (f *fakeProvider) SubmitMagnet(context.Context, string) (*models.AddedTorrent, error) {
	return &models.AddedTorrent{ID: "T1", Name: "Sintel", Provider: models.RealDebrid}, nil
}

func (f *fakeProvider) DeleteTorrent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeProvider) SelectFiles(context.Context, string, []string) error { return nil }

func (f *fakeProvider) UnrestrictLink(_ context.Context, link string) (*models.UnrestrictedLink, error) {
	return &models.UnrestrictedLink{
		OriginalLink:     link,
		UnrestrictedLink: "https://cdn.example/sintel.mkv",
		Filename:         "sintel.mkv",
		Filesize:         42,
		Provider:         models.RealDebrid,
	}, nil
}

type fakeDownloader struct {
	mu    sync.Mutex
	calls []string
}

func (d *fakeDownloader) Download(_ context.Context, url, dir, filename string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, url)
	return filepath.Join(dir, filename), nil
}

func newTestStore(t *testing.T, provider *fakeProvider, dl Downloader) *Store {
	t.Helper()

	history, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	s, err := New(debrid.NewRepository(provider), history, dl, Options{
		RefreshInterval: time.Hour,
		DownloadFolder:  t.TempDir(),
	})
	require.NoError(t, err)

	return s
}

func TestAddTorrent_Validation(t *testing.T) {
	s := newTestStore(t, &fakeProvider{}, nil)

	_, err := s.AddTorrent(context.Background(), ImportRequest{Provider: models.RealDebrid, Magnet: "not-a-magnet"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = s.AddTorrent(context.Background(), ImportRequest{Provider: models.RealDebrid, Magnet: sintel, Action: "symlink"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = s.AddTorrent(context.Background(), ImportRequest{Provider: models.RealDebrid, Magnet: sintel, Action: ActionDownload})
	assert.ErrorIs(t, err, models.ErrValidation, "download without a downloader")

	assert.Empty(t, s.Imports())
}

func TestRefresh_CompletesAndDownloads(t *testing.T) {
	provider := &fakeProvider{statuses: []models.TorrentStatus{models.StatusQueued, models.StatusDownloading, models.StatusCompleted}}
	dl := &fakeDownloader{}
	s := newTestStore(t, provider, dl)

	changed := make(chan Event, 10)
	completed := make(chan Event, 1)
	s.Bus().Subscribe(EventTorrentChanged, func(e Event) { changed <- e })
	s.Bus().Subscribe(EventImportCompleted, func(e Event) { completed <- e })

	imp, err := s.AddTorrent(context.Background(), ImportRequest{
		Provider:    models.RealDebrid,
		Magnet:      sintel,
		Action:      ActionDownload,
		DeleteAfter: true,
	})
	require.NoError(t, err)
	assert.Equal(t, StateQueued, imp.State)
	assert.Equal(t, "T1", imp.TorrentID)

	s.Refresh(context.Background())
	got, _ := s.Import(imp.ID)
	assert.Equal(t, StateQueued, got.State)

	s.Refresh(context.Background())
	got, _ = s.Import(imp.ID)
	assert.Equal(t, StateDownloading, got.State)

	s.Refresh(context.Background())
	got, _ = s.Import(imp.ID)
	assert.Equal(t, StateCompleted, got.State)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "sintel.mkv", filepath.Base(got.Files[0]))
	assert.NotNil(t, got.CompletedAt)

	select {
	case e := <-completed:
		assert.Equal(t, imp.ID, e.Import.ID)
	case <-time.After(time.Second):
		t.Fatal("no completion event")
	}

	for i := 0; i < 3; i++ {
		select {
		case <-changed:
		case <-time.After(time.Second):
			t.Fatalf("expected 3 change events, got %d", i)
		}
	}

	assert.Equal(t, []string{"https://cdn.example/sintel.mkv"}, dl.calls)
	assert.Equal(t, []string{"T1"}, provider.deleted)

	entries, err := s.History().List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sintel.mkv", entries[0].Filename)
	assert.Equal(t, int64(42), entries[0].Filesize)
	assert.Equal(t, "T1", entries[0].TorrentID)

	// finished imports are no longer polled
	s.Refresh(context.Background())
	assert.Len(t, dl.calls, 1)
}

func TestRefresh_ProviderError(t *testing.T) {
	provider := &fakeProvider{statuses: []models.TorrentStatus{models.StatusError}}
	s := newTestStore(t, provider, nil)

	failed := make(chan Event, 1)
	s.Bus().Subscribe(EventImportFailed, func(e Event) { failed <- e })

	imp, err := s.AddTorrent(context.Background(), ImportRequest{Provider: models.RealDebrid, Magnet: sintel})
	require.NoError(t, err)

	s.Refresh(context.Background())

	got, _ := s.Import(imp.ID)
	assert.Equal(t, StateError, got.State)
	assert.NotEmpty(t, got.Error)

	select {
	case e := <-failed:
		assert.Equal(t, StateError, e.Import.State)
	case <-time.After(time.Second):
		t.Fatal("no failure event")
	}
}

func TestRefresh_NotFoundFails(t *testing.T) {
	provider := &fakeProvider{}
	s := newTestStore(t, provider, nil)

	imp, err := s.AddTorrent(context.Background(), ImportRequest{Provider: models.RealDebrid, Magnet: sintel})
	require.NoError(t, err)

	provider.err = &models.Error{Kind: models.KindHTTP, StatusCode: http.StatusNotFound, Message: "unknown_ressource"}
	s.Refresh(context.Background())

	got, _ := s.Import(imp.ID)
	assert.Equal(t, StateError, got.State)
	assert.Equal(t, "unknown_ressource", got.Error)
}

func TestRefresh_TransientErrorKeepsTracking(t *testing.T) {
	provider := &fakeProvider{}
	s := newTestStore(t, provider, nil)

	imp, err := s.AddTorrent(context.Background(), ImportRequest{Provider: models.RealDebrid, Magnet: sintel})
	require.NoError(t, err)

	provider.err = &models.Error{Kind: models.KindTransport}
	s.Refresh(context.Background())

	got, _ := s.Import(imp.ID)
	assert.Equal(t, StateQueued, got.State)
}

func TestWait(t *testing.T) {
	provider := &fakeProvider{statuses: []models.TorrentStatus{models.StatusDownloading, models.StatusCompleted}}
	s := newTestStore(t, provider, nil)

	var seen []models.TorrentStatus
	torrent, err := s.Wait(context.Background(), models.RealDebrid, "T1", time.Millisecond, func(t models.UnifiedTorrent) {
		seen = append(seen, t.Status)
	})
	require.NoError(t, err)
	assert.True(t, torrent.IsReady)
	assert.Equal(t, []models.TorrentStatus{models.StatusDownloading, models.StatusCompleted}, seen)
}

func TestWait_Cancelled(t *testing.T) {
	s := newTestStore(t, &fakeProvider{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx, models.RealDebrid, "T1", 5*time.Millisecond, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestForget(t *testing.T) {
	s := newTestStore(t, &fakeProvider{}, nil)

	imp, err := s.AddTorrent(context.Background(), ImportRequest{Provider: models.RealDebrid, Magnet: sintel})
	require.NoError(t, err)

	assert.True(t, s.Forget(imp.ID))
	assert.False(t, s.Forget(imp.ID))
	_, ok := s.Import(imp.ID)
	assert.False(t, ok)
}

func TestStartStop(t *testing.T) {
	s := newTestStore(t, &fakeProvider{}, nil)
	s.pruneSchedule = "0 4 * * *"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.NoError(t, s.Stop())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	kept := make(chan Event, 2)
	dropped := make(chan Event, 2)
	bus.Subscribe(EventImportCompleted, func(e Event) { kept <- e })
	id := bus.Subscribe(EventImportCompleted, func(e Event) { dropped <- e })

	bus.Unsubscribe(EventImportCompleted, id)
	bus.Unsubscribe(EventImportCompleted, "missing")
	bus.Publish(Event{Type: EventImportCompleted, Import: Import{ID: "1"}})

	select {
	case e := <-kept:
		assert.Equal(t, "1", e.Import.ID)
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber not called")
	}

	select {
	case <-dropped:
		t.Fatal("unsubscribed handler was called")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b", sanitizeName("a/b", "x"))
	assert.Equal(t, "x", sanitizeName("..", "x"))
	assert.Equal(t, "x", sanitizeName("  ", "x"))
}
