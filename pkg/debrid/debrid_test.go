package debrid

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dylanmazurek/debridify/internal/config"
	"github.com/dylanmazurek/debridify/pkg/credentials"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/realdebrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	provider models.Provider
	calls    atomic.Int32
	panics   bool
	torrents []models.UnifiedTorrent
	added    *models.AddedTorrent
	err      error
}

var _ models.Client = (*fakeClient)(nil)

func (f *fakeClient) Provider() models.Provider { return f.provider }

func (f *fakeClient) hit() error {
	f.calls.Add(1)
	if f.panics {
		panic("boom")
	}
	return f.err
}

func (f *fakeClient) GetUser(context.Context) (*models.UnifiedUser, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeClient) GetTorrents(context.Context, models.TorrentFilter) ([]models.UnifiedTorrent, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return f.torrents, nil
}

func (f *fakeClient) GetTorrent(_ context.Context, id string) (*models.TorrentDetails, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return &models.TorrentDetails{Torrent: models.UnifiedTorrent{ID: id, Provider: f.provider}}, nil
}

func (f *fakeClient) SubmitMagnet(context.Context, string) (*models.AddedTorrent, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return f.added, nil
}

func (f *fakeClient) DeleteTorrent(context.Context, string) error {
	return f.hit()
}

func (f *fakeClient) SelectFiles(context.Context, string, []string) error {
	return f.hit()
}

func (f *fakeClient) UnrestrictLink(_ context.Context, link string) (*models.UnrestrictedLink, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return &models.UnrestrictedLink{OriginalLink: link, UnrestrictedLink: link + "/direct", Provider: f.provider}, nil
}

func newRealDebridRepository(t *testing.T, handler http.HandlerFunc) *Repository {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds := credentials.NewMemoryStore()
	require.NoError(t, creds.Set(context.Background(), models.RealDebrid, "K"))

	rd, err := realdebrid.New(config.Debrid{Name: "realdebrid", Host: server.URL}, creds)
	require.NoError(t, err)

	return NewRepository(rd)
}

func TestAddMagnet_NotAMagnet(t *testing.T) {
	fake := &fakeClient{provider: models.RealDebrid}
	repo := NewRepository(fake)

	_, err := repo.AddMagnet(context.Background(), models.RealDebrid, "not-a-magnet")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, int32(0), fake.calls.Load())

	_, err = repo.AddMagnet(context.Background(), models.RealDebrid, "   ")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, int32(0), fake.calls.Load())
}

func TestAddMagnet_NoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	repo := newRealDebridRepository(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := repo.AddMagnet(context.Background(), models.RealDebrid, "not-a-magnet")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, int32(0), calls.Load())
}

func TestAddMagnet_Success(t *testing.T) {
	fake := &fakeClient{provider: models.TorBox, added: &models.AddedTorrent{ID: "7", Provider: models.TorBox}}
	repo := NewRepository(fake)

	added, err := repo.AddMagnet(context.Background(), models.TorBox, "magnet:?xt=urn:btih:08ada5a7a6183aae1e09d831df6748d566095a10&dn=Sintel")
	require.NoError(t, err)
	assert.Equal(t, "7", added.ID)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestAddMagnet_MissingID(t *testing.T) {
	fake := &fakeClient{provider: models.TorBox, added: &models.AddedTorrent{}}
	repo := NewRepository(fake)

	_, err := repo.AddMagnet(context.Background(), models.TorBox, "magnet:?xt=urn:btih:abc")
	assert.ErrorIs(t, err, models.ErrEmptyPayload)
}

func TestDeleteTorrent_NotFound(t *testing.T) {
	repo := newRealDebridRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"unknown_ressource","error_code":7}`)
	})

	err := repo.DeleteTorrent(context.Background(), models.RealDebrid, "ABC")
	require.Error(t, err)

	var e *models.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, models.KindHTTP, e.Kind)
	assert.Equal(t, http.StatusNotFound, e.StatusCode)
	assert.Equal(t, models.RealDebrid, e.Provider)
	assert.Equal(t, "delete", e.Op)
}

func TestGetTorrents_RealDebridEndToEnd(t *testing.T) {
	repo := newRealDebridRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/torrents", r.URL.Path)
		_, _ = io.WriteString(w, `[
			{"id":"A","filename":"first","hash":"AAAA","bytes":100,"progress":40,"status":"downloading","added":"2024-01-01T00:00:00.000Z"},
			{"id":"B","filename":"second","hash":"BBBB","bytes":200,"progress":0,"status":"virus","added":"2024-01-02T00:00:00.000Z"}
		]`)
	})

	torrents, err := repo.GetTorrents(context.Background(), models.RealDebrid, models.TorrentFilter{})
	require.NoError(t, err)
	require.Len(t, torrents, 2)

	assert.Equal(t, "A", torrents[0].ID)
	assert.Equal(t, models.StatusDownloading, torrents[0].Status)
	assert.Equal(t, "B", torrents[1].ID)
	assert.Equal(t, models.StatusError, torrents[1].Status)
}

func TestGetTorrents_NegativeLimit(t *testing.T) {
	fake := &fakeClient{provider: models.AllDebrid}
	repo := NewRepository(fake)

	_, err := repo.GetTorrents(context.Background(), models.AllDebrid, models.TorrentFilter{Limit: -1})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, int32(0), fake.calls.Load())
}

func TestGetTorrents_NilBecomesEmpty(t *testing.T) {
	repo := NewRepository(&fakeClient{provider: models.AllDebrid})

	torrents, err := repo.GetTorrents(context.Background(), models.AllDebrid, models.TorrentFilter{})
	require.NoError(t, err)
	assert.NotNil(t, torrents)
	assert.Empty(t, torrents)
}

func TestGetUser_NilIsEmptyPayload(t *testing.T) {
	repo := NewRepository(&fakeClient{provider: models.RealDebrid})

	_, err := repo.GetUser(context.Background(), models.RealDebrid)
	assert.ErrorIs(t, err, models.ErrEmptyPayload)
}

func TestGetTorrentInfo(t *testing.T) {
	fake := &fakeClient{provider: models.TorBox}
	repo := NewRepository(fake)

	torrent, err := repo.GetTorrentInfo(context.Background(), models.TorBox, " 12 ")
	require.NoError(t, err)
	assert.Equal(t, "12", torrent.ID)

	_, err = repo.GetTorrentInfo(context.Background(), models.TorBox, "")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestUnknownProvider(t *testing.T) {
	repo := NewRepository()

	_, err := repo.GetUser(context.Background(), models.Provider("premiumize"))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = repo.GetUser(context.Background(), models.AllDebrid)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "AllDebrid is not configured")
}

func TestPanicRecovered(t *testing.T) {
	repo := NewRepository(&fakeClient{provider: models.TorBox, panics: true})

	err := repo.DeleteTorrent(context.Background(), models.TorBox, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTransport)

	var e *models.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "delete", e.Op)
}

func TestPlainErrorIsClassified(t *testing.T) {
	repo := NewRepository(&fakeClient{provider: models.AllDebrid, err: errors.New("dial tcp: refused")})

	err := repo.DeleteTorrent(context.Background(), models.AllDebrid, "1")

	var e *models.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, models.KindTransport, e.Kind)
	assert.Equal(t, models.AllDebrid, e.Provider)
}

func TestUnrestrictLink_Validation(t *testing.T) {
	fake := &fakeClient{provider: models.RealDebrid}
	repo := NewRepository(fake)

	for _, link := range []string{"", "not a url", "/relative/path"} {
		_, err := repo.UnrestrictLink(context.Background(), models.RealDebrid, link)
		assert.ErrorIs(t, err, models.ErrValidation, link)
	}
	assert.Equal(t, int32(0), fake.calls.Load())

	link, err := repo.UnrestrictLink(context.Background(), models.RealDebrid, "https://hoster.example/f")
	require.NoError(t, err)
	assert.Equal(t, "https://hoster.example/f/direct", link.UnrestrictedLink)

	_, err = repo.UnrestrictLink(context.Background(), models.RealDebrid, "torbox://1/2")
	assert.NoError(t, err)
}

func TestSelectFiles_Validation(t *testing.T) {
	fake := &fakeClient{provider: models.RealDebrid}
	repo := NewRepository(fake)

	assert.ErrorIs(t, repo.SelectFiles(context.Background(), models.RealDebrid, "", nil), models.ErrValidation)
	assert.ErrorIs(t, repo.SelectFiles(context.Background(), models.RealDebrid, "A", []string{"1", " "}), models.ErrValidation)
	assert.Equal(t, int32(0), fake.calls.Load())

	assert.NoError(t, repo.SelectFiles(context.Background(), models.RealDebrid, "A", []string{"1", "2"}))
}

func TestNew_RegistersAllProviders(t *testing.T) {
	repo := New(&config.Config{}, credentials.NewMemoryStore())

	providers := repo.Providers()
	require.Len(t, providers, 3)
	assert.Equal(t, models.RealDebrid, providers[0].ID)
	assert.Equal(t, models.TorBox, providers[1].ID)
	assert.Equal(t, models.AllDebrid, providers[2].ID)
}
