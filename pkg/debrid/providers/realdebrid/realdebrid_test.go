package realdebrid

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/dylanmazurek/debridify/internal/config"
	"github.com/dylanmazurek/debridify/pkg/credentials"
	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T, handler http.HandlerFunc) *RealDebrid {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds := credentials.NewMemoryStore()
	require.NoError(t, creds.Set(context.Background(), debridModels.RealDebrid, "K"))

	rd, err := New(config.Debrid{Name: "realdebrid", Host: server.URL}, creds)
	require.NoError(t, err)

	return rd
}

func TestUser_BearerAuth(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		assert.Equal(t, "Bearer K", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.RawQuery)
		_, _ = io.WriteString(w, `{"id":7,"username":"bob","email":"bob@example.com","points":10,"type":"premium","premium":3600,"expiration":"2030-01-01T00:00:00.000Z"}`)
	})

	user, err := rd.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7", user.ID)
	assert.True(t, user.IsPremium)
}

func TestGetTorrents_OrderAndStatus(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/torrents", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "active", r.URL.Query().Get("filter"))
		_, _ = io.WriteString(w, `[
			{"id":"A","filename":"one","hash":"AA","bytes":10,"progress":40,"status":"downloading","added":"2024-01-01T00:00:00.000Z","speed":500,"seeders":4},
			{"id":"B","filename":"two","hash":"BB","bytes":20,"progress":0,"status":"virus","added":"2024-01-02T00:00:00.000Z"}
		]`)
	})

	torrents, err := rd.GetTorrents(context.Background(), debridModels.TorrentFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, torrents, 2)
	assert.Equal(t, "A", torrents[0].ID)
	assert.Equal(t, debridModels.StatusDownloading, torrents[0].Status)
	assert.Equal(t, int64(500), torrents[0].DownloadSpeed)
	assert.Equal(t, "B", torrents[1].ID)
	assert.Equal(t, debridModels.StatusError, torrents[1].Status)
}

func TestGetTorrents_NoContent(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	torrents, err := rd.GetTorrents(context.Background(), debridModels.TorrentFilter{})
	require.NoError(t, err)
	assert.Empty(t, torrents)
}

func TestAddMagnet_Form(t *testing.T) {
	magnet := "magnet:?xt=urn:btih:08ada5a7a6183aae1e09d831df6748d566095a10&dn=Sintel"

	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/torrents/addMagnet", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, magnet, r.PostForm.Get("magnet"))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"NEWID","uri":"https://api.real-debrid.com/rest/1.0/torrents/info/NEWID"}`)
	})

	added, err := rd.SubmitMagnet(context.Background(), magnet)
	require.NoError(t, err)
	assert.Equal(t, "NEWID", added.ID)
	assert.Equal(t, debridModels.RealDebrid, added.Provider)
}

func TestAddMagnet_EmptyPayload(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	})

	_, err := rd.SubmitMagnet(context.Background(), "magnet:?xt=urn:btih:abc")
	assert.ErrorIs(t, err, debridModels.ErrEmptyPayload)
}

func TestDeleteTorrent_NotFound(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/torrents/delete/GONE", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"unknown_ressource","error_code":7}`)
	})

	err := rd.DeleteTorrent(context.Background(), "GONE")
	require.Error(t, err)

	var e *debridModels.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, debridModels.KindHTTP, e.Kind)
	assert.Equal(t, http.StatusNotFound, e.StatusCode)
	assert.Equal(t, "7", e.Code)
	assert.Equal(t, "unknown_ressource", e.Message)
}

func TestDeleteTorrent_NoContent(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, rd.DeleteTorrent(context.Background(), "ABC"))
}

func TestGetTorrent_Files(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/torrents/info/ABC", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"ABC","filename":"pack","status":"waiting_files_selection","files":[{"id":1,"path":"/a.mkv","bytes":5,"selected":0}]}`)
	})

	details, err := rd.GetTorrent(context.Background(), "ABC")
	require.NoError(t, err)
	assert.True(t, details.CanSelectFiles)
	require.Len(t, details.Files, 1)
	assert.Equal(t, "1", details.Files[0].ID)
}

func TestSelectFiles(t *testing.T) {
	var got url.Values
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/torrents/selectFiles/ABC", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, rd.SelectFiles(context.Background(), "ABC", []string{"1", "3"}))
	assert.Equal(t, "1,3", got.Get("files"))

	require.NoError(t, rd.SelectFiles(context.Background(), "ABC", nil))
	assert.Equal(t, "all", got.Get("files"))
}

func TestUnrestrictLink(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/unrestrict/link", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "https://hoster.example/f", r.PostForm.Get("link"))
		_, _ = io.WriteString(w, `{"id":"L","filename":"f.bin","filesize":9,"host":"hoster.example","download":"https://dl.example/f.bin"}`)
	})

	link, err := rd.UnrestrictLink(context.Background(), "https://hoster.example/f")
	require.NoError(t, err)
	assert.Equal(t, "https://dl.example/f.bin", link.UnrestrictedLink)
	assert.Equal(t, "hoster.example", link.Host)
}

func TestGetDownloads(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/downloads", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "40", r.URL.Query().Get("offset"))
		_, _ = io.WriteString(w, `[{"id":"D1","filename":"a.mkv","mimeType":"video/x-matroska","filesize":100,"link":"https://hoster.example/a","host":"hoster.example","chunks":16,"download":"https://cdn.real-debrid.com/d/D1/a.mkv","generated":"2024-01-02T03:04:05.000Z"}]`)
	})

	links, err := rd.GetDownloads(context.Background(), debridModels.TorrentFilter{Offset: 40, Limit: 20})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "D1", links[0].ID)
	assert.Equal(t, "https://cdn.real-debrid.com/d/D1/a.mkv", links[0].Download)
	assert.Equal(t, "2024-01-02T03:04:05.000Z", links[0].Generated)
	assert.Equal(t, debridModels.RealDebrid, links[0].Provider)
}

func TestGetDownloads_NoContent(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	links, err := rd.GetDownloads(context.Background(), debridModels.TorrentFilter{})
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestDeleteDownload(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/downloads/delete/D1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, rd.DeleteDownload(context.Background(), "D1"))
}

func TestUnauthorized(t *testing.T) {
	rd := newMockClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"bad_token","error_code":8}`)
	})

	_, err := rd.GetUser(context.Background())

	var e *debridModels.Error
	require.True(t, errors.As(err, &e))
	assert.True(t, e.Unauthorized())
	assert.Equal(t, "bad_token", debridModels.Message(err))
}

var (
	liveClient *RealDebrid
	liveOnce   sync.Once
)

func getLiveClient(t *testing.T) *RealDebrid {
	t.Helper()

	apiKey := os.Getenv("REALDEBRID_API_KEY")
	if apiKey == "" {
		t.Skip("REALDEBRID_API_KEY not set")
	}

	liveOnce.Do(func() {
		c, err := New(config.Debrid{Name: "realdebrid", APIKey: apiKey}, nil)
		if err != nil {
			t.Fatalf("failed to create Real-Debrid client: %v", err)
		}

		liveClient = c
	})

	return liveClient
}

func TestLive_GetUser(t *testing.T) {
	c := getLiveClient(t)

	user, err := c.GetUser(context.Background())
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}

	if user.Username == "" {
		t.Fatal("expected username to be set")
	}
}
