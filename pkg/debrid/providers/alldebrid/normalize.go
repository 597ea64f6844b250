package alldebrid

import (
	"strconv"
	"strings"

	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/alldebrid/models"
)

var statuses = debridModels.StatusTable{
	"downloading": debridModels.StatusDownloading,
	"processing":  debridModels.StatusQueued,
	"queued":      debridModels.StatusQueued,
	"ready":       debridModels.StatusCompleted,
	"completed":   debridModels.StatusCompleted,
	"error":       debridModels.StatusError,
}

func MapStatus(status string) debridModels.TorrentStatus {
	return statuses.Lookup(status)
}

// Progress trusts ready over the byte counters, which may be stale once ready.
func Progress(ready bool, downloaded, size int64) float64 {
	if ready {
		return 100
	}
	if size <= 0 {
		return 0
	}

	return debridModels.ClampProgress(float64(downloaded) / float64(size) * 100)
}

func ToUnifiedTorrent(m *models.Magnet) debridModels.UnifiedTorrent {
	var links []string
	for _, l := range m.Links {
		if l.Link != "" {
			links = append(links, l.Link)
		}
	}

	return debridModels.UnifiedTorrent{
		ID:            strconv.Itoa(m.Id),
		Name:          m.Filename,
		Hash:          strings.ToLower(m.Hash),
		Size:          debridModels.NonNegative(m.Size),
		Progress:      Progress(m.Ready, m.Downloaded, m.Size),
		Status:        MapStatus(m.Status),
		DownloadSpeed: int64(debridModels.NonNegative(m.DownloadSpeed)),
		UploadSpeed:   int64(debridModels.NonNegative(m.UploadSpeed)),
		Seeders:       debridModels.NonNegative(m.Seeders),
		Added:         debridModels.FormatEpoch(m.UploadDate),
		Provider:      debridModels.AllDebrid,
		Links:         links,
		IsReady:       m.Ready,
	}
}

func ToTorrentFiles(links []models.Link) []debridModels.TorrentFile {
	out := make([]debridModels.TorrentFile, 0, len(links))
	for i, l := range links {
		out = append(out, debridModels.TorrentFile{
			ID:       strconv.Itoa(i),
			Path:     l.Filename,
			Size:     debridModels.NonNegative(l.Size),
			Selected: true,
		})
	}

	return out
}

func ToTorrentDetails(m *models.Magnet) *debridModels.TorrentDetails {
	return &debridModels.TorrentDetails{
		Torrent:        ToUnifiedTorrent(m),
		Files:          ToTorrentFiles(m.Links),
		CanSelectFiles: false,
	}
}

// ToUnifiedUser uses the username as id; the API exposes no numeric user id.
func ToUnifiedUser(u *models.User) *debridModels.UnifiedUser {
	var expiration *string
	if exp := debridModels.FormatEpoch(u.PremiumUntil); exp != "" {
		expiration = &exp
	}

	return &debridModels.UnifiedUser{
		ID:         u.Username,
		Username:   u.Username,
		Email:      u.Email,
		IsPremium:  u.IsPremium,
		Expiration: expiration,
		Provider:   debridModels.AllDebrid,
		AdditionalInfo: map[string]string{
			"isSubscribed": strconv.FormatBool(u.IsSubscribed),
			"isTrial":      strconv.FormatBool(u.IsTrial),
		},
	}
}

func ToUnrestrictedLink(original string, d *models.UnlockData) *debridModels.UnrestrictedLink {
	return &debridModels.UnrestrictedLink{
		OriginalLink:     original,
		UnrestrictedLink: d.Link,
		Filename:         d.Filename,
		Filesize:         debridModels.NonNegative(d.Filesize),
		Host:             d.Host,
		Provider:         debridModels.AllDebrid,
	}
}

func ToSavedLink(l *models.SavedLink) debridModels.SavedLink {
	return debridModels.SavedLink{
		ID:        l.Link,
		Filename:  l.Filename,
		Filesize:  debridModels.NonNegative(l.Size),
		Link:      l.Link,
		Host:      l.Host,
		Generated: debridModels.FormatEpoch(l.Date),
		Provider:  debridModels.AllDebrid,
	}
}

// ToHost falls back to the map key when the entry carries no name.
func ToHost(key string, h *models.Host) debridModels.Host {
	name := h.Name
	if name == "" {
		name = key
	}

	domains := h.Domains
	if domains == nil {
		domains = []string{}
	}

	return debridModels.Host{
		Name:     name,
		Domains:  domains,
		Up:       bool(h.Status),
		Provider: debridModels.AllDebrid,
	}
}
