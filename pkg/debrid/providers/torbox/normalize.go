package torbox

import (
	"strconv"
	"strings"

	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/torbox/models"
)

var statuses = debridModels.StatusTable{
	"downloading": debridModels.StatusDownloading,
	"queued":      debridModels.StatusQueued,
	"completed":   debridModels.StatusCompleted,
	"seeding":     debridModels.StatusCompleted,
	"error":       debridModels.StatusError,
	"paused":      debridModels.StatusPaused,
}

func MapStatus(state string) debridModels.TorrentStatus {
	return statuses.Lookup(state)
}

func ToUnifiedTorrent(t *models.Torrent) debridModels.UnifiedTorrent {
	var links []string
	if t.DownloadFinished {
		for _, f := range t.Files {
			links = append(links, FileLink(t.Id, f.Id))
		}
	}

	return debridModels.UnifiedTorrent{
		ID:            strconv.Itoa(t.Id),
		Name:          t.Name,
		Hash:          strings.ToLower(t.Hash),
		Size:          debridModels.NonNegative(t.Size),
		Progress:      debridModels.ClampProgress(t.Progress),
		Status:        MapStatus(t.DownloadState),
		DownloadSpeed: debridModels.NonNegative(t.DownloadSpeed),
		UploadSpeed:   debridModels.NonNegative(t.UploadSpeed),
		Seeders:       debridModels.NonNegative(t.Seeds),
		Added:         t.CreatedAt,
		Provider:      debridModels.TorBox,
		Links:         links,
		IsReady:       t.DownloadFinished,
	}
}

func ToTorrentFiles(files []models.TorboxFile) []debridModels.TorrentFile {
	out := make([]debridModels.TorrentFile, 0, len(files))
	for _, f := range files {
		out = append(out, debridModels.TorrentFile{
			ID:       strconv.Itoa(f.Id),
			Path:     f.Name,
			Size:     debridModels.NonNegative(f.Size),
			Selected: true,
		})
	}

	return out
}

func ToTorrentDetails(t *models.Torrent) *debridModels.TorrentDetails {
	return &debridModels.TorrentDetails{
		Torrent:        ToUnifiedTorrent(t),
		Files:          ToTorrentFiles(t.Files),
		CanSelectFiles: false,
	}
}

func ToUnifiedUser(u *models.User) *debridModels.UnifiedUser {
	username, _, _ := strings.Cut(u.Email, "@")

	var expiration *string
	if u.PremiumExpiresAt != "" {
		exp := u.PremiumExpiresAt
		expiration = &exp
	}

	return &debridModels.UnifiedUser{
		ID:         strconv.FormatInt(u.Id, 10),
		Username:   username,
		Email:      u.Email,
		IsPremium:  u.IsSubscribed,
		Expiration: expiration,
		Provider:   debridModels.TorBox,
		AdditionalInfo: map[string]string{
			"plan":            strconv.Itoa(u.Plan),
			"totalDownloaded": strconv.FormatInt(u.TotalDownloaded, 10),
		},
	}
}

func ToUnrestrictedLink(original, download string) *debridModels.UnrestrictedLink {
	return &debridModels.UnrestrictedLink{
		OriginalLink:     original,
		UnrestrictedLink: download,
		Filename:         filenameFromURL(download),
		Host:             debridModels.TorBox.DisplayName(),
		Provider:         debridModels.TorBox,
	}
}

func ToCachedTorrent(t *models.CachedTorrent) debridModels.CachedTorrent {
	files := make([]debridModels.TorrentFile, 0, len(t.Files))
	for i, f := range t.Files {
		files = append(files, debridModels.TorrentFile{
			ID:       strconv.Itoa(i),
			Path:     f.Name,
			Size:     debridModels.NonNegative(f.Size),
			Selected: true,
		})
	}

	return debridModels.CachedTorrent{
		Hash:     strings.ToLower(t.Hash),
		Name:     t.Name,
		Size:     debridModels.NonNegative(t.Size),
		Files:    files,
		Provider: debridModels.TorBox,
	}
}
