package realdebrid

import (
	"strconv"
	"strings"

	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/realdebrid/models"
)

var statuses = debridModels.StatusTable{
	"downloading": debridModels.StatusDownloading,
	"queued":      debridModels.StatusQueued,
	"downloaded":  debridModels.StatusCompleted,
	"error":       debridModels.StatusError,
	"virus":       debridModels.StatusError,
	"dead":        debridModels.StatusError,
	"uploading":   debridModels.StatusSeeding,
}

func MapStatus(status string) debridModels.TorrentStatus {
	return statuses.Lookup(status)
}

func ToUnifiedTorrent(t *models.Torrent) debridModels.UnifiedTorrent {
	var links []string
	if len(t.Links) > 0 {
		links = append(links, t.Links...)
	}

	return debridModels.UnifiedTorrent{
		ID:            t.Id,
		Name:          t.Filename,
		Hash:          strings.ToLower(t.Hash),
		Size:          debridModels.NonNegative(t.Bytes),
		Progress:      debridModels.ClampProgress(t.Progress),
		Status:        MapStatus(t.Status),
		DownloadSpeed: debridModels.NonNegative(t.Speed),
		Seeders:       debridModels.NonNegative(t.Seeders),
		Added:         t.Added,
		Provider:      debridModels.RealDebrid,
		Links:         links,
		IsReady:       debridModels.CleanStatus(t.Status) == "downloaded",
	}
}

func ToTorrentFiles(files []models.File) []debridModels.TorrentFile {
	out := make([]debridModels.TorrentFile, 0, len(files))
	for _, f := range files {
		out = append(out, debridModels.TorrentFile{
			ID:       strconv.Itoa(f.Id),
			Path:     f.Path,
			Size:     debridModels.NonNegative(f.Bytes),
			Selected: f.Selected == 1,
		})
	}

	return out
}

func ToTorrentDetails(t *models.Torrent) *debridModels.TorrentDetails {
	return &debridModels.TorrentDetails{
		Torrent:        ToUnifiedTorrent(t),
		Files:          ToTorrentFiles(t.Files),
		CanSelectFiles: true,
	}
}

func ToUnifiedUser(u *models.User) *debridModels.UnifiedUser {
	var expiration *string
	if u.Expiration != "" {
		exp := u.Expiration
		expiration = &exp
	}

	info := map[string]string{
		"points": strconv.Itoa(u.Points),
	}
	if u.Type != "" {
		info["type"] = u.Type
	}

	return &debridModels.UnifiedUser{
		ID:             strconv.Itoa(u.Id),
		Username:       u.Username,
		Email:          u.Email,
		IsPremium:      u.Premium > 0,
		Expiration:     expiration,
		Provider:       debridModels.RealDebrid,
		AdditionalInfo: info,
	}
}

func ToUnrestrictedLink(original string, r *models.UnrestrictResponse) *debridModels.UnrestrictedLink {
	return &debridModels.UnrestrictedLink{
		OriginalLink:     original,
		UnrestrictedLink: r.Download,
		Filename:         r.Filename,
		Filesize:         debridModels.NonNegative(r.Filesize),
		Host:             r.Host,
		Provider:         debridModels.RealDebrid,
	}
}

func ToSavedLink(d *models.Download) debridModels.SavedLink {
	return debridModels.SavedLink{
		ID:        d.Id,
		Filename:  d.Filename,
		Filesize:  debridModels.NonNegative(d.Filesize),
		Link:      d.Link,
		Download:  d.Download,
		Host:      d.Host,
		Generated: d.Generated,
		Provider:  debridModels.RealDebrid,
	}
}
