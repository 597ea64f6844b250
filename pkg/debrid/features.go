package debrid

import (
	"context"
	"strings"

	"github.com/dylanmazurek/debridify/internal/utils"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
)

func unsupported(p models.Provider, op, what string) error {
	return models.NewValidationError(p, op, "%s does not support %s", p.DisplayName(), what)
}

// CheckCached reports which of the given torrents the provider already holds.
// Each entry is a magnet URI or a hex info hash. Torrents that are not cached
// are left out of the result.
func (r *Repository) CheckCached(ctx context.Context, p models.Provider, torrents []string) ([]models.CachedTorrent, error) {
	if len(torrents) == 0 {
		return nil, models.NewValidationError(p, "cached", "at least one hash is required")
	}

	hashes := make([]string, 0, len(torrents))
	seen := make(map[string]bool, len(torrents))
	for _, t := range torrents {
		h, err := utils.InfoHash(t)
		if err != nil {
			return nil, models.NewValidationError(p, "cached", "%v", err)
		}
		if !seen[h] {
			seen[h] = true
			hashes = append(hashes, h)
		}
	}

	var cached []models.CachedTorrent

	err := r.call(p, "cached", func(c models.Client) error {
		cc, ok := c.(models.CacheChecker)
		if !ok {
			return unsupported(p, "cached", "cache checks")
		}

		list, err := cc.CheckCached(ctx, hashes)
		if err != nil {
			return err
		}

		cached = list
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cached == nil {
		cached = []models.CachedTorrent{}
	}

	return cached, nil
}

// RestartTorrent asks the provider to retry a failed torrent.
func (r *Repository) RestartTorrent(ctx context.Context, p models.Provider, id string) error {
	if err := requireID(p, "restart", id); err != nil {
		return err
	}

	return r.call(p, "restart", func(c models.Client) error {
		rs, ok := c.(models.Restarter)
		if !ok {
			return unsupported(p, "restart", "restarting torrents")
		}

		return rs.RestartTorrent(ctx, strings.TrimSpace(id))
	})
}

// GetDownloads lists the provider's unrestricted link history, newest first
// as the provider orders it. ActiveOnly is ignored.
func (r *Repository) GetDownloads(ctx context.Context, p models.Provider, filter models.TorrentFilter) ([]models.SavedLink, error) {
	if filter.Offset < 0 || filter.Limit < 0 {
		return nil, models.NewValidationError(p, "downloads", "offset and limit must not be negative")
	}

	var links []models.SavedLink

	err := r.call(p, "downloads", func(c models.Client) error {
		lh, ok := c.(models.LinkHistory)
		if !ok {
			return unsupported(p, "downloads", "link history")
		}

		list, err := lh.GetDownloads(ctx, filter)
		if err != nil {
			return err
		}

		links = list
		return nil
	})
	if err != nil {
		return nil, err
	}

	if links == nil {
		links = []models.SavedLink{}
	}

	return links, nil
}

// DeleteDownload removes one entry from the link history.
func (r *Repository) DeleteDownload(ctx context.Context, p models.Provider, id string) error {
	if err := requireID(p, "delete download", id); err != nil {
		return err
	}

	return r.call(p, "delete download", func(c models.Client) error {
		lh, ok := c.(models.LinkHistory)
		if !ok {
			return unsupported(p, "delete download", "link history")
		}

		return lh.DeleteDownload(ctx, strings.TrimSpace(id))
	})
}

func (r *Repository) GetHosts(ctx context.Context, p models.Provider) ([]models.Host, error) {
	var hosts []models.Host

	err := r.call(p, "hosts", func(c models.Client) error {
		hl, ok := c.(models.HostLister)
		if !ok {
			return unsupported(p, "hosts", "host listing")
		}

		list, err := hl.GetHosts(ctx)
		if err != nil {
			return err
		}

		hosts = list
		return nil
	})
	if err != nil {
		return nil, err
	}

	if hosts == nil {
		hosts = []models.Host{}
	}

	return hosts, nil
}
