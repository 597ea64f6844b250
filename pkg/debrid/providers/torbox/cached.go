package torbox

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/torbox/models"
)

var _ debridModels.CacheChecker = (*Torbox)(nil)

// CachedTorrents looks hashes up in the TorBox cache. The map is keyed by
// lowercase hash and holds only cached torrents.
func (tb *Torbox) CachedTorrents(ctx context.Context, hashes []string) (map[string]models.CachedTorrent, error) {
	query := url.Values{}
	query.Set("hash", strings.Join(hashes, ","))
	query.Set("format", "object")
	query.Set("list_files", "true")

	resp, err := tb.do(ctx, "cached", http.MethodGet, "torrents/checkcached", query, nil, "")
	if err != nil {
		return nil, err
	}

	res, err := decodeEnvelope[models.CachedData]("cached", resp, false)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.CachedTorrent)
	if res.Data == nil {
		return out, nil
	}

	for hash, t := range *res.Data {
		if t.Hash == "" {
			t.Hash = hash
		}
		out[strings.ToLower(t.Hash)] = t
	}

	return out, nil
}

func (tb *Torbox) CheckCached(ctx context.Context, hashes []string) ([]debridModels.CachedTorrent, error) {
	cached, err := tb.CachedTorrents(ctx, hashes)
	if err != nil {
		return nil, err
	}

	tb.logger.Debug().Int("requested", len(hashes)).Int("cached", len(cached)).Msg("cache checked")

	out := make([]debridModels.CachedTorrent, 0, len(cached))
	for _, h := range hashes {
		if t, ok := cached[strings.ToLower(h)]; ok {
			out = append(out, ToCachedTorrent(&t))
		}
	}

	return out, nil
}
