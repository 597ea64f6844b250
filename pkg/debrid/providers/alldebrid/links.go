package alldebrid

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/alldebrid/models"
)

var (
	_ debridModels.Restarter   = (*AllDebrid)(nil)
	_ debridModels.LinkHistory = (*AllDebrid)(nil)
	_ debridModels.HostLister  = (*AllDebrid)(nil)
)

func (ad *AllDebrid) RestartTorrent(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", id)

	resp, err := ad.do(ctx, "restart", http.MethodPost, "magnet/restart", nil, form)
	if err != nil {
		return err
	}

	if _, err := decodeEnvelope[models.MessageData]("restart", resp); err != nil {
		return err
	}

	ad.logger.Info().Str("magnet_id", id).Msg("magnet restarted")
	return nil
}

func (ad *AllDebrid) SavedLinks(ctx context.Context) ([]models.SavedLink, error) {
	resp, err := ad.do(ctx, "downloads", http.MethodGet, "user/links", nil, nil)
	if err != nil {
		return nil, err
	}

	data, err := decodeEnvelope[models.LinksData]("downloads", resp)
	if err != nil {
		return nil, err
	}

	return data.Links, nil
}

// GetDownloads pages client side; AllDebrid returns the whole history.
func (ad *AllDebrid) GetDownloads(ctx context.Context, filter debridModels.TorrentFilter) ([]debridModels.SavedLink, error) {
	links, err := ad.SavedLinks(ctx)
	if err != nil {
		return nil, err
	}

	if filter.Offset >= len(links) {
		return []debridModels.SavedLink{}, nil
	}
	links = links[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(links) {
		links = links[:filter.Limit]
	}

	out := make([]debridModels.SavedLink, 0, len(links))
	for i := range links {
		out = append(out, ToSavedLink(&links[i]))
	}

	return out, nil
}

// DeleteDownload takes the saved link itself as id.
func (ad *AllDebrid) DeleteDownload(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("link", id)

	resp, err := ad.do(ctx, "delete download", http.MethodPost, "user/links/delete", nil, form)
	if err != nil {
		return err
	}

	if _, err := decodeEnvelope[models.MessageData]("delete download", resp); err != nil {
		return err
	}

	ad.logger.Info().Str("link", id).Msg("saved link deleted")
	return nil
}

// GetHosts returns the supported hosters sorted by name.
func (ad *AllDebrid) GetHosts(ctx context.Context) ([]debridModels.Host, error) {
	resp, err := ad.do(ctx, "hosts", http.MethodGet, "hosts", nil, nil)
	if err != nil {
		return nil, err
	}

	data, err := decodeEnvelope[models.HostsData]("hosts", resp)
	if err != nil {
		return nil, err
	}

	out := make([]debridModels.Host, 0, len(data.Hosts))
	for key, h := range data.Hosts {
		out = append(out, ToHost(key, &h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}
