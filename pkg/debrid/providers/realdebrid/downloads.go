package realdebrid

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/realdebrid/models"
)

var _ debridModels.LinkHistory = (*RealDebrid)(nil)

func (rd *RealDebrid) Downloads(ctx context.Context, filter debridModels.TorrentFilter) ([]models.Download, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}

	resp, err := rd.do(ctx, "downloads", http.MethodGet, "downloads", query, nil)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(string(resp)) == "" {
		return []models.Download{}, nil
	}

	var downloads []models.Download
	if err := decode("downloads", resp, &downloads); err != nil {
		return nil, err
	}

	return downloads, nil
}

func (rd *RealDebrid) GetDownloads(ctx context.Context, filter debridModels.TorrentFilter) ([]debridModels.SavedLink, error) {
	downloads, err := rd.Downloads(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]debridModels.SavedLink, 0, len(downloads))
	for i := range downloads {
		out = append(out, ToSavedLink(&downloads[i]))
	}

	return out, nil
}

func (rd *RealDebrid) DeleteDownload(ctx context.Context, id string) error {
	if _, err := rd.do(ctx, "delete download", http.MethodDelete, "downloads/delete/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}

	rd.logger.Info().Str("download_id", id).Msg("download deleted")
	return nil
}
