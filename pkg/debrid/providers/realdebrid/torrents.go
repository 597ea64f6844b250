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

const defaultListLimit = 100

func (rd *RealDebrid) Torrents(ctx context.Context, filter debridModels.TorrentFilter) ([]models.Torrent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.ActiveOnly {
		query.Set("filter", "active")
	}

	resp, err := rd.do(ctx, "list", http.MethodGet, "torrents", query, nil)
	if err != nil {
		return nil, err
	}

	// an empty account answers 204 with no body
	if strings.TrimSpace(string(resp)) == "" {
		return []models.Torrent{}, nil
	}

	var torrents []models.Torrent
	if err := decode("list", resp, &torrents); err != nil {
		return nil, err
	}

	return torrents, nil
}

func (rd *RealDebrid) GetTorrents(ctx context.Context, filter debridModels.TorrentFilter) ([]debridModels.UnifiedTorrent, error) {
	torrents, err := rd.Torrents(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]debridModels.UnifiedTorrent, 0, len(torrents))
	for i := range torrents {
		out = append(out, ToUnifiedTorrent(&torrents[i]))
	}

	return out, nil
}

func (rd *RealDebrid) TorrentInfo(ctx context.Context, id string) (*models.Torrent, error) {
	resp, err := rd.do(ctx, "info", http.MethodGet, "torrents/info/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}

	var torrent models.Torrent
	if err := decode("info", resp, &torrent); err != nil {
		return nil, err
	}

	return &torrent, nil
}

func (rd *RealDebrid) GetTorrent(ctx context.Context, id string) (*debridModels.TorrentDetails, error) {
	torrent, err := rd.TorrentInfo(ctx, id)
	if err != nil {
		return nil, err
	}

	return ToTorrentDetails(torrent), nil
}

func (rd *RealDebrid) AddMagnet(ctx context.Context, magnet string) (*models.AddMagnetResponse, error) {
	form := url.Values{}
	form.Set("magnet", magnet)

	resp, err := rd.do(ctx, "add", http.MethodPost, "torrents/addMagnet", nil, form)
	if err != nil {
		return nil, err
	}

	var data models.AddMagnetResponse
	if err := decode("add", resp, &data); err != nil {
		return nil, err
	}

	if data.Id == "" {
		return nil, debridModels.NewEmptyPayloadError(debridModels.RealDebrid, "add", nil)
	}

	return &data, nil
}

func (rd *RealDebrid) SubmitMagnet(ctx context.Context, magnet string) (*debridModels.AddedTorrent, error) {
	data, err := rd.AddMagnet(ctx, magnet)
	if err != nil {
		return nil, err
	}

	rd.logger.Info().Str("torrent_id", data.Id).Msg("magnet added")

	return &debridModels.AddedTorrent{
		ID:       data.Id,
		Provider: debridModels.RealDebrid,
	}, nil
}

func (rd *RealDebrid) DeleteTorrent(ctx context.Context, id string) error {
	if _, err := rd.do(ctx, "delete", http.MethodDelete, "torrents/delete/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}

	rd.logger.Info().Str("torrent_id", id).Msg("torrent deleted")
	return nil
}

// SelectFiles starts the download of the given file ids. An empty list selects every file.
func (rd *RealDebrid) SelectFiles(ctx context.Context, id string, fileIDs []string) error {
	files := "all"
	if len(fileIDs) > 0 {
		files = strings.Join(fileIDs, ",")
	}

	form := url.Values{}
	form.Set("files", files)

	_, err := rd.do(ctx, "select", http.MethodPost, "torrents/selectFiles/"+url.PathEscape(id), nil, form)
	return err
}
