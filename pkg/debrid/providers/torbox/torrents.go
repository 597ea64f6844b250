package torbox

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/torbox/models"
)

func listQuery(filter debridModels.TorrentFilter) url.Values {
	query := url.Values{}
	query.Set("bypass_cache", "true")
	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	return query
}

func (tb *Torbox) Torrents(ctx context.Context, filter debridModels.TorrentFilter) ([]models.Torrent, error) {
	resp, err := tb.do(ctx, "list", http.MethodGet, "torrents/mylist", listQuery(filter), nil, "")
	if err != nil {
		return nil, err
	}

	res, err := decodeEnvelope[[]models.Torrent]("list", resp, false)
	if err != nil {
		return nil, err
	}

	if res.Data == nil {
		return []models.Torrent{}, nil
	}

	torrents := *res.Data
	if filter.ActiveOnly {
		active := torrents[:0]
		for _, t := range torrents {
			if t.Active {
				active = append(active, t)
			}
		}
		torrents = active
	}

	return torrents, nil
}

func (tb *Torbox) GetTorrents(ctx context.Context, filter debridModels.TorrentFilter) ([]debridModels.UnifiedTorrent, error) {
	torrents, err := tb.Torrents(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]debridModels.UnifiedTorrent, 0, len(torrents))
	for i := range torrents {
		out = append(out, ToUnifiedTorrent(&torrents[i]))
	}

	return out, nil
}

func (tb *Torbox) TorrentInfo(ctx context.Context, id string) (*models.Torrent, error) {
	query := listQuery(debridModels.TorrentFilter{})
	query.Set("id", id)

	resp, err := tb.do(ctx, "info", http.MethodGet, "torrents/mylist", query, nil, "")
	if err != nil {
		return nil, err
	}

	res, err := decodeEnvelope[models.TorrentData]("info", resp, true)
	if err != nil {
		return nil, err
	}

	torrent := res.Data.Torrent
	if torrent == nil {
		return nil, debridModels.NewEmptyPayloadError(debridModels.TorBox, "info", nil)
	}

	tb.logger.Debug().
		Str("torrent_id", id).
		Bool("download_finished", torrent.DownloadFinished).
		Str("download_state", torrent.DownloadState).
		Int("files", len(torrent.Files)).
		Msg("torrent info fetched")

	return torrent, nil
}

func (tb *Torbox) GetTorrent(ctx context.Context, id string) (*debridModels.TorrentDetails, error) {
	torrent, err := tb.TorrentInfo(ctx, id)
	if err != nil {
		return nil, err
	}

	return ToTorrentDetails(torrent), nil
}

func (tb *Torbox) CreateTorrent(ctx context.Context, magnet string) (*models.CreateTorrentData, error) {
	payload := &bytes.Buffer{}

	writer := multipart.NewWriter(payload)
	_ = writer.WriteField("magnet", magnet)
	if err := writer.Close(); err != nil {
		return nil, debridModels.NewValidationError(debridModels.TorBox, "add", "encode form: %v", err)
	}

	resp, err := tb.do(ctx, "add", http.MethodPost, "torrents/createtorrent", nil, payload, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	res, err := decodeEnvelope[models.CreateTorrentData]("add", resp, true)
	if err != nil {
		return nil, err
	}

	if _, ok := res.Data.ID(); !ok {
		return nil, debridModels.NewEmptyPayloadError(debridModels.TorBox, "add", nil)
	}

	return res.Data, nil
}

func (tb *Torbox) SubmitMagnet(ctx context.Context, magnet string) (*debridModels.AddedTorrent, error) {
	data, err := tb.CreateTorrent(ctx, magnet)
	if err != nil {
		return nil, err
	}

	id, _ := data.ID()
	tb.logger.Info().Int("torrent_id", id).Bool("queued", data.TorrentID == nil).Msg("magnet added")

	return &debridModels.AddedTorrent{
		ID:       strconv.Itoa(id),
		Hash:     strings.ToLower(data.Hash),
		Name:     data.Name,
		Provider: debridModels.TorBox,
	}, nil
}

func (tb *Torbox) DeleteTorrent(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("torrent_id", id)
	form.Set("operation", "delete")

	resp, err := tb.do(ctx, "delete", http.MethodPost, "torrents/controltorrent", nil,
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}

	if _, err := decodeEnvelope[json.RawMessage]("delete", resp, false); err != nil {
		return err
	}

	tb.logger.Info().Str("torrent_id", id).Msg("torrent deleted")
	return nil
}
