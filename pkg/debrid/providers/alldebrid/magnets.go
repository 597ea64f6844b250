package alldebrid

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/alldebrid/models"
)

// Magnets lists the account's magnets. AllDebrid has no pagination, so offset
// and limit are applied to the returned slice.
func (ad *AllDebrid) Magnets(ctx context.Context, filter debridModels.TorrentFilter) ([]models.Magnet, error) {
	query := url.Values{}
	if filter.ActiveOnly {
		query.Set("status", "active")
	}

	resp, err := ad.do(ctx, "list", http.MethodGet, "magnet/status", query, nil)
	if err != nil {
		return nil, err
	}

	data, err := decodeEnvelope[models.MagnetsData]("list", resp)
	if err != nil {
		return nil, err
	}

	magnets := []models.Magnet(data.Magnets)
	if magnets == nil {
		magnets = []models.Magnet{}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(magnets) {
			return []models.Magnet{}, nil
		}
		magnets = magnets[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(magnets) {
		magnets = magnets[:filter.Limit]
	}

	return magnets, nil
}

func (ad *AllDebrid) GetTorrents(ctx context.Context, filter debridModels.TorrentFilter) ([]debridModels.UnifiedTorrent, error) {
	magnets, err := ad.Magnets(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]debridModels.UnifiedTorrent, 0, len(magnets))
	for i := range magnets {
		out = append(out, ToUnifiedTorrent(&magnets[i]))
	}

	return out, nil
}

func (ad *AllDebrid) Magnet(ctx context.Context, id string) (*models.Magnet, error) {
	query := url.Values{}
	query.Set("id", id)

	resp, err := ad.do(ctx, "info", http.MethodGet, "magnet/status", query, nil)
	if err != nil {
		return nil, err
	}

	data, err := decodeEnvelope[models.MagnetsData]("info", resp)
	if err != nil {
		return nil, err
	}

	if len(data.Magnets) == 0 {
		return nil, debridModels.NewEmptyPayloadError(debridModels.AllDebrid, "info", nil)
	}

	return &data.Magnets[0], nil
}

func (ad *AllDebrid) GetTorrent(ctx context.Context, id string) (*debridModels.TorrentDetails, error) {
	magnet, err := ad.Magnet(ctx, id)
	if err != nil {
		return nil, err
	}

	return ToTorrentDetails(magnet), nil
}

func (ad *AllDebrid) UploadMagnet(ctx context.Context, magnet string) (*models.UploadedMagnet, error) {
	form := url.Values{}
	form.Add("magnets[]", magnet)

	resp, err := ad.do(ctx, "add", http.MethodPost, "magnet/upload", nil, form)
	if err != nil {
		return nil, err
	}

	data, err := decodeEnvelope[models.UploadData]("add", resp)
	if err != nil {
		return nil, err
	}

	if len(data.Magnets) == 0 {
		return nil, debridModels.NewEmptyPayloadError(debridModels.AllDebrid, "add", nil)
	}

	uploaded := data.Magnets[0]
	if uploaded.Error != nil {
		return nil, debridModels.NewEnvelopeError(debridModels.AllDebrid, "add", http.StatusOK, uploaded.Error.Code, uploaded.Error.Message)
	}

	if uploaded.Id == 0 {
		return nil, debridModels.NewEmptyPayloadError(debridModels.AllDebrid, "add", fmt.Errorf("no magnet id"))
	}

	return &uploaded, nil
}

func (ad *AllDebrid) SubmitMagnet(ctx context.Context, magnet string) (*debridModels.AddedTorrent, error) {
	uploaded, err := ad.UploadMagnet(ctx, magnet)
	if err != nil {
		return nil, err
	}

	ad.logger.Info().Int("magnet_id", uploaded.Id).Bool("ready", uploaded.Ready).Msg("magnet added")

	return &debridModels.AddedTorrent{
		ID:       strconv.Itoa(uploaded.Id),
		Hash:     strings.ToLower(uploaded.Hash),
		Name:     uploaded.Name,
		Provider: debridModels.AllDebrid,
	}, nil
}

func (ad *AllDebrid) DeleteTorrent(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", id)

	resp, err := ad.do(ctx, "delete", http.MethodPost, "magnet/delete", nil, form)
	if err != nil {
		return err
	}

	if _, err := decodeEnvelope[models.MessageData]("delete", resp); err != nil {
		return err
	}

	ad.logger.Info().Str("magnet_id", id).Msg("magnet deleted")
	return nil
}
