package alldebrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dylanmazurek/debridify/internal/config"
	"github.com/dylanmazurek/debridify/internal/logger"
	"github.com/dylanmazurek/debridify/internal/request"
	"github.com/dylanmazurek/debridify/pkg/credentials"
	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/alldebrid/models"
	"github.com/rs/zerolog"
)

type AllDebrid struct {
	logger zerolog.Logger

	host   string
	client *request.Client
}

var _ debridModels.Client = (*AllDebrid)(nil)

func New(dc config.Debrid, creds credentials.Store) (*AllDebrid, error) {
	host := dc.Host
	if host == "" {
		host = debridModels.AllDebrid.Info().BaseURL
	}

	if _, err := url.ParseRequestURI(host); err != nil {
		return nil, fmt.Errorf("invalid alldebrid host %q: %w", host, err)
	}

	_log := logger.New(string(debridModels.AllDebrid))
	client := request.New(
		request.WithRateLimiter(request.ParseRateLimit(dc.RateLimit)),
		request.WithLogger(_log),
		request.WithProxy(dc.Proxy),
		request.WithAuthenticator(debridModels.AllDebrid.Authenticator(
			credentials.Lookup(creds, debridModels.AllDebrid, dc.APIKey),
		)),
	)

	return &AllDebrid{
		logger: _log,
		host:   strings.TrimRight(host, "/"),
		client: client,
	}, nil
}

func (ad *AllDebrid) Provider() debridModels.Provider {
	return debridModels.AllDebrid
}

func parseError(body []byte) (string, string) {
	var res models.Response[json.RawMessage]
	if err := json.Unmarshal(body, &res); err != nil || res.Error == nil {
		return "", ""
	}

	return res.Error.Code, res.Error.Message
}

func (ad *AllDebrid) do(ctx context.Context, op, method, path string, query url.Values, form url.Values) ([]byte, error) {
	u, err := request.JoinURL(ad.host, path)
	if err != nil {
		return nil, debridModels.NewValidationError(debridModels.AllDebrid, op, "invalid path %q", path)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, debridModels.Classify(debridModels.AllDebrid, op, err, nil)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := ad.client.MakeRequest(req)
	if err != nil {
		ad.logger.Debug().Err(err).Str("op", op).Msg("request failed")
		return nil, debridModels.Classify(debridModels.AllDebrid, op, err, parseError)
	}

	return resp, nil
}

func decodeEnvelope[T any](op string, body []byte) (*T, error) {
	if strings.TrimSpace(string(body)) == "" {
		return nil, debridModels.NewEmptyPayloadError(debridModels.AllDebrid, op, nil)
	}

	var res models.Response[T]
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, debridModels.NewEmptyPayloadError(debridModels.AllDebrid, op, fmt.Errorf("decode response: %w", err))
	}

	if res.Status != "success" {
		code, message := "", "request rejected"
		if res.Error != nil {
			code = res.Error.Code
			if res.Error.Message != "" {
				message = res.Error.Message
			}
		}

		return nil, debridModels.NewEnvelopeError(debridModels.AllDebrid, op, http.StatusOK, code, message)
	}

	if res.Data == nil {
		return nil, debridModels.NewEmptyPayloadError(debridModels.AllDebrid, op, nil)
	}

	return res.Data, nil
}

func (ad *AllDebrid) User(ctx context.Context) (*models.User, error) {
	resp, err := ad.do(ctx, "user", http.MethodGet, "user", nil, nil)
	if err != nil {
		return nil, err
	}

	data, err := decodeEnvelope[models.UserData]("user", resp)
	if err != nil {
		return nil, err
	}

	return &data.User, nil
}

func (ad *AllDebrid) GetUser(ctx context.Context) (*debridModels.UnifiedUser, error) {
	user, err := ad.User(ctx)
	if err != nil {
		return nil, err
	}

	return ToUnifiedUser(user), nil
}

func (ad *AllDebrid) UnlockLink(ctx context.Context, link string) (*models.UnlockData, error) {
	query := url.Values{}
	query.Set("link", link)

	resp, err := ad.do(ctx, "unrestrict", http.MethodGet, "link/unlock", query, nil)
	if err != nil {
		return nil, err
	}

	data, err := decodeEnvelope[models.UnlockData]("unrestrict", resp)
	if err != nil {
		return nil, err
	}

	if data.Link == "" {
		return nil, debridModels.NewEmptyPayloadError(debridModels.AllDebrid, "unrestrict", fmt.Errorf("no download url"))
	}

	return data, nil
}

func (ad *AllDebrid) UnrestrictLink(ctx context.Context, link string) (*debridModels.UnrestrictedLink, error) {
	data, err := ad.UnlockLink(ctx, link)
	if err != nil {
		return nil, err
	}

	return ToUnrestrictedLink(link, data), nil
}

// SelectFiles is not offered by AllDebrid.
func (ad *AllDebrid) SelectFiles(ctx context.Context, id string, fileIDs []string) error {
	return debridModels.NewValidationError(debridModels.AllDebrid, "select", "AllDebrid does not support file selection")
}
