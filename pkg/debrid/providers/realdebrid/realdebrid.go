package realdebrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dylanmazurek/debridify/internal/config"
	"github.com/dylanmazurek/debridify/internal/logger"
	"github.com/dylanmazurek/debridify/internal/request"
	"github.com/dylanmazurek/debridify/pkg/credentials"
	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/realdebrid/models"
	"github.com/rs/zerolog"
)

type RealDebrid struct {
	logger zerolog.Logger

	host   string
	client *request.Client
}

var _ debridModels.Client = (*RealDebrid)(nil)

func New(dc config.Debrid, creds credentials.Store) (*RealDebrid, error) {
	host := dc.Host
	if host == "" {
		host = debridModels.RealDebrid.Info().BaseURL
	}

	if _, err := url.ParseRequestURI(host); err != nil {
		return nil, fmt.Errorf("invalid realdebrid host %q: %w", host, err)
	}

	_log := logger.New(string(debridModels.RealDebrid))
	client := request.New(
		request.WithHeaders(map[string]string{"Accept": "application/json"}),
		request.WithRateLimiter(request.ParseRateLimit(dc.RateLimit)),
		request.WithLogger(_log),
		request.WithProxy(dc.Proxy),
		request.WithAuthenticator(debridModels.RealDebrid.Authenticator(
			credentials.Lookup(creds, debridModels.RealDebrid, dc.APIKey),
		)),
	)

	return &RealDebrid{
		logger: _log,
		host:   strings.TrimRight(host, "/"),
		client: client,
	}, nil
}

func (rd *RealDebrid) Provider() debridModels.Provider {
	return debridModels.RealDebrid
}

func parseError(body []byte) (string, string) {
	var apiErr models.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return "", ""
	}

	code := ""
	if apiErr.ErrorCode != 0 {
		code = strconv.Itoa(apiErr.ErrorCode)
	}

	return code, apiErr.Error
}

// do sends one request and returns the raw body. Failures are classified.
func (rd *RealDebrid) do(ctx context.Context, op, method, path string, query url.Values, form url.Values) ([]byte, error) {
	u, err := request.JoinURL(rd.host, path)
	if err != nil {
		return nil, debridModels.NewValidationError(debridModels.RealDebrid, op, "invalid path %q", path)
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
		return nil, debridModels.Classify(debridModels.RealDebrid, op, err, nil)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := rd.client.MakeRequest(req)
	if err != nil {
		rd.logger.Debug().Err(err).Str("op", op).Msg("request failed")
		return nil, debridModels.Classify(debridModels.RealDebrid, op, err, parseError)
	}

	return resp, nil
}

func decode(op string, body []byte, out any) error {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return debridModels.NewEmptyPayloadError(debridModels.RealDebrid, op, nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return debridModels.NewEmptyPayloadError(debridModels.RealDebrid, op, fmt.Errorf("decode response: %w", err))
	}

	return nil
}

func (rd *RealDebrid) User(ctx context.Context) (*models.User, error) {
	resp, err := rd.do(ctx, "user", http.MethodGet, "user", nil, nil)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := decode("user", resp, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (rd *RealDebrid) GetUser(ctx context.Context) (*debridModels.UnifiedUser, error) {
	user, err := rd.User(ctx)
	if err != nil {
		return nil, err
	}

	return ToUnifiedUser(user), nil
}

func (rd *RealDebrid) Unrestrict(ctx context.Context, link string) (*models.UnrestrictResponse, error) {
	form := url.Values{}
	form.Set("link", link)

	resp, err := rd.do(ctx, "unrestrict", http.MethodPost, "unrestrict/link", nil, form)
	if err != nil {
		return nil, err
	}

	var data models.UnrestrictResponse
	if err := decode("unrestrict", resp, &data); err != nil {
		return nil, err
	}

	if data.Download == "" {
		return nil, debridModels.NewEmptyPayloadError(debridModels.RealDebrid, "unrestrict", fmt.Errorf("no download url"))
	}

	return &data, nil
}

func (rd *RealDebrid) UnrestrictLink(ctx context.Context, link string) (*debridModels.UnrestrictedLink, error) {
	data, err := rd.Unrestrict(ctx, link)
	if err != nil {
		return nil, err
	}

	return ToUnrestrictedLink(link, data), nil
}
