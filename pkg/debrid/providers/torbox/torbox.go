package torbox

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
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/torbox/models"
	"github.com/rs/zerolog"
)

type Torbox struct {
	logger zerolog.Logger

	host       string
	client     *request.Client
	credential request.CredentialFunc
}

var _ debridModels.Client = (*Torbox)(nil)

func New(dc config.Debrid, creds credentials.Store) (*Torbox, error) {
	host := dc.Host
	if host == "" {
		host = debridModels.TorBox.Info().BaseURL
	}

	if _, err := url.ParseRequestURI(host); err != nil {
		return nil, fmt.Errorf("invalid torbox host %q: %w", host, err)
	}

	credential := credentials.Lookup(creds, debridModels.TorBox, dc.APIKey)

	_log := logger.New(string(debridModels.TorBox))
	client := request.New(
		request.WithRateLimiter(request.ParseRateLimit(dc.RateLimit)),
		request.WithLogger(_log),
		request.WithProxy(dc.Proxy),
		request.WithAuthenticator(debridModels.TorBox.Authenticator(credential)),
	)

	newTorbox := &Torbox{
		logger:     _log,
		host:       strings.TrimRight(host, "/"),
		client:     client,
		credential: credential,
	}

	return newTorbox, nil
}

func (tb *Torbox) Provider() debridModels.Provider {
	return debridModels.TorBox
}

func parseError(body []byte) (string, string) {
	var res models.BaseResponse[json.RawMessage]
	if err := json.Unmarshal(body, &res); err != nil {
		return "", ""
	}

	return res.ErrorCode(), res.Message()
}

func (tb *Torbox) do(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	u, err := request.JoinURL(tb.host, path)
	if err != nil {
		return nil, debridModels.NewValidationError(debridModels.TorBox, op, "invalid path %q", path)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, debridModels.Classify(debridModels.TorBox, op, err, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := tb.client.MakeRequest(req)
	if err != nil {
		tb.logger.Debug().Err(err).Str("op", op).Msg("request failed")
		return nil, debridModels.Classify(debridModels.TorBox, op, err, parseError)
	}

	return resp, nil
}

// decodeEnvelope checks success and data presence. requireData is false for
// operations whose reply carries no payload.
func decodeEnvelope[T any](op string, body []byte, requireData bool) (*models.BaseResponse[T], error) {
	if strings.TrimSpace(string(body)) == "" {
		return nil, debridModels.NewEmptyPayloadError(debridModels.TorBox, op, nil)
	}

	var res models.BaseResponse[T]
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, debridModels.NewEmptyPayloadError(debridModels.TorBox, op, fmt.Errorf("decode response: %w", err))
	}

	if !res.Success {
		message := res.Message()
		if message == "" {
			message = "request rejected"
		}

		return nil, debridModels.NewEnvelopeError(debridModels.TorBox, op, http.StatusOK, res.ErrorCode(), message)
	}

	if requireData && res.Data == nil {
		return nil, debridModels.NewEmptyPayloadError(debridModels.TorBox, op, nil)
	}

	return &res, nil
}

func (tb *Torbox) User(ctx context.Context) (*models.User, error) {
	resp, err := tb.do(ctx, "user", http.MethodGet, "user/me", nil, nil, "")
	if err != nil {
		return nil, err
	}

	res, err := decodeEnvelope[models.User]("user", resp, true)
	if err != nil {
		return nil, err
	}

	return res.Data, nil
}

func (tb *Torbox) GetUser(ctx context.Context) (*debridModels.UnifiedUser, error) {
	user, err := tb.User(ctx)
	if err != nil {
		return nil, err
	}

	return ToUnifiedUser(user), nil
}

// SelectFiles is not offered by TorBox; every file is downloaded.
func (tb *Torbox) SelectFiles(ctx context.Context, id string, fileIDs []string) error {
	return debridModels.NewValidationError(debridModels.TorBox, "select", "TorBox does not support file selection")
}
