package debrid

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/dylanmazurek/debridify/internal/config"
	"github.com/dylanmazurek/debridify/internal/logger"
	"github.com/dylanmazurek/debridify/internal/utils"
	"github.com/dylanmazurek/debridify/pkg/credentials"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/alldebrid"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/realdebrid"
	"github.com/dylanmazurek/debridify/pkg/debrid/providers/torbox"
	"github.com/rs/zerolog"
)

// Repository dispatches each operation to the client of the provider named by
// the caller. It holds no provider logic and does not track an active provider.
// Every returned error is a *models.Error.
type Repository struct {
	clients map[models.Provider]models.Client
	mu      sync.RWMutex
	logger  zerolog.Logger
}

// New builds a client for every known provider. API keys are resolved per
// request from creds, falling back to the key in the matching config entry.
func New(cfg *config.Config, creds credentials.Store) *Repository {
	r := NewRepository()

	for _, info := range models.Providers() {
		dc := cfg.DebridOrDefault(string(info.ID))

		client, err := createDebridClient(dc, creds)
		if err != nil {
			r.logger.Error().Err(err).Str("provider", string(info.ID)).Msg("failed to create debrid client")
			continue
		}

		r.Register(client)
	}

	return r
}

func NewRepository(clients ...models.Client) *Repository {
	r := &Repository{
		clients: make(map[models.Provider]models.Client),
		logger:  logger.New("debrid"),
	}

	for _, c := range clients {
		r.Register(c)
	}

	return r
}

func (r *Repository) Register(c models.Client) {
	if c == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c.Provider()] = c
}

func (r *Repository) Client(p models.Provider) (models.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !p.Valid() {
		return nil, models.NewValidationError(p, "", "unknown provider %q", string(p))
	}

	client, ok := r.clients[p]
	if !ok {
		return nil, models.NewValidationError(p, "", "%s is not configured", p.DisplayName())
	}

	return client, nil
}

// Providers lists the registered providers in registry order.
func (r *Repository) Providers() []models.ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ProviderInfo, 0, len(r.clients))
	for _, info := range models.Providers() {
		if _, ok := r.clients[info.ID]; ok {
			out = append(out, info)
		}
	}

	return out
}

func createDebridClient(dc config.Debrid, creds credentials.Store) (models.Client, error) {
	var (
		client models.Client
		err    error
	)

	switch models.Provider(dc.Name) {
	case models.RealDebrid:
		client, err = realdebrid.New(dc, creds)
	case models.TorBox:
		client, err = torbox.New(dc, creds)
	case models.AllDebrid:
		client, err = alldebrid.New(dc, creds)
	default:
		return nil, fmt.Errorf("unknown debrid %q", dc.Name)
	}

	if err != nil {
		return nil, err
	}

	return client, nil
}

// call resolves the client, runs fn and normalizes whatever comes back into
// *models.Error. A panicking client is reported as a transport failure.
func (r *Repository) call(p models.Provider, op string, fn func(models.Client) error) (err error) {
	client, err := r.Client(p)
	if err != nil {
		return models.Classify(p, op, err, nil)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("provider", string(p)).Str("op", op).Interface("panic", rec).Msg("provider client panicked")
			err = &models.Error{Kind: models.KindTransport, Provider: p, Op: op, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	if err := fn(client); err != nil {
		r.logger.Debug().Err(err).Str("provider", string(p)).Str("op", op).Msg("operation failed")
		return models.Classify(p, op, err, nil)
	}

	return nil
}

func emptyPayload(p models.Provider, op string) error {
	return models.NewEmptyPayloadError(p, op, nil)
}

func requireID(p models.Provider, op, id string) error {
	if strings.TrimSpace(id) == "" {
		return models.NewValidationError(p, op, "id is required")
	}

	return nil
}

func (r *Repository) GetUser(ctx context.Context, p models.Provider) (*models.UnifiedUser, error) {
	var user *models.UnifiedUser

	err := r.call(p, "user", func(c models.Client) error {
		u, err := c.GetUser(ctx)
		if err != nil {
			return err
		}
		if u == nil {
			return emptyPayload(p, "user")
		}

		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetTorrents returns the provider's torrents in the order received.
func (r *Repository) GetTorrents(ctx context.Context, p models.Provider, filter models.TorrentFilter) ([]models.UnifiedTorrent, error) {
	if filter.Offset < 0 || filter.Limit < 0 {
		return nil, models.NewValidationError(p, "list", "offset and limit must not be negative")
	}

	var torrents []models.UnifiedTorrent

	err := r.call(p, "list", func(c models.Client) error {
		list, err := c.GetTorrents(ctx, filter)
		if err != nil {
			return err
		}

		torrents = list
		return nil
	})
	if err != nil {
		return nil, err
	}

	if torrents == nil {
		torrents = []models.UnifiedTorrent{}
	}

	return torrents, nil
}

func (r *Repository) GetTorrentDetails(ctx context.Context, p models.Provider, id string) (*models.TorrentDetails, error) {
	if err := requireID(p, "info", id); err != nil {
		return nil, err
	}

	var details *models.TorrentDetails

	err := r.call(p, "info", func(c models.Client) error {
		d, err := c.GetTorrent(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		if d == nil {
			return emptyPayload(p, "info")
		}

		details = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return details, nil
}

func (r *Repository) GetTorrentInfo(ctx context.Context, p models.Provider, id string) (*models.UnifiedTorrent, error) {
	details, err := r.GetTorrentDetails(ctx, p, id)
	if err != nil {
		return nil, err
	}

	return &details.Torrent, nil
}

// AddMagnet rejects anything that is not a magnet URI before touching the network.
func (r *Repository) AddMagnet(ctx context.Context, p models.Provider, magnet string) (*models.AddedTorrent, error) {
	magnet = strings.TrimSpace(magnet)
	if magnet == "" {
		return nil, models.NewValidationError(p, "add", "magnet link is required")
	}
	if !utils.IsMagnet(magnet) {
		return nil, models.NewValidationError(p, "add", "not a magnet link")
	}

	_log := r.logger.With().Str("provider", string(p)).Logger()
	if m, err := utils.ParseMagnet(magnet); err == nil {
		_log = _log.With().Str("hash", m.InfoHash).Logger()
		if m.Name != "" {
			_log = _log.With().Str("name", m.Name).Logger()
		}
	}

	var added *models.AddedTorrent

	err := r.call(p, "add", func(c models.Client) error {
		a, err := c.SubmitMagnet(ctx, magnet)
		if err != nil {
			return err
		}
		if a == nil || a.ID == "" {
			return emptyPayload(p, "add")
		}

		added = a
		return nil
	})
	if err != nil {
		_log.Warn().Err(err).Msg("magnet rejected")
		return nil, err
	}

	_log.Info().Str("id", added.ID).Msg("magnet submitted")
	return added, nil
}

func (r *Repository) DeleteTorrent(ctx context.Context, p models.Provider, id string) error {
	if err := requireID(p, "delete", id); err != nil {
		return err
	}

	return r.call(p, "delete", func(c models.Client) error {
		return c.DeleteTorrent(ctx, strings.TrimSpace(id))
	})
}

// SelectFiles picks files of a torrent. An empty list selects every file where
// the provider supports it.
func (r *Repository) SelectFiles(ctx context.Context, p models.Provider, id string, fileIDs []string) error {
	if err := requireID(p, "select", id); err != nil {
		return err
	}

	for _, f := range fileIDs {
		if strings.TrimSpace(f) == "" {
			return models.NewValidationError(p, "select", "file ids must not be empty")
		}
	}

	return r.call(p, "select", func(c models.Client) error {
		return c.SelectFiles(ctx, strings.TrimSpace(id), fileIDs)
	})
}

func (r *Repository) UnrestrictLink(ctx context.Context, p models.Provider, link string) (*models.UnrestrictedLink, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, models.NewValidationError(p, "unrestrict", "link is required")
	}

	u, err := url.Parse(link)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, models.NewValidationError(p, "unrestrict", "link must be an absolute URL")
	}

	var result *models.UnrestrictedLink

	err = r.call(p, "unrestrict", func(c models.Client) error {
		l, err := c.UnrestrictLink(ctx, link)
		if err != nil {
			return err
		}
		if l == nil || l.UnrestrictedLink == "" {
			return emptyPayload(p, "unrestrict")
		}

		result = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
