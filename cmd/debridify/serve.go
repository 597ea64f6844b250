package debridify

import (
	"fmt"

	"github.com/dylanmazurek/debridify/internal/logger"
	"github.com/dylanmazurek/debridify/pkg/server"
	"github.com/dylanmazurek/debridify/pkg/store"
	"github.com/dylanmazurek/debridify/pkg/version"
	"github.com/urfave/cli/v2"
)

func (s *state) serve(c *cli.Context) error {
	ctx := c.Context
	_log := logger.Default()

	if port := c.String("port"); port != "" {
		s.cfg.Port = port
	}

	_log.Info().Msgf("Starting Debridify %s", version.GetInfo())

	st, release, err := s.openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer release()

	bus := st.Bus()
	completed := bus.Subscribe(store.EventImportCompleted, func(e store.Event) {
		_log.Info().
			Str("provider", string(e.Import.Provider)).
			Str("torrent_id", e.Import.TorrentID).
			Int("files", len(e.Import.Files)).
			Msgf("Import %s completed", e.Import.Name)
	})
	failed := bus.Subscribe(store.EventImportFailed, func(e store.Event) {
		_log.Warn().
			Str("provider", string(e.Import.Provider)).
			Str("torrent_id", e.Import.TorrentID).
			Msgf("Import %s failed: %s", e.Import.Name, e.Import.Error)
	})
	defer bus.Unsubscribe(store.EventImportFailed, failed)
	defer bus.Unsubscribe(store.EventImportCompleted, completed)

	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("start store: %w", err)
	}

	srv := server.New(s.cfg, s.repo, st, s.creds, s.keys)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	_log.Info().Msg("Debridify stopped")
	return nil
}
