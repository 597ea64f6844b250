package debridify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dylanmazurek/debridify/internal/config"
	"github.com/dylanmazurek/debridify/pkg/credentials"
	"github.com/dylanmazurek/debridify/pkg/debrid"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/download"
	"github.com/dylanmazurek/debridify/pkg/store"
	"github.com/dylanmazurek/debridify/pkg/version"
	"github.com/urfave/cli/v2"
)

const (
	configFlag   = "config"
	providerFlag = "provider"
	verboseFlag  = "verbose"
)

// state is shared by every command once the global flags are parsed.
type state struct {
	cfg   *config.Config
	keys  *credentials.FileStore
	creds *credentials.Layered
	repo  *debrid.Repository
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "debridify")
	}

	return "."
}

// NewApp builds the command line interface.
func NewApp() *cli.App {
	st := &state{}

	return &cli.App{
		Name:    "debridify",
		Usage:   "Manage Real-Debrid, TorBox and AllDebrid accounts from one place.",
		Version: version.GetInfo().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Value:   defaultConfigDir(),
				EnvVars: []string{"DEBRIDIFY_CONFIG"},
				Usage:   "Directory holding config.json, credentials and history.",
			},
			&cli.StringFlag{
				Name:    providerFlag,
				Aliases: []string{"p"},
				EnvVars: []string{"DEBRIDIFY_PROVIDER"},
				Usage:   "Provider to act on. Defaults to the one chosen with `use`.",
			},
			&cli.BoolFlag{
				Name:  verboseFlag,
				Usage: "Log at the configured level instead of warnings only.",
			},
		},
		Before:          st.load,
		Commands:        st.commands(),
		HideHelpCommand: true,
		HideVersion:     true,
	}
}

// Run executes the CLI with args, os.Args style.
func Run(ctx context.Context, args []string) error {
	return NewApp().RunContext(ctx, args)
}

func (s *state) load(c *cli.Context) error {
	config.SetConfigPath(c.String(configFlag))
	s.cfg = config.Get()

	// keep stdout readable for JSON output
	if !c.Bool(verboseFlag) && c.Args().First() != "serve" {
		s.cfg.LogLevel = "warn"
	}

	s.keys = credentials.NewFileStore(s.cfg.CredentialsFile())
	s.creds = credentials.NewLayered(credentials.ContextStore{}, s.keys)
	s.repo = debrid.New(s.cfg, s.creds)

	return nil
}

// provider resolves the provider to act on: --provider, the stored selection,
// then default_provider from the config.
func (s *state) provider(c *cli.Context) (models.Provider, error) {
	if name := c.String(providerFlag); name != "" {
		return models.ParseProvider(name)
	}

	p, err := s.keys.Active(c.Context)
	if err == nil && p.Valid() {
		return p, nil
	}
	if err != nil && !errors.Is(err, credentials.ErrNoProvider) {
		return "", err
	}

	if s.cfg.DefaultProvider != "" {
		return models.ParseProvider(s.cfg.DefaultProvider)
	}

	return "", errors.New("no provider selected, run `debridify use <provider>` first")
}

// loggedIn resolves the provider and makes sure a key exists for it.
func (s *state) loggedIn(c *cli.Context) (models.Provider, error) {
	p, err := s.provider(c)
	if err != nil {
		return "", err
	}

	if dc, ok := s.cfg.Debrid(string(p)); ok && dc.APIKey != "" {
		return p, nil
	}

	if _, err := s.keys.Get(c.Context, p); err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return "", fmt.Errorf("not logged in to %s, run `debridify login %s`", p.DisplayName(), p)
		}
		return "", err
	}

	return p, nil
}

// openStore opens the history database and builds an import store around it.
// The returned func releases both.
func (s *state) openStore() (*store.Store, func(), error) {
	history, err := store.OpenHistory(s.cfg.HistoryFile())
	if err != nil {
		return nil, nil, err
	}

	st, err := store.New(s.repo, history, download.New(), store.OptionsFromConfig(s.cfg))
	if err != nil {
		_ = history.Close()
		return nil, nil, err
	}

	return st, func() {
		_ = st.Stop()
		_ = history.Close()
	}, nil
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage)
	}

	return nil
}
