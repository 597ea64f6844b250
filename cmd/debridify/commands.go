package debridify

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dylanmazurek/debridify/pkg/credentials"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/dylanmazurek/debridify/pkg/version"
	"github.com/urfave/cli/v2"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *state) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "providers",
			Usage:  "List supported providers and whether a key is stored for each.",
			Action: s.providers,
		},
		{
			Name:      "login",
			Usage:     "Store an API key and make the provider active.",
			ArgsUsage: "<provider> [api-key]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "api-key", Usage: "API key. Read from stdin when neither this nor the argument is given."},
				&cli.BoolFlag{Name: "skip-verify", Usage: "Store the key without checking it against the account."},
			},
			Action: s.login,
		},
		{
			Name:      "logout",
			Usage:     "Forget the stored key of a provider.",
			ArgsUsage: "[provider]",
			Action:    s.logout,
		},
		{
			Name:      "use",
			Usage:     "Select the provider later commands act on.",
			ArgsUsage: "<provider>",
			Action:    s.use,
		},
		{
			Name:   "user",
			Usage:  "Show the account of the active provider.",
			Action: s.user,
		},
		{
			Name:  "torrents",
			Usage: "List torrents.",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "active", Usage: "Only torrents that are still in progress."},
				&cli.IntFlag{Name: "offset"},
				&cli.IntFlag{Name: "limit"},
			},
			Action: s.torrents,
		},
		{
			Name:      "info",
			Usage:     "Show one torrent with its files.",
			ArgsUsage: "<id>",
			Action:    s.info,
		},
		{
			Name:      "add",
			Usage:     "Submit a magnet link.",
			ArgsUsage: "<magnet>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "wait", Usage: "Poll until the torrent is ready."},
				&cli.BoolFlag{Name: "download", Usage: "Download the files once ready. Implies --wait."},
				&cli.BoolFlag{Name: "delete-after", Usage: "Remove the torrent from the provider once it is ready and downloaded. Implies --wait."},
				&cli.StringFlag{Name: "dir", Usage: "Download directory. Defaults to download_folder."},
				&cli.DurationFlag{Name: "interval", Value: 5 * time.Second, Usage: "Initial poll interval."},
			},
			Action: s.add,
		},
		{
			Name:      "delete",
			Usage:     "Remove torrents from the provider.",
			ArgsUsage: "<id>...",
			Action:    s.delete,
		},
		{
			Name:      "select",
			Usage:     "Select the files of a torrent to download. No file ids selects all.",
			ArgsUsage: "<id> [file-id...]",
			Action:    s.selectFiles,
		},
		{
			Name:      "restart",
			Usage:     "Retry a torrent that failed on the provider.",
			ArgsUsage: "<id>",
			Action:    s.restart,
		},
		{
			Name:      "cached",
			Usage:     "Check which torrents the provider already has cached.",
			ArgsUsage: "<magnet|hash>...",
			Action:    s.cached,
		},
		{
			Name:      "unrestrict",
			Usage:     "Turn a hoster link into a direct download link.",
			ArgsUsage: "<link>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "download", Usage: "Download the file as well."},
				&cli.StringFlag{Name: "dir", Usage: "Download directory. Defaults to download_folder."},
			},
			Action: s.unrestrict,
		},
		{
			Name:  "downloads",
			Usage: "List or delete links unrestricted earlier on the provider.",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "offset"},
				&cli.IntFlag{Name: "limit"},
			},
			Action: s.downloads,
			Subcommands: []*cli.Command{
				{
					Name:      "delete",
					Usage:     "Remove entries from the link history.",
					ArgsUsage: "<id>...",
					Action:    s.deleteDownloads,
				},
			},
		},
		{
			Name:   "hosts",
			Usage:  "List the file hosters the provider supports.",
			Action: s.hosts,
		},
		{
			Name:  "history",
			Usage: "Show completed downloads.",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Value: 50},
			},
			Action: s.history,
		},
		{
			Name:  "serve",
			Usage: "Run the HTTP API and the import tracker.",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "port", Usage: "Overrides port from the config."},
			},
			Action: s.serve,
		},
		{
			Name:  "version",
			Usage: "Print version information.",
			Action: func(c *cli.Context) error {
				return printJSON(c.App.Writer, version.GetInfo())
			},
		},
	}
}

type providerStatus struct {
	models.ProviderInfo
	Active   bool `json:"active"`
	LoggedIn bool `json:"logged_in"`
}

func (s *state) providers(c *cli.Context) error {
	active, _ := s.provider(c)

	out := make([]providerStatus, 0, 3)
	for _, info := range s.repo.Providers() {
		_, err := s.keys.Get(c.Context, info.ID)
		dc, _ := s.cfg.Debrid(string(info.ID))

		out = append(out, providerStatus{
			ProviderInfo: info,
			Active:       info.ID == active,
			LoggedIn:     err == nil || dc.APIKey != "",
		})
	}

	return printJSON(c.App.Writer, out)
}

func (s *state) login(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := models.ParseProvider(c.Args().First())
	if err != nil {
		return err
	}

	key := strings.TrimSpace(c.Args().Get(1))
	if key == "" {
		key = strings.TrimSpace(c.String("api-key"))
	}
	if key == "" {
		fmt.Fprintf(c.App.ErrWriter, "%s API key: ", p.DisplayName())
		line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read api key: %w", err)
		}
		key = strings.TrimSpace(line)
	}
	if key == "" {
		return errors.New("api key is required")
	}

	if !c.Bool("skip-verify") {
		if _, err := s.repo.GetUser(credentials.WithCredential(c.Context, p, key), p); err != nil {
			return err
		}
	}

	if err := s.keys.Set(c.Context, p, key); err != nil {
		return err
	}
	if err := s.keys.SetActive(c.Context, p); err != nil {
		return err
	}

	return printJSON(c.App.Writer, map[string]any{"provider": p, "state": "logged_in"})
}

func (s *state) logout(c *cli.Context) error {
	var (
		p   models.Provider
		err error
	)
	if c.NArg() > 0 {
		p, err = models.ParseProvider(c.Args().First())
	} else {
		p, err = s.provider(c)
	}
	if err != nil {
		return err
	}

	if err := s.keys.Clear(c.Context, p); err != nil {
		return err
	}

	return printJSON(c.App.Writer, map[string]any{"provider": p, "state": "logged_out"})
}

func (s *state) use(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := models.ParseProvider(c.Args().First())
	if err != nil {
		return err
	}

	if err := s.keys.SetActive(c.Context, p); err != nil {
		return err
	}

	status := "ready"
	if _, err := s.loggedIn(c); err != nil {
		status = "needs_login"
	}

	return printJSON(c.App.Writer, map[string]any{"provider": p, "state": status})
}

func (s *state) user(c *cli.Context) error {
	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	user, err := s.repo.GetUser(c.Context, p)
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, user)
}

func (s *state) torrents(c *cli.Context) error {
	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	torrents, err := s.repo.GetTorrents(c.Context, p, models.TorrentFilter{
		Offset:     c.Int("offset"),
		Limit:      c.Int("limit"),
		ActiveOnly: c.Bool("active"),
	})
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, torrents)
}

func (s *state) info(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	details, err := s.repo.GetTorrentDetails(c.Context, p, c.Args().First())
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, details)
}

func (s *state) add(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	added, err := s.repo.AddMagnet(c.Context, p, c.Args().First())
	if err != nil {
		return err
	}

	if !c.Bool("wait") && !c.Bool("download") && !c.Bool("delete-after") {
		return printJSON(c.App.Writer, added)
	}

	st, release, err := s.openStore()
	if err != nil {
		return err
	}
	defer release()

	var (
		last  models.TorrentStatus
		first = true
	)
	torrent, err := st.Wait(c.Context, p, added.ID, c.Duration("interval"), func(t models.UnifiedTorrent) {
		if first || t.Status != last {
			fmt.Fprintf(c.App.ErrWriter, "%s: %s %.1f%%\n", t.ID, t.Status, t.Progress)
			last, first = t.Status, false
		}
	})
	if err != nil {
		return err
	}

	files := []string{}
	if c.Bool("download") {
		for _, link := range torrent.Links {
			path, err := st.DownloadLink(c.Context, p, link, c.String("dir"), torrent.ID, torrent.Name)
			if err != nil {
				return err
			}
			files = append(files, path)
		}
	}

	deleted := false
	if c.Bool("delete-after") {
		if err := s.repo.DeleteTorrent(c.Context, p, torrent.ID); err != nil {
			return err
		}
		deleted = true
	}

	if !c.Bool("download") && !deleted {
		return printJSON(c.App.Writer, torrent)
	}

	return printJSON(c.App.Writer, map[string]any{"torrent": torrent, "files": files, "deleted": deleted})
}

func (s *state) delete(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	deleted := make([]string, 0, c.NArg())
	for _, id := range c.Args().Slice() {
		if err := s.repo.DeleteTorrent(c.Context, p, id); err != nil {
			return err
		}
		deleted = append(deleted, id)
	}

	return printJSON(c.App.Writer, map[string]any{"deleted": deleted})
}

func (s *state) selectFiles(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	args := c.Args().Slice()
	if err := s.repo.SelectFiles(c.Context, p, args[0], args[1:]); err != nil {
		return err
	}

	return printJSON(c.App.Writer, map[string]any{"id": args[0], "files": args[1:]})
}

func (s *state) restart(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	if err := s.repo.RestartTorrent(c.Context, p, c.Args().First()); err != nil {
		return err
	}

	return printJSON(c.App.Writer, map[string]any{"id": c.Args().First(), "state": "restarted"})
}

func (s *state) cached(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	cached, err := s.repo.CheckCached(c.Context, p, c.Args().Slice())
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, cached)
}

func (s *state) downloads(c *cli.Context) error {
	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	links, err := s.repo.GetDownloads(c.Context, p, models.TorrentFilter{
		Offset: c.Int("offset"),
		Limit:  c.Int("limit"),
	})
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, links)
}

func (s *state) deleteDownloads(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	deleted := make([]string, 0, c.NArg())
	for _, id := range c.Args().Slice() {
		if err := s.repo.DeleteDownload(c.Context, p, id); err != nil {
			return err
		}
		deleted = append(deleted, id)
	}

	return printJSON(c.App.Writer, map[string]any{"deleted": deleted})
}

func (s *state) hosts(c *cli.Context) error {
	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	hosts, err := s.repo.GetHosts(c.Context, p)
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, hosts)
}

func (s *state) unrestrict(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	p, err := s.loggedIn(c)
	if err != nil {
		return err
	}

	if !c.Bool("download") {
		link, err := s.repo.UnrestrictLink(c.Context, p, c.Args().First())
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, link)
	}

	st, release, err := s.openStore()
	if err != nil {
		return err
	}
	defer release()

	path, err := st.DownloadLink(c.Context, p, c.Args().First(), c.String("dir"), "", "")
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, map[string]any{"path": path})
}

func (s *state) history(c *cli.Context) error {
	st, release, err := s.openStore()
	if err != nil {
		return err
	}
	defer release()

	entries, err := st.History().List(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, entries)
}
