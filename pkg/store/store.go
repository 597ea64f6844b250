package store

import (
	"cmp"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dylanmazurek/debridify/internal/config"
	"github.com/dylanmazurek/debridify/internal/logger"
	"github.com/dylanmazurek/debridify/pkg/debrid"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

const schedulerTag = "debridify-store"

// Downloader fetches a direct link into dir and returns the written path.
type Downloader interface {
	Download(ctx context.Context, url, dir, filename string) (string, error)
}

type Options struct {
	RefreshInterval time.Duration
	DownloadFolder  string
	PruneSchedule   string // standard cron spec
	Retention       time.Duration
}

// OptionsFromConfig reads the tracker settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RefreshInterval: cfg.GetRefreshInterval(),
		DownloadFolder:  cfg.DownloadFolder,
		PruneSchedule:   cfg.HistoryPruneSchedule,
		Retention:       cfg.GetHistoryRetention(),
	}
}

// Store tracks imported magnets until they finish, publishing changes on its
// bus and optionally downloading the resulting files.
type Store struct {
	repo       *debrid.Repository
	bus        *Bus
	history    *History
	downloader Downloader
	scheduler  gocron.Scheduler

	imports map[string]*Import
	mu      sync.RWMutex

	logger          zerolog.Logger
	refreshInterval time.Duration
	downloadFolder  string
	pruneSchedule   string
	retention       time.Duration
}

// New builds a store. history and downloader may be nil, in which case
// downloads are refused and nothing is recorded.
func New(repo *debrid.Repository, history *History, downloader Downloader, opts Options) (*Store, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.Local),
		gocron.WithGlobalJobOptions(gocron.WithTags(schedulerTag)),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &Store{
		repo:            repo,
		bus:             NewBus(),
		history:         history,
		downloader:      downloader,
		scheduler:       scheduler,
		imports:         make(map[string]*Import),
		logger:          logger.New("store"),
		refreshInterval: cmp.Or(opts.RefreshInterval, 30*time.Second),
		downloadFolder:  cmp.Or(opts.DownloadFolder, "downloads"),
		pruneSchedule:   opts.PruneSchedule,
		retention:       cmp.Or(opts.Retention, 30*24*time.Hour),
	}, nil
}

func (s *Store) Bus() *Bus {
	return s.bus
}

func (s *Store) History() *History {
	return s.history
}

func (s *Store) Repository() *debrid.Repository {
	return s.repo
}

// Start schedules the import refresh and history prune jobs.
func (s *Store) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil for Start")
	}

	s.scheduler.RemoveByTags(schedulerTag)

	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(s.refreshInterval),
		gocron.NewTask(func() {
			s.Refresh(ctx)
		}),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("create refresh job: %w", err)
	}
	s.logger.Trace().Msgf("Import refresh job scheduled for every %s", s.refreshInterval)

	if s.history != nil && s.pruneSchedule != "" {
		if _, err := s.scheduler.NewJob(
			gocron.CronJob(s.pruneSchedule, false),
			gocron.NewTask(func() {
				s.pruneHistory(ctx)
			}),
			gocron.WithContext(ctx),
		); err != nil {
			return fmt.Errorf("create history prune job: %w", err)
		}
		s.logger.Trace().Msgf("History prune job scheduled at %q", s.pruneSchedule)
	}

	s.scheduler.Start()
	s.logger.Debug().Msg("Store worker started")
	return nil
}

func (s *Store) Stop() error {
	if err := s.scheduler.StopJobs(); err != nil {
		s.logger.Debug().Err(err).Msg("stop jobs")
	}

	return s.scheduler.Shutdown()
}

func (s *Store) pruneHistory(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)

	n, err := s.history.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to prune download history")
		return
	}

	if n > 0 {
		s.logger.Info().Int64("removed", n).Msg("Pruned download history")
	}
}
