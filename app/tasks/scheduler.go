package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rss-transmission/app/config"
	"github.com/lysyi3m/rss-transmission/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler runs polling cycles. Feeds are processed one after another in
// configured order and the shutdown signal is only honoured between feeds,
// between submissions and while sleeping.
type Scheduler struct {
	loader   SettingsLoader
	notifier ChangeNotifier
	deps     *Dependencies

	mu       sync.RWMutex
	settings *config.Settings
	synced   map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler takes the already loaded settings. notifier may be nil, in
// which case the settings are never reloaded.
func NewScheduler(loader SettingsLoader, settings *config.Settings, deps *Dependencies, notifier ChangeNotifier) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		loader:   loader,
		notifier: notifier,
		deps:     deps,
		settings: settings,
		synced:   make(map[string]string),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			if err := s.RunOnce(s.ctx); err != nil {
				slog.Debug("Polling loop stopped", "error", err)
				return
			}

			interval := s.Settings().GetUpdateInterval()
			slog.Debug("Sleeping until next cycle", "interval", interval)

			if err := s.deps.sleep(s.ctx, interval); err != nil {
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// RunOnce runs a single polling cycle over all configured feeds. It returns
// an error only when ctx is cancelled.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.reloadIfChanged()

	settings := s.Settings()
	feeds := settings.GetFeeds()
	started := time.Now()

	slog.Info("Checking feeds", "count", len(feeds))

	for i := range feeds {
		if err := ctx.Err(); err != nil {
			return err
		}

		feedConfig := &feeds[i]
		s.syncFeed(ctx, feedConfig)

		if err := s.run(ctx, NewProcessFeedTask(feedConfig, settings.AddPaused, s.deps)); err != nil {
			return err
		}
	}

	metrics.RecordCycle(time.Since(started).Seconds())
	slog.Debug("Cycle completed", "feeds", len(feeds), "duration", time.Since(started))

	return nil
}

func (s *Scheduler) Settings() *config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings
}

func (s *Scheduler) Feeds() []config.FeedConfig {
	return s.Settings().GetFeeds()
}

// reloadIfChanged swaps in a fresh settings document when the watcher saw a
// change. A document that fails to load leaves the current settings active.
func (s *Scheduler) reloadIfChanged() {
	if s.notifier == nil || !s.notifier.Changed() {
		return
	}

	settings, err := s.loader.Load()
	if err != nil {
		slog.Error("Failed to reload configuration, keeping previous settings", "error", err)
		return
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	slog.Info("Configuration reloaded", "feeds", len(settings.Feeds))
}

func (s *Scheduler) syncFeed(ctx context.Context, feedConfig *config.FeedConfig) {
	if s.deps.FeedHistory == nil {
		return
	}

	name := feedConfig.GetName()
	if url, ok := s.synced[name]; ok && url == feedConfig.URL {
		return
	}

	if err := s.run(ctx, NewSyncFeedConfigTask(feedConfig, s.deps.FeedHistory)); err != nil {
		return
	}

	s.synced[name] = feedConfig.URL
}

func (s *Scheduler) run(ctx context.Context, task TaskInterface) error {
	slog.Debug("Running task", "id", task.GetID(), "type", task.GetType(), "feed", task.GetFeedName())

	task.Start()
	return task.Execute(ctx)
}
