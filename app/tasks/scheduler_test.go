package tasks

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/lysyi3m/rss-transmission/app/config"
	"github.com/lysyi3m/rss-transmission/app/feed"
)

func newTestSettings(urls ...string) *config.Settings {
	settings := &config.Settings{UpdateInterval: 600}
	for _, url := range urls {
		settings.Feeds = append(settings.Feeds, config.FeedConfig{
			URL:       url,
			LinkField: config.DefaultLinkField,
			Rules:     legacyRules(),
		})
	}
	return settings
}

func TestScheduler_RunOnceProcessesFeedsInOrder(t *testing.T) {
	env := newTestEnv()
	env.feeds.entries["https://a.example.com/rss"] = []feed.Entry{{"title": "A", "link": "a1"}}
	env.feeds.entries["https://b.example.com/rss"] = []feed.Entry{{"title": "B", "link": "b1"}}
	env.feeds.errs["https://c.example.com/rss"] = errors.New("connection refused")
	env.feeds.entries["https://d.example.com/rss"] = []feed.Entry{{"title": "D", "link": "d1"}}

	settings := newTestSettings(
		"https://a.example.com/rss",
		"https://b.example.com/rss",
		"https://c.example.com/rss",
		"https://d.example.com/rss",
	)
	scheduler := NewScheduler(&mockLoader{}, settings, env.deps, nil)

	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := env.client.filenames(); !slices.Equal(got, []string{"a1", "b1", "d1"}) {
		t.Errorf("Expected a1, b1, d1 in order, got %v", got)
	}
	if len(env.history.upserts) != 4 {
		t.Errorf("Expected 4 feeds synced, got %d", len(env.history.upserts))
	}

	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(env.history.upserts) != 4 {
		t.Errorf("Expected feeds to be synced once, got %d upserts", len(env.history.upserts))
	}
}

func TestScheduler_RunOnceCancelled(t *testing.T) {
	env := newTestEnv()
	scheduler := NewScheduler(&mockLoader{}, newTestSettings(testFeedURL), env.deps, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := scheduler.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(env.feeds.fetchedURLs()) != 0 {
		t.Error("Expected no feed to be fetched after cancellation")
	}
}

func TestScheduler_ReloadOnChange(t *testing.T) {
	env := newTestEnv()
	env.feeds.entries["https://new.example.com/rss"] = []feed.Entry{{"title": "New", "link": "n1"}}

	loader := &mockLoader{settings: newTestSettings("https://new.example.com/rss")}
	notifier := &mockNotifier{}
	scheduler := NewScheduler(loader, newTestSettings(testFeedURL), env.deps, notifier)

	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if loader.calls != 0 {
		t.Errorf("Expected no reload without change, got %d", loader.calls)
	}

	notifier.changed = true
	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	if loader.calls != 1 {
		t.Errorf("Expected 1 reload, got %d", loader.calls)
	}
	if got := scheduler.Feeds(); len(got) != 1 || got[0].URL != "https://new.example.com/rss" {
		t.Errorf("Expected reloaded feeds, got %+v", got)
	}
	if got := env.client.filenames(); !slices.Equal(got, []string{"n1"}) {
		t.Errorf("Expected n1 from reloaded feed, got %v", got)
	}
}

func TestScheduler_ReloadErrorKeepsSettings(t *testing.T) {
	env := newTestEnv()
	loader := &mockLoader{err: errors.New("failed to parse YAML")}
	notifier := &mockNotifier{changed: true}
	settings := newTestSettings(testFeedURL)
	scheduler := NewScheduler(loader, settings, env.deps, notifier)

	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	if scheduler.Settings() != settings {
		t.Error("Expected previous settings to be kept")
	}
	if got := env.feeds.fetchedURLs(); !slices.Equal(got, []string{testFeedURL}) {
		t.Errorf("Expected previous feed to be fetched, got %v", got)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	env := newTestEnv()
	cycles := make(chan time.Duration, 10)
	env.deps.Sleep = func(ctx context.Context, d time.Duration) error {
		cycles <- d
		<-ctx.Done()
		return ctx.Err()
	}

	scheduler := NewScheduler(&mockLoader{}, newTestSettings(testFeedURL), env.deps, nil)
	scheduler.Start()

	select {
	case d := <-cycles:
		if d != 600*time.Second {
			t.Errorf("Expected update interval 600s, got %v", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected first cycle to complete")
	}

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected scheduler to stop")
	}

	if got := env.feeds.fetchedURLs(); len(got) != 1 {
		t.Errorf("Expected exactly one cycle, got %d fetches", len(got))
	}
}

func TestScheduler_StopDuringSubmission(t *testing.T) {
	env := newTestEnv(feed.Entry{"title": "Show A", "link": "u1"}, feed.Entry{"title": "Show A", "link": "u2"})
	client := newSlowClient()
	env.deps.Client = client
	env.deps.Sleep = Sleep

	scheduler := NewScheduler(&mockLoader{}, newTestSettings(testFeedURL), env.deps, nil)
	scheduler.Start()

	select {
	case <-client.started:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected submission to start")
	}

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	// let Stop cancel the scheduler while the server is still answering
	time.Sleep(100 * time.Millisecond)
	close(client.release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected scheduler to stop")
	}

	if client.canceled {
		t.Error("Expected in-flight submission not to be cancelled")
	}
	if !env.seen.Contains("u1") {
		t.Error("Expected accepted entry to be marked seen")
	}
	if len(client.added) != 1 {
		t.Errorf("Expected no further submissions after stop, got %v", client.added)
	}
	if env.seen.Contains("u2") {
		t.Error("Expected second entry to wait for the next run")
	}
}
