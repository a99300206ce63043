package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-transmission/app/config"
	"github.com/lysyi3m/rss-transmission/app/database"
	"github.com/lysyi3m/rss-transmission/app/feed"
	"github.com/lysyi3m/rss-transmission/app/transmission"
)

// TaskSchedulerInterface defines the interface for the polling loop.
// Example usage:
//
//	scheduler := NewScheduler(loader, settings, deps, watcher)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	RunOnce(ctx context.Context) error
}

type TorrentAdder interface {
	AddTorrent(ctx context.Context, filename string, paused bool, downloadDir string) (*transmission.AddResult, error)
}

type SeenStore interface {
	Contains(id string) bool
	MarkAndPersist(id string) error
	Len() int
}

type FeedFetcher interface {
	Run(ctx context.Context, url string, validateCert bool) ([]byte, error)
}

type FeedParser interface {
	Run(data []byte) (*feed.Metadata, []feed.Entry, error)
}

type FeedHistory interface {
	UpsertFeed(name, url string) error
	RecordFetch(name string, result database.FetchResult) error
}

type SubmissionHistory interface {
	RecordSubmission(s database.Submission) error
}

type SettingsLoader interface {
	Load() (*config.Settings, error)
}

type ChangeNotifier interface {
	Changed() bool
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Dependencies are the collaborators shared by every task. FeedHistory and
// Submissions are optional.
type Dependencies struct {
	Client      TorrentAdder
	Seen        SeenStore
	Fetcher     FeedFetcher
	Parser      FeedParser
	FeedHistory FeedHistory
	Submissions SubmissionHistory
	Sleep       SleepFunc
}

func (d *Dependencies) sleep(ctx context.Context, duration time.Duration) error {
	if d.Sleep != nil {
		return d.Sleep(ctx, duration)
	}
	return Sleep(ctx, duration)
}

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
