package api

import (
	"time"

	"github.com/lysyi3m/rss-transmission/app/config"
	"github.com/lysyi3m/rss-transmission/app/database"
)

type FeedSource interface {
	Feeds() []config.FeedConfig
}

type SeenReader interface {
	Len() int
	Items() []string
}

type FeedHistoryReader interface {
	GetFeed(name string) (*database.Feed, error)
	GetFeedCount() (int, error)
}

type SubmissionReader interface {
	GetRecentSubmissions(limit int) ([]database.Submission, error)
	GetSubmissionStats() (*database.SubmissionStats, error)
}

// Handler serves read-only views of the poller state. The history readers
// are nil when the database is disabled.
type Handler struct {
	feeds          FeedSource
	seen           SeenReader
	feedRepo       FeedHistoryReader
	submissionRepo SubmissionReader
	version        string
	generator      *Generator
	startedAt      time.Time
}
