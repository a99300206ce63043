package database

import (
	"time"
)

type Feed struct {
	Name           string // Feed name from configuration, url when unnamed
	URL            string
	Title          string // Channel title reported by the feed
	LastFetchedAt  *time.Time
	LastSuccessAt  *time.Time
	LastError      string
	LastEntryCount int
	LastEntryID    string // Identity of the most recent entry seen in the last fetch
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FetchResult is what one processing run learned about a feed
type FetchResult struct {
	Title       string
	EntryCount  int
	LastEntryID string
	Error       string
	FetchedAt   time.Time
}

type Submission struct {
	ID          int64
	FeedName    string
	Identity    string
	Title       string
	Payload     string // Value sent as torrent-add filename
	DownloadDir string
	Paused      bool
	Result      string // Server result string, empty on transport errors
	Error       string
	CreatedAt   time.Time
}

func (s Submission) Succeeded() bool {
	return s.Result == "success"
}

type SubmissionStats struct {
	Total     int
	Succeeded int
	Failed    int
}
