package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/rss-transmission/app/config"
	"github.com/lysyi3m/rss-transmission/app/database"
	"github.com/lysyi3m/rss-transmission/app/feed"
	"github.com/lysyi3m/rss-transmission/app/metrics"
	"github.com/lysyi3m/rss-transmission/app/transmission"
)

// ProcessFeedTask fetches one feed and submits every new matching entry.
// Problems with the feed or with single entries are logged and absorbed;
// Execute only fails when ctx is cancelled.
type ProcessFeedTask struct {
	Task
	FeedConfig   *config.FeedConfig
	globalPaused bool
	deps         *Dependencies
	stats        feedStats
}

type feedStats struct {
	total   int
	seen    int
	skipped int
	added   int
	failed  int
}

func NewProcessFeedTask(feedConfig *config.FeedConfig, globalPaused bool, deps *Dependencies) *ProcessFeedTask {
	return &ProcessFeedTask{
		Task:         NewTask(TaskTypeProcessFeed, feedConfig.GetName()),
		FeedConfig:   feedConfig,
		globalPaused: globalPaused,
		deps:         deps,
	}
}

func (t *ProcessFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.stats = feedStats{}

	// Shutdown is honoured between entries and feeds only. Requests already
	// started run to completion, bounded by their own timeouts.
	data, err := t.deps.Fetcher.Run(context.WithoutCancel(ctx), t.FeedConfig.URL, t.FeedConfig.ShouldValidateCert())
	if err != nil {
		t.fail("fetch", err)
		return nil
	}

	metadata, entries, err := t.deps.Parser.Run(data)
	if err != nil {
		t.fail("parse", err)
		return nil
	}

	matcher, err := feed.CompileMatcher(t.FeedConfig.Rules)
	if err != nil {
		t.fail("rules", err)
		return nil
	}

	t.stats.total = len(entries)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := t.processEntry(ctx, matcher, entry); err != nil {
			return err
		}
	}

	lastEntryID := t.lastEntryID(entries)
	if lastEntryID != "" {
		slog.Debug("Most recent entry", "feed", t.FeedName, "identity", lastEntryID)
	}

	t.recordFetch(database.FetchResult{
		Title:       metadata.Title,
		EntryCount:  len(entries),
		LastEntryID: lastEntryID,
	})
	metrics.RecordFeedFetch(t.FeedName, "success", t.GetDuration().Seconds())

	slog.Info("Task completed",
		"type", "ProcessFeed",
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"total", t.stats.total,
		"seen", t.stats.seen,
		"skipped", t.stats.skipped,
		"added", t.stats.added,
		"failed", t.stats.failed)

	return nil
}

// processEntry returns an error only when ctx was cancelled during the
// post-submission delay.
func (t *ProcessFeedTask) processEntry(ctx context.Context, matcher *feed.Matcher, entry feed.Entry) error {
	title := entry.Title()

	id, err := t.identity(entry)
	if err != nil {
		slog.Warn("Entry has no identity, skipping", "feed", t.FeedName, "title", title, "error", err)
		t.skip("no_identity")
		return nil
	}

	if t.deps.Seen.Contains(id) {
		t.stats.seen++
		return nil
	}

	downloadDir, ok := matcher.Select(title)
	if !ok {
		t.skip("no_match")
		return nil
	}

	payload, err := t.payload(entry)
	if err != nil {
		slog.Warn("Entry has no payload, skipping", "feed", t.FeedName, "title", title, "error", err)
		t.skip("no_payload")
		return nil
	}

	paused := t.FeedConfig.IsPaused(t.globalPaused)
	submission := database.Submission{
		FeedName:    t.FeedName,
		Identity:    id,
		Title:       title,
		Payload:     payload,
		DownloadDir: downloadDir,
		Paused:      paused,
	}

	result, err := t.deps.Client.AddTorrent(context.WithoutCancel(ctx), payload, paused, downloadDir)
	if err != nil {
		t.stats.failed++
		submission.Error = err.Error()
		t.recordSubmission(submission, "error")

		if errors.Is(err, transmission.ErrTooManyRequests) {
			slog.Warn("Server is rate limiting, consider setting delay_time for this feed", "feed", t.FeedName, "title", title)
		} else {
			slog.Error("Failed to add torrent", "feed", t.FeedName, "title", title, "payload", payload, "error", err)
		}
		return nil
	}

	submission.Result = result.Result
	if !result.Succeeded() {
		t.stats.failed++
		t.recordSubmission(submission, "rejected")
		slog.Error("Torrent rejected by server", "feed", t.FeedName, "title", title, "payload", payload, "result", result.Result)
		return nil
	}

	t.stats.added++
	if err := t.deps.Seen.MarkAndPersist(id); err != nil {
		slog.Error("Failed to persist seen store", "feed", t.FeedName, "identity", id, "error", err)
	}
	metrics.SetSeenEntries(t.deps.Seen.Len())
	t.recordSubmission(submission, "success")

	slog.Info("Torrent added",
		"feed", t.FeedName,
		"title", title,
		"payload", payload,
		"download_dir", downloadDir,
		"paused", paused,
		"duplicate", result.Duplicate())

	if delay := t.FeedConfig.GetDelayTime(); delay > 0 {
		slog.Debug("Delaying next submission", "feed", t.FeedName, "delay", delay)
		if err := t.deps.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return nil
}

// identity is the guid when seen_by_guid is set, the link_field value otherwise
func (t *ProcessFeedTask) identity(entry feed.Entry) (string, error) {
	field := t.FeedConfig.GetLinkField()
	if t.FeedConfig.SeenByGUID {
		field = "guid"
	}

	value, err := entry.Get(field)
	if err != nil {
		return "", err
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty %s attribute", field)
	}

	return value, nil
}

// payload is what gets sent as the torrent-add filename
func (t *ProcessFeedTask) payload(entry feed.Entry) (string, error) {
	if t.FeedConfig.UseHash {
		if hash := feed.ExtractInfoHash(entry); hash != "" {
			return feed.MagnetLink(hash, entry.Title()), nil
		}
		slog.Debug("No info hash found, using link field", "feed", t.FeedName, "title", entry.Title())
	}

	field := t.FeedConfig.GetLinkField()
	value, err := entry.Get(field)
	if err != nil {
		return "", err
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty %s attribute", field)
	}

	return value, nil
}

// lastEntryID is the identity of the first entry, feeds list newest first
func (t *ProcessFeedTask) lastEntryID(entries []feed.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	id, _ := t.identity(entries[0])
	return id
}

func (t *ProcessFeedTask) fail(stage string, err error) {
	slog.Error("Task failed", "type", "ProcessFeed", "feed", t.FeedName, "stage", stage, "error", err)

	metrics.RecordFeedError(t.FeedName, stage)
	metrics.RecordFeedFetch(t.FeedName, "error", t.GetDuration().Seconds())

	t.recordFetch(database.FetchResult{Error: fmt.Sprintf("%s: %v", stage, err)})
}

func (t *ProcessFeedTask) skip(reason string) {
	t.stats.skipped++
	metrics.RecordSkipped(t.FeedName, reason)
}

func (t *ProcessFeedTask) recordFetch(result database.FetchResult) {
	if t.deps.FeedHistory == nil {
		return
	}

	result.FetchedAt = time.Now()
	if err := t.deps.FeedHistory.RecordFetch(t.FeedName, result); err != nil {
		slog.Warn("Failed to record feed history", "feed", t.FeedName, "error", err)
	}
}

func (t *ProcessFeedTask) recordSubmission(submission database.Submission, status string) {
	metrics.RecordSubmission(t.FeedName, status)

	if t.deps.Submissions == nil {
		return
	}

	if err := t.deps.Submissions.RecordSubmission(submission); err != nil {
		slog.Warn("Failed to record submission", "feed", t.FeedName, "identity", submission.Identity, "error", err)
	}
}
