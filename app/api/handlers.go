package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rss-transmission/app/database"
)

const maxSubmissionLimit = 500

func NewHandler(feeds FeedSource, seen SeenReader, feedRepo FeedHistoryReader,
	submissionRepo SubmissionReader, version string) *Handler {
	return &Handler{
		feeds:          feeds,
		seen:           seen,
		feedRepo:       feedRepo,
		submissionRepo: submissionRepo,
		version:        version,
		generator:      NewGenerator(version),
		startedAt:      time.Now(),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"feeds": len(h.feeds.Feeds()),
		"seen":  h.seen.Len(),
	}

	if h.feedRepo != nil {
		if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
			stats["known_feeds"] = feedCount
		}
	}

	if h.submissionRepo != nil {
		submissionStats, err := h.submissionRepo.GetSubmissionStats()
		if err != nil {
			slog.Error("Database error", "operation", "get_submission_stats", "error", err)
		} else {
			stats["submissions"] = gin.H{
				"total":     submissionStats.Total,
				"succeeded": submissionStats.Succeeded,
				"failed":    submissionStats.Failed,
			}
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.feeds.Feeds()

	feeds := make([]gin.H, 0, len(configs))
	for _, feedConfig := range configs {
		name := feedConfig.GetName()
		feedInfo := gin.H{
			"name":          name,
			"url":           feedConfig.URL,
			"link_field":    feedConfig.GetLinkField(),
			"seen_by_guid":  feedConfig.SeenByGUID,
			"use_hash":      feedConfig.UseHash,
			"validate_cert": feedConfig.ShouldValidateCert(),
			"delay_time":    feedConfig.GetDelayTime().String(),
			"rules":         feedConfig.Rules.Kind.String(),
		}

		if h.feedRepo != nil {
			feed, err := h.feedRepo.GetFeed(name)
			if err != nil {
				slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
			} else if feed != nil {
				feedInfo["title"] = feed.Title
				feedInfo["last_fetched_at"] = feed.LastFetchedAt
				feedInfo["last_success_at"] = feed.LastSuccessAt
				feedInfo["last_error"] = feed.LastError
				feedInfo["last_entry_count"] = feed.LastEntryCount
				feedInfo["last_entry_id"] = feed.LastEntryID
			}
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIListSubmissions(c *gin.Context) {
	if h.submissionRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History database is disabled"})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	submissions, err := h.submissionRepo.GetRecentSubmissions(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_submissions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]gin.H, 0, len(submissions))
	for _, s := range submissions {
		items = append(items, gin.H{
			"feed":         s.FeedName,
			"identity":     s.Identity,
			"title":        s.Title,
			"payload":      s.Payload,
			"download_dir": s.DownloadDir,
			"paused":       s.Paused,
			"result":       s.Result,
			"error":        s.Error,
			"succeeded":    s.Succeeded(),
			"created_at":   s.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": items,
		"total":       len(items),
	})
}

func (h *Handler) APISubmissionsFeed(c *gin.Context) {
	if h.submissionRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History database is disabled"})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	submissions, err := h.submissionRepo.GetRecentSubmissions(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_submissions", "error", err)
		c.String(http.StatusInternalServerError, "Database error")
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	selfLink := fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, c.Request.URL.Path)

	rss, err := h.generator.Run(selfLink, submissions)
	if err != nil {
		slog.Error("RSS generation failed", "error", err)
		c.String(http.StatusInternalServerError, "RSS generation failed")
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListSeen(c *gin.Context) {
	items := h.seen.Items()

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

// parseLimit reads the optional limit query parameter and answers 400 when
// it is out of range.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return database.DefaultSubmissionLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxSubmissionLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return 0, false
	}

	return limit, true
}
