package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FeedRepository handles database operations for feeds
type FeedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// UpsertFeed registers a configured feed, updating its URL when it changed
func (r *FeedRepository) UpsertFeed(name, url string) error {
	now := formatTime(time.Now())

	_, err := r.db.Exec(`
		INSERT INTO feeds (name, url, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			url = excluded.url,
			updated_at = excluded.updated_at
		WHERE feeds.url != excluded.url
	`, name, url, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

// RecordFetch stores the outcome of one processing run of a feed
func (r *FeedRepository) RecordFetch(name string, result FetchResult) error {
	fetchedAt := result.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	ts := formatTime(fetchedAt)

	var lastSuccess any
	if result.Error == "" {
		lastSuccess = ts
	}

	res, err := r.db.Exec(`
		UPDATE feeds SET
			title = CASE WHEN ? != '' THEN ? ELSE title END,
			last_fetched_at = ?,
			last_success_at = COALESCE(?, last_success_at),
			last_error = ?,
			last_entry_count = ?,
			last_entry_id = CASE WHEN ? != '' THEN ? ELSE last_entry_id END,
			updated_at = ?
		WHERE name = ?
	`, result.Title, result.Title, ts, lastSuccess, result.Error, result.EntryCount,
		result.LastEntryID, result.LastEntryID, ts, name)
	if err != nil {
		return fmt.Errorf("failed to record feed fetch: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record feed fetch: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("feed not found: %s", name)
	}

	return nil
}

// GetFeed returns nil when the feed is unknown
func (r *FeedRepository) GetFeed(name string) (*Feed, error) {
	row := r.db.QueryRow(`
		SELECT name, url, title, last_fetched_at, last_success_at, last_error,
		       last_entry_count, last_entry_id, created_at, updated_at
		FROM feeds
		WHERE name = ?
	`, name)

	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

func (r *FeedRepository) GetFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT name, url, title, last_fetched_at, last_success_at, last_error,
		       last_entry_count, last_entry_id, created_at, updated_at
		FROM feeds
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *FeedRepository) GetFeedCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var (
		feed                     Feed
		lastFetched, lastSuccess sql.NullString
		createdAt, updatedAt     string
	)

	err := row.Scan(
		&feed.Name, &feed.URL, &feed.Title, &lastFetched, &lastSuccess, &feed.LastError,
		&feed.LastEntryCount, &feed.LastEntryID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if feed.LastFetchedAt, err = parseNullTime(lastFetched); err != nil {
		return nil, err
	}
	if feed.LastSuccessAt, err = parseNullTime(lastSuccess); err != nil {
		return nil, err
	}
	if feed.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if feed.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &feed, nil
}
