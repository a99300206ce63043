package database

import (
	"fmt"
	"time"
)

const DefaultSubmissionLimit = 50

// SubmissionRepository keeps a log of torrent-add attempts
type SubmissionRepository struct {
	db *DB
}

func NewSubmissionRepository(db *DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) RecordSubmission(s Submission) error {
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO submissions (
			feed_name, identity, title, payload, download_dir, paused, result, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.FeedName, s.Identity, s.Title, s.Payload, s.DownloadDir, s.Paused, s.Result, s.Error,
		formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}

	return nil
}

// GetRecentSubmissions returns the newest submissions first
func (r *SubmissionRepository) GetRecentSubmissions(limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = DefaultSubmissionLimit
	}

	rows, err := r.db.Query(`
		SELECT id, feed_name, identity, title, payload, download_dir, paused, result, error, created_at
		FROM submissions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	defer rows.Close()

	var submissions []Submission
	for rows.Next() {
		var (
			s         Submission
			createdAt string
		)
		err := rows.Scan(&s.ID, &s.FeedName, &s.Identity, &s.Title, &s.Payload, &s.DownloadDir,
			&s.Paused, &s.Result, &s.Error, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}

	return submissions, nil
}

func (r *SubmissionRepository) GetSubmissionStats() (*SubmissionStats, error) {
	var stats SubmissionStats

	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN result = 'success' THEN 1 ELSE 0 END), 0)
		FROM submissions
	`).Scan(&stats.Total, &stats.Succeeded)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission stats: %w", err)
	}

	stats.Failed = stats.Total - stats.Succeeded

	return &stats, nil
}
