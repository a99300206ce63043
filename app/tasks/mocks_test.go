package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lysyi3m/rss-transmission/app/config"
	"github.com/lysyi3m/rss-transmission/app/database"
	"github.com/lysyi3m/rss-transmission/app/feed"
	"github.com/lysyi3m/rss-transmission/app/transmission"
)

type addCall struct {
	filename    string
	paused      bool
	downloadDir string
}

type mockClient struct {
	calls   []addCall
	results map[string]*transmission.AddResult
	errs    map[string]error
}

func newMockClient() *mockClient {
	return &mockClient{
		results: make(map[string]*transmission.AddResult),
		errs:    make(map[string]error),
	}
}

func (m *mockClient) AddTorrent(ctx context.Context, filename string, paused bool, downloadDir string) (*transmission.AddResult, error) {
	m.calls = append(m.calls, addCall{filename: filename, paused: paused, downloadDir: downloadDir})

	if err, ok := m.errs[filename]; ok {
		return nil, err
	}
	if result, ok := m.results[filename]; ok {
		return result, nil
	}
	return &transmission.AddResult{Result: transmission.ResultSuccess}, nil
}

func (m *mockClient) filenames() []string {
	names := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		names = append(names, c.filename)
	}
	return names
}

type mockSeen struct {
	ids        map[string]bool
	persistErr error
	persisted  []string
}

func newMockSeen(ids ...string) *mockSeen {
	m := &mockSeen{ids: make(map[string]bool)}
	for _, id := range ids {
		m.ids[id] = true
	}
	return m
}

func (m *mockSeen) Contains(id string) bool {
	return m.ids[id]
}

func (m *mockSeen) MarkAndPersist(id string) error {
	if id == "" {
		return nil
	}
	m.ids[id] = true
	if m.persistErr != nil {
		return m.persistErr
	}
	m.persisted = append(m.persisted, id)
	return nil
}

func (m *mockSeen) Len() int {
	return len(m.ids)
}

// mockFeeds serves one entry list per feed URL
type mockFeeds struct {
	mu       sync.Mutex
	entries  map[string][]feed.Entry
	errs     map[string]error
	fetched  []string
	insecure []string
}

func newMockFeeds() *mockFeeds {
	return &mockFeeds{
		entries: make(map[string][]feed.Entry),
		errs:    make(map[string]error),
	}
}

func (m *mockFeeds) Run(ctx context.Context, url string, validateCert bool) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetched = append(m.fetched, url)
	if !validateCert {
		m.insecure = append(m.insecure, url)
	}
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	return []byte(url), nil
}

func (m *mockFeeds) parser() *mockParser {
	return &mockParser{feeds: m}
}

func (m *mockFeeds) fetchedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.fetched...)
}

// mockParser treats the fetched bytes as the feed URL
type mockParser struct {
	feeds *mockFeeds
	err   error
}

func (m *mockParser) Run(data []byte) (*feed.Metadata, []feed.Entry, error) {
	if m.err != nil {
		return nil, nil, m.err
	}

	m.feeds.mu.Lock()
	defer m.feeds.mu.Unlock()

	return &feed.Metadata{Title: "Test Feed"}, m.feeds.entries[string(data)], nil
}

type mockFeedHistory struct {
	upserts []string
	fetches map[string][]database.FetchResult
}

func newMockFeedHistory() *mockFeedHistory {
	return &mockFeedHistory{fetches: make(map[string][]database.FetchResult)}
}

func (m *mockFeedHistory) UpsertFeed(name, url string) error {
	m.upserts = append(m.upserts, name)
	return nil
}

func (m *mockFeedHistory) RecordFetch(name string, result database.FetchResult) error {
	m.fetches[name] = append(m.fetches[name], result)
	return nil
}

type mockSubmissions struct {
	submissions []database.Submission
}

func (m *mockSubmissions) RecordSubmission(s database.Submission) error {
	m.submissions = append(m.submissions, s)
	return nil
}

type mockLoader struct {
	settings *config.Settings
	err      error
	calls    int
}

func (m *mockLoader) Load() (*config.Settings, error) {
	m.calls++
	return m.settings, m.err
}

type mockNotifier struct {
	changed bool
}

func (m *mockNotifier) Changed() bool {
	changed := m.changed
	m.changed = false
	return changed
}

type sleepRecorder struct {
	durations []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return ctx.Err()
}

var errConnectionRefused = errors.New("dial tcp 127.0.0.1:9091: connect: connection refused")

func legacyRules(includes ...string) config.RuleSet {
	return config.RuleSet{Kind: config.RuleKindLegacy, Legacy: config.LegacyRule{Includes: includes}}
}

func boolPtr(b bool) *bool {
	return &b
}

// slowClient accepts every torrent but holds the response until released,
// failing the call if its context is cancelled first.
type slowClient struct {
	mu       sync.Mutex
	started  chan struct{}
	release  chan struct{}
	added    []string
	canceled bool
}

func newSlowClient() *slowClient {
	return &slowClient{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (c *slowClient) AddTorrent(ctx context.Context, filename string, paused bool, downloadDir string) (*transmission.AddResult, error) {
	c.mu.Lock()
	c.added = append(c.added, filename)
	c.mu.Unlock()

	select {
	case c.started <- struct{}{}:
	default:
	}

	select {
	case <-c.release:
		return &transmission.AddResult{Result: transmission.ResultSuccess}, nil
	case <-ctx.Done():
		c.mu.Lock()
		c.canceled = true
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}
