// Package transmission is a minimal Transmission RPC client that adds
// torrents and keeps the CSRF session token fresh.
//
// The token is requested lazily, cached in memory and renewed once per call
// when the server answers 409 Conflict. Calls are expected to be serialized
// by the caller; the token itself is safe to read concurrently.
package transmission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
)

const maxResponseSize = 1 << 20

type Client struct {
	url        string
	username   string
	password   string
	userAgent  string
	httpClient *http.Client

	mu        sync.RWMutex
	sessionID string
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		url:        opts.URL,
		username:   opts.Username,
		password:   opts.Password,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.sessionID
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessionID = id
}

// AddTorrent submits filename (a URL, magnet link or path the server can
// resolve) with torrent-add. An empty downloadDir leaves the server default.
func (c *Client) AddTorrent(ctx context.Context, filename string, paused bool, downloadDir string) (*AddResult, error) {
	if c.SessionID() == "" {
		if err := c.fetchSessionID(ctx); err != nil {
			slog.Debug("Failed to obtain session id", "url", c.url, "error", err)
		}
	}

	body, err := json.Marshal(rpcRequest{
		Method: "torrent-add",
		Arguments: addTorrentArgs{
			Filename:    filename,
			Paused:      paused,
			DownloadDir: downloadDir,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusConflict {
		resp.Body.Close()
		c.setSessionID(resp.Header.Get(SessionIDHeader))
		slog.Debug("Session id renewed", "url", c.url)

		resp, err = c.post(ctx, body)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	return decodeAddResponse(resp)
}

func (c *Client) fetchSessionID(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	id := resp.Header.Get(SessionIDHeader)
	if id == "" {
		return fmt.Errorf("no %s header in response (status %d)", SessionIDHeader, resp.StatusCode)
	}

	c.setSessionID(id)
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id := c.SessionID(); id != "" {
		req.Header.Set(SessionIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	return req, nil
}

func decodeAddResponse(resp *http.Response) (*AddResult, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	var payload rpcResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if payload.Result == nil {
		return nil, fmt.Errorf("%w: missing result field", ErrMalformedResponse)
	}

	return &AddResult{
		Result:   *payload.Result,
		Added:    payload.Arguments.TorrentAdded,
		Existing: payload.Arguments.TorrentDuplicate,
	}, nil
}
