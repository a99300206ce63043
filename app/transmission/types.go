package transmission

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	SessionIDHeader = "X-Transmission-Session-Id"
	ResultSuccess   = "success"

	DefaultTimeout = 5 * time.Second
)

var (
	ErrTransport         = errors.New("transport error")
	ErrMalformedResponse = errors.New("malformed RPC response")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTooManyRequests   = errors.New("too many requests")
)

// StatusError is returned for HTTP responses other than 2xx and the
// session renewal 409
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected RPC status: %s", e.Status)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrTooManyRequests:
		return e.Code == http.StatusTooManyRequests
	}
	return false
}

type Options struct {
	URL       string
	Username  string
	Password  string
	Timeout   time.Duration
	UserAgent string
}

type TorrentInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	HashString string `json:"hashString"`
}

// AddResult is the server's answer to torrent-add
type AddResult struct {
	Result   string
	Added    *TorrentInfo
	Existing *TorrentInfo
}

func (r *AddResult) Succeeded() bool {
	return r.Result == ResultSuccess
}

// Duplicate reports whether the server already had the torrent
func (r *AddResult) Duplicate() bool {
	return r.Existing != nil
}

func (r *AddResult) Torrent() *TorrentInfo {
	if r.Added != nil {
		return r.Added
	}
	return r.Existing
}

type rpcRequest struct {
	Method    string         `json:"method"`
	Arguments addTorrentArgs `json:"arguments"`
}

type addTorrentArgs struct {
	Filename    string `json:"filename"`
	Paused      bool   `json:"paused"`
	DownloadDir string `json:"download-dir,omitempty"`
}

type rpcResponse struct {
	Result    *string `json:"result"`
	Arguments struct {
		TorrentAdded     *TorrentInfo `json:"torrent-added"`
		TorrentDuplicate *TorrentInfo `json:"torrent-duplicate"`
	} `json:"arguments"`
}
