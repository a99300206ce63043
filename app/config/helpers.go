package config

import (
	"cmp"
	"fmt"
	"time"
)

// GetUpdateInterval returns the polling interval as time.Duration
func (s *Settings) GetUpdateInterval() time.Duration {
	if s.UpdateInterval <= 0 {
		return DefaultUpdateInterval * time.Second
	}
	return time.Duration(s.UpdateInterval) * time.Second
}

// GetTimeout returns the RPC client timeout as time.Duration
func (s *Settings) GetTimeout() time.Duration {
	if s.Client.Timeout <= 0 {
		return DefaultClientTimeout * time.Second
	}
	return time.Duration(s.Client.Timeout) * time.Second
}

// RPCURL builds the Transmission RPC endpoint address
func (s *Settings) RPCURL() string {
	scheme := "http"
	if s.Server.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, s.Server.Host, s.Server.Port, s.Server.RPCPath)
}

// GetFeeds returns the configured feeds in document order
func (s *Settings) GetFeeds() []FeedConfig {
	return s.Feeds
}

// GetOption returns a top-level value of the settings document, or def when
// the key is absent.
func (s *Settings) GetOption(key string, def any) any {
	if v, ok := s.raw[key]; ok && v != nil {
		return v
	}
	return def
}

func (f *FeedConfig) GetName() string {
	return cmp.Or(f.Name, f.URL)
}

func (f *FeedConfig) GetLinkField() string {
	return cmp.Or(f.LinkField, DefaultLinkField)
}

// IsPaused reports whether torrents from this feed are added paused; the
// feed setting wins over the global one.
func (f *FeedConfig) IsPaused(global bool) bool {
	if f.AddPaused != nil {
		return *f.AddPaused
	}
	return global
}

func (f *FeedConfig) GetDelayTime() time.Duration {
	if f.DelayTime <= 0 {
		return 0
	}
	return time.Duration(f.DelayTime) * time.Second
}

func (f *FeedConfig) ShouldValidateCert() bool {
	return f.ValidateCert == nil || *f.ValidateCert
}
