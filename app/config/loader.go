package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultUpdateInterval = 600 // seconds
	DefaultSeenFile       = ".seen"
	DefaultHost           = "localhost"
	DefaultPort           = 9091
	DefaultRPCPath        = "/transmission/rpc"
	DefaultClientTimeout  = 5 // seconds
	DefaultLinkField      = "link"
)

// Loader reads and validates the settings document
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) Path() string {
	return l.path
}

func (l *Loader) Load() (*Settings, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	settings, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", l.path, err)
	}

	slog.Debug("Configuration loaded", "path", l.path, "feeds", len(settings.Feeds))

	return settings, nil
}

// Parse decodes a settings document, applies defaults and validates it
func Parse(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings.raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&settings)

	if err := validate(&settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

func setDefaults(s *Settings) {
	if s.UpdateInterval == 0 {
		s.UpdateInterval = DefaultUpdateInterval
	}
	if s.SeenFile == "" {
		s.SeenFile = DefaultSeenFile
	}
	if s.Server.Host == "" {
		s.Server.Host = DefaultHost
	}
	if s.Server.Port == 0 {
		s.Server.Port = DefaultPort
	}
	if s.Server.RPCPath == "" {
		s.Server.RPCPath = DefaultRPCPath
	}
	if s.Client.Timeout == 0 {
		s.Client.Timeout = DefaultClientTimeout
	}
	for i := range s.Feeds {
		if s.Feeds[i].LinkField == "" {
			s.Feeds[i].LinkField = DefaultLinkField
		}
	}
}

func validate(s *Settings) error {
	nonNegativeFields := map[string]int{
		"update interval": s.UpdateInterval,
		"client timeout":  s.Client.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if s.Server.Port < 1 || s.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", s.Server.Port)
	}

	for i, feed := range s.Feeds {
		if feed.URL == "" {
			return fmt.Errorf("feed URL is required at index %d", i)
		}
		if feed.DelayTime < 0 {
			return fmt.Errorf("delay time must be non-negative at index %d", i)
		}
		if feed.Rules.Kind == RuleKindAdvanced {
			for j, m := range feed.Rules.Matchers {
				if m.Include == "" {
					slog.Warn("Matcher without pattern is disabled", "feed", feed.GetName(), "index", j)
				}
			}
		}
	}

	return nil
}
