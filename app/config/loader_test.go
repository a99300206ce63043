package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	content := `
update_interval: 300
seen_file: /var/lib/transmission-rss/seen
add_paused: true

server:
  host: nas.local
  port: 9092
  rpc_path: /rpc
  tls: true

login:
  username: admin
  password: secret

client:
  timeout: 15

feeds:
  - url: https://example.com/feed.xml
    regexp: "show a"
    exclude:
      - "720p"
      - "cam"
    download_path: /downloads/shows
  - url: https://nyaa.si/?page=rss
    name: nyaa
    link_field: nyaa_infohash
    seen_by_guid: true
    add_paused: false
    delay_time: 3
    validate_cert: false
`

	path := filepath.Join(tempDir, "transmission-rss.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	settings, err := NewLoader(path).Load()
	if err != nil {
		t.Fatal(err)
	}

	if settings.GetUpdateInterval() != 300*time.Second {
		t.Errorf("Expected update interval 300s, got %v", settings.GetUpdateInterval())
	}
	if settings.SeenFile != "/var/lib/transmission-rss/seen" {
		t.Errorf("Expected seen file '/var/lib/transmission-rss/seen', got '%s'", settings.SeenFile)
	}
	if !settings.AddPaused {
		t.Error("Expected add_paused to be true")
	}
	if settings.RPCURL() != "https://nas.local:9092/rpc" {
		t.Errorf("Expected RPC URL 'https://nas.local:9092/rpc', got '%s'", settings.RPCURL())
	}
	if settings.Login.Username != "admin" || settings.Login.Password != "secret" {
		t.Errorf("Unexpected login settings: %+v", settings.Login)
	}
	if settings.GetTimeout() != 15*time.Second {
		t.Errorf("Expected timeout 15s, got %v", settings.GetTimeout())
	}

	feeds := settings.GetFeeds()
	if len(feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(feeds))
	}

	first := feeds[0]
	if first.GetName() != "https://example.com/feed.xml" {
		t.Errorf("Expected name to default to URL, got '%s'", first.GetName())
	}
	if first.GetLinkField() != "link" {
		t.Errorf("Expected default link field 'link', got '%s'", first.GetLinkField())
	}
	if first.Rules.Kind != RuleKindLegacy {
		t.Errorf("Expected legacy rules, got %s", first.Rules.Kind)
	}
	if len(first.Rules.Legacy.Includes) != 1 || first.Rules.Legacy.Includes[0] != "show a" {
		t.Errorf("Unexpected includes: %v", first.Rules.Legacy.Includes)
	}
	if len(first.Rules.Legacy.Excludes) != 2 {
		t.Errorf("Expected 2 excludes, got %v", first.Rules.Legacy.Excludes)
	}
	if first.Rules.Legacy.DownloadPath != "/downloads/shows" {
		t.Errorf("Expected download path '/downloads/shows', got '%s'", first.Rules.Legacy.DownloadPath)
	}
	if !first.IsPaused(settings.AddPaused) {
		t.Error("Expected first feed to inherit add_paused=true")
	}
	if !first.ShouldValidateCert() {
		t.Error("Expected certificate validation by default")
	}

	second := feeds[1]
	if second.GetName() != "nyaa" {
		t.Errorf("Expected name 'nyaa', got '%s'", second.GetName())
	}
	if second.GetLinkField() != "nyaa_infohash" {
		t.Errorf("Expected link field 'nyaa_infohash', got '%s'", second.GetLinkField())
	}
	if !second.SeenByGUID {
		t.Error("Expected seen_by_guid to be true")
	}
	if second.IsPaused(settings.AddPaused) {
		t.Error("Expected feed add_paused=false to override global setting")
	}
	if second.GetDelayTime() != 3*time.Second {
		t.Errorf("Expected delay 3s, got %v", second.GetDelayTime())
	}
	if second.ShouldValidateCert() {
		t.Error("Expected certificate validation to be disabled")
	}
}

func TestLoadConfigWithDefaults(t *testing.T) {
	settings, err := Parse([]byte(`
feeds:
  - url: https://example.com/feed.xml
`))
	if err != nil {
		t.Fatal(err)
	}

	if settings.GetUpdateInterval() != 600*time.Second {
		t.Errorf("Expected default update interval 600s, got %v", settings.GetUpdateInterval())
	}
	if settings.SeenFile != ".seen" {
		t.Errorf("Expected default seen file '.seen', got '%s'", settings.SeenFile)
	}
	if settings.AddPaused {
		t.Error("Expected add_paused to default to false")
	}
	if settings.RPCURL() != "http://localhost:9091/transmission/rpc" {
		t.Errorf("Expected default RPC URL, got '%s'", settings.RPCURL())
	}
	if settings.GetTimeout() != 5*time.Second {
		t.Errorf("Expected default timeout 5s, got %v", settings.GetTimeout())
	}

	rules := settings.Feeds[0].Rules
	if rules.Kind != RuleKindLegacy || len(rules.Legacy.Includes) != 0 || len(rules.Legacy.Excludes) != 0 {
		t.Errorf("Expected empty legacy rules, got %+v", rules)
	}
}

func TestGetOption(t *testing.T) {
	settings, err := Parse([]byte(`
update_interval: 120
server:
  host: example.org
`))
	if err != nil {
		t.Fatal(err)
	}

	if v := settings.GetOption("update_interval", 600); v != 120 {
		t.Errorf("Expected 120, got %v", v)
	}
	if v := settings.GetOption("seen_file", ".seen"); v != ".seen" {
		t.Errorf("Expected default '.seen', got %v", v)
	}
	server, ok := settings.GetOption("server", nil).(map[string]any)
	if !ok {
		t.Fatalf("Expected server section to be a map")
	}
	if server["host"] != "example.org" {
		t.Errorf("Expected host 'example.org', got %v", server["host"])
	}
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing feed URL",
			content: `
feeds:
  - regexp: "foo"
`,
		},
		{
			name: "negative update interval",
			content: `
update_interval: -1
`,
		},
		{
			name: "negative delay time",
			content: `
feeds:
  - url: https://example.com/feed.xml
    delay_time: -5
`,
		},
		{
			name: "port out of range",
			content: `
server:
  port: 70000
`,
		},
		{
			name: "regexp mapping",
			content: `
feeds:
  - url: https://example.com/feed.xml
    regexp:
      matcher: foo
`,
		},
		{
			name:    "malformed YAML",
			content: "feeds: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.content)); err == nil {
				t.Error("Expected error for invalid configuration")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yml")).Load()
	if err == nil {
		t.Error("Expected error for missing configuration file")
	}
}

func TestLoadExampleConfig(t *testing.T) {
	settings, err := NewLoader(filepath.Join("..", "..", "transmission-rss.conf.example")).Load()
	if err != nil {
		t.Fatal(err)
	}

	feeds := settings.GetFeeds()
	if len(feeds) != 3 {
		t.Fatalf("Expected 3 feeds, got %d", len(feeds))
	}

	if feeds[0].Rules.Kind != RuleKindLegacy || feeds[0].GetLinkField() != "enclosure" {
		t.Errorf("Expected legacy enclosure feed, got %v %s", feeds[0].Rules.Kind, feeds[0].GetLinkField())
	}
	if feeds[1].Rules.Kind != RuleKindAdvanced || len(feeds[1].Rules.Matchers) != 2 {
		t.Errorf("Expected 2 advanced matchers, got %v %d", feeds[1].Rules.Kind, len(feeds[1].Rules.Matchers))
	}
	if feeds[1].Rules.Matchers[1].Exclude != "REPACK" {
		t.Errorf("Expected exclude 'REPACK', got '%s'", feeds[1].Rules.Matchers[1].Exclude)
	}
	if len(feeds[2].Rules.Legacy.Includes) != 2 || len(feeds[2].Rules.Legacy.Excludes) != 2 {
		t.Errorf("Expected list rules, got %+v", feeds[2].Rules.Legacy)
	}
	if feeds[2].ShouldValidateCert() || !feeds[2].IsPaused(settings.AddPaused) {
		t.Error("Expected private tracker to skip cert validation and add paused")
	}
	if settings.RPCURL() != "http://localhost:9091/transmission/rpc" {
		t.Errorf("Unexpected RPC URL '%s'", settings.RPCURL())
	}
}
