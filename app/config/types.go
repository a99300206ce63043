package config

// Settings is the parsed settings document
type Settings struct {
	UpdateInterval int            `yaml:"update_interval"` // seconds
	SeenFile       string         `yaml:"seen_file"`
	AddPaused      bool           `yaml:"add_paused"`
	Server         ServerSettings `yaml:"server"`
	Login          LoginSettings  `yaml:"login"`
	Client         ClientSettings `yaml:"client"`
	Feeds          []FeedConfig   `yaml:"feeds"`

	raw map[string]any
}

type ServerSettings struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	RPCPath string `yaml:"rpc_path"`
	TLS     bool   `yaml:"tls"`
}

type LoginSettings struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type ClientSettings struct {
	Timeout int `yaml:"timeout"` // seconds
}

// FeedConfig describes one polled feed. Rules is resolved from the
// regexp/exclude/download_path keys when the document is decoded.
type FeedConfig struct {
	Name         string  `yaml:"name"`
	URL          string  `yaml:"url"`
	LinkField    string  `yaml:"link_field"`
	SeenByGUID   bool    `yaml:"seen_by_guid"`
	AddPaused    *bool   `yaml:"add_paused"`
	DelayTime    int     `yaml:"delay_time"` // seconds
	UseHash      bool    `yaml:"use_hash"`
	ValidateCert *bool   `yaml:"validate_cert"`
	Rules        RuleSet `yaml:"-"`
}

type RuleKind int

const (
	RuleKindLegacy RuleKind = iota
	RuleKindAdvanced
)

func (k RuleKind) String() string {
	if k == RuleKindAdvanced {
		return "advanced"
	}
	return "legacy"
}

// RuleSet is either a Legacy rule applied to every entry of the feed or an
// ordered list of Matchers, depending on Kind.
type RuleSet struct {
	Kind     RuleKind
	Legacy   LegacyRule
	Matchers []MatcherRule
}

type LegacyRule struct {
	Includes     []string
	Excludes     []string
	DownloadPath string
}

type MatcherRule struct {
	Include      string `yaml:"matcher"`
	Exclude      string `yaml:"exclude"`
	DownloadPath string `yaml:"download_path"`
}
