package cfg

type Cfg struct {
	// Settings document
	ConfigPath  string
	WatchConfig bool

	// Run mode
	Once bool

	// Status server
	ListenAddr   string
	APIAccessKey string

	// History database, empty disables it
	DBPath string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	LogFormat string
	Version   string
}
