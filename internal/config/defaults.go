package config

const (
	defaultConfigPath          = "~/.config/folio/config.toml"
	defaultContentDir          = "public/content"
	defaultStateDir            = "~/.local/share/folio"
	defaultLogDir              = "~/.local/share/folio/logs"
	defaultFallbackSnapshot    = "fallback/profileData.json"
	defaultAPIBind             = "127.0.0.1:5000"
	defaultNotionBaseURL       = "https://api.notion.com/v1"
	defaultNotionVersion       = "2022-06-28"
	defaultNotionTimeout       = 30
	defaultSyncIntervalMinutes = 60
	defaultDownloadTimeout     = 60
	defaultLockTimeout         = 300
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ContentDir:       defaultContentDir,
			StateDir:         defaultStateDir,
			LogDir:           defaultLogDir,
			FallbackSnapshot: defaultFallbackSnapshot,
			APIBind:          defaultAPIBind,
		},
		Notion: Notion{
			BaseURL:        defaultNotionBaseURL,
			Version:        defaultNotionVersion,
			RequestTimeout: defaultNotionTimeout,
		},
		Sync: Sync{
			IntervalMinutes: defaultSyncIntervalMinutes,
			DownloadTimeout: defaultDownloadTimeout,
			LockTimeout:     defaultLockTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			SyncFailures:   true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
