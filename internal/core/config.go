package core

import (
	"time"
)

// Default values
const (
	DefaultTeam                = "default"
	DefaultPollInterval        = time.Second
	DefaultRefreshInterval     = 25 * time.Minute
	DefaultExpiryMargin        = 60 * time.Second
	DefaultConfirmTimeoutSecs  = 120
	DefaultMaxConfirmRetries   = 3
	DefaultFloodLimitPerMinute = 10
	DefaultUpNextCount         = 3

	PlayerSourceAppleScript = "applescript"
	PlayerSourceWebAPI      = "webapi"

	CredentialsBackendFile     = "file"
	CredentialsBackendSQLite   = "sqlite"
	CredentialsBackendPostgres = "postgres"
)

type Config struct {
	Telegram    TelegramConfig
	WhatsApp    WhatsAppConfig
	Spotify     SpotifyConfig
	Credentials CredentialsConfig
	Player      PlayerConfig
	Auth        AuthConfig
	LLM         LLMConfig
	Server      ServerConfig
	Log         LogConfig
	App         AppConfig
}

type TelegramConfig struct {
	Enabled  bool
	BotToken string
	GroupID  int64
}

type WhatsAppConfig struct {
	Enabled     bool
	GroupJID    string
	DeviceName  string
	SessionPath string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	PlaylistID   string
	Team         string
}

type CredentialsConfig struct {
	Backend string
	Path    string
	DSN     string
}

type PlayerConfig struct {
	Source       string
	PollInterval time.Duration
	// SampleErrorPolicy is "ignore" or "treat-as-stopped".
	SampleErrorPolicy string
}

type AuthConfig struct {
	RefreshInterval time.Duration
	ExpiryMargin    time.Duration
	Interactive     bool
}

type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	BotName              string
	Language             string
	ConfirmTimeoutSecs   int
	MaxConfirmRetries    int
	FloodLimitPerMinute  int
	AnnounceTrackChanges bool
}

func DefaultConfig() *Config {
	return &Config{
		WhatsApp: WhatsAppConfig{
			DeviceName:  "Dynamite",
			SessionPath: "./whatsapp_session.db",
		},
		Spotify: SpotifyConfig{
			RedirectURL: "http://127.0.0.1:8080/callback",
			Team:        DefaultTeam,
		},
		Credentials: CredentialsConfig{
			Backend: CredentialsBackendFile,
			Path:    "./spotify_token.json",
		},
		Player: PlayerConfig{
			Source:            PlayerSourceAppleScript,
			PollInterval:      DefaultPollInterval,
			SampleErrorPolicy: string(SampleErrorIgnore),
		},
		Auth: AuthConfig{
			RefreshInterval: DefaultRefreshInterval,
			ExpiryMargin:    DefaultExpiryMargin,
			Interactive:     true,
		},
		LLM: LLMConfig{
			Provider: "none",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			BotName:              "mr-dynamite",
			Language:             "en",
			ConfirmTimeoutSecs:   DefaultConfirmTimeoutSecs,
			MaxConfirmRetries:    DefaultMaxConfirmRetries,
			FloodLimitPerMinute:  DefaultFloodLimitPerMinute,
			AnnounceTrackChanges: true,
		},
	}
}
