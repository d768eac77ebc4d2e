// Package main provides the Dynamite CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dynamite/internal/core"
	"dynamite/internal/i18n"
)

const (
	defaultServerHost = "0.0.0.0"
	noneProvider      = "none"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dynamite",
	Short: "Dynamite - chat controlled Spotify playlist",
	Long: `Dynamite watches the local Spotify player and lets a Telegram or WhatsApp group
search, add and reorder tracks of a shared playlist, right after the song that is playing.`,
	RunE: runDynamite,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, text)")

	flags.Bool("telegram-enabled", true, "Enable Telegram integration")
	flags.String("telegram-bot-token", "", "Telegram bot token")
	flags.Int64("telegram-group-id", 0, "Telegram group ID (0 accepts any chat)")
	flags.Bool("whatsapp-enabled", false, "Enable WhatsApp integration")
	flags.String("whatsapp-group-jid", "", "WhatsApp group JID")
	flags.String("whatsapp-device-name", defaults.WhatsApp.DeviceName, "WhatsApp device name")
	flags.String("whatsapp-session-path", defaults.WhatsApp.SessionPath, "WhatsApp session database path")

	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("spotify-redirect-url", "", "Spotify OAuth redirect URL (default derived from the server address)")
	flags.String("spotify-playlist-id", "", "Spotify playlist ID")
	flags.String("spotify-team", defaults.Spotify.Team, "Team the Spotify credential is stored under")

	flags.String("credentials-backend", defaults.Credentials.Backend, "Credential store (file, sqlite, postgres)")
	flags.String("credentials-path", defaults.Credentials.Path, "Credential file or sqlite database path")
	flags.String("credentials-dsn", "", "Postgres connection string for the credential store")

	flags.String("player-source", defaults.Player.Source, "Playback source (applescript, webapi)")
	flags.Duration("player-poll-interval", defaults.Player.PollInterval, "Player sampling interval")
	flags.String("player-sample-error-policy", defaults.Player.SampleErrorPolicy,
		"What a failed player sample means (ignore, treat-as-stopped)")

	flags.Duration("auth-refresh-interval", defaults.Auth.RefreshInterval, "Proactive credential refresh interval")
	flags.Duration("auth-expiry-margin", defaults.Auth.ExpiryMargin, "Refresh credentials this long before they expire")
	flags.Bool("auth-interactive", defaults.Auth.Interactive, "Ask for the authorization code on the console at startup")

	flags.String("llm-provider", noneProvider, "LLM provider for query suggestions (openai, anthropic, ollama, none)")
	flags.String("llm-model", "", "LLM model name")
	flags.String("llm-api-key", "", "LLM API key")
	flags.String("llm-base-url", "", "LLM base URL (ollama or OpenAI compatible endpoints)")

	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")

	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("bot-name", defaults.App.BotName, "Name the bot answers to in groups")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Bot language (%s)", supportedLangs))
	flags.Int("confirm-timeout-secs", defaults.App.ConfirmTimeoutSecs, "Confirmation dialog idle timeout in seconds")
	flags.Int("max-confirm-retries", defaults.App.MaxConfirmRetries, "Unintelligible replies before a dialog is abandoned")
	flags.Int("flood-limit-per-minute", defaults.App.FloodLimitPerMinute, "Maximum commands per user per minute")
	flags.Bool("announce-track-changes", defaults.App.AnnounceTrackChanges, "Announce every new track in the reporting chat")

	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("DYNAMITE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureTelegram(cfg)
	configureWhatsApp(cfg)
	configureServer(cfg)
	configureSpotify(cfg)
	configureCredentials(cfg)
	configurePlayer(cfg)
	configureAuth(cfg)
	configureLLM(cfg)
	configureApp(cfg)

	return cfg
}

func configureTelegram(cfg *core.Config) {
	cfg.Telegram.Enabled = viper.GetBool("telegram-enabled")
	cfg.Telegram.BotToken = viper.GetString("telegram-bot-token")
	cfg.Telegram.GroupID = viper.GetInt64("telegram-group-id")
}

func configureWhatsApp(cfg *core.Config) {
	cfg.WhatsApp.Enabled = viper.GetBool("whatsapp-enabled")
	cfg.WhatsApp.GroupJID = viper.GetString("whatsapp-group-jid")
	cfg.WhatsApp.DeviceName = viper.GetString("whatsapp-device-name")
	cfg.WhatsApp.SessionPath = viper.GetString("whatsapp-session-path")
	if cfg.WhatsApp.SessionPath == "" {
		cfg.WhatsApp.SessionPath = "./whatsapp_session.db"
	}
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

// configureSpotify must run after configureServer, the default redirect URL
// points at the local callback route.
func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.PlaylistID = viper.GetString("spotify-playlist-id")
	cfg.Spotify.Team = viper.GetString("spotify-team")
	if cfg.Spotify.Team == "" {
		cfg.Spotify.Team = core.DefaultTeam
	}

	cfg.Spotify.RedirectURL = viper.GetString("spotify-redirect-url")
	if cfg.Spotify.RedirectURL == "" {
		host := cfg.Server.Host
		if host == defaultServerHost {
			host = "127.0.0.1"
		}
		cfg.Spotify.RedirectURL = fmt.Sprintf("http://%s:%d/callback", host, cfg.Server.Port)
	}
}

func configureCredentials(cfg *core.Config) {
	cfg.Credentials.Backend = strings.ToLower(viper.GetString("credentials-backend"))
	cfg.Credentials.Path = viper.GetString("credentials-path")
	cfg.Credentials.DSN = viper.GetString("credentials-dsn")
}

func configurePlayer(cfg *core.Config) {
	cfg.Player.Source = strings.ToLower(viper.GetString("player-source"))
	cfg.Player.PollInterval = viper.GetDuration("player-poll-interval")
	if cfg.Player.PollInterval <= 0 {
		cfg.Player.PollInterval = core.DefaultPollInterval
	}
	cfg.Player.SampleErrorPolicy = viper.GetString("player-sample-error-policy")
}

func configureAuth(cfg *core.Config) {
	cfg.Auth.RefreshInterval = viper.GetDuration("auth-refresh-interval")
	if cfg.Auth.RefreshInterval <= 0 {
		cfg.Auth.RefreshInterval = core.DefaultRefreshInterval
	}
	cfg.Auth.ExpiryMargin = viper.GetDuration("auth-expiry-margin")
	if cfg.Auth.ExpiryMargin < 0 {
		cfg.Auth.ExpiryMargin = core.DefaultExpiryMargin
	}
	cfg.Auth.Interactive = viper.GetBool("auth-interactive")
}

func configureLLM(cfg *core.Config) {
	cfg.LLM.Provider = strings.ToLower(viper.GetString("llm-provider"))
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
}

func configureApp(cfg *core.Config) {
	cfg.App.BotName = viper.GetString("bot-name")
	cfg.App.ConfirmTimeoutSecs = viper.GetInt("confirm-timeout-secs")
	if cfg.App.ConfirmTimeoutSecs <= 0 {
		cfg.App.ConfirmTimeoutSecs = core.DefaultConfirmTimeoutSecs
	}
	cfg.App.MaxConfirmRetries = viper.GetInt("max-confirm-retries")
	if cfg.App.MaxConfirmRetries < 0 {
		cfg.App.MaxConfirmRetries = core.DefaultMaxConfirmRetries
	}
	cfg.App.AnnounceTrackChanges = viper.GetBool("announce-track-changes")

	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	// Zero or less disables flood prevention.
	cfg.App.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.ToLower(format) == "text" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runDynamite(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Dynamite",
		zap.String("player_source", config.Player.Source),
		zap.String("credentials_backend", config.Credentials.Backend),
		zap.String("llm_provider", config.LLM.Provider),
		zap.String("spotify_playlist", config.Spotify.PlaylistID),
		zap.Bool("telegram_enabled", config.Telegram.Enabled),
		zap.Bool("whatsapp_enabled", config.WhatsApp.Enabled))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	return runServices(ctx, svcs)
}

func validateConfig() error {
	if err := validateChatFrontends(); err != nil {
		return err
	}

	if err := validateSpotifyConfig(); err != nil {
		return err
	}

	if err := validateCredentialsConfig(); err != nil {
		return err
	}

	if err := validatePlayerConfig(); err != nil {
		return err
	}

	return validateLLMConfig()
}

func validateChatFrontends() error {
	if !config.Telegram.Enabled && !config.WhatsApp.Enabled {
		return fmt.Errorf("no chat frontend enabled - enable either Telegram or WhatsApp")
	}

	if config.Telegram.Enabled && config.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required when Telegram is enabled (set DYNAMITE_TELEGRAM_BOT_TOKEN)")
	}

	if config.WhatsApp.Enabled && config.WhatsApp.GroupJID == "" {
		return fmt.Errorf("WhatsApp group JID is required when WhatsApp is enabled (set DYNAMITE_WHATSAPP_GROUP_JID)")
	}

	return nil
}

func validateSpotifyConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required (set DYNAMITE_SPOTIFY_CLIENT_ID)")
	}

	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required (set DYNAMITE_SPOTIFY_CLIENT_SECRET)")
	}

	if config.Spotify.PlaylistID == "" {
		return fmt.Errorf("spotify playlist ID is required (set DYNAMITE_SPOTIFY_PLAYLIST_ID)")
	}

	return nil
}

func validateCredentialsConfig() error {
	switch config.Credentials.Backend {
	case core.CredentialsBackendFile, core.CredentialsBackendSQLite:
		if config.Credentials.Path == "" {
			return fmt.Errorf("credentials path is required for the %s backend (set DYNAMITE_CREDENTIALS_PATH)",
				config.Credentials.Backend)
		}
	case core.CredentialsBackendPostgres:
		if config.Credentials.DSN == "" {
			return fmt.Errorf("credentials DSN is required for the postgres backend (set DYNAMITE_CREDENTIALS_DSN)")
		}
	default:
		return fmt.Errorf("unsupported credentials backend %q", config.Credentials.Backend)
	}
	return nil
}

func validatePlayerConfig() error {
	switch config.Player.Source {
	case core.PlayerSourceAppleScript, core.PlayerSourceWebAPI:
	default:
		return fmt.Errorf("unsupported player source %q", config.Player.Source)
	}

	policy := core.SampleErrorPolicy(config.Player.SampleErrorPolicy)
	if policy != core.SampleErrorIgnore && policy != core.SampleErrorTreatAsStopped {
		return fmt.Errorf("unsupported sample error policy %q", config.Player.SampleErrorPolicy)
	}

	if config.Player.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("player poll interval %s is too short", config.Player.PollInterval)
	}
	return nil
}

func validateLLMConfig() error {
	switch config.LLM.Provider {
	case noneProvider, "", "ollama":
		return nil
	case "openai", "anthropic":
		if config.LLM.APIKey == "" {
			return fmt.Errorf("LLM API key is required for %s (set DYNAMITE_LLM_API_KEY)", config.LLM.Provider)
		}
		return nil
	default:
		return fmt.Errorf("unsupported LLM provider %q", config.LLM.Provider)
	}
}
