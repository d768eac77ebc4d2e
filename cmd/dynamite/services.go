package main

import (
	"context"
	"fmt"
	"os"

	spotifyapi "github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dynamite/internal/auth"
	"dynamite/internal/bot"
	"dynamite/internal/chat"
	"dynamite/internal/chat/telegram"
	"dynamite/internal/chat/whatsapp"
	"dynamite/internal/core"
	"dynamite/internal/flood"
	httpserver "dynamite/internal/http"
	"dynamite/internal/llm"
	"dynamite/internal/player"
	"dynamite/internal/spotify"
	"dynamite/internal/store"
)

type services struct {
	credentials core.CredentialStore
	auth        *auth.Manager
	httpServer  *httpserver.Server
	frontends   []chat.Frontend
	dispatchers []*bot.Dispatcher
	poller      *core.PlaybackPoller
	floodgate   *flood.Floodgate
}

func initializeServices(ctx context.Context) (*services, error) {
	credentials, err := store.Open(ctx, config.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	svcs := &services{credentials: credentials}

	team := config.Spotify.Team
	exchanger := auth.NewSpotifyExchanger(config.Spotify.ClientID, config.Spotify.ClientSecret, config.Spotify.RedirectURL)

	// The server owns the prometheus registry every component reports to.
	svcs.httpServer = httpserver.NewServer(&config.Server, nil, team, logger.Named("http"))
	metrics := svcs.httpServer.Metrics()
	svcs.auth = auth.NewManager(exchanger, credentials, nil, config.Auth.ExpiryMargin, metrics, logger.Named("auth"))
	svcs.httpServer.SetAuthService(svcs.auth)

	api := spotify.NewAPI(spotify.NewHTTPClient(svcs.auth.TokenSource(ctx, team)))
	catalog := store.NewCachedCatalog(spotify.NewClient(api, config.Spotify.PlaylistID, logger.Named("spotify")),
		store.DefaultTrackCacheSize)
	playerQuery := createPlayer(api)

	frontends, err := createChatFrontends()
	if err != nil {
		svcs.close()
		return nil, err
	}
	svcs.frontends = frontends

	notifier := bot.NewNotifier(frontends, catalog, &config.App, logger.Named("notifier"))
	svcs.auth.SetRequester(notifier)
	svcs.httpServer.OnAuthorized(notifier.Authorized)

	state := core.NewPollerState()
	svcs.poller = core.NewPlaybackPoller(playerQuery, state, notifier, config.Player.PollInterval,
		core.ParseSampleErrorPolicy(config.Player.SampleErrorPolicy), metrics, logger.Named("poller"))

	mutator := core.NewPlaylistMutator(catalog, metrics, logger.Named("mutator"))
	placer := core.NewPlacementService(catalog, playerQuery, state, mutator, logger.Named("placement"))

	suggester, err := createQuerySuggester()
	if err != nil {
		svcs.close()
		return nil, err
	}

	svcs.floodgate = flood.New(config.App.FloodLimitPerMinute)
	for _, frontend := range frontends {
		svcs.dispatchers = append(svcs.dispatchers, bot.NewDispatcher(config, frontend, bot.Services{
			Catalog:   catalog,
			Player:    playerQuery,
			State:     state,
			Placer:    placer,
			Suggester: suggester,
			Floodgate: svcs.floodgate,
			Announcer: notifier,
			Metrics:   metrics,
		}, logger.Named("dispatcher")))
	}

	return svcs, nil
}

func createPlayer(api *spotifyapi.Client) core.PlayerQuery {
	if config.Player.Source == core.PlayerSourceWebAPI {
		logger.Info("Sampling playback through the Spotify Web API")
		return spotify.NewWebPlayer(api)
	}
	logger.Info("Sampling playback from the local Spotify app")
	return player.NewAppleScriptPlayer(nil)
}

func createChatFrontends() ([]chat.Frontend, error) {
	var frontends []chat.Frontend

	if config.Telegram.Enabled {
		telegramConfig := &telegram.Config{
			BotToken: config.Telegram.BotToken,
			GroupID:  config.Telegram.GroupID,
			Enabled:  true,
		}
		frontends = append(frontends, telegram.NewFrontend(telegramConfig, logger.Named("telegram")))
		logger.Info("Using Telegram as chat frontend",
			zap.Int64("group_id", config.Telegram.GroupID),
			zap.String("language", config.App.Language))
	}

	if config.WhatsApp.Enabled {
		whatsappConfig := &whatsapp.Config{
			GroupJID:    config.WhatsApp.GroupJID,
			DeviceName:  config.WhatsApp.DeviceName,
			SessionPath: config.WhatsApp.SessionPath,
			Enabled:     true,
		}
		frontends = append(frontends, whatsapp.NewFrontend(whatsappConfig, logger.Named("whatsapp")))
		logger.Info("Using WhatsApp as chat frontend",
			zap.String("group_jid", config.WhatsApp.GroupJID),
			zap.String("language", config.App.Language))
	}

	if len(frontends) == 0 {
		return nil, fmt.Errorf("no chat frontend enabled - enable either Telegram or WhatsApp")
	}
	return frontends, nil
}

// createQuerySuggester returns a nil interface when no provider is configured.
func createQuerySuggester() (core.QuerySuggester, error) {
	provider, err := llm.NewProvider(&config.LLM, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return provider, nil
}

func runServices(ctx context.Context, svcs *services) error {
	for _, frontend := range svcs.frontends {
		if err := frontend.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s frontend: %w", frontend.Name(), err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	var authorizer auth.Authorizer
	if config.Auth.Interactive {
		authorizer = auth.NewConsoleAuthorizer(os.Stdin, os.Stdout)
	}
	if err := svcs.auth.Bootstrap(gCtx, config.Spotify.Team, authorizer); err != nil {
		return fmt.Errorf("failed to authorize with Spotify: %w", err)
	}

	g.Go(func() error {
		return svcs.auth.RunProactiveRefresh(gCtx, config.Spotify.Team, config.Auth.RefreshInterval)
	})

	g.Go(func() error {
		return svcs.poller.Run(gCtx)
	})

	for _, dispatcher := range svcs.dispatchers {
		g.Go(func() error {
			return dispatcher.Start(gCtx)
		})
	}

	logger.Info("Dynamite started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)),
		zap.String("redirect_url", config.Spotify.RedirectURL),
		zap.Bool("authorized", svcs.auth.HasValidCredential(config.Spotify.Team)))

	if err := g.Wait(); err != nil {
		logger.Error("Dynamite stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Dynamite stopped gracefully")
	return nil
}

func (s *services) close() {
	if s.floodgate != nil {
		s.floodgate.Stop()
	}
	if closer, ok := s.credentials.(store.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Debug("Failed to close credential store", zap.Error(err))
		}
	}
}
