package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dynamite/internal/chat"
	"dynamite/internal/core"
	"dynamite/internal/i18n"
)

// Notifier posts playback changes, additions and authorization requests to
// the reporting chat of every frontend that has one.
type Notifier struct {
	frontends            []chat.Frontend
	catalog              core.Catalog
	localizer            *i18n.Localizer
	announceTrackChanges bool
	logger               *zap.Logger
}

func NewNotifier(frontends []chat.Frontend, catalog core.Catalog, config *core.AppConfig, logger *zap.Logger) *Notifier {
	return &Notifier{
		frontends:            frontends,
		catalog:              catalog,
		localizer:            i18n.NewLocalizer(config.Language),
		announceTrackChanges: config.AnnounceTrackChanges,
		logger:               logger,
	}
}

// OnPlaybackEvent announces track changes and a stopped player.
func (n *Notifier) OnPlaybackEvent(ctx context.Context, event core.PlaybackEvent) {
	switch event.Type {
	case core.EventTrackChanged:
		if !n.announceTrackChanges {
			return
		}
		n.Announce(ctx, n.localizer.T("announce.now_playing", n.describe(ctx, event)))
	case core.EventStopped:
		n.Announce(ctx, n.localizer.T("announce.stopped"))
	}
}

// RequestAuthorization posts the consent link so an operator can sign in again.
func (n *Notifier) RequestAuthorization(ctx context.Context, team, authURL string) {
	n.logger.Info("Requesting re-authorization in chat", zap.String("team", team))
	n.Announce(ctx, n.localizer.T("announce.reauthorize", authURL))
}

// Authorized confirms that access was restored.
func (n *Notifier) Authorized(ctx context.Context, team string) {
	n.logger.Info("Authorization restored", zap.String("team", team))
	n.Announce(ctx, n.localizer.T("announce.reauthorized"))
}

func (n *Notifier) AnnounceAddition(ctx context.Context, sender string, track core.Track) {
	n.Announce(ctx, n.localizer.T("announce.added", sender, track.DisplayTitle()))
}

// Announce sends text to every reporting chat.
func (n *Notifier) Announce(ctx context.Context, text string) {
	for _, f := range n.frontends {
		chatID := f.ReportingChatID()
		if chatID == "" {
			continue
		}
		if _, err := f.SendText(ctx, chatID, "", text); err != nil {
			n.logger.Warn("Failed to announce",
				zap.String("frontend", f.Name()),
				zap.Error(err))
		}
	}
}

// describe names the new track, falling back to the catalog when the
// player reported only an ID.
func (n *Notifier) describe(ctx context.Context, event core.PlaybackEvent) string {
	if event.Track != nil && event.Track.Name != "" {
		return fmt.Sprintf("_%s_ by *%s*", event.Track.Name, event.Track.Artist)
	}
	if n.catalog != nil {
		track, err := n.catalog.GetTrack(ctx, event.TrackID)
		if err == nil {
			return track.DisplayTitle()
		}
		n.logger.Debug("Failed to look up playing track", zap.Error(err))
	}
	return "https://open.spotify.com/track/" + event.TrackID
}
