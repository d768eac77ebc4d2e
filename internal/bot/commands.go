package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"dynamite/internal/chat"
	"dynamite/internal/core"
)

func (d *Dispatcher) handleSearch(ctx context.Context, msg *chat.Message, key core.SessionKey, query string) error {
	results, err := d.services.Catalog.Search(ctx, query, core.MaxChoices)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		results = d.rescueSearch(ctx, msg, query)
	}

	session, ok := d.flow.BeginSearch(key, results, msg.ID)
	if !ok {
		d.reply(ctx, msg, d.localizer.T("reply.no_results"))
		return nil
	}

	d.logger.Debug("Dialog started",
		zap.String("session", session.ID),
		zap.Int("candidates", len(session.Candidates)))

	choices := make([]chat.Choice, 0, len(session.Candidates)+1)
	for i, track := range session.Candidates {
		choices = append(choices, chat.Choice{
			Label: d.localizer.T("prompt.select_option", i+1, plainTitle(track)),
			Reply: strconv.Itoa(i + 1),
		})
	}
	choices = append(choices, chat.Choice{Label: d.localizer.T("button.no"), Reply: replyNo})

	prompt := d.localizer.T("prompt.select") + "\n" + d.localizer.T("prompt.select_hint")
	d.present(ctx, msg, prompt, choices)
	return nil
}

// rescueSearch asks the query suggester for a better query. A failed
// rescue is not an error for the user, the search just has no results.
func (d *Dispatcher) rescueSearch(ctx context.Context, msg *chat.Message, query string) []core.Track {
	if d.services.Suggester == nil {
		return nil
	}

	suggested, err := d.services.Suggester.SuggestQuery(ctx, query)
	if err != nil {
		if !errors.Is(err, core.ErrNoResults) {
			d.logger.Warn("Query suggestion failed", zap.Error(err))
			d.services.Metrics.RecordError("llm", "suggest")
		}
		return nil
	}

	results, err := d.services.Catalog.Search(ctx, suggested, core.MaxChoices)
	if err != nil {
		d.logger.Warn("Search for suggested query failed",
			zap.String("query", suggested),
			zap.Error(err))
		return nil
	}
	if len(results) > 0 {
		d.reply(ctx, msg, d.localizer.T("reply.suggested_query", query, suggested))
	}
	return results
}

func (d *Dispatcher) handleAdd(ctx context.Context, msg *chat.Message, key core.SessionKey, trackID string) error {
	if trackID == "" {
		d.reply(ctx, msg, d.localizer.T("reply.invalid_reference"))
		return nil
	}

	track, err := d.services.Catalog.GetTrack(ctx, trackID)
	if err != nil {
		return err
	}

	session := d.flow.BeginAdd(key, track, msg.ID)
	d.logger.Debug("Dialog started",
		zap.String("session", session.ID),
		zap.String("track_id", track.ID))

	d.presentConfirmation(ctx, msg, track)
	return nil
}

func (d *Dispatcher) presentConfirmation(ctx context.Context, msg *chat.Message, track core.Track) {
	prompt := d.localizer.T("prompt.confirm", track.DisplayTitle()) + "\n" + d.localizer.T("prompt.confirm_hint")
	d.present(ctx, msg, prompt, []chat.Choice{
		{Label: d.localizer.T("button.yes"), Reply: replyYes},
		{Label: d.localizer.T("button.no"), Reply: replyNo},
	})
}

// handleUpNext lists the tracks after the playing one, wrapping around
// the end of the playlist.
func (d *Dispatcher) handleUpNext(ctx context.Context, msg *chat.Message) error {
	tracks, err := d.services.Catalog.GetPlaylistTracks(ctx)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		d.reply(ctx, msg, d.localizer.T("info.playlist_empty"))
		return nil
	}

	start, count := 0, min(core.DefaultUpNextCount, len(tracks))
	if current := d.currentTrackID(ctx); current != "" {
		for i, t := range tracks {
			if t.ID == current {
				start = i + 1
				if len(tracks) > 1 {
					count = min(count, len(tracks)-1)
				}
				break
			}
		}
	}

	lines := []string{d.localizer.T("info.up_next")}
	for i := 0; i < count; i++ {
		track := tracks[(start+i)%len(tracks)]
		lines = append(lines, d.localizer.T("info.up_next_item", i+1, track.DisplayTitle()))
	}
	d.reply(ctx, msg, strings.Join(lines, "\n"))
	return nil
}

func (d *Dispatcher) handleInfo(ctx context.Context, msg *chat.Message) error {
	current, err := d.services.Player.CurrentTrack(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		d.reply(ctx, msg, d.localizer.T("reply.no_track"))
		return nil
	}

	d.reply(ctx, msg, d.localizer.T("info.now", fmt.Sprintf("_%s_ by *%s*", current.Name, current.Artist)))
	return nil
}

func (d *Dispatcher) handleDetail(ctx context.Context, msg *chat.Message) error {
	current, err := d.services.Player.CurrentTrack(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		d.reply(ctx, msg, d.localizer.T("reply.no_track"))
		return nil
	}

	artwork := ""
	if current.ID != "" {
		track, err := d.services.Catalog.GetTrack(ctx, current.ID)
		if err != nil {
			d.logger.Debug("No catalog entry for playing track", zap.Error(err))
		} else {
			artwork = track.Artwork.Medium
		}
	}

	title := fmt.Sprintf("_%s_ by *%s*", current.Name, current.Artist)
	d.reply(ctx, msg, strings.TrimSpace(d.localizer.T("info.detail", title, current.Album, current.PlayedCount, artwork)))
	return nil
}

// currentTrackID prefers the poller's view over a live player read.
func (d *Dispatcher) currentTrackID(ctx context.Context) string {
	if d.services.State != nil {
		if id := d.services.State.CurrentTrackID(); id != "" {
			return id
		}
	}
	if d.services.Player == nil {
		return ""
	}
	current, err := d.services.Player.CurrentTrack(ctx)
	if err != nil || current == nil {
		return ""
	}
	return current.ID
}
