package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"

	"dynamite/internal/core"
)

// WebPlayer reads playback state from the Web API instead of a local
// desktop client.
type WebPlayer struct {
	api *spotify.Client
}

func NewWebPlayer(api *spotify.Client) *WebPlayer {
	return &WebPlayer{api: api}
}

// IsRunning reports whether any device is actively playing.
func (p *WebPlayer) IsRunning(ctx context.Context) (bool, error) {
	current, err := p.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get currently playing: %w", err)
	}
	return current != nil && current.Playing, nil
}

func (p *WebPlayer) CurrentTrack(ctx context.Context) (*core.PlayerTrack, error) {
	current, err := p.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get currently playing: %w", err)
	}
	if current == nil || current.Item == nil {
		return nil, nil
	}

	artists := make([]string, 0, len(current.Item.Artists))
	for _, artist := range current.Item.Artists {
		artists = append(artists, artist.Name)
	}

	return &core.PlayerTrack{
		ID:     string(current.Item.ID),
		Name:   current.Item.Name,
		Artist: strings.Join(artists, ", "),
		Album:  current.Item.Album.Name,
	}, nil
}
