// Package spotify adapts the Spotify Web API to the catalog and player
// interfaces used by the controller.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"dynamite/internal/core"
)

const (
	// PageSize is the largest page the playlist items endpoint returns.
	PageSize = 100
	// MaxSearchResults caps catalog searches.
	MaxSearchResults = 10
	// RequestTimeout bounds a single Web API call.
	RequestTimeout = 15 * time.Second

	mediumImageIndex = 1
	smallImageIndex  = 2
)

// Client implements core.Catalog for one managed playlist.
type Client struct {
	api        *spotify.Client
	playlistID spotify.ID
	logger     *zap.Logger
}

// NewHTTPClient returns an HTTP client that asks source for a token on every
// request, so expiry is re-checked at request time.
func NewHTTPClient(source oauth2.TokenSource) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: source, Base: http.DefaultTransport},
		Timeout:   RequestTimeout,
	}
}

// NewAPI builds the Web API client. Failed calls, rate limits included,
// surface to the caller as errors without a retry.
func NewAPI(httpClient *http.Client, opts ...spotify.ClientOption) *spotify.Client {
	return spotify.New(httpClient, opts...)
}

func NewClient(api *spotify.Client, playlistID string, logger *zap.Logger) *Client {
	return &Client{
		api:        api,
		playlistID: spotify.ID(playlistID),
		logger:     logger,
	}
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	results, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if results.Tracks == nil {
		return nil, nil
	}

	tracks := make([]core.Track, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		tracks = append(tracks, newTrack(&results.Tracks.Tracks[i]))
	}

	c.logger.Debug("Search completed",
		zap.String("query", query),
		zap.Int("results", len(tracks)))
	return tracks, nil
}

func (c *Client) GetTrack(ctx context.Context, trackID string) (core.Track, error) {
	track, err := c.api.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return core.Track{}, fmt.Errorf("failed to get track: %w", err)
	}
	return newTrack(track), nil
}

// GetPlaylistTrackIDs returns the playlist in order. Items that are not
// tracks keep their position as an empty ID so indices match the server.
func (c *Client) GetPlaylistTrackIDs(ctx context.Context) (core.PlaylistSnapshot, error) {
	var snapshot core.PlaylistSnapshot
	err := c.eachPlaylistItem(ctx, func(item *spotify.PlaylistItem) {
		if item.Track.Track == nil {
			snapshot = append(snapshot, "")
			return
		}
		snapshot = append(snapshot, string(item.Track.Track.ID))
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Retrieved playlist snapshot",
		zap.String("playlistID", c.playlistID.String()),
		zap.Int("count", len(snapshot)))
	return snapshot, nil
}

func (c *Client) GetPlaylistTracks(ctx context.Context) ([]core.Track, error) {
	var tracks []core.Track
	err := c.eachPlaylistItem(ctx, func(item *spotify.PlaylistItem) {
		if item.Track.Track != nil {
			tracks = append(tracks, newTrack(item.Track.Track))
		}
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func (c *Client) eachPlaylistItem(ctx context.Context, fn func(*spotify.PlaylistItem)) error {
	offset := 0
	for {
		items, err := c.api.GetPlaylistItems(ctx, c.playlistID,
			spotify.Limit(PageSize), spotify.Offset(offset))
		if err != nil {
			return fmt.Errorf("failed to get playlist items: %w", err)
		}

		for i := range items.Items {
			fn(&items.Items[i])
		}

		if len(items.Items) < PageSize {
			return nil
		}
		offset += PageSize
	}
}

// InsertTrack adds trackID so it ends up at index. The API only appends, so
// the new last item is moved when index is not the end.
func (c *Client) InsertTrack(ctx context.Context, trackID string, index int) error {
	snapshotID, err := c.api.AddTracksToPlaylist(ctx, c.playlistID, spotify.ID(trackID))
	if err != nil {
		return fmt.Errorf("failed to add track to playlist: %w", err)
	}

	page, err := c.api.GetPlaylistItems(ctx, c.playlistID, spotify.Limit(1))
	if err != nil {
		return fmt.Errorf("track added at the end but playlist length is unknown: %w", err)
	}

	last := page.Total - 1
	if index >= last {
		c.logger.Info("Track appended to playlist",
			zap.String("trackID", trackID),
			zap.Int("position", last),
			zap.String("snapshotID", snapshotID))
		return nil
	}

	snapshotID, err = c.reorder(ctx, last, index)
	if err != nil {
		return fmt.Errorf("track added at the end but not moved: %w", err)
	}

	c.logger.Info("Track inserted into playlist",
		zap.String("trackID", trackID),
		zap.Int("position", index),
		zap.String("snapshotID", snapshotID))
	return nil
}

// ReorderTrack moves the item at fromIndex so it sits before the item
// currently at toIndex.
func (c *Client) ReorderTrack(ctx context.Context, fromIndex, toIndex int) error {
	snapshotID, err := c.reorder(ctx, fromIndex, toIndex)
	if err != nil {
		return fmt.Errorf("failed to reorder playlist: %w", err)
	}
	c.logger.Info("Playlist reordered",
		zap.Int("from", fromIndex),
		zap.Int("insertBefore", toIndex),
		zap.String("snapshotID", snapshotID))
	return nil
}

func (c *Client) reorder(ctx context.Context, fromIndex, toIndex int) (string, error) {
	return c.api.ReorderPlaylistTracks(ctx, c.playlistID, spotify.PlaylistReorderOptions{
		RangeStart:   fromIndex,
		RangeLength:  1,
		InsertBefore: toIndex,
	})
}

func newTrack(track *spotify.FullTrack) core.Track {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	var artwork core.Artwork
	images := track.Album.Images
	if len(images) > mediumImageIndex {
		artwork.Medium = images[mediumImageIndex].URL
	} else if len(images) > 0 {
		artwork.Medium = images[0].URL
	}
	if len(images) > smallImageIndex {
		artwork.Small = images[smallImageIndex].URL
	} else {
		artwork.Small = artwork.Medium
	}

	return core.NewTrack(string(track.ID), track.Name, artists, track.Album.Name, artwork)
}
