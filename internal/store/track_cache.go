package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"dynamite/internal/core"
)

// DefaultTrackCacheSize bounds the number of cached track lookups.
const DefaultTrackCacheSize = 1000

// CachedCatalog remembers track metadata seen in searches, lookups and
// playlist listings so repeated "add" and now-playing lookups skip the API.
// Playlist order is never cached.
type CachedCatalog struct {
	core.Catalog
	tracks *lru.Cache[string, core.Track]
}

func NewCachedCatalog(catalog core.Catalog, size int) *CachedCatalog {
	if size <= 0 {
		size = DefaultTrackCacheSize
	}
	tracks, _ := lru.New[string, core.Track](size)
	return &CachedCatalog{Catalog: catalog, tracks: tracks}
}

func (c *CachedCatalog) GetTrack(ctx context.Context, trackID string) (core.Track, error) {
	if track, ok := c.tracks.Get(trackID); ok {
		return track, nil
	}
	track, err := c.Catalog.GetTrack(ctx, trackID)
	if err != nil {
		return core.Track{}, err
	}
	c.tracks.Add(track.ID, track)
	return track, nil
}

func (c *CachedCatalog) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	tracks, err := c.Catalog.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	c.remember(tracks)
	return tracks, nil
}

func (c *CachedCatalog) GetPlaylistTracks(ctx context.Context) ([]core.Track, error) {
	tracks, err := c.Catalog.GetPlaylistTracks(ctx)
	if err != nil {
		return nil, err
	}
	c.remember(tracks)
	return tracks, nil
}

// Len returns the number of cached tracks.
func (c *CachedCatalog) Len() int {
	return c.tracks.Len()
}

func (c *CachedCatalog) remember(tracks []core.Track) {
	for _, track := range tracks {
		if track.ID != "" {
			c.tracks.Add(track.ID, track)
		}
	}
}
