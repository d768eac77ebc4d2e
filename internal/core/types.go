package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Artwork holds the album art URLs shown alongside a track.
type Artwork struct {
	Small  string
	Medium string
}

// Track is an immutable catalog track. Construct it once from a catalog
// response with NewTrack; the accessors return copies.
type Track struct {
	ID          string
	Name        string
	artistNames []string
	AlbumName   string
	Artwork     Artwork
}

// NewTrack builds a Track, copying the artist slice.
func NewTrack(id, name string, artists []string, album string, artwork Artwork) Track {
	names := make([]string, len(artists))
	copy(names, artists)
	return Track{
		ID:          id,
		Name:        name,
		artistNames: names,
		AlbumName:   album,
		Artwork:     artwork,
	}
}

// ArtistNames returns the ordered artist names.
func (t Track) ArtistNames() []string {
	names := make([]string, len(t.artistNames))
	copy(names, t.artistNames)
	return names
}

// Artists joins the artist names for display.
func (t Track) Artists() string {
	return strings.Join(t.artistNames, ", ")
}

// DisplayTitle renders "_name_ by *artists*".
func (t Track) DisplayTitle() string {
	return fmt.Sprintf("_%s_ by *%s*", t.Name, t.Artists())
}

// URL returns the open.spotify.com link for the track.
func (t Track) URL() string {
	return "https://open.spotify.com/track/" + t.ID
}

// Credential is a team's delegated access credential.
type Credential struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresAtEpochSeconds int64  `json:"expires_at"`
}

// NewCredential derives the expiry from the moment the token response was
// received. Expiry is never recomputed without a fresh token response.
func NewCredential(accessToken, refreshToken string, expiresIn time.Duration, receivedAt time.Time) Credential {
	return Credential{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		ExpiresAtEpochSeconds: receivedAt.Add(expiresIn).Unix(),
	}
}

// ExpiresAt returns the expiry as a time.
func (c Credential) ExpiresAt() time.Time {
	return time.Unix(c.ExpiresAtEpochSeconds, 0)
}

// ExpiresWithin reports whether the credential is expired at now+margin.
func (c Credential) ExpiresWithin(margin time.Duration, now time.Time) bool {
	return !now.Add(margin).Before(c.ExpiresAt())
}

// HasAccess reports whether an access token is present.
func (c Credential) HasAccess() bool {
	return c.AccessToken != ""
}

// PlaylistSnapshot is the playlist order at the moment it was fetched.
// It is only authoritative for the operation that fetched it.
type PlaylistSnapshot []string

// IndexOf returns the position of trackID, or -1.
func (s PlaylistSnapshot) IndexOf(trackID string) int {
	if trackID == "" {
		return -1
	}
	for i, id := range s {
		if id == trackID {
			return i
		}
	}
	return -1
}

// PlaybackSample is one reading of the local player.
type PlaybackSample struct {
	IsRunning bool
	TrackID   string
}

// PlayerTrack is what the player reports about the playing track.
type PlayerTrack struct {
	ID          string
	Name        string
	Artist      string
	Album       string
	PlayedCount int
}

// Catalog is the music catalog and playlist API.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]Track, error)
	GetTrack(ctx context.Context, trackID string) (Track, error)
	GetPlaylistTrackIDs(ctx context.Context) (PlaylistSnapshot, error)
	GetPlaylistTracks(ctx context.Context) ([]Track, error)
	InsertTrack(ctx context.Context, trackID string, index int) error
	ReorderTrack(ctx context.Context, fromIndex, toIndex int) error
}

// PlayerQuery reads the state of the player the group listens to.
type PlayerQuery interface {
	IsRunning(ctx context.Context) (bool, error)
	// CurrentTrack returns nil when nothing is playing.
	CurrentTrack(ctx context.Context) (*PlayerTrack, error)
}

// CredentialStore persists per-team credentials.
type CredentialStore interface {
	// LoadCredential returns nil, nil when nothing is stored for team.
	LoadCredential(ctx context.Context, team string) (*Credential, error)
	SaveCredential(ctx context.Context, team string, cred Credential) error
}

// QuerySuggester proposes a better catalog query for a search that found nothing.
type QuerySuggester interface {
	SuggestQuery(ctx context.Context, text string) (string, error)
}
