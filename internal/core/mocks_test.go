package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// mockCatalog keeps an in-memory playlist and mimics the Web API's
// insert-at-position and reorder semantics.
type mockCatalog struct {
	mu         sync.Mutex
	order      []string
	tracks     map[string]Track
	searchHits []Track
	searchErr  error
	getErr     error
	writeErr   error

	reorders int
	inserts  int
	searches []string
}

func newMockCatalog(order ...string) *mockCatalog {
	return &mockCatalog{order: order, tracks: make(map[string]Track)}
}

func (m *mockCatalog) Search(_ context.Context, query string, limit int) ([]Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, query)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	hits := m.searchHits
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *mockCatalog) GetTrack(_ context.Context, trackID string) (Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return Track{}, m.getErr
	}
	if track, ok := m.tracks[trackID]; ok {
		return track, nil
	}
	return Track{}, fmt.Errorf("non existing id: '%s'", trackID)
}

func (m *mockCatalog) GetPlaylistTrackIDs(_ context.Context) (PlaylistSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	snapshot := make(PlaylistSnapshot, len(m.order))
	copy(snapshot, m.order)
	return snapshot, nil
}

func (m *mockCatalog) GetPlaylistTracks(_ context.Context) ([]Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	tracks := make([]Track, 0, len(m.order))
	for _, id := range m.order {
		if track, ok := m.tracks[id]; ok {
			tracks = append(tracks, track)
			continue
		}
		tracks = append(tracks, NewTrack(id, strings.ToUpper(id), []string{"Artist " + id}, "", Artwork{}))
	}
	return tracks, nil
}

func (m *mockCatalog) InsertTrack(_ context.Context, trackID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if index < 0 || index > len(m.order) {
		return fmt.Errorf("index %d out of range", index)
	}
	m.inserts++
	m.order = append(m.order, "")
	copy(m.order[index+1:], m.order[index:])
	m.order[index] = trackID
	return nil
}

func (m *mockCatalog) ReorderTrack(_ context.Context, fromIndex, toIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if fromIndex < 0 || fromIndex >= len(m.order) || toIndex < 0 || toIndex > len(m.order) {
		return fmt.Errorf("reorder %d->%d out of range", fromIndex, toIndex)
	}
	m.reorders++
	id := m.order[fromIndex]
	rest := append([]string{}, m.order[:fromIndex]...)
	rest = append(rest, m.order[fromIndex+1:]...)
	insertAt := toIndex
	if fromIndex < toIndex {
		insertAt--
	}
	out := append([]string{}, rest[:insertAt]...)
	out = append(out, id)
	out = append(out, rest[insertAt:]...)
	m.order = out
	return nil
}

func (m *mockCatalog) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.order...)
}

// mockPlayer replays scripted readings, one per poll.
type mockPlayer struct {
	mu      sync.Mutex
	samples []playerReading
	pos     int
	calls   int
}

type playerReading struct {
	running bool
	trackID string
	err     error
}

func (p *mockPlayer) next() playerReading {
	if len(p.samples) == 0 {
		return playerReading{}
	}
	if p.pos >= len(p.samples) {
		return p.samples[len(p.samples)-1]
	}
	return p.samples[p.pos]
}

func (p *mockPlayer) IsRunning(_ context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	r := p.next()
	if r.err != nil || !r.running {
		p.pos++
	}
	return r.running, r.err
}

func (p *mockPlayer) CurrentTrack(_ context.Context) (*PlayerTrack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	r := p.next()
	p.pos++
	if r.err != nil {
		return nil, r.err
	}
	if r.trackID == "" {
		return nil, nil
	}
	return &PlayerTrack{ID: r.trackID, Name: "Song " + r.trackID, Artist: "Artist", Album: "Album", PlayedCount: 4}, nil
}

type recordingListener struct {
	mu     sync.Mutex
	events []PlaybackEvent
}

func (l *recordingListener) OnPlaybackEvent(_ context.Context, event PlaybackEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}
