package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"dynamite/internal/chat"
	"dynamite/internal/core"
)

type sentMessage struct {
	chatID  string
	replyTo string
	text    string
	choices []chat.Choice
}

type mockFrontend struct {
	mu        sync.Mutex
	reporting string
	sent      []sentMessage
	reactions []chat.Reaction
	sendErr   error
	nextID    int
	inbox     []*chat.Message
}

func (f *mockFrontend) Name() string                  { return "mock" }
func (f *mockFrontend) Start(_ context.Context) error { return nil }
func (f *mockFrontend) ReportingChatID() string       { return f.reporting }

// Listen hands the inbox to handler back to back, then waits for ctx.
func (f *mockFrontend) Listen(ctx context.Context, handler func(*chat.Message)) error {
	f.mu.Lock()
	inbox := f.inbox
	f.mu.Unlock()
	for _, msg := range inbox {
		handler(msg)
	}
	<-ctx.Done()
	return nil
}

func (f *mockFrontend) SendText(_ context.Context, chatID, replyToID, text string) (string, error) {
	return f.record(sentMessage{chatID: chatID, replyTo: replyToID, text: text})
}

func (f *mockFrontend) PresentChoices(_ context.Context, chatID, replyToID, prompt string, choices []chat.Choice) (string, error) {
	return f.record(sentMessage{chatID: chatID, replyTo: replyToID, text: prompt, choices: choices})
}

func (f *mockFrontend) React(_ context.Context, _, _ string, r chat.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, r)
	return nil
}

func (f *mockFrontend) record(m sentMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, m)
	f.nextID++
	return strconv.Itoa(f.nextID), nil
}

func (f *mockFrontend) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *mockFrontend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// memoryCatalog is an in-memory playlist with insert-at and insert-before
// reorder semantics.
type memoryCatalog struct {
	mu       sync.Mutex
	order    []string
	tracks   map[string]core.Track
	results  map[string][]core.Track
	err      error
	searches []string
}

func newMemoryCatalog(tracks ...core.Track) *memoryCatalog {
	c := &memoryCatalog{tracks: make(map[string]core.Track), results: make(map[string][]core.Track)}
	for _, t := range tracks {
		c.tracks[t.ID] = t
	}
	return c
}

func (c *memoryCatalog) Search(_ context.Context, query string, limit int) ([]core.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, query)
	if c.err != nil {
		return nil, c.err
	}
	hits := c.results[query]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (c *memoryCatalog) GetTrack(_ context.Context, trackID string) (core.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return core.Track{}, c.err
	}
	if t, ok := c.tracks[trackID]; ok {
		return t, nil
	}
	return core.Track{}, core.NewExternalAPIError("get track", fmt.Errorf("non existing id: '%s'", trackID))
}

func (c *memoryCatalog) GetPlaylistTrackIDs(_ context.Context) (core.PlaylistSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append(core.PlaylistSnapshot{}, c.order...), nil
}

func (c *memoryCatalog) GetPlaylistTracks(_ context.Context) ([]core.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	tracks := make([]core.Track, 0, len(c.order))
	for _, id := range c.order {
		tracks = append(tracks, c.tracks[id])
	}
	return tracks, nil
}

func (c *memoryCatalog) InsertTrack(_ context.Context, trackID string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = append(c.order, "")
	copy(c.order[index+1:], c.order[index:])
	c.order[index] = trackID
	return nil
}

func (c *memoryCatalog) ReorderTrack(_ context.Context, fromIndex, toIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.order[fromIndex]
	rest := append([]string{}, c.order[:fromIndex]...)
	rest = append(rest, c.order[fromIndex+1:]...)
	if fromIndex < toIndex {
		toIndex--
	}
	out := append([]string{}, rest[:toIndex]...)
	out = append(out, id)
	c.order = append(out, rest[toIndex:]...)
	return nil
}

func (c *memoryCatalog) playlist() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.order...)
}

type staticPlayer struct {
	track *core.PlayerTrack
	err   error
}

func (p *staticPlayer) IsRunning(_ context.Context) (bool, error) {
	return p.track != nil, p.err
}

func (p *staticPlayer) CurrentTrack(_ context.Context) (*core.PlayerTrack, error) {
	return p.track, p.err
}

type scriptedSuggester struct {
	query string
	err   error
	calls int
}

func (s *scriptedSuggester) SuggestQuery(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.query, s.err
}

type recordingAnnouncer struct {
	additions []string
}

func (a *recordingAnnouncer) AnnounceAddition(_ context.Context, sender string, track core.Track) {
	a.additions = append(a.additions, sender+":"+track.ID)
}

func track(id string) core.Track {
	return core.NewTrack(id, "Song "+id, []string{"Artist " + id}, "Album "+id,
		core.Artwork{Small: "https://i/" + id + "/s", Medium: "https://i/" + id + "/m"})
}

func testConfig() *core.Config {
	config := core.DefaultConfig()
	config.App.BotName = "dynamite"
	return config
}

type testBot struct {
	dispatcher *Dispatcher
	frontend   *mockFrontend
	catalog    *memoryCatalog
	player     *staticPlayer
	announcer  *recordingAnnouncer
}

// newTestBot wires a dispatcher on the real placement service. The player
// plays current, which may be empty.
func newTestBot(current string, playlist []string, tracks ...core.Track) *testBot {
	catalog := newMemoryCatalog(tracks...)
	catalog.order = append([]string{}, playlist...)

	player := &staticPlayer{}
	if current != "" {
		player.track = &core.PlayerTrack{ID: current, Name: "Song " + current, Artist: "Artist " + current,
			Album: "Album " + current, PlayedCount: 7}
	}

	logger := zap.NewNop()
	mutator := core.NewPlaylistMutator(catalog, nil, logger)
	placer := core.NewPlacementService(catalog, player, core.NewPollerState(), mutator, logger)

	frontend := &mockFrontend{reporting: "report"}
	announcer := &recordingAnnouncer{}
	d := NewDispatcher(testConfig(), frontend, Services{
		Catalog:   catalog,
		Player:    player,
		State:     core.NewPollerState(),
		Placer:    placer,
		Announcer: announcer,
	}, logger)

	return &testBot{dispatcher: d, frontend: frontend, catalog: catalog, player: player, announcer: announcer}
}

func (b *testBot) say(text string) sentMessage {
	b.frontend.mu.Lock()
	b.frontend.nextID++
	id := "m" + strconv.Itoa(b.frontend.nextID)
	b.frontend.mu.Unlock()

	b.dispatcher.processMessage(context.Background(), &chat.Message{
		ID:         id,
		ChatID:     "group",
		SenderID:   "u1",
		SenderName: "@ada",
		Text:       text,
		IsGroup:    true,
	})
	return b.frontend.last()
}
