package bot

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"dynamite/internal/chat"
	"dynamite/internal/core"
	"dynamite/internal/flood"
)

func TestSearchSelectConfirmInsertsAfterCurrent(t *testing.T) {
	b := newTestBot("a", []string{"a", "b", "c"}, track("a"), track("b"), track("c"), track("x"), track("y"))
	b.catalog.results["daft punk"] = []core.Track{track("x"), track("y")}

	prompt := b.say("@dynamite search daft punk")
	if len(prompt.choices) != 3 {
		t.Fatalf("Expected 2 results plus a cancel choice, got %+v", prompt.choices)
	}
	if prompt.choices[1].Reply != "2" || !strings.Contains(prompt.choices[1].Label, "Song y by Artist y") {
		t.Errorf("Unexpected choice %+v", prompt.choices[1])
	}
	if prompt.choices[2].Reply != replyNo {
		t.Errorf("Expected a cancel choice, got %+v", prompt.choices[2])
	}

	confirm := b.say("2")
	if !strings.Contains(confirm.text, "_Song y_ by *Artist y*") {
		t.Errorf("Expected to be asked about y, got %q", confirm.text)
	}

	added := b.say("yes")
	if added.text != "_Song y_ by *Artist y* added to playlist." {
		t.Errorf("Unexpected reply %q", added.text)
	}
	if got := b.catalog.playlist(); !reflect.DeepEqual(got, []string{"a", "y", "b", "c"}) {
		t.Errorf("Playlist = %v", got)
	}
	if !reflect.DeepEqual(b.announcer.additions, []string{"@ada:y"}) {
		t.Errorf("Announced %v", b.announcer.additions)
	}
	if len(b.frontend.reactions) != 1 || b.frontend.reactions[0] != thumbsUpReaction {
		t.Errorf("Expected a thumbs up on the request, got %v", b.frontend.reactions)
	}
}

func TestAddPresentTrackMovesIt(t *testing.T) {
	b := newTestBot("a", []string{"a", "b", "c", "d"}, track("a"), track("b"), track("c"), track("d"))

	b.say("@dynamite add https://open.spotify.com/track/d")
	if got := b.frontend.last(); got.choices == nil {
		t.Fatalf("Expected a confirmation prompt, got %q", got.text)
	}

	moved := b.say("y")
	if moved.text != "*Moving _Song d_ by *Artist d* to the top of the queue.*" {
		t.Errorf("Unexpected reply %q", moved.text)
	}
	if got := b.catalog.playlist(); !reflect.DeepEqual(got, []string{"a", "d", "b", "c"}) {
		t.Errorf("Playlist = %v", got)
	}
	if len(b.announcer.additions) != 0 {
		t.Errorf("Moves are not announced, got %v", b.announcer.additions)
	}
}

func TestAddTrackAlreadyNext(t *testing.T) {
	b := newTestBot("a", []string{"a", "b"}, track("a"), track("b"))

	b.say("@dynamite add spotify:track:b")
	reply := b.say("yes")
	if reply.text != "_Song b_ by *Artist b* is already up next." {
		t.Errorf("Unexpected reply %q", reply.text)
	}
	if got := b.catalog.playlist(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Playlist = %v", got)
	}
}

func TestDialogReplies(t *testing.T) {
	tests := []struct {
		name     string
		replies  []string
		expected string
		open     bool
	}{
		{name: "Decline selection", replies: []string{"no"}, expected: "maybe you'll work up the courage one day."},
		{name: "Decline confirmation", replies: []string{"1", "nope"}, expected: "maybe you'll work up the courage one day."},
		{name: "Out of range selection", replies: []string{"7"}, expected: "Pick a number from 1 to 2, or say no.", open: true},
		{name: "Unclear confirmation", replies: []string{"1", "maybe"}, expected: "Just yes or no, please.", open: true},
		{name: "Retries exhausted", replies: []string{"x", "x", "x", "x"}, expected: "Never mind, I'll forget about that one."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBot("a", []string{"a"}, track("a"), track("x"), track("y"))
			b.catalog.results["q"] = []core.Track{track("x"), track("y")}

			b.say("@dynamite search q")
			var last sentMessage
			for _, r := range tt.replies {
				last = b.say(r)
			}

			if last.text != tt.expected {
				t.Errorf("Last reply = %q, expected %q", last.text, tt.expected)
			}
			if (b.dispatcher.flow.Active() == 1) != tt.open {
				t.Errorf("Open sessions = %d, expected open %v", b.dispatcher.flow.Active(), tt.open)
			}
			if got := b.catalog.playlist(); !reflect.DeepEqual(got, []string{"a"}) {
				t.Errorf("Playlist changed to %v", got)
			}
		})
	}
}

func TestCommandReplacesSession(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"), track("x"), track("z"))
	b.catalog.results["first"] = []core.Track{track("x")}
	b.catalog.results["second"] = []core.Track{track("z")}

	b.say("@dynamite search first")
	b.say("@dynamite search second")
	b.say("1")
	b.say("yes")

	if got := b.catalog.playlist(); !reflect.DeepEqual(got, []string{"a", "z"}) {
		t.Errorf("Playlist = %v", got)
	}
}

func TestSearchWithoutResults(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"))

	reply := b.say("@dynamite search nothing at all")
	if reply.text != "Sorry, no results." {
		t.Errorf("Unexpected reply %q", reply.text)
	}
	if b.dispatcher.flow.Active() != 0 {
		t.Error("No session should be opened without results")
	}
}

func TestSearchRescuedBySuggestion(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"), track("x"))
	b.catalog.results["daft punk one more time"] = []core.Track{track("x")}
	suggester := &scriptedSuggester{query: "daft punk one more time"}
	b.dispatcher.services.Suggester = suggester

	prompt := b.say("@dynamite search dafpunk one mor time")
	if suggester.calls != 1 {
		t.Fatalf("Expected one suggestion, got %d", suggester.calls)
	}
	if len(prompt.choices) != 2 {
		t.Fatalf("Expected selection prompt, got %+v", prompt)
	}
	if note := b.frontend.sent[len(b.frontend.sent)-2].text; !strings.Contains(note, "daft punk one more time") {
		t.Errorf("Expected a note about the suggested query, got %q", note)
	}

	b.dispatcher.services.Suggester = &scriptedSuggester{err: core.ErrNoResults}
	if reply := b.say("@dynamite search zzzz"); reply.text != "Sorry, no results." {
		t.Errorf("Unexpected reply %q", reply.text)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "External failure is quoted",
			err:      core.NewExternalAPIError("search", errors.New("503 Service Unavailable")),
			expected: "Looks like this error just happened: `search: 503 Service Unavailable`",
		},
		{
			name:     "Lost authorization",
			err:      fmt.Errorf("get: %w", core.ErrAuthExpired),
			expected: "I lost access to Spotify. Someone has to sign me in again before I can touch the playlist.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBot("a", []string{"a"}, track("a"))
			b.catalog.err = tt.err

			if reply := b.say("@dynamite search anything"); reply.text != tt.expected {
				t.Errorf("Reply = %q, expected %q", reply.text, tt.expected)
			}
		})
	}
}

func TestPlacementFailureIsReported(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"), track("x"))
	b.catalog.results["q"] = []core.Track{track("x")}

	b.say("@dynamite search q")
	b.say("1")
	b.catalog.err = errors.New("playlist gone")
	reply := b.say("yes")

	if !strings.HasPrefix(reply.text, "Looks like this error just happened: `get playlist: playlist gone`") {
		t.Errorf("Unexpected reply %q", reply.text)
	}
}

func TestAddInvalidReference(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"))

	if reply := b.say("@dynamite add some song please"); !strings.HasPrefix(reply.text, "That doesn't look like a Spotify track.") {
		t.Errorf("Unexpected reply %q", reply.text)
	}
}

func TestUpNext(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		playlist []string
		expected []string
	}{
		{
			name:     "Middle of playlist",
			current:  "b",
			playlist: []string{"a", "b", "c", "d", "e"},
			expected: []string{"c", "d", "e"},
		},
		{
			name:     "Wraps around",
			current:  "d",
			playlist: []string{"a", "b", "c", "d", "e"},
			expected: []string{"e", "a", "b"},
		},
		{
			name:     "Short playlist skips the playing track",
			current:  "a",
			playlist: []string{"a", "b"},
			expected: []string{"b"},
		},
		{
			name:     "Unknown current starts at the top",
			current:  "z",
			playlist: []string{"a", "b", "c", "d"},
			expected: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracks := []core.Track{track("z")}
			for _, id := range tt.playlist {
				tracks = append(tracks, track(id))
			}
			b := newTestBot(tt.current, tt.playlist, tracks...)

			lines := []string{"Up next:"}
			for i, id := range tt.expected {
				lines = append(lines, fmt.Sprintf("%d. _Song %s_ by *Artist %s*", i+1, id, id))
			}
			expected := strings.Join(lines, "\n")

			if reply := b.say("@dynamite what's next?"); reply.text != expected {
				t.Errorf("Up next = %q, expected %q", reply.text, expected)
			}
		})
	}

	b := newTestBot("", nil)
	if reply := b.say("@dynamite next"); reply.text != "The playlist is empty." {
		t.Errorf("Unexpected reply %q", reply.text)
	}
}

func TestInfoAndDetail(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"))

	if reply := b.say("@dynamite info"); reply.text != "This is _Song a_ by *Artist a*!" {
		t.Errorf("info = %q", reply.text)
	}

	detail := b.say("@dynamite detail")
	for _, want := range []string{"Album a", "Played 7 times", "https://i/a/m"} {
		if !strings.Contains(detail.text, want) {
			t.Errorf("detail %q missing %q", detail.text, want)
		}
	}

	b.player.track = nil
	if reply := b.say("@dynamite info"); reply.text != "sorry, no track." {
		t.Errorf("info without track = %q", reply.text)
	}
	if reply := b.say("@dynamite detail"); reply.text != "sorry, no track." {
		t.Errorf("detail without track = %q", reply.text)
	}
}

func TestSmallTalkCommands(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"))

	if reply := b.say("@dynamite hello"); reply.text != "Hello." {
		t.Errorf("hello = %q", reply.text)
	}
	if len(b.frontend.reactions) != 1 || b.frontend.reactions[0] != chat.ReactionRadio {
		t.Errorf("Expected a radio reaction, got %v", b.frontend.reactions)
	}

	if reply := b.say("@dynamite uptime"); !strings.HasPrefix(reply.text, "I am a bot named dynamite. I have been running for ") {
		t.Errorf("uptime = %q", reply.text)
	}
	if reply := b.say("/help"); !strings.HasPrefix(reply.text, "Here's what I can do:") {
		t.Errorf("help = %q", reply.text)
	}
	if reply := b.say("@dynamite what is love"); reply.text != "Sorry, I don't understand that." {
		t.Errorf("unknown = %q", reply.text)
	}
}

func TestUnaddressedGroupChatterIsIgnored(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"))

	b.say("next")
	b.say("lol")
	if b.frontend.count() != 0 {
		t.Errorf("Expected no replies, got %+v", b.frontend.sent)
	}

	b.dispatcher.processMessage(context.Background(), &chat.Message{
		ID: "p1", ChatID: "dm", SenderID: "u1", Text: "info", IsAddressed: true,
	})
	if b.frontend.last().text != "This is _Song a_ by *Artist a*!" {
		t.Errorf("Private commands need no mention, got %q", b.frontend.last().text)
	}
}

func TestFloodgateThrottles(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"))
	fg := flood.New(1)
	defer fg.Stop()
	b.dispatcher.services.Floodgate = fg

	b.say("@dynamite info")
	if reply := b.say("@dynamite info"); reply.text != "Easy there! Give me a minute before the next request." {
		t.Errorf("Expected to be throttled, got %q", reply.text)
	}
}

func TestExpireSessions(t *testing.T) {
	b := newTestBot("a", []string{"a"}, track("a"), track("x"))
	b.catalog.results["q"] = []core.Track{track("x")}

	b.say("@dynamite search q")

	b.dispatcher.expireSessions(context.Background(), time.Now())
	if b.dispatcher.flow.Active() != 1 {
		t.Fatal("Fresh session expired too early")
	}

	timeout := time.Duration(b.dispatcher.config.App.ConfirmTimeoutSecs) * time.Second
	b.dispatcher.expireSessions(context.Background(), time.Now().Add(timeout+time.Second))
	if b.dispatcher.flow.Active() != 0 {
		t.Fatal("Idle session should be abandoned")
	}
	last := b.frontend.last()
	if last.text != "Never mind, I'll forget about that one." || last.chatID != "group" || last.replyTo != "m1" {
		t.Errorf("Unexpected timeout message %+v", last)
	}

	sent := b.frontend.count()
	b.say("1")
	if b.frontend.count() != sent {
		t.Errorf("A reply after timeout should be ignored, got %q", b.frontend.last().text)
	}
	if got := b.catalog.playlist(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Playlist = %v", got)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected string
	}{
		{0, "0 minutes"},
		{time.Minute, "1 minute"},
		{2*time.Hour + 5*time.Minute, "2 hours and 5 minutes"},
		{49 * time.Hour, "2 days and 1 hour"},
		{25*time.Hour + 30*time.Second + 3*time.Minute, "1 day, 1 hour and 4 minutes"},
	}

	for _, tt := range tests {
		if got := formatUptime(tt.in); got != tt.expected {
			t.Errorf("formatUptime(%v) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestStartListensUntilCancelled(t *testing.T) {
	frontend := &mockFrontend{}
	d := NewDispatcher(testConfig(), frontend, Services{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStartKeepsSessionRepliesInOrder(t *testing.T) {
	b := newTestBot("a", []string{"a", "b"}, track("a"), track("b"), track("x"), track("y"))
	b.catalog.results["q"] = []core.Track{track("x"), track("y")}
	b.say("@dynamite search q")

	reply := func(id, text string) *chat.Message {
		return &chat.Message{ID: id, ChatID: "group", SenderID: "u1", SenderName: "@ada", Text: text, IsGroup: true}
	}
	b.frontend.mu.Lock()
	b.frontend.inbox = []*chat.Message{reply("r1", "2"), reply("r2", "yes")}
	b.frontend.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.dispatcher.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for b.frontend.last().text != "_Song y_ by *Artist y* added to playlist." {
		if time.Now().After(deadline) {
			t.Fatalf("Selection and confirmation were not applied in order, last reply %q", b.frontend.last().text)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start() error = %v", err)
	}
	if got := b.catalog.playlist(); !reflect.DeepEqual(got, []string{"a", "y", "b"}) {
		t.Errorf("Playlist = %v", got)
	}
}
