package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
)

func eventTypes(events []PlaybackEvent) []PlaybackEventType {
	types := make([]PlaybackEventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestPlaybackPoller_Transitions(t *testing.T) {
	sampleErr := errors.New("osascript failed")

	tests := []struct {
		name     string
		policy   SampleErrorPolicy
		readings []playerReading
		expected []PlaybackEventType
		lastID   string
	}{
		{
			name:     "Never running emits nothing",
			readings: []playerReading{{}, {}, {}, {}},
			expected: []PlaybackEventType{},
		},
		{
			name:     "First running sample reports the track",
			readings: []playerReading{{running: true, trackID: "a"}},
			expected: []PlaybackEventType{EventStarted, EventTrackChanged},
			lastID:   "a",
		},
		{
			name: "Same track is quiet",
			readings: []playerReading{
				{running: true, trackID: "a"},
				{running: true, trackID: "a"},
				{running: true, trackID: "a"},
			},
			expected: []PlaybackEventType{EventStarted, EventTrackChanged},
			lastID:   "a",
		},
		{
			name: "Track change then stop",
			readings: []playerReading{
				{running: true, trackID: "a"},
				{running: true, trackID: "b"},
				{},
				{},
			},
			expected: []PlaybackEventType{EventStarted, EventTrackChanged, EventTrackChanged, EventStopped},
		},
		{
			name: "Ignored errors do not stop",
			readings: []playerReading{
				{running: true, trackID: "a"},
				{err: sampleErr},
				{running: true, trackID: "a"},
			},
			expected: []PlaybackEventType{EventStarted, EventTrackChanged},
			lastID:   "a",
		},
		{
			name:   "Errors count as stopped when configured",
			policy: SampleErrorTreatAsStopped,
			readings: []playerReading{
				{running: true, trackID: "a"},
				{err: sampleErr},
				{err: sampleErr},
			},
			expected: []PlaybackEventType{EventStarted, EventTrackChanged, EventStopped},
		},
		{
			name: "Restart after stop reports the track again",
			readings: []playerReading{
				{running: true, trackID: "a"},
				{},
				{running: true, trackID: "a"},
			},
			expected: []PlaybackEventType{EventStarted, EventTrackChanged, EventStopped, EventStarted, EventTrackChanged},
			lastID:   "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &mockPlayer{samples: tt.readings}
			listener := &recordingListener{}
			state := NewPollerState()
			policy := tt.policy
			if policy == "" {
				policy = SampleErrorIgnore
			}
			poller := NewPlaybackPoller(player, state, listener, time.Second, policy, nil, zap.NewNop())

			var all []PlaybackEvent
			for range tt.readings {
				_, events := poller.PollOnce(context.Background())
				all = append(all, events...)
			}

			if got := eventTypes(all); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected events %v, got %v", tt.expected, got)
			}
			if len(listener.events) != len(all) {
				t.Errorf("Listener saw %d events, expected %d", len(listener.events), len(all))
			}
			if got := state.CurrentTrackID(); got != tt.lastID {
				t.Errorf("Expected last track %q, got %q", tt.lastID, got)
			}
		})
	}
}

func TestPlaybackPoller_TrackChangedCarriesTrack(t *testing.T) {
	player := &mockPlayer{samples: []playerReading{{running: true, trackID: "a"}}}
	poller := NewPlaybackPoller(player, NewPollerState(), nil, time.Second, SampleErrorIgnore, nil, zap.NewNop())

	_, events := poller.PollOnce(context.Background())
	last := events[len(events)-1]
	if last.Type != EventTrackChanged || last.Track == nil || last.Track.ID != "a" {
		t.Errorf("Expected track changed event with track a, got %+v", last)
	}
}

// blockingPlayer holds IsRunning until released.
type blockingPlayer struct {
	release chan struct{}
	calls   chan struct{}
}

func (p *blockingPlayer) IsRunning(ctx context.Context) (bool, error) {
	p.calls <- struct{}{}
	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return false, nil
}

func (p *blockingPlayer) CurrentTrack(context.Context) (*PlayerTrack, error) {
	return nil, nil
}

type skipCounter struct {
	NopMetrics
	skipped chan struct{}
}

func (s *skipCounter) RecordSkippedTick() {
	s.skipped <- struct{}{}
}

func TestPlaybackPoller_SkipsOverlappingTicks(t *testing.T) {
	player := &blockingPlayer{release: make(chan struct{}), calls: make(chan struct{}, 10)}
	metrics := &skipCounter{skipped: make(chan struct{}, 10)}
	poller := NewPlaybackPoller(player, NewPollerState(), nil, time.Second, SampleErrorIgnore, metrics, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.tick(ctx)
	<-player.calls

	poller.tick(ctx)
	poller.tick(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-metrics.skipped:
		case <-time.After(time.Second):
			t.Fatal("Expected overlapping tick to be skipped")
		}
	}

	select {
	case <-player.calls:
		t.Error("Overlapping tick queried the player")
	default:
	}

	close(player.release)
}

// slowListener takes a while per event, like a chat announcement would.
type slowListener struct {
	recordingListener
	delay time.Duration
}

func (l *slowListener) OnPlaybackEvent(ctx context.Context, event PlaybackEvent) {
	time.Sleep(l.delay)
	l.recordingListener.OnPlaybackEvent(ctx, event)
}

func (p *mockPlayer) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestPlaybackPoller_SlowListenerDoesNotStallSampling(t *testing.T) {
	readings := make([]playerReading, 200)
	for i := range readings {
		readings[i] = playerReading{running: true, trackID: []string{"a", "b"}[i%2]}
	}
	player := &mockPlayer{samples: readings}
	listener := &slowListener{delay: 200 * time.Millisecond}
	poller := NewPlaybackPoller(player, NewPollerState(), listener, 10*time.Millisecond, SampleErrorIgnore, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	if err := poller.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Each running poll asks the player twice.
	if polls := player.callCount() / 2; polls < 10 {
		t.Errorf("Expected sampling to keep its interval, got %d polls", polls)
	}

	listener.mu.Lock()
	defer listener.mu.Unlock()
	if len(listener.events) == 0 || listener.events[0].Type != EventStarted {
		t.Errorf("Expected events in order starting with %v, got %v", EventStarted, eventTypes(listener.events))
	}
}

func TestParseSampleErrorPolicy(t *testing.T) {
	if ParseSampleErrorPolicy("treat-as-stopped") != SampleErrorTreatAsStopped {
		t.Error("Expected treat-as-stopped policy")
	}
	if ParseSampleErrorPolicy("bogus") != SampleErrorIgnore {
		t.Error("Expected unknown policy to fall back to ignore")
	}
}
