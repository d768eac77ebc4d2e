package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SampleErrorPolicy decides what a failed player query means.
type SampleErrorPolicy string

const (
	// SampleErrorIgnore leaves the poller state untouched on a failed sample
	SampleErrorIgnore SampleErrorPolicy = "ignore"
	// SampleErrorTreatAsStopped handles a failed sample like a "not running" read
	SampleErrorTreatAsStopped SampleErrorPolicy = "treat-as-stopped"
)

// ParseSampleErrorPolicy falls back to SampleErrorIgnore for unknown values.
func ParseSampleErrorPolicy(s string) SampleErrorPolicy {
	if SampleErrorPolicy(s) == SampleErrorTreatAsStopped {
		return SampleErrorTreatAsStopped
	}
	return SampleErrorIgnore
}

// PlaybackEventType is the kind of player transition.
type PlaybackEventType int

const (
	// EventStarted fires when the player comes up
	EventStarted PlaybackEventType = iota
	// EventStopped fires when a running player is no longer running
	EventStopped
	// EventTrackChanged fires when the playing track differs from the last one
	EventTrackChanged
)

func (t PlaybackEventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventTrackChanged:
		return "track_changed"
	default:
		return "unknown"
	}
}

// PlaybackEvent is a transition derived from two consecutive samples.
type PlaybackEvent struct {
	Type    PlaybackEventType
	TrackID string
	Track   *PlayerTrack
}

// PlaybackListener receives poller events.
type PlaybackListener interface {
	OnPlaybackEvent(ctx context.Context, event PlaybackEvent)
}

// PollerState holds the last track the poller saw. Only the poller writes it.
type PollerState struct {
	mu          sync.RWMutex
	running     bool
	lastTrackID string
}

func NewPollerState() *PollerState {
	return &PollerState{}
}

// CurrentTrackID returns the last seen track, or "" when unset.
func (s *PollerState) CurrentTrackID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTrackID
}

// IsRunning reports whether the last successful sample saw a running player.
func (s *PollerState) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// apply runs the transition table and returns the events it produced.
func (s *PollerState) apply(sample PlaybackSample) []PlaybackEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !sample.IsRunning {
		if !s.running {
			return nil
		}
		s.running = false
		s.lastTrackID = ""
		return []PlaybackEvent{{Type: EventStopped}}
	}

	var events []PlaybackEvent
	if !s.running {
		s.running = true
		events = append(events, PlaybackEvent{Type: EventStarted})
	}
	if sample.TrackID != "" && sample.TrackID != s.lastTrackID {
		s.lastTrackID = sample.TrackID
		events = append(events, PlaybackEvent{Type: EventTrackChanged, TrackID: sample.TrackID})
	}
	return events
}

// PlaybackPoller samples the player on a fixed interval and turns
// consecutive samples into events.
type PlaybackPoller struct {
	player   PlayerQuery
	state    *PollerState
	listener PlaybackListener
	interval time.Duration
	policy   SampleErrorPolicy
	metrics  Metrics
	logger   *zap.Logger

	busy   atomic.Bool
	queued chan PlaybackEvent
}

// eventBacklog bounds how many events may wait for a slow listener.
const eventBacklog = 64

func NewPlaybackPoller(player PlayerQuery, state *PollerState, listener PlaybackListener,
	interval time.Duration, policy SampleErrorPolicy, metrics Metrics, logger *zap.Logger) *PlaybackPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &PlaybackPoller{
		player:   player,
		state:    state,
		listener: listener,
		interval: interval,
		policy:   policy,
		metrics:  metrics,
		logger:   logger,
		queued:   make(chan PlaybackEvent, eventBacklog),
	}
}

// Run polls until ctx is done. It never returns a polling error.
func (p *PlaybackPoller) Run(ctx context.Context) error {
	p.logger.Info("Starting playback polling", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	go p.deliver(ctx)

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Playback polling stopped")
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one poll in the background unless the previous one is still in
// flight, in which case this tick is dropped.
func (p *PlaybackPoller) tick(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		p.logger.Debug("Previous poll still running, skipping tick")
		p.metrics.RecordSkippedTick()
		return
	}
	go func() {
		defer p.busy.Store(false)
		_, events := p.poll(ctx)
		p.enqueue(events)
	}()
}

// enqueue hands events to the delivery loop without waiting on the listener.
func (p *PlaybackPoller) enqueue(events []PlaybackEvent) {
	if p.listener == nil {
		return
	}
	for _, event := range events {
		select {
		case p.queued <- event:
		default:
			p.logger.Warn("Playback listener is falling behind, dropping event",
				zap.Stringer("event", event.Type),
				zap.String("track_id", event.TrackID))
		}
	}
}

// deliver calls the listener in event order until ctx is done.
func (p *PlaybackPoller) deliver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-p.queued:
			p.listener.OnPlaybackEvent(ctx, event)
		}
	}
}

// PollOnce takes one sample, updates PollerState and delivers the events
// before returning.
func (p *PlaybackPoller) PollOnce(ctx context.Context) (PlaybackSample, []PlaybackEvent) {
	sample, events := p.poll(ctx)
	if p.listener != nil {
		for _, event := range events {
			p.listener.OnPlaybackEvent(ctx, event)
		}
	}
	return sample, events
}

func (p *PlaybackPoller) poll(ctx context.Context) (PlaybackSample, []PlaybackEvent) {
	sample, track, err := p.sample(ctx)
	if err != nil {
		p.metrics.RecordPollTick("error")
		if p.policy != SampleErrorTreatAsStopped {
			p.logger.Debug("Player sample failed, keeping previous state", zap.Error(err))
			return sample, nil
		}
		p.logger.Debug("Player sample failed, treating as stopped", zap.Error(err))
		sample = PlaybackSample{}
	} else {
		p.metrics.RecordPollTick("ok")
	}

	events := p.state.apply(sample)
	for i := range events {
		if events[i].Type == EventTrackChanged {
			events[i].Track = track
		}
		p.metrics.RecordPlaybackEvent(events[i].Type.String())
		p.logger.Info("Playback event",
			zap.Stringer("event", events[i].Type),
			zap.String("track_id", events[i].TrackID))
	}
	return sample, events
}

func (p *PlaybackPoller) sample(ctx context.Context) (PlaybackSample, *PlayerTrack, error) {
	running, err := p.player.IsRunning(ctx)
	if err != nil {
		return PlaybackSample{}, nil, err
	}
	if !running {
		return PlaybackSample{}, nil, nil
	}

	track, err := p.player.CurrentTrack(ctx)
	if err != nil {
		return PlaybackSample{}, nil, err
	}
	if track == nil {
		return PlaybackSample{IsRunning: true}, nil, nil
	}
	return PlaybackSample{IsRunning: true, TrackID: track.ID}, track, nil
}
