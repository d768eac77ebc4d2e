package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// PlaylistMutator applies a Placement to the shared playlist. Writes are
// best effort: the snapshot behind a placement may already be stale when the
// write lands, and nothing is retried.
type PlaylistMutator struct {
	catalog Catalog
	logger  *zap.Logger
	metrics Metrics
}

func NewPlaylistMutator(catalog Catalog, metrics Metrics, logger *zap.Logger) *PlaylistMutator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &PlaylistMutator{catalog: catalog, logger: logger, metrics: metrics}
}

// MoveToNext moves the track at ExistingIndex in front of TargetIndex.
func (m *PlaylistMutator) MoveToNext(ctx context.Context, p Placement) error {
	if p.Kind != PlacementAlreadyPresent {
		return fmt.Errorf("move requires an already present placement, got %s", p.Kind)
	}

	if p.IsNoOp() {
		m.logger.Debug("Track already next, skipping reorder", zap.Stringer("placement", p))
		m.metrics.RecordPlacement(p.Kind.String(), "noop")
		return nil
	}

	if err := m.catalog.ReorderTrack(ctx, p.ExistingIndex, p.TargetIndex); err != nil {
		m.metrics.RecordPlacement(p.Kind.String(), "error")
		return NewExternalAPIError("reorder playlist", err)
	}

	m.logger.Info("Moved track to next slot",
		zap.String("track_id", p.TrackID),
		zap.Int("from", p.ExistingIndex),
		zap.Int("insert_before", p.TargetIndex))
	m.metrics.RecordPlacement(p.Kind.String(), "ok")
	return nil
}

// InsertAfterCurrent inserts the track at TargetIndex.
func (m *PlaylistMutator) InsertAfterCurrent(ctx context.Context, track Track, p Placement) error {
	if p.Kind != PlacementNotPresent {
		return fmt.Errorf("insert requires a not present placement, got %s", p.Kind)
	}

	if err := m.catalog.InsertTrack(ctx, track.ID, p.TargetIndex); err != nil {
		m.metrics.RecordPlacement(p.Kind.String(), "error")
		return NewExternalAPIError("add to playlist", err)
	}

	m.logger.Info("Inserted track",
		zap.String("track_id", track.ID),
		zap.String("title", track.Name),
		zap.Int("position", p.TargetIndex),
		zap.Bool("anchored", p.Anchored))
	m.metrics.RecordPlacement(p.Kind.String(), "ok")
	return nil
}

// PlacementService runs one placement: fresh snapshot, current track,
// resolve, mutate.
type PlacementService struct {
	catalog Catalog
	player  PlayerQuery
	state   *PollerState
	mutator *PlaylistMutator
	logger  *zap.Logger
}

func NewPlacementService(catalog Catalog, player PlayerQuery, state *PollerState,
	mutator *PlaylistMutator, logger *zap.Logger) *PlacementService {
	return &PlacementService{
		catalog: catalog,
		player:  player,
		state:   state,
		mutator: mutator,
		logger:  logger,
	}
}

// Place puts track right after the playing one and returns what was done.
func (s *PlacementService) Place(ctx context.Context, track Track) (Placement, error) {
	snapshot, err := s.catalog.GetPlaylistTrackIDs(ctx)
	if err != nil {
		return Placement{}, NewExternalAPIError("get playlist", err)
	}

	currentID := s.currentTrackID(ctx)
	placement := ResolvePlacement(track.ID, currentID, snapshot)
	if !placement.Anchored {
		s.logger.Debug("Appending track",
			zap.String("current_track_id", currentID),
			zap.Int("snapshot_len", len(snapshot)),
			zap.NamedError("reason", ErrStaleState))
	}

	switch placement.Kind {
	case PlacementAlreadyPresent:
		err = s.mutator.MoveToNext(ctx, placement)
	default:
		err = s.mutator.InsertAfterCurrent(ctx, track, placement)
	}
	if err != nil {
		return placement, err
	}
	return placement, nil
}

// currentTrackID prefers the poller's view and falls back to asking the
// player when the poller has not seen a track yet.
func (s *PlacementService) currentTrackID(ctx context.Context) string {
	if s.state != nil {
		if id := s.state.CurrentTrackID(); id != "" {
			return id
		}
	}
	if s.player == nil {
		return ""
	}
	current, err := s.player.CurrentTrack(ctx)
	if err != nil {
		s.logger.Debug("Could not read current track for placement", zap.Error(err))
		return ""
	}
	if current == nil {
		return ""
	}
	return current.ID
}
