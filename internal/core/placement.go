package core

import "fmt"

// PlacementKind says whether the candidate already sits in the playlist.
type PlacementKind int

const (
	// PlacementNotPresent means the candidate has to be inserted
	PlacementNotPresent PlacementKind = iota
	// PlacementAlreadyPresent means the candidate has to be moved
	PlacementAlreadyPresent
)

func (k PlacementKind) String() string {
	switch k {
	case PlacementAlreadyPresent:
		return "already_present"
	case PlacementNotPresent:
		return "not_present"
	default:
		return "unknown"
	}
}

// Placement is where a candidate belongs relative to the playing track.
type Placement struct {
	Kind          PlacementKind
	TrackID       string
	ExistingIndex int
	TargetIndex   int
	// Anchored is false when the current track was not in the snapshot and
	// the placement falls back to appending.
	Anchored bool
}

// IsNoOp reports whether moving ExistingIndex before TargetIndex leaves the
// order unchanged.
func (p Placement) IsNoOp() bool {
	if p.Kind != PlacementAlreadyPresent {
		return false
	}
	return p.ExistingIndex == p.TargetIndex || p.ExistingIndex+1 == p.TargetIndex
}

func (p Placement) String() string {
	if p.Kind == PlacementAlreadyPresent {
		return fmt.Sprintf("%s{existing=%d target=%d}", p.Kind, p.ExistingIndex, p.TargetIndex)
	}
	return fmt.Sprintf("%s{target=%d}", p.Kind, p.TargetIndex)
}

// ResolvePlacement computes the slot right after the current track. When the
// current track is missing from the snapshot the target is the end of the
// playlist.
func ResolvePlacement(candidateID, currentTrackID string, snapshot PlaylistSnapshot) Placement {
	target := len(snapshot)
	anchored := false
	if current := snapshot.IndexOf(currentTrackID); current >= 0 {
		target = current + 1
		anchored = true
	}

	if existing := snapshot.IndexOf(candidateID); existing >= 0 {
		return Placement{
			Kind:          PlacementAlreadyPresent,
			TrackID:       candidateID,
			ExistingIndex: existing,
			TargetIndex:   target,
			Anchored:      anchored,
		}
	}

	return Placement{
		Kind:          PlacementNotPresent,
		TrackID:       candidateID,
		ExistingIndex: -1,
		TargetIndex:   target,
		Anchored:      anchored,
	}
}
