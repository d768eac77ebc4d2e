package bot

import (
	"context"
	"time"

	"dynamite/internal/chat"
	"dynamite/internal/core"
	"dynamite/internal/flood"
)

const (
	thumbsUpReaction = chat.ReactionThumbsUp
	radioReaction    = chat.ReactionRadio

	// sweepInterval is how often idle dialogs are checked for expiry
	sweepInterval = 5 * time.Second

	// Replies that presented choices feed back into the dialog
	replyYes = "yes"
	replyNo  = "no"

	// Command statuses reported to metrics
	statusOK       = "ok"
	statusError    = "error"
	statusThrottle = "throttled"
)

// Placer runs one placement of a track right after the playing one.
type Placer interface {
	Place(ctx context.Context, track core.Track) (core.Placement, error)
}

// Announcer posts to the reporting chats of every frontend.
type Announcer interface {
	AnnounceAddition(ctx context.Context, sender string, track core.Track)
}

// Services are the collaborators a dispatcher needs. Suggester, Floodgate
// and Announcer may be nil.
type Services struct {
	Catalog   core.Catalog
	Player    core.PlayerQuery
	State     *core.PollerState
	Placer    Placer
	Suggester core.QuerySuggester
	Floodgate *flood.Floodgate
	Announcer Announcer
	Metrics   core.Metrics
}
