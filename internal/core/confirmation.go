package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxChoices is how many search results a user can pick from.
const MaxChoices = 3

// SessionState is a state of the confirmation dialog.
type SessionState int

const (
	// StateIdle means no dialog is in progress
	StateIdle SessionState = iota
	// StateAwaitingSelection means the user has to pick one of the search results
	StateAwaitingSelection
	// StateAwaitingConfirmation means the user has to confirm the chosen track
	StateAwaitingConfirmation
	// StateApplied means the user confirmed and the placement has to run
	StateApplied
	// StateDeclined means the user said no
	StateDeclined
	// StateAbandoned means the dialog ran out of retries or time
	StateAbandoned
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSelection:
		return "awaiting_selection"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateApplied:
		return "applied"
	case StateDeclined:
		return "declined"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session is destroyed on entering s.
func (s SessionState) Terminal() bool {
	return s == StateApplied || s == StateDeclined || s == StateAbandoned
}

// EventKind is the alphabet of the confirmation dialog.
type EventKind int

const (
	// EventSelection carries a 1-based choice
	EventSelection EventKind = iota
	// EventAffirm is a yes
	EventAffirm
	// EventDeny is a no
	EventDeny
	// EventTimeout ends the dialog
	EventTimeout
	// EventUnrecognized is any reply that is none of the above
	EventUnrecognized
)

// SessionEvent is one user reply, already classified.
type SessionEvent struct {
	Kind      EventKind
	Selection int
}

func Selection(n int) SessionEvent { return SessionEvent{Kind: EventSelection, Selection: n} }
func Affirm() SessionEvent { return SessionEvent{Kind: EventAffirm} }
func Deny() SessionEvent { return SessionEvent{Kind: EventDeny} }
func Timeout() SessionEvent { return SessionEvent{Kind: EventTimeout} }
func Unrecognized() SessionEvent { return SessionEvent{Kind: EventUnrecognized} }

// SessionKey identifies one dialog: one user in one channel.
type SessionKey struct {
	UserID string
	ChatID string
}

// Session is an in-flight confirmation dialog. Sessions live in memory only.
type Session struct {
	ID           string
	Key          SessionKey
	State        SessionState
	Candidates   []Track
	Selected     *Track
	Retries      int
	OriginMsgID  string
	StartedAt    time.Time
	LastActivity time.Time
}

// Transition describes what a reply did to a session.
type Transition struct {
	From    SessionState
	To      SessionState
	Session Session
	// Reprompt is set when the reply was invalid but retries remain.
	Reprompt bool
}

// ConfirmationFlow holds at most one session per key.
type ConfirmationFlow struct {
	mu          sync.Mutex
	sessions    map[SessionKey]*Session
	maxRetries  int
	idleTimeout time.Duration
	now         func() time.Time
}

func NewConfirmationFlow(maxRetries int, idleTimeout time.Duration) *ConfirmationFlow {
	if maxRetries < 0 {
		maxRetries = DefaultMaxConfirmRetries
	}
	return &ConfirmationFlow{
		sessions:    make(map[SessionKey]*Session),
		maxRetries:  maxRetries,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// BeginSearch opens a selection dialog with up to MaxChoices results,
// replacing any session for key. It returns false when results is empty.
func (f *ConfirmationFlow) BeginSearch(key SessionKey, results []Track, originMsgID string) (Session, bool) {
	if len(results) == 0 {
		return Session{}, false
	}
	if len(results) > MaxChoices {
		results = results[:MaxChoices]
	}
	return f.begin(key, StateAwaitingSelection, results, nil, originMsgID), true
}

// BeginAdd opens a confirmation dialog for a single track, replacing any
// session for key.
func (f *ConfirmationFlow) BeginAdd(key SessionKey, track Track, originMsgID string) Session {
	selected := track
	return f.begin(key, StateAwaitingConfirmation, []Track{track}, &selected, originMsgID)
}

func (f *ConfirmationFlow) begin(key SessionKey, state SessionState, candidates []Track,
	selected *Track, originMsgID string) Session {
	now := f.now()
	cands := make([]Track, len(candidates))
	copy(cands, candidates)

	s := &Session{
		ID:           uuid.NewString(),
		Key:          key,
		State:        state,
		Candidates:   cands,
		Selected:     selected,
		OriginMsgID:  originMsgID,
		StartedAt:    now,
		LastActivity: now,
	}

	f.mu.Lock()
	f.sessions[key] = s
	f.mu.Unlock()
	return *s
}

// Get returns a copy of the session for key.
func (f *ConfirmationFlow) Get(key SessionKey) (Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[key]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Active returns the number of open sessions.
func (f *ConfirmationFlow) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// Handle feeds one reply into the session for key. The bool is false when
// there is no session.
func (f *ConfirmationFlow) Handle(key SessionKey, ev SessionEvent) (Transition, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[key]
	if !ok {
		return Transition{}, false
	}

	from := s.State
	s.LastActivity = f.now()

	switch {
	case ev.Kind == EventTimeout:
		s.State = StateAbandoned
	case s.State == StateAwaitingSelection && ev.Kind == EventSelection &&
		ev.Selection >= 1 && ev.Selection <= len(s.Candidates):
		chosen := s.Candidates[ev.Selection-1]
		s.Selected = &chosen
		s.State = StateAwaitingConfirmation
		s.Retries = 0
	case s.State == StateAwaitingSelection && ev.Kind == EventDeny:
		s.State = StateDeclined
	case s.State == StateAwaitingConfirmation && ev.Kind == EventAffirm:
		s.State = StateApplied
	case s.State == StateAwaitingConfirmation && ev.Kind == EventDeny:
		s.State = StateDeclined
	default:
		s.Retries++
		if s.Retries > f.maxRetries {
			s.State = StateAbandoned
		}
	}

	t := Transition{
		From:     from,
		To:       s.State,
		Session:  *s,
		Reprompt: s.State == from,
	}
	if s.State.Terminal() {
		delete(f.sessions, key)
	}
	return t, true
}

// Expire abandons every session idle for longer than the idle timeout.
func (f *ConfirmationFlow) Expire(now time.Time) []Transition {
	if f.idleTimeout <= 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var expired []Transition
	for key, s := range f.sessions {
		if now.Sub(s.LastActivity) <= f.idleTimeout {
			continue
		}
		from := s.State
		s.State = StateAbandoned
		expired = append(expired, Transition{From: from, To: StateAbandoned, Session: *s})
		delete(f.sessions, key)
	}
	return expired
}

// Cancel drops the session for key without a transition.
func (f *ConfirmationFlow) Cancel(key SessionKey) {
	f.mu.Lock()
	delete(f.sessions, key)
	f.mu.Unlock()
}
