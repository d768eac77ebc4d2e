// Package bot turns chat messages into playlist operations and
// confirmation dialogs, and announces playback changes.
package bot

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"dynamite/internal/chat"
	"dynamite/internal/core"
	"dynamite/internal/i18n"
	"dynamite/pkg/text"
)

// Dispatcher handles the messages of one chat frontend.
type Dispatcher struct {
	config    *core.Config
	frontend  chat.Frontend
	services  Services
	flow      *core.ConfirmationFlow
	parser    *text.Parser
	localizer *i18n.Localizer
	logger    *zap.Logger

	startedAt time.Time
	hostname  string

	// pending holds the not yet processed messages of each busy session.
	pendingMu sync.Mutex
	pending   map[core.SessionKey][]*chat.Message
}

// NewDispatcher creates a dispatcher with its own confirmation dialogs.
func NewDispatcher(config *core.Config, frontend chat.Frontend, services Services, logger *zap.Logger) *Dispatcher {
	if services.Metrics == nil {
		services.Metrics = core.NopMetrics{}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Dispatcher{
		config:   config,
		frontend: frontend,
		services: services,
		flow: core.NewConfirmationFlow(config.App.MaxConfirmRetries,
			time.Duration(config.App.ConfirmTimeoutSecs)*time.Second),
		parser:    text.NewParser(config.App.BotName),
		localizer: i18n.NewLocalizer(config.App.Language),
		logger:    logger.With(zap.String("frontend", frontend.Name())),
		startedAt: time.Now(),
		hostname:  hostname,
		pending:   make(map[core.SessionKey][]*chat.Message),
	}
}

// Start blocks handling the frontend's messages until ctx is done. The
// frontend must already be started.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("Starting message dispatcher")

	go d.runSessionSweeper(ctx)

	return d.frontend.Listen(ctx, func(msg *chat.Message) {
		d.enqueue(ctx, msg)
	})
}

func sessionKeyOf(msg *chat.Message) core.SessionKey {
	return core.SessionKey{UserID: msg.SenderID, ChatID: msg.ChatID}
}

// enqueue processes messages of different sessions concurrently and those of
// one session in arrival order.
func (d *Dispatcher) enqueue(ctx context.Context, msg *chat.Message) {
	key := sessionKeyOf(msg)

	d.pendingMu.Lock()
	queue, busy := d.pending[key]
	d.pending[key] = append(queue, msg)
	d.pendingMu.Unlock()

	if !busy {
		go d.drain(ctx, key)
	}
}

func (d *Dispatcher) drain(ctx context.Context, key core.SessionKey) {
	for {
		d.pendingMu.Lock()
		queue := d.pending[key]
		if len(queue) == 0 {
			delete(d.pending, key)
			d.pendingMu.Unlock()
			return
		}
		msg := queue[0]
		d.pending[key] = queue[1:]
		d.pendingMu.Unlock()

		d.processMessage(ctx, msg)
	}
}

// processMessage routes one message. Commands win over dialog replies, so
// a user stuck in a dialog can always start over.
func (d *Dispatcher) processMessage(ctx context.Context, msg *chat.Message) {
	stripped, mentioned := d.parser.StripAddressing(msg.Text)
	addressed := mentioned || msg.IsAddressed

	d.logger.Debug("Processing message",
		zap.String("messageID", msg.ID),
		zap.String("sender", msg.SenderName),
		zap.String("text", stripped),
		zap.Bool("addressed", addressed))

	key := sessionKeyOf(msg)

	cmd := d.parser.ParseCommand(stripped)
	if cmd.Kind != text.CommandNone && (addressed || !msg.IsGroup) {
		d.runCommand(ctx, msg, key, cmd)
		return
	}

	if _, ok := d.flow.Get(key); ok {
		d.handleSessionReply(ctx, msg, key, text.ParseReply(stripped))
		return
	}

	if addressed {
		d.reply(ctx, msg, d.localizer.T("reply.not_understood"))
	}
}

func (d *Dispatcher) runCommand(ctx context.Context, msg *chat.Message, key core.SessionKey, cmd text.Command) {
	if fg := d.services.Floodgate; fg != nil && !fg.CheckMessage(msg.ChatID, msg.SenderID) {
		d.logger.Info("Throttling user", zap.String("sender", msg.SenderID))
		d.services.Metrics.RecordCommand(cmd.Kind.String(), statusThrottle)
		d.reply(ctx, msg, d.localizer.T("reply.rate_limited"))
		return
	}

	var err error
	switch cmd.Kind {
	case text.CommandSearch:
		err = d.handleSearch(ctx, msg, key, cmd.Arg)
	case text.CommandAdd:
		err = d.handleAdd(ctx, msg, key, cmd.Arg)
	case text.CommandUpNext:
		err = d.handleUpNext(ctx, msg)
	case text.CommandInfo:
		err = d.handleInfo(ctx, msg)
	case text.CommandDetail:
		err = d.handleDetail(ctx, msg)
	case text.CommandHelp:
		d.reply(ctx, msg, d.localizer.T("info.help"))
	case text.CommandHello:
		d.react(ctx, msg, radioReaction)
		d.reply(ctx, msg, d.localizer.T("reply.hello"))
	case text.CommandUptime:
		d.reply(ctx, msg, d.localizer.T("info.uptime",
			d.config.App.BotName, formatUptime(time.Since(d.startedAt)), d.hostname))
	}

	status := statusOK
	if err != nil {
		status = statusError
		d.replyError(ctx, msg, err)
	}
	d.services.Metrics.RecordCommand(cmd.Kind.String(), status)
}

// handleSessionReply feeds a reply into the open dialog of key.
func (d *Dispatcher) handleSessionReply(ctx context.Context, msg *chat.Message, key core.SessionKey, ev core.SessionEvent) {
	tr, ok := d.flow.Handle(key, ev)
	if !ok {
		return
	}

	d.logger.Debug("Dialog transition",
		zap.String("session", tr.Session.ID),
		zap.Stringer("from", tr.From),
		zap.Stringer("to", tr.To),
		zap.Int("retries", tr.Session.Retries))

	switch {
	case tr.Reprompt && tr.To == core.StateAwaitingSelection:
		d.reply(ctx, msg, d.localizer.T("prompt.select_retry", len(tr.Session.Candidates)))
	case tr.Reprompt:
		d.reply(ctx, msg, d.localizer.T("prompt.confirm_retry"))
	case tr.To == core.StateAwaitingConfirmation:
		d.presentConfirmation(ctx, msg, *tr.Session.Selected)
	case tr.To == core.StateApplied:
		d.services.Metrics.RecordSession(tr.To.String())
		if err := d.apply(ctx, msg, tr.Session); err != nil {
			d.replyError(ctx, msg, err)
		}
	case tr.To == core.StateDeclined:
		d.services.Metrics.RecordSession(tr.To.String())
		d.reply(ctx, msg, d.localizer.T("flow.declined"))
	case tr.To == core.StateAbandoned:
		d.services.Metrics.RecordSession(tr.To.String())
		d.reply(ctx, msg, d.localizer.T("flow.abandoned"))
	}
}

// apply places the confirmed track and tells the chat what happened.
func (d *Dispatcher) apply(ctx context.Context, msg *chat.Message, session core.Session) error {
	track := *session.Selected

	placement, err := d.services.Placer.Place(ctx, track)
	if err != nil {
		return err
	}

	d.logger.Info("Track placed",
		zap.String("session", session.ID),
		zap.String("track_id", track.ID),
		zap.Stringer("placement", placement))

	switch {
	case placement.IsNoOp():
		d.reply(ctx, msg, d.localizer.T("flow.already_next", track.DisplayTitle()))
	case placement.Kind == core.PlacementAlreadyPresent:
		d.reply(ctx, msg, d.localizer.T("flow.moving", track.DisplayTitle()))
	default:
		d.reply(ctx, msg, d.localizer.T("flow.added", track.DisplayTitle()))
		if d.services.Announcer != nil {
			d.services.Announcer.AnnounceAddition(ctx, msg.SenderName, track)
		}
	}

	if session.OriginMsgID != "" {
		d.react(ctx, &chat.Message{ChatID: msg.ChatID, ID: session.OriginMsgID}, thumbsUpReaction)
	}
	return nil
}

// runSessionSweeper abandons idle dialogs until ctx is done.
func (d *Dispatcher) runSessionSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.expireSessions(ctx, now)
		}
	}
}

func (d *Dispatcher) expireSessions(ctx context.Context, now time.Time) {
	for _, tr := range d.flow.Expire(now) {
		d.logger.Debug("Dialog timed out",
			zap.String("session", tr.Session.ID),
			zap.Stringer("from", tr.From))
		d.services.Metrics.RecordSession("timeout")

		if _, err := d.frontend.SendText(ctx, tr.Session.Key.ChatID, tr.Session.OriginMsgID,
			d.localizer.T("flow.abandoned")); err != nil {
			d.logger.Debug("Failed to send timeout message", zap.Error(err))
		}
	}
}
