package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dynamite/internal/chat"
	"dynamite/internal/core"
)

// reply answers msg in its chat.
func (d *Dispatcher) reply(ctx context.Context, msg *chat.Message, text string) {
	if _, err := d.frontend.SendText(ctx, msg.ChatID, msg.ID, text); err != nil {
		d.logger.Error("Failed to send reply", zap.Error(err))
	}
}

func (d *Dispatcher) present(ctx context.Context, msg *chat.Message, prompt string, choices []chat.Choice) {
	if _, err := d.frontend.PresentChoices(ctx, msg.ChatID, msg.ID, prompt, choices); err != nil {
		d.logger.Error("Failed to present choices", zap.Error(err))
	}
}

func (d *Dispatcher) react(ctx context.Context, msg *chat.Message, r chat.Reaction) {
	if err := d.frontend.React(ctx, msg.ChatID, msg.ID, r); err != nil {
		d.logger.Debug("Failed to add reaction", zap.Error(err))
	}
}

// replyError reports a failed command. Lost authorization gets its own
// message, everything else is quoted as is.
func (d *Dispatcher) replyError(ctx context.Context, msg *chat.Message, err error) {
	var apiErr *core.ExternalAPIError
	switch {
	case errors.Is(err, core.ErrAuthExpired), errors.Is(err, core.ErrRefreshFailed):
		d.services.Metrics.RecordError("dispatcher", "auth")
		d.reply(ctx, msg, d.localizer.T("reply.auth_expired"))
		return
	case errors.As(err, &apiErr):
		d.services.Metrics.RecordError("dispatcher", "external_api")
	default:
		d.services.Metrics.RecordError("dispatcher", "internal")
	}

	d.logger.Warn("Command failed", zap.Error(err))
	d.reply(ctx, msg, d.localizer.T("reply.error", err.Error()))
}

// plainTitle is the title without markup, for button labels.
func plainTitle(track core.Track) string {
	return fmt.Sprintf("%s by %s", track.Name, track.Artists())
}

// formatUptime renders d like "3 days, 4 hours and 5 minutes".
func formatUptime(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, plural(minutes, "minute"))
	}

	if len(parts) == 1 {
		return parts[0]
	}
	last := parts[len(parts)-1]
	head := parts[0]
	for _, p := range parts[1 : len(parts)-1] {
		head += ", " + p
	}
	return head + " and " + last
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
