// Package chat provides a unified interface for chat frontends (WhatsApp, Telegram, etc.)
package chat

import (
	"context"
)

// Message represents a normalized chat message from any frontend
type Message struct {
	ID         string
	ChatID     string
	SenderID   string
	SenderName string
	Text       string
	IsGroup    bool
	// IsAddressed is set for private chats, replies to the bot and messages
	// whose bot mention the frontend already stripped.
	IsAddressed bool
	Raw         any // underlying library message struct
}

// Reaction represents standard emoji reactions
type Reaction string

const (
	ReactionThumbsUp   Reaction = "👍"
	ReactionThumbsDown Reaction = "👎"
	ReactionRadio      Reaction = "📻"
)

// Choice is one option of a prompt. Reply is the text the frontend feeds
// back as a message from the chooser when the option is picked.
type Choice struct {
	Label string
	Reply string
}

// Frontend defines the unified interface for all chat integrations
type Frontend interface {
	// Name identifies the frontend in logs and metrics
	Name() string

	// Start initializes the chat frontend
	Start(ctx context.Context) error

	// Listen blocks, calling handler for each message until ctx is done
	Listen(ctx context.Context, handler func(*Message)) error

	// SendText sends a text message to the specified chat, optionally as a reply
	SendText(ctx context.Context, chatID string, replyToID string, text string) (string, error)

	// React adds an emoji reaction to a message
	React(ctx context.Context, chatID string, msgID string, r Reaction) error

	// PresentChoices sends prompt with options, as buttons where the
	// platform supports them and as a numbered list otherwise
	PresentChoices(ctx context.Context, chatID, replyToID, prompt string, choices []Choice) (string, error)

	// ReportingChatID is where announcements go, empty when unset
	ReportingChatID() string
}
