// Package whatsapp provides WhatsApp client integration using whatsmeow library.
package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	// SQLite driver for whatsmeow session storage
	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"dynamite/internal/chat"
)

const (
	frontendName = "whatsapp"
	// senderCacheSize bounds the message ID to sender index used for reactions.
	senderCacheSize = 512
)

// Config holds WhatsApp-specific configuration
type Config struct {
	GroupJID    string
	DeviceName  string
	SessionPath string
	Enabled     bool
}

// Frontend implements the chat.Frontend interface for WhatsApp
type Frontend struct {
	config    *Config
	logger    *zap.Logger
	client    *whatsmeow.Client
	container *sqlstore.Container

	// Reactions must name the original sender, which only the incoming event knows.
	senders *lru.Cache[string, types.JID]

	messageHandler func(*chat.Message)
}

// NewFrontend creates a new WhatsApp frontend
func NewFrontend(config *Config, logger *zap.Logger) *Frontend {
	senders, _ := lru.New[string, types.JID](senderCacheSize)
	return &Frontend{
		config:  config,
		logger:  logger,
		senders: senders,
	}
}

func (f *Frontend) Name() string {
	return frontendName
}

func (f *Frontend) ReportingChatID() string {
	return f.config.GroupJID
}

// Start initializes the WhatsApp client, pairing by QR code on first use
func (f *Frontend) Start(ctx context.Context) error {
	if !f.config.Enabled {
		f.logger.Info("WhatsApp frontend is disabled, skipping initialization")
		return nil
	}

	f.logger.Warn("⚠️  WhatsApp bot mode uses an unofficial client and may violate the WhatsApp ToS")
	f.logger.Info("Starting WhatsApp frontend")

	if err := f.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}

	if err := f.initClient(ctx); err != nil {
		return fmt.Errorf("failed to init client: %w", err)
	}

	f.client.AddEventHandler(f.handleEvent)

	if f.client.Store.ID == nil {
		qrChan, _ := f.client.GetQRChannel(ctx)
		if err := f.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		for evt := range qrChan {
			if evt.Event == "code" {
				f.logger.Info("QR code received, please scan with your phone")
				fmt.Println("QR Code:")
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			} else {
				f.logger.Info("Login event", zap.String("event", evt.Event))
			}
		}
	} else if err := f.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	f.logger.Info("WhatsApp frontend started successfully")
	return nil
}

// Listen blocks until ctx is done; messages arrive through the event handler
func (f *Frontend) Listen(ctx context.Context, handler func(*chat.Message)) error {
	if !f.config.Enabled {
		return nil
	}

	f.messageHandler = handler
	<-ctx.Done()
	return f.stop()
}

// SendText sends a text message to the specified chat, optionally as a reply
func (f *Frontend) SendText(ctx context.Context, chatID, replyToID, text string) (string, error) {
	if !f.config.Enabled {
		return "", fmt.Errorf("whatsapp frontend is disabled")
	}

	jid, err := types.ParseJID(chatID)
	if err != nil {
		return "", fmt.Errorf("invalid chat JID: %w", err)
	}

	msg := &waE2E.Message{Conversation: &text}
	if replyToID != "" {
		contextInfo := &waE2E.ContextInfo{StanzaID: &replyToID}
		if sender, ok := f.senders.Get(replyToID); ok {
			participant := sender.String()
			contextInfo.Participant = &participant
		}
		msg = &waE2E.Message{
			ExtendedTextMessage: &waE2E.ExtendedTextMessage{
				Text:        &text,
				ContextInfo: contextInfo,
			},
		}
	}

	resp, err := f.client.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return resp.ID, nil
}

// PresentChoices sends the prompt with the options as a numbered list. The
// user answers by typing the reply.
func (f *Frontend) PresentChoices(ctx context.Context, chatID, replyToID, prompt string, choices []chat.Choice) (string, error) {
	return f.SendText(ctx, chatID, replyToID, formatChoices(prompt, choices))
}

// React adds an emoji reaction to a message
func (f *Frontend) React(ctx context.Context, chatID, msgID string, r chat.Reaction) error {
	if !f.config.Enabled {
		return fmt.Errorf("whatsapp frontend is disabled")
	}

	jid, err := types.ParseJID(chatID)
	if err != nil {
		return fmt.Errorf("invalid chat JID: %w", err)
	}

	sender, ok := f.senders.Get(msgID)
	if !ok {
		f.logger.Debug("Unknown sender for reaction, skipping", zap.String("msgID", msgID))
		return nil
	}

	reactionMsg := f.client.BuildReaction(jid, sender, msgID, string(r))
	_, err = f.client.SendMessage(ctx, jid, reactionMsg)
	return err
}

// handleEvent processes incoming WhatsApp events
func (f *Frontend) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		f.handleMessageEvent(v)
	case *events.KeepAliveTimeout:
		f.logger.Warn("Received KeepAlive timeout, reconnecting...")
	case *events.KeepAliveRestored:
		f.logger.Info("Connection restored after timeout")
	case *events.LoggedOut:
		f.logger.Error("WhatsApp session logged out, delete the session file and pair again")
	}
}

// handleMessageEvent processes incoming messages
func (f *Frontend) handleMessageEvent(evt *events.Message) {
	if evt.Message == nil || evt.Info.IsFromMe {
		return
	}

	isGroup := evt.Info.Chat.Server == types.GroupServer
	if isGroup && f.config.GroupJID != "" && evt.Info.Chat.String() != f.config.GroupJID {
		return
	}
	if !isGroup && evt.Info.Chat.Server != types.DefaultUserServer {
		return
	}

	text := extractMessageText(evt.Message)
	if text == "" {
		return
	}

	f.senders.Add(evt.Info.ID, evt.Info.Sender)

	message := chat.Message{
		ID:          evt.Info.ID,
		ChatID:      evt.Info.Chat.String(),
		SenderID:    evt.Info.Sender.String(),
		SenderName:  evt.Info.PushName,
		Text:        text,
		IsGroup:     isGroup,
		IsAddressed: !isGroup || mentionsUser(evt.Message, f.ownUser()),
		Raw:         evt,
	}

	if f.messageHandler != nil {
		f.messageHandler(&message)
	}
}

func (f *Frontend) ownUser() string {
	if f.client == nil || f.client.Store == nil || f.client.Store.ID == nil {
		return ""
	}
	return f.client.Store.ID.User
}

// stop closes the WhatsApp client connection
func (f *Frontend) stop() error {
	f.logger.Info("Stopping WhatsApp frontend")

	if f.client != nil {
		f.client.Disconnect()
	}

	if f.container != nil {
		if err := f.container.Close(); err != nil {
			f.logger.Warn("Failed to close whatsapp container", zap.Error(err))
		}
	}

	return nil
}

// initDatabase initializes the SQLite database for session storage
func (f *Frontend) initDatabase(ctx context.Context) error {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", f.config.SessionPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	container := sqlstore.NewWithDB(db, "sqlite3", nil)
	f.container = container
	return container.Upgrade(ctx)
}

// initClient initializes the WhatsApp client
func (f *Frontend) initClient(ctx context.Context) error {
	deviceStore, err := f.container.GetFirstDevice(ctx)
	if err != nil {
		return err
	}

	f.client = whatsmeow.NewClient(deviceStore, nil)
	return nil
}

// extractMessageText extracts text content from various WhatsApp message types
func extractMessageText(msg *waE2E.Message) string {
	if msg.Conversation != nil {
		return *msg.Conversation
	}

	if msg.ExtendedTextMessage != nil && msg.ExtendedTextMessage.Text != nil {
		return *msg.ExtendedTextMessage.Text
	}

	if msg.ImageMessage != nil && msg.ImageMessage.Caption != nil {
		return *msg.ImageMessage.Caption
	}

	return ""
}

// mentionsUser reports whether msg mentions or replies to the given user part of a JID.
func mentionsUser(msg *waE2E.Message, user string) bool {
	if user == "" || msg.ExtendedTextMessage == nil {
		return false
	}
	info := msg.ExtendedTextMessage.GetContextInfo()
	if info == nil {
		return false
	}

	if strings.HasPrefix(info.GetParticipant(), user+"@") {
		return true
	}
	for _, jid := range info.GetMentionedJID() {
		if strings.HasPrefix(jid, user+"@") {
			return true
		}
	}
	return false
}

func formatChoices(prompt string, choices []chat.Choice) string {
	var b strings.Builder
	b.WriteString(prompt)
	for _, c := range choices {
		b.WriteString("\n")
		b.WriteString(c.Label)
	}
	return b.String()
}
