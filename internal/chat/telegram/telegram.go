// Package telegram provides Telegram Bot API integration using go-telegram/bot library.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"dynamite/internal/chat"
)

const (
	frontendName       = "telegram"
	chatTypePrivate    = "private"
	chatTypeGroup      = "group"
	chatTypeSuperGroup = "supergroup"
	choicePrefix       = "choice_"
)

// Config holds Telegram-specific configuration
type Config struct {
	BotToken string
	GroupID  int64 // Chat ID of the group to monitor, 0 accepts any chat
	Enabled  bool
}

// botAPI is the part of *bot.Bot the frontend sends through.
type botAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SetMessageReaction(ctx context.Context, params *bot.SetMessageReactionParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Frontend implements the chat.Frontend interface for Telegram
type Frontend struct {
	config *Config
	logger *zap.Logger
	bot    *bot.Bot
	api    botAPI

	botID       int64
	botUsername string

	messageHandler func(*chat.Message)
}

// NewFrontend creates a new Telegram frontend
func NewFrontend(config *Config, logger *zap.Logger) *Frontend {
	return &Frontend{
		config: config,
		logger: logger,
	}
}

func (f *Frontend) Name() string {
	return frontendName
}

// ReportingChatID returns the configured group.
func (f *Frontend) ReportingChatID() string {
	if f.config.GroupID == 0 {
		return ""
	}
	return strconv.FormatInt(f.config.GroupID, 10)
}

// Start initializes the Telegram bot
func (f *Frontend) Start(ctx context.Context) error {
	if !f.config.Enabled {
		f.logger.Info("Telegram frontend is disabled, skipping initialization")
		return nil
	}

	f.logger.Info("Starting Telegram frontend",
		zap.Int64("group_id", f.config.GroupID))

	opts := []bot.Option{
		bot.WithDefaultHandler(f.handleUpdate),
		bot.WithCallbackQueryDataHandler(choicePrefix, bot.MatchTypePrefix, f.handleChoiceCallback),
	}

	b, err := bot.New(f.config.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	f.bot = b
	f.api = b

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot identity: %w", err)
	}
	f.botID = me.ID
	f.botUsername = me.Username

	if f.config.GroupID != 0 {
		if err := f.verifyGroupAccess(ctx); err != nil {
			return fmt.Errorf("failed to verify group access: %w", err)
		}
	}

	f.logger.Info("Telegram frontend started successfully",
		zap.String("bot_username", f.botUsername))
	return nil
}

// Listen starts the long polling loop and blocks until ctx is done
func (f *Frontend) Listen(ctx context.Context, handler func(*chat.Message)) error {
	if !f.config.Enabled {
		return nil
	}

	f.messageHandler = handler
	f.bot.Start(ctx)
	return nil
}

// SendText sends Markdown text, falling back to plain text when Telegram
// refuses to parse it.
func (f *Frontend) SendText(ctx context.Context, chatID, replyToID, text string) (string, error) {
	return f.send(ctx, chatID, replyToID, text, nil)
}

// PresentChoices sends prompt with one inline button per choice.
func (f *Frontend) PresentChoices(ctx context.Context, chatID, replyToID, prompt string, choices []chat.Choice) (string, error) {
	row := make([]models.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		row = append(row, models.InlineKeyboardButton{
			Text:         c.Label,
			CallbackData: choicePrefix + c.Reply,
		})
	}
	markup := &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
	return f.send(ctx, chatID, replyToID, prompt, markup)
}

func (f *Frontend) send(ctx context.Context, chatID, replyToID, text string, markup models.ReplyMarkup) (string, error) {
	if !f.config.Enabled {
		return "", fmt.Errorf("telegram frontend is disabled")
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID: %w", err)
	}

	// Link previews of Spotify URLs clutter the group.
	disabled := true
	params := &bot.SendMessageParams{
		ChatID:             chatIDInt,
		Text:               text,
		ParseMode:          models.ParseModeMarkdownV1,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if replyToID != "" {
		messageID, parseErr := strconv.Atoi(replyToID)
		if parseErr != nil {
			return "", fmt.Errorf("invalid reply message ID: %w", parseErr)
		}
		params.ReplyParameters = &models.ReplyParameters{MessageID: messageID}
	}

	msg, err := f.api.SendMessage(ctx, params)
	if err != nil {
		f.logger.Debug("Markdown send failed, retrying as plain text", zap.Error(err))
		params.ParseMode = ""
		msg, err = f.api.SendMessage(ctx, params)
	}
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return strconv.Itoa(msg.ID), nil
}

// React adds an emoji reaction to a message
func (f *Frontend) React(ctx context.Context, chatID, msgID string, r chat.Reaction) error {
	if !f.config.Enabled {
		return fmt.Errorf("telegram frontend is disabled")
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	messageID, err := strconv.Atoi(msgID)
	if err != nil {
		return fmt.Errorf("invalid message ID: %w", err)
	}

	_, err = f.api.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    chatIDInt,
		MessageID: messageID,
		Reaction: []models.ReactionType{
			{
				Type: models.ReactionTypeTypeEmoji,
				ReactionTypeEmoji: &models.ReactionTypeEmoji{
					Emoji: string(r),
				},
			},
		},
	})
	if err != nil {
		// Groups may restrict reactions, this is not worth failing a command over
		f.logger.Debug("Failed to set reaction, reactions may not be supported",
			zap.Error(err))
	}
	return nil
}

// handleUpdate processes incoming Telegram updates
func (f *Frontend) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message != nil {
		f.handleMessage(ctx, update.Message)
	}
}

// handleMessage processes incoming messages
func (f *Frontend) handleMessage(_ context.Context, msg *models.Message) {
	private := msg.Chat.Type == chatTypePrivate
	if !private && f.config.GroupID != 0 && msg.Chat.ID != f.config.GroupID {
		return
	}
	if msg.From == nil || msg.From.IsBot {
		return
	}
	if msg.Text == "" {
		return
	}

	text, mentioned := stripBotMention(msg.Text, f.botUsername)
	replyToBot := msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil &&
		f.botID != 0 && msg.ReplyToMessage.From.ID == f.botID

	message := chat.Message{
		ID:          strconv.Itoa(msg.ID),
		ChatID:      strconv.FormatInt(msg.Chat.ID, 10),
		SenderID:    strconv.FormatInt(msg.From.ID, 10),
		SenderName:  getUserDisplayName(msg.From),
		Text:        text,
		IsGroup:     msg.Chat.Type == chatTypeGroup || msg.Chat.Type == chatTypeSuperGroup,
		IsAddressed: private || mentioned || replyToBot,
		Raw:         msg,
	}

	if f.messageHandler != nil {
		f.messageHandler(&message)
	}
}

// handleChoiceCallback turns a button press into a message from the presser
// so it goes through the same dialog handling as a typed reply.
func (f *Frontend) handleChoiceCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	query := update.CallbackQuery
	if query == nil || !strings.HasPrefix(query.Data, choicePrefix) {
		return
	}

	if _, err := f.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
	}); err != nil {
		f.logger.Debug("Failed to answer callback query", zap.Error(err))
	}

	prompt := query.Message.Message
	if prompt == nil {
		return
	}

	message := chat.Message{
		ID:         strconv.Itoa(prompt.ID),
		ChatID:     strconv.FormatInt(prompt.Chat.ID, 10),
		SenderID:   strconv.FormatInt(query.From.ID, 10),
		SenderName: getUserDisplayName(&query.From),
		Text:       strings.TrimPrefix(query.Data, choicePrefix),
		IsGroup:    prompt.Chat.Type == chatTypeGroup || prompt.Chat.Type == chatTypeSuperGroup,
		Raw:        query,
	}

	if f.messageHandler != nil {
		f.messageHandler(&message)
	}
}

// verifyGroupAccess checks if the bot has access to the configured group
func (f *Frontend) verifyGroupAccess(ctx context.Context) error {
	chat, err := f.bot.GetChat(ctx, &bot.GetChatParams{
		ChatID: f.config.GroupID,
	})
	if err != nil {
		return fmt.Errorf("cannot access group %d: %w", f.config.GroupID, err)
	}

	f.logger.Info("Bot has access to group",
		zap.String("group_title", chat.Title),
		zap.String("group_type", string(chat.Type)))

	return nil
}

// stripBotMention removes "@username" at the start and the "@username"
// suffix of a slash command.
func stripBotMention(text, username string) (string, bool) {
	text = strings.TrimSpace(text)
	if username == "" {
		return text, false
	}

	mention := "@" + strings.ToLower(username)
	lower := strings.ToLower(text)

	if strings.HasPrefix(lower, mention) {
		return strings.TrimLeft(text[len(mention):], ",: "), true
	}

	if strings.HasPrefix(text, "/") {
		first, rest, _ := strings.Cut(text, " ")
		if strings.HasSuffix(strings.ToLower(first), mention) {
			first = first[:len(first)-len(mention)]
			return strings.TrimSpace(first + " " + rest), true
		}
	}

	return text, false
}

func getUserDisplayName(user *models.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}

	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}
