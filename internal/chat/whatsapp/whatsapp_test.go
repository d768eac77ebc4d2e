package whatsapp

import (
	"context"
	"testing"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"dynamite/internal/chat"
)

func strPtr(s string) *string { return &s }

func TestExtractMessageText(t *testing.T) {
	tests := []struct {
		name     string
		msg      *waE2E.Message
		expected string
	}{
		{"Conversation", &waE2E.Message{Conversation: strPtr("search foo")}, "search foo"},
		{"Extended", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: strPtr("next")}}, "next"},
		{"Image caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: strPtr("info")}}, "info"},
		{"Empty", &waE2E.Message{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractMessageText(tt.msg); got != tt.expected {
				t.Errorf("extractMessageText() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMentionsUser(t *testing.T) {
	mention := &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{
		Text:        strPtr("@4915112345678 info"),
		ContextInfo: &waE2E.ContextInfo{MentionedJID: []string{"4915112345678@s.whatsapp.net"}},
	}}
	reply := &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{
		Text:        strPtr("2"),
		ContextInfo: &waE2E.ContextInfo{Participant: strPtr("4915112345678@s.whatsapp.net")},
	}}
	other := &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{
		Text:        strPtr("@someone"),
		ContextInfo: &waE2E.ContextInfo{MentionedJID: []string{"111@s.whatsapp.net"}},
	}}

	if !mentionsUser(mention, "4915112345678") {
		t.Error("Expected mention to address the bot")
	}
	if !mentionsUser(reply, "4915112345678") {
		t.Error("Expected reply to address the bot")
	}
	if mentionsUser(other, "4915112345678") {
		t.Error("Mention of someone else should not address the bot")
	}
	if mentionsUser(&waE2E.Message{Conversation: strPtr("hi")}, "4915112345678") {
		t.Error("Plain conversation should not address the bot")
	}
}

func TestFormatChoices(t *testing.T) {
	got := formatChoices("Which one?", []chat.Choice{{Label: "1. A", Reply: "1"}, {Label: "2. B", Reply: "2"}})
	if got != "Which one?\n1. A\n2. B" {
		t.Errorf("Unexpected choices text %q", got)
	}
}

func TestHandleMessageEvent(t *testing.T) {
	group, _ := types.ParseJID("123456789-1600000000@g.us")
	otherGroup, _ := types.ParseJID("987654321-1600000000@g.us")
	sender, _ := types.ParseJID("4917000000000@s.whatsapp.net")

	tests := []struct {
		name      string
		chat      types.JID
		fromMe    bool
		delivered bool
		addressed bool
	}{
		{"Configured group", group, false, true, false},
		{"Other group", otherGroup, false, false, false},
		{"Direct message", sender, false, true, true},
		{"Own message", group, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrontend(&Config{Enabled: true, GroupJID: group.String()}, zap.NewNop())
			var got *chat.Message
			f.messageHandler = func(m *chat.Message) { got = m }

			evt := &events.Message{Message: &waE2E.Message{Conversation: strPtr("info")}}
			evt.Info.ID = "msg1"
			evt.Info.Chat = tt.chat
			evt.Info.Sender = sender
			evt.Info.IsFromMe = tt.fromMe
			f.handleMessageEvent(evt)

			if (got != nil) != tt.delivered {
				t.Fatalf("Delivered = %v, want %v", got != nil, tt.delivered)
			}
			if got != nil && got.IsAddressed != tt.addressed {
				t.Errorf("IsAddressed = %v, want %v", got.IsAddressed, tt.addressed)
			}
			if got != nil {
				if cached, ok := f.senders.Get("msg1"); !ok || cached != sender {
					t.Error("Sender should be remembered for reactions")
				}
			}
		})
	}
}

func TestDisabled(t *testing.T) {
	f := NewFrontend(&Config{Enabled: false, GroupJID: "g@g.us"}, zap.NewNop())
	if err := f.Start(context.Background()); err != nil {
		t.Errorf("Start() disabled error = %v", err)
	}
	if _, err := f.SendText(context.Background(), "g@g.us", "", "x"); err == nil {
		t.Error("SendText() should fail when disabled")
	}
	if f.ReportingChatID() != "g@g.us" {
		t.Errorf("Unexpected reporting chat %s", f.ReportingChatID())
	}
}
