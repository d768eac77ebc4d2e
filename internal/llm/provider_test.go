package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"dynamite/internal/core"
)

type scriptedClient struct {
	answer string
	err    error
	got    string
}

func (s *scriptedClient) Complete(_ context.Context, _, text string) (string, error) {
	s.got = text
	return s.answer, s.err
}

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"Plain", "daft punk one more time", "daft punk one more time"},
		{"Quoted", `"Daft Punk One More Time"`, "Daft Punk One More Time"},
		{"Labelled", "Query: queen bohemian rhapsody", "queen bohemian rhapsody"},
		{"Leading blank lines", "\n\n  abba waterloo\nbecause it is famous", "abba waterloo"},
		{"Empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanQuery(tt.answer); got != tt.want {
				t.Errorf("cleanQuery(%q) = %q, expected %q", tt.answer, got, tt.want)
			}
		})
	}
}

func TestSuggestQuery(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		answer  string
		err     error
		want    string
		wantErr error
	}{
		{name: "Suggestion", text: "dafpunk one mor time", answer: "Daft Punk One More Time", want: "Daft Punk One More Time"},
		{name: "No suggestion", text: "asdf", answer: "NONE", wantErr: core.ErrNoResults},
		{name: "Same query", text: "abba", answer: "ABBA", wantErr: core.ErrNoResults},
		{name: "Client failure", text: "abba", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{answer: tt.answer, err: tt.err}
			p := newProvider(&core.LLMConfig{}, client, zap.NewNop())

			got, err := p.SuggestQuery(context.Background(), "  "+tt.text+"  ")
			switch {
			case tt.err != nil:
				if !errors.Is(err, tt.err) {
					t.Fatalf("SuggestQuery() error = %v, expected %v", err, tt.err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SuggestQuery() error = %v, expected %v", err, tt.wantErr)
				}
			default:
				if err != nil || got != tt.want {
					t.Fatalf("SuggestQuery() = %q, %v, expected %q", got, err, tt.want)
				}
			}
			if client.got != tt.text {
				t.Errorf("Client saw %q, expected trimmed %q", client.got, tt.text)
			}
		})
	}

	p := newProvider(&core.LLMConfig{}, &scriptedClient{}, zap.NewNop())
	if _, err := p.SuggestQuery(context.Background(), " "); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  core.LLMConfig
		wantNil bool
		wantErr bool
	}{
		{name: "None", config: core.LLMConfig{Provider: "none"}, wantNil: true},
		{name: "Empty", config: core.LLMConfig{}, wantNil: true},
		{name: "OpenAI without key", config: core.LLMConfig{Provider: "openai"}, wantErr: true},
		{name: "Anthropic without key", config: core.LLMConfig{Provider: "anthropic"}, wantErr: true},
		{name: "OpenAI", config: core.LLMConfig{Provider: "openai", APIKey: "k"}},
		{name: "Anthropic", config: core.LLMConfig{Provider: "Anthropic", APIKey: "k"}},
		{name: "Ollama", config: core.LLMConfig{Provider: "ollama"}},
		{name: "Unknown", config: core.LLMConfig{Provider: "markov"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(&tt.config, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (p == nil) != tt.wantNil {
				t.Errorf("NewProvider() nil = %v, expected %v", p == nil, tt.wantNil)
			}
		})
	}
}

func TestOllamaComplete(t *testing.T) {
	var got OllamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(OllamaResponse{Response: "abba waterloo", Done: true})
	}))
	defer server.Close()

	client, err := NewOllamaClient(&core.LLMConfig{BaseURL: server.URL + "/"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}

	answer, err := client.Complete(context.Background(), "sys", "abba watrloo")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "abba waterloo" {
		t.Errorf("Complete() = %q", answer)
	}
	if got.Model != defaultOllamaModel || got.System != "sys" || got.Prompt != "abba watrloo" || got.Stream {
		t.Errorf("Unexpected request %+v", got)
	}
}

func TestOllamaCompleteStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := NewOllamaClient(&core.LLMConfig{BaseURL: server.URL}, zap.NewNop())
	if _, err := client.Complete(context.Background(), "sys", "x"); err == nil {
		t.Error("Expected error for non-200 status")
	}
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "queen bohemian rhapsody"}}]
		}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(&core.LLMConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	answer, err := client.Complete(context.Background(), suggestPrompt, "qeen bohemian")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "queen bohemian rhapsody" {
		t.Errorf("Complete() = %q", answer)
	}
}
