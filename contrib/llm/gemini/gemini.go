// Package gemini adapts Google's Gemini models to llm.ChatLLM using the
// official google/generative-ai-go SDK.
//
// The teacher declares github.com/google/generative-ai-go in its go.mod
// but its contrib/provider/gemini/gemini.go never actually calls it,
// hand-rolling a raw HTTP client against the REST endpoint instead. This
// adapter uses the SDK the teacher already depends on, with the same
// plain Config struct, DefaultConfig and New(ctx, cfg) construction as
// the other contrib/llm adapters.
package gemini

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ggozad/haikurag-core/config"
	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/llm"
)

// Config holds Gemini provider configuration.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration.
func DefaultConfig(apiKey string) Config {
	return Config{APIKey: apiKey, Model: "gemini-1.5-pro", MaxTokens: 2048, Temperature: 0.7}
}

// ChatLLM implements llm.ChatLLM for Gemini.
type ChatLLM struct {
	cfg    Config
	client *genai.Client
}

// New creates a new Gemini-backed llm.ChatLLM.
func New(ctx context.Context, cfg Config) (*ChatLLM, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}
	if err := config.ValidateLLMConfig(cfg.APIKey, cfg.Model, float64(cfg.Temperature), int(cfg.MaxTokens)); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, coreerrors.LLMFailure("create gemini client", err)
	}
	return &ChatLLM{cfg: cfg, client: client}, nil
}

// Close releases the underlying client's resources.
func (c *ChatLLM) Close() error { return c.client.Close() }

var _ llm.ChatLLM = (*ChatLLM)(nil)

// Chat implements llm.ChatLLM. Gemini's tool-calling surface differs
// enough from the provider-neutral ToolSpec shape (function declarations
// vs. JSON Schema parameters need a conversion layer of their own) that,
// as with the teacher's provider, tool support is deferred: a request
// carrying Tools returns an LLMFailure rather than silently ignoring them.
func (c *ChatLLM) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	if len(req.Tools) > 0 {
		return llm.Response{}, coreerrors.LLMFailure("gemini adapter does not support tool calling", nil)
	}

	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(c.cfg.Temperature)
	if c.cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(c.cfg.MaxTokens)
	}

	var systemText string
	var history []*genai.Content
	var lastUser string
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			if systemText != "" {
				systemText += "\n"
			}
			systemText += msg.Content
		case llm.RoleUser:
			if lastUser != "" {
				history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(lastUser)}})
			}
			lastUser = msg.Content
		case llm.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		case llm.RoleTool:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	if systemText != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemText)}}
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(lastUser))
	if err != nil {
		return llm.Response{}, coreerrors.LLMFailure("gemini chat completion failed", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.Response{}, coreerrors.LLMFailure("gemini returned no candidates", nil)
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return llm.Response{Text: text}, nil
}
