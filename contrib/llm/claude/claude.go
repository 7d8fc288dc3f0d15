// Package claude adapts Anthropic's Claude models to llm.ChatLLM.
//
// Grounded on the teacher's contrib/provider/claude/claude.go: a plain
// Config struct (DefaultConfig, then New(cfg)), the anthropic-sdk-go client construction,
// same system-prompt-splitting and tool-marshal-through-JSON approach for
// translating the provider-neutral Request into anthropic.MessageNewParams.
// The teacher's GenerateStream (SSE passthrough) is not carried over —
// the research graph's own streaming lives in research/events.go and
// drives incremental output from whole-message Chat calls.
package claude

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/ggozad/haikurag-core/config"
	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/llm"
)

// Config holds Claude provider configuration.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration.
func DefaultConfig() Config {
	return Config{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// ChatLLM implements llm.ChatLLM for Claude.
type ChatLLM struct {
	cfg    Config
	client anthropic.Client
}

// New creates a new Claude-backed llm.ChatLLM.
func New(cfg Config) (*ChatLLM, error) {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	if err := config.ValidateLLMConfig(cfg.APIKey, cfg.Model, cfg.Temperature, int(cfg.MaxTokens)); err != nil {
		return nil, err
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &ChatLLM{cfg: cfg, client: anthropic.NewClient(opts...)}, nil
}

var _ llm.ChatLLM = (*ChatLLM)(nil)

// Chat implements llm.ChatLLM.
func (c *ChatLLM) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	var systemPrompts []string
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
		case llm.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case llm.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case llm.RoleTool:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		Messages:  messages,
		MaxTokens: c.cfg.MaxTokens,
	}
	if len(systemPrompts) > 0 {
		text := systemPrompts[0]
		for _, sp := range systemPrompts[1:] {
			text += "\n" + sp
		}
		params.System = []anthropic.TextBlockParam{{Text: text}}
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = param.NewOpt(c.cfg.Temperature)
	}
	if len(req.Tools) > 0 {
		tools, err := toClaudeTools(req.Tools)
		if err != nil {
			return llm.Response{}, err
		}
		params.Tools = tools
	}

	apiMessage, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, coreerrors.LLMFailure("claude chat completion failed", err)
	}

	var resp llm.Response
	for _, content := range apiMessage.Content {
		switch content.Type {
		case "text":
			resp.Text = content.Text
		case "tool_use":
			var args map[string]any
			if err := json.Unmarshal(content.Input, &args); err != nil {
				return llm.Response{}, coreerrors.LLMFailure("parse claude tool input", err)
			}
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{ID: content.ID, Name: content.Name, Args: args})
		}
	}
	return resp, nil
}

func toClaudeTools(specs []llm.ToolSpec) ([]anthropic.ToolUnionParam, error) {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		toolJSON, err := json.Marshal(struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"input_schema"`
		}{Name: spec.Name, Description: spec.Description, InputSchema: spec.Parameters})
		if err != nil {
			return nil, fmt.Errorf("marshal tool spec %q: %w", spec.Name, err)
		}
		var toolParam anthropic.ToolParam
		if err := json.Unmarshal(toolJSON, &toolParam); err != nil {
			return nil, fmt.Errorf("unmarshal tool param %q: %w", spec.Name, err)
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return tools, nil
}
