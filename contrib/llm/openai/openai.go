// Package openai adapts OpenAI's chat completion API to llm.ChatLLM.
//
// Grounded on the teacher's contrib/provider/openai/openai.go: a plain
// Config struct (DefaultConfig, then New(cfg)), the openai-go client construction and
// message/tool marshal-through-JSON translation. Streaming
// (GenerateStream) is not carried over; see contrib/llm/claude for the
// same decision and its rationale.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/ggozad/haikurag-core/config"
	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/llm"
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default OpenAI configuration.
func DefaultConfig() Config {
	return Config{Model: "gpt-4o-mini", MaxTokens: 2000, Temperature: 0.7}
}

// ChatLLM implements llm.ChatLLM for OpenAI.
type ChatLLM struct {
	cfg    Config
	client openai.Client
}

// New creates a new OpenAI-backed llm.ChatLLM.
func New(cfg Config) (*ChatLLM, error) {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if err := config.ValidateLLMConfig(cfg.APIKey, cfg.Model, cfg.Temperature, int(cfg.MaxTokens)); err != nil {
		return nil, err
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &ChatLLM{cfg: cfg, client: openai.NewClient(opts...)}, nil
}

var _ llm.ChatLLM = (*ChatLLM)(nil)

// Chat implements llm.ChatLLM.
func (c *ChatLLM) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case llm.RoleAssistant:
			assistantMsg := openai.AssistantMessage(msg.Content)
			if len(msg.ToolCalls) > 0 {
				toolCalls, err := encodeToolCalls(msg.ToolCalls)
				if err != nil {
					return llm.Response{}, coreerrors.LLMFailure("encode tool calls", err)
				}
				if assistantMsg.OfAssistant != nil {
					assistantMsg.OfAssistant.ToolCalls = toolCalls
				}
			}
			messages = append(messages, assistantMsg)
		case llm.RoleTool:
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolID))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(c.cfg.Model),
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = param.NewOpt(c.cfg.Temperature)
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(c.cfg.MaxTokens)
	}
	if len(req.Tools) > 0 {
		tools, err := toOpenAITools(req.Tools)
		if err != nil {
			return llm.Response{}, err
		}
		params.Tools = tools
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Response{}, coreerrors.LLMFailure("openai chat completion failed", err)
	}
	if len(completion.Choices) == 0 {
		return llm.Response{}, coreerrors.LLMFailure("openai returned no choices", nil)
	}

	choice := completion.Choices[0]
	resp := llm.Response{Text: choice.Message.Content}
	if len(choice.Message.ToolCalls) > 0 {
		resp.ToolCalls = make([]llm.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return llm.Response{}, coreerrors.LLMFailure("parse openai tool arguments", err)
			}
			resp.ToolCalls[i] = llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args}
		}
	}
	return resp, nil
}

func toOpenAITools(specs []llm.ToolSpec) ([]openai.ChatCompletionToolParam, error) {
	tools := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		toolJSON, err := json.Marshal(struct {
			Type     string `json:"type"`
			Function struct {
				Name        string         `json:"name"`
				Description string         `json:"description"`
				Parameters  map[string]any `json:"parameters"`
			} `json:"function"`
		}{Type: "function", Function: struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			Parameters  map[string]any `json:"parameters"`
		}{Name: spec.Name, Description: spec.Description, Parameters: spec.Parameters}})
		if err != nil {
			return nil, fmt.Errorf("marshal tool spec %q: %w", spec.Name, err)
		}
		var toolParam openai.ChatCompletionToolParam
		if err := json.Unmarshal(toolJSON, &toolParam); err != nil {
			return nil, fmt.Errorf("unmarshal tool param %q: %w", spec.Name, err)
		}
		tools = append(tools, toolParam)
	}
	return tools, nil
}

func encodeToolCalls(calls []llm.ToolCall) ([]openai.ChatCompletionMessageToolCallParam, error) {
	out := make([]openai.ChatCompletionMessageToolCallParam, 0, len(calls))
	for _, tc := range calls {
		args := tc.Args
		if args == nil {
			args = make(map[string]any)
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		out = append(out, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: string(raw),
			},
		})
	}
	return out, nil
}
