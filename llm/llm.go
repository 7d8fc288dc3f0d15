// Package llm defines the two external capabilities the core depends on
// for language generation and embedding (spec §6): ChatLLM and Embedder.
// Provider adapters live under contrib/llm/* and contrib/embed/*.
//
// Grounded on the teacher's agent.LLMClient/GenerateRequest/
// GenerateResponse shape and message.Message; ID generation moves from
// the teacher's timestamp string to google/uuid for collision safety.
package llm

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role identifies the sender of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Args     map[string]any `json:"args"`
	Response string         `json:"response,omitempty"`
}

// Message is one turn of a conversation sent to or received from a ChatLLM.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	ToolID    string         `json:"tool_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role Role, content string) *Message {
	return &Message{ID: uuid.NewString(), Role: role, Content: content, CreatedAt: time.Now()}
}

// NewToolResponseMessage creates a tool response message.
func NewToolResponseMessage(toolID, content string) *Message {
	return &Message{ID: uuid.NewString(), Role: RoleTool, Content: content, ToolID: toolID, CreatedAt: time.Now()}
}

// ToolSpec describes a tool the model may call, in the provider-neutral
// shape every contrib/llm adapter translates to its SDK's own format.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// Request bundles inputs for a single ChatLLM call.
type Request struct {
	Messages []*Message
	Tools    []ToolSpec
}

// Response captures a ChatLLM reply: free text, any tool calls the model
// wants executed, and optionally a structured JSON payload when the
// caller asked for one.
type Response struct {
	Text             string
	ToolCalls        []ToolCall
	StructuredOutput map[string]any
}

// ChatLLM is the capability the planner, search-one node, and synthesizer
// call through. Implementations must support tool-calling and
// JSON-shaped structured output (spec §6).
type ChatLLM interface {
	Chat(ctx context.Context, req Request) (Response, error)
}

// Embedder is the batch embedding capability used by indexing (external),
// the search-one node, and prior-answer recall.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
