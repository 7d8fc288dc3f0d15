package openai

import (
	"testing"

	"github.com/ggozad/haikurag-core/llm"
)

func TestToOpenAIToolsMarshalsSchema(t *testing.T) {
	specs := []llm.ToolSpec{
		{Name: "search", Description: "search the index", Parameters: map[string]any{"type": "object"}},
	}
	tools, err := toOpenAITools(specs)
	if err != nil {
		t.Fatalf("toOpenAITools: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].Function.Name != "search" {
		t.Fatalf("unexpected tool name: %q", tools[0].Function.Name)
	}
}

func TestEncodeToolCallsMarshalsArgs(t *testing.T) {
	calls := []llm.ToolCall{{ID: "tc1", Name: "search", Args: map[string]any{"q": "go"}}}
	out, err := encodeToolCalls(calls)
	if err != nil {
		t.Fatalf("encodeToolCalls: %v", err)
	}
	if len(out) != 1 || out[0].ID != "tc1" || out[0].Function.Name != "search" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestEncodeToolCallsHandlesNilArgs(t *testing.T) {
	calls := []llm.ToolCall{{ID: "tc1", Name: "noop"}}
	out, err := encodeToolCalls(calls)
	if err != nil {
		t.Fatalf("encodeToolCalls: %v", err)
	}
	if out[0].Function.Arguments != "{}" {
		t.Fatalf("expected empty object arguments, got %q", out[0].Function.Arguments)
	}
}
