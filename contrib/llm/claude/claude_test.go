package claude

import (
	"testing"

	"github.com/ggozad/haikurag-core/llm"
)

func TestToClaudeToolsMarshalsSchema(t *testing.T) {
	specs := []llm.ToolSpec{
		{Name: "search", Description: "search the index", Parameters: map[string]any{"type": "object"}},
	}
	tools, err := toClaudeTools(specs)
	if err != nil {
		t.Fatalf("toClaudeTools: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].OfTool == nil || tools[0].OfTool.Name != "search" {
		t.Fatalf("unexpected tool: %+v", tools[0])
	}
}
