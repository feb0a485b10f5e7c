package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// startSession connects an in-memory client to the quill MCP server.
func startSession(t *testing.T) *mcp.ClientSession {
	t.Helper()

	server := New()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx := context.Background()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}

	t.Cleanup(func() {
		clientSession.Close()
		serverSession.Close()
	})
	return clientSession
}

// callText invokes a tool and returns its concatenated text content.
func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool %s: %v", name, err)
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n"), res.IsError
}

func TestServer_ListTools(t *testing.T) {
	cs := startSession(t)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	if !names["render_markdown"] || !names["table_probe"] {
		t.Errorf("tools = %v, want render_markdown and table_probe", names)
	}
}

func TestServer_RenderMarkdown(t *testing.T) {
	cs := startSession(t)

	t.Run("renders a table with box borders", func(t *testing.T) {
		text, isErr := callText(t, cs, "render_markdown", map[string]any{
			"source": "# Planets\n\n| Name | Moons |\n| --- | --- |\n| Earth | 1 |\n",
			"width":  40,
		})
		if isErr {
			t.Fatalf("unexpected tool error: %s", text)
		}
		if !strings.Contains(text, "Planets") {
			t.Errorf("output missing heading text: %q", text)
		}
		for _, want := range []string{"┌", "│", "└", "Earth"} {
			if !strings.Contains(text, want) {
				t.Errorf("output missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("defaults the width", func(t *testing.T) {
		text, isErr := callText(t, cs, "render_markdown", map[string]any{
			"source": "plain paragraph",
		})
		if isErr {
			t.Fatalf("unexpected tool error: %s", text)
		}
		if !strings.Contains(text, "plain paragraph") {
			t.Errorf("output = %q, want the paragraph text", text)
		}
	})

	t.Run("empty source is a tool error", func(t *testing.T) {
		_, isErr := callText(t, cs, "render_markdown", map[string]any{"source": "   "})
		if !isErr {
			t.Error("expected tool error for empty source")
		}
	})
}

func TestServer_TableProbe(t *testing.T) {
	cs := startSession(t)

	t.Run("reports a finalized table and no holdback", func(t *testing.T) {
		text, isErr := callText(t, cs, "table_probe", map[string]any{
			"source": "| A | B |\n| - | - |\n| 1 | 2 |\n\ndone\n",
		})
		if isErr {
			t.Fatalf("unexpected tool error: %s", text)
		}
		if !strings.Contains(text, "holdback: none") {
			t.Errorf("output = %q, want holdback none", text)
		}
		if !strings.Contains(text, "tables: 1") {
			t.Errorf("output = %q, want one table", text)
		}
		if !strings.Contains(text, "lines 1-3, 2 columns, 1 body rows") {
			t.Errorf("output = %q, want region detail", text)
		}
	})

	t.Run("reports a pending header", func(t *testing.T) {
		text, isErr := callText(t, cs, "table_probe", map[string]any{
			"source": "intro\n| Name | Role |",
		})
		if isErr {
			t.Fatalf("unexpected tool error: %s", text)
		}
		if !strings.Contains(text, "holdback: pending-header") {
			t.Errorf("output = %q, want pending-header", text)
		}
		if !strings.Contains(text, "held from byte: 6") {
			t.Errorf("output = %q, want held offset 6", text)
		}
	})

	t.Run("reports a confirmed in-progress table", func(t *testing.T) {
		text, isErr := callText(t, cs, "table_probe", map[string]any{
			"source": "| A | B |\n| - | - |\n| 1 | 2 |",
		})
		if isErr {
			t.Fatalf("unexpected tool error: %s", text)
		}
		if !strings.Contains(text, "holdback: confirmed") {
			t.Errorf("output = %q, want confirmed", text)
		}
		if !strings.Contains(text, "held from byte: 0") {
			t.Errorf("output = %q, want held offset 0", text)
		}
	})
}

func TestTableRegions(t *testing.T) {
	t.Run("skips tables inside code fences", func(t *testing.T) {
		regions := tableRegions("```\n| A | B |\n| - | - |\n```\n")
		if len(regions) != 0 {
			t.Errorf("got %d regions, want 0", len(regions))
		}
	})

	t.Run("counts several regions with positions", func(t *testing.T) {
		source := "| A | B |\n| - | - |\n| 1 | 2 |\n\ntext\n\n| X | Y | Z |\n| - | - | - |\n"
		regions := tableRegions(source)
		if len(regions) != 2 {
			t.Fatalf("got %d regions, want 2", len(regions))
		}
		first, second := regions[0], regions[1]
		if first.startLine != 1 || first.endLine != 3 || first.columns != 2 || first.bodyRows != 1 {
			t.Errorf("first = %+v, want lines 1-3, 2 cols, 1 body row", first)
		}
		if second.startLine != 7 || second.columns != 3 || second.bodyRows != 0 {
			t.Errorf("second = %+v, want start line 7, 3 cols, 0 body rows", second)
		}
	})
}
