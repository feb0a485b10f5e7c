// Package mcpserver exposes quill's renderer over MCP. `quill -mcp`
// serves two tools on stdio: render_markdown turns source into
// terminal lines, and table_probe reports holdback state and table
// regions for a source buffer.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quillchat/quill/internal/render"
	"github.com/quillchat/quill/internal/tabledetect"
)

type renderArgs struct {
	Source string `json:"source" jsonschema:"markdown source to render"`
	Width  int    `json:"width,omitempty" jsonschema:"target width in terminal columns (default 80)"`
}

type probeArgs struct {
	Source string `json:"source" jsonschema:"markdown source to probe"`
}

// New builds the MCP server with both tools registered.
func New() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "quill",
		Version: "1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "render_markdown",
		Description: "Render markdown to terminal text with quill's pipe-table layout. Returns the rendered lines.",
	}, renderMarkdown)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "table_probe",
		Description: "Report quill's streaming holdback state and the detected table regions for a markdown source.",
	}, tableProbe)

	return server
}

// Run serves MCP over stdio until the client disconnects.
func Run(ctx context.Context) error {
	return New().Run(ctx, &mcp.StdioTransport{})
}

func renderMarkdown(ctx context.Context, req *mcp.CallToolRequest, args renderArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Source) == "" {
		return nil, nil, fmt.Errorf("source is required")
	}
	width := args.Width
	if width <= 0 {
		width = 80
	}
	lines := render.Markdown(args.Source, width)
	return textResult(strings.Join(lines, "\n")), nil, nil
}

func tableProbe(ctx context.Context, req *mcp.CallToolRequest, args probeArgs) (*mcp.CallToolResult, any, error) {
	if args.Source == "" {
		return nil, nil, fmt.Errorf("source is required")
	}

	state, heldFrom := tabledetect.ScanSource(args.Source)

	var b strings.Builder
	fmt.Fprintf(&b, "holdback: %s\n", state)
	if state != tabledetect.HoldbackNone {
		fmt.Fprintf(&b, "held from byte: %d\n", heldFrom)
	}

	regions := tableRegions(args.Source)
	fmt.Fprintf(&b, "tables: %d\n", len(regions))
	for i, r := range regions {
		fmt.Fprintf(&b, "  table %d: lines %d-%d, %d columns, %d body rows\n",
			i+1, r.startLine, r.endLine, r.columns, r.bodyRows)
	}
	return textResult(b.String()), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

type tableRegion struct {
	startLine, endLine int // 1-based, inclusive
	columns            int
	bodyRows           int
}

// tableRegions lists every header+delimiter pair in the source with its
// body extent, using the same scan-line preparation as the holdback
// controller so fences and blockquotes are treated identically.
func tableRegions(source string) []tableRegion {
	lines := tabledetect.SourceScanLines(source)
	var regions []tableRegion
	for i := 0; i < len(lines); i++ {
		if !lines[i].Enabled || i+1 >= len(lines) || !lines[i+1].Enabled {
			continue
		}
		if !tabledetect.IsHeaderRow(lines[i].Text) || !tabledetect.IsDelimiterRow(lines[i+1].Text) {
			continue
		}
		cols := len(tabledetect.ParseSegments(lines[i].Text))
		if cols != len(tabledetect.ParseSegments(lines[i+1].Text)) {
			continue
		}
		next := i + 2
		body := 0
		for next < len(lines) && lines[next].Enabled && tabledetect.IsCandidateRow(lines[next].Text) {
			body++
			next++
		}
		regions = append(regions, tableRegion{
			startLine: i + 1,
			endLine:   next,
			columns:   cols,
			bodyRows:  body,
		})
		i = next - 1
	}
	return regions
}
