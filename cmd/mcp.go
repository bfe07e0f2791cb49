package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"sigidx/internal/cparse"
	"sigidx/internal/query"
	"sigidx/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing signature search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	dbPath := flagDB
	if dbPath == "" {
		return fmt.Errorf("--db is required for mcp mode")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("index not found at %s\nRun 'sigidx index <root>' first to build the index", dbPath)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer st.Close()

	parser := cparse.NewParser()

	s := mcpserver.NewMCPServer("sigidx", "1.0.0", mcpserver.WithToolCapabilities(false))
	s.AddTool(searchFunctionsTool(), makeSearchFunctionsHandler(st))
	s.AddTool(indexStatusTool(), makeIndexStatusHandler(st, parser))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchFunctionsTool() mcp.Tool {
	return mcp.NewTool("search_functions",
		mcp.WithDescription(`Fuzzy-search indexed C/C++ function signatures. Query forms: "int (int, int)" or "name :: int (int, int)". Returns path:line:column locations ranked by edit distance.`),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Signature or name-and-signature query"),
		),
		mcp.WithNumber("top",
			mcp.Description("Maximum number of results (default 20)"),
		),
	)
}

func indexStatusTool() mcp.Tool {
	return mcp.NewTool("index_status",
		mcp.WithDescription("Report catalog size: indexed files, functions, and files with parse errors."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func makeSearchFunctionsHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := req.GetString("query", "")
		if text == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		top := req.GetInt("top", 20)
		if top <= 0 {
			top = 20
		}

		q, err := query.Parse(text, cparse.Normalize)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query parsing failed: %v", err)), nil
		}

		candidates, err := st.FetchCandidates(q, max(200, top*20))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		ranked := query.Rank(candidates, q, top)
		if len(ranked) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No results for query: %q", text)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Results for %q (%d)\n\n", text, len(ranked))
		for _, c := range ranked {
			fmt.Fprintf(&sb, "- %s\n", formatCandidate(c))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeIndexStatusHandler(st store.Store, parser *cparse.Parser) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		counts, err := st.Counts()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Files indexed: %d\n", counts.Files)
		fmt.Fprintf(&sb, "Functions indexed: %d\n", counts.Functions)
		fmt.Fprintf(&sb, "Files with parse errors: %d\n", counts.Failed)
		fmt.Fprintf(&sb, "System include dirs detected: %d\n", len(parser.IncludeArgs())/2)
		return mcp.NewToolResultText(sb.String()), nil
	}
}
