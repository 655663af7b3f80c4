package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/drawsynth/internal/feedback"
	"github.com/rendis/drawsynth/internal/render"
	"github.com/rendis/drawsynth/internal/store"
	"github.com/rendis/drawsynth/internal/validation"
	"github.com/rendis/drawsynth/pkg/schema"
)

// Runner executes one drawing request end to end.
type Runner interface {
	Run(ctx context.Context, req schema.Request) *schema.Result
}

// DrawServerDeps holds the dependencies for creating a DrawServer.
type DrawServerDeps struct {
	Runner    Runner
	Validator *validation.GeometryValidator
	Schema    *validation.PrimitiveSchemaValidator
	Renderer  *render.Renderer
	Store     store.Store // optional; enables draw.runs
	Version   string
	Logger    *slog.Logger
}

// DrawServer wraps an MCP server with the drawing tool handlers.
type DrawServer struct {
	runner    Runner
	validator *validation.GeometryValidator
	schema    *validation.PrimitiveSchemaValidator
	formatter *feedback.Formatter
	renderer  *render.Renderer
	store     store.Store
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewDrawServer creates a new DrawServer with all 4 tools registered.
func NewDrawServer(deps DrawServerDeps) *DrawServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.NewGeometryValidator(validation.DefaultConfig())
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = render.New()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &DrawServer{
		runner:    deps.Runner,
		validator: validator,
		schema:    deps.Schema,
		formatter: feedback.NewFormatter(validator.Config()),
		renderer:  renderer,
		store:     deps.Store,
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"drawsynth",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("drawsynth turns drawing requests into canvas shapes. Use draw.generate to synthesize a diagram from a prompt, draw.validate to check a primitive list for layout problems, draw.render to turn primitives into canvas shapes or an outline, and draw.runs to inspect past runs."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *DrawServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *DrawServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 4 registered MCP tools as ServerTool entries.
func (s *DrawServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: generateTool(), Handler: s.handleGenerate},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: renderTool(), Handler: s.handleRender},
		{Tool: runsTool(), Handler: s.handleRuns},
	}
}

// --- Tool definitions ---

func generateTool() mcp.Tool {
	return mcp.NewTool("draw.generate",
		mcp.WithDescription("Synthesize a diagram from a natural-language request"),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("What to draw")),
		mcp.WithString("canvas_context", mcp.Description("Description of what is already on the canvas")),
		mcp.WithString("image", mcp.Description("Base64-encoded preview of the current canvas")),
		mcp.WithBoolean("outline", mcp.Description("Include a Mermaid outline of the result (default: false)")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("draw.validate",
		mcp.WithDescription("Check a primitive list for layout problems"),
		mcp.WithArray("items", mcp.Required(), mcp.Description("Primitive list")),
		mcp.WithString("diagram_type",
			mcp.Enum(string(schema.DiagramStructured), string(schema.DiagramFreeform)),
			mcp.Description("Diagram type (default: structured)"),
		),
	)
}

func renderTool() mcp.Tool {
	return mcp.NewTool("draw.render",
		mcp.WithDescription("Render a primitive list as canvas shapes or an outline"),
		mcp.WithArray("items", mcp.Required(), mcp.Description("Primitive list")),
		mcp.WithString("format",
			mcp.Enum("shapes", "mermaid", "ascii", "image"),
			mcp.Description("Output format: shapes (canvas records, default), mermaid, ascii or image (PNG)"),
		),
	)
}

func runsTool() mcp.Tool {
	return mcp.NewTool("draw.runs",
		mcp.WithDescription("List past runs or show one run with its journal"),
		mcp.WithString("run_id", mcp.Description("Run to show; lists runs when empty")),
		mcp.WithString("status",
			mcp.Enum(string(schema.RunStatusActive), string(schema.RunStatusCompleted), string(schema.RunStatusFailed)),
			mcp.Description("Only list runs with this status"),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to list (default: 20)")),
	)
}
