package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/drawsynth/internal/diagram"
	"github.com/rendis/drawsynth/internal/render"
	"github.com/rendis/drawsynth/internal/store"
	"github.com/rendis/drawsynth/pkg/schema"
)

const defaultRunLimit = 20

// generateResponse is the draw.generate payload.
type generateResponse struct {
	*schema.Result
	Outline string `json:"outline,omitempty"`
}

// handleGenerate runs the full pipeline for one request.
func (s *DrawServer) handleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil || prompt == "" {
		return mcp.NewToolResultError("prompt is required"), nil
	}
	if s.runner == nil {
		return mcp.NewToolResultError("generation is not configured"), nil
	}

	drawReq := schema.Request{
		Prompt:        prompt,
		CanvasContext: req.GetString("canvas_context", ""),
	}
	if img := req.GetString("image", ""); img != "" {
		data, decErr := base64.StdEncoding.DecodeString(img)
		if decErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image is not valid base64: %v", decErr)), nil
		}
		drawReq.PriorImage = data
	}

	result := s.runner.Run(ctx, drawReq)
	resp := generateResponse{Result: result}
	if req.GetBool("outline", false) && result.Success {
		model := diagram.Build(&render.Output{Shapes: result.Shapes, Bindings: result.Bindings})
		model.Title = result.Description
		resp.Outline = diagram.RenderMermaid(model)
	}

	if !result.Success {
		s.logger.WarnContext(ctx, "draw.generate failed", "run_id", result.RunID, "reply", result.Reply)
		data, _ := json.Marshal(resp)
		return mcp.NewToolResultError(string(data)), nil
	}
	return marshalResult(resp)
}

// handleValidate checks a primitive list and returns the issues plus model feedback.
func (s *DrawServer) handleValidate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prims, errResult := s.decodeItems(req)
	if errResult != nil {
		return errResult, nil
	}
	dt := schema.ParseDiagramType(req.GetString("diagram_type", ""))

	result := s.validator.Validate(prims, dt)
	return marshalResult(map[string]any{
		"valid":       result.Valid,
		"diagramType": result.DiagramType,
		"issues":      result.Issues,
		"feedback":    s.formatter.Format(result.Issues),
	})
}

// handleRender renders a primitive list without validating it.
func (s *DrawServer) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prims, errResult := s.decodeItems(req)
	if errResult != nil {
		return errResult, nil
	}

	format := req.GetString("format", "shapes")
	if format != "shapes" && format != "mermaid" && format != "ascii" && format != "image" {
		return mcp.NewToolResultError("format must be shapes, mermaid, ascii, or image"), nil
	}

	out, err := s.renderer.Render(prims)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}

	switch format {
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(diagram.Build(out))), nil
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(diagram.Build(out))), nil
	case "image":
		png, imgErr := diagram.RenderImage(ctx, diagram.Build(out))
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultImage("diagram outline", base64.StdEncoding.EncodeToString(png), "image/png"), nil
	default:
		return marshalResult(out)
	}
}

// handleRuns lists runs or returns a single run with its journal.
func (s *DrawServer) handleRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("run journal is disabled"), nil
	}

	if runID := req.GetString("run_id", ""); runID != "" {
		run, err := s.store.GetRun(ctx, runID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run lookup failed: %v", err)), nil
		}
		events, err := s.store.GetEvents(ctx, runID, 0)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("event lookup failed: %v", err)), nil
		}
		replay, err := store.ReplayEvents(runID, events)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("journal replay failed: %v", err)), nil
		}
		return marshalResult(map[string]any{"run": run, "events": events, "replay": replay})
	}

	filter := store.RunFilter{Limit: req.GetInt("limit", defaultRunLimit)}
	if status := req.GetString("status", ""); status != "" {
		st := schema.RunStatus(status)
		filter.Status = &st
	}
	runs, err := s.store.ListRuns(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run query failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"runs": runs, "count": len(runs)})
}

// decodeItems schema-checks and decodes the items argument. A non-nil result
// is a tool error to return as is.
func (s *DrawServer) decodeItems(req mcp.CallToolRequest) ([]schema.Primitive, *mcp.CallToolResult) {
	items, ok := req.GetArguments()["items"]
	if !ok || items == nil {
		return nil, mcp.NewToolResultError("items is required")
	}
	if s.schema != nil {
		if err := s.schema.ValidateItems(items); err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("invalid items: %v", err))
		}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("invalid items: %v", err))
	}
	prims, err := schema.DecodePrimitives(data)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("invalid items: %v", err))
	}
	return prims, nil
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
