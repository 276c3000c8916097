package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/contextlab/codectx/internal/project"
	"github.com/contextlab/codectx/internal/retriever"
	"github.com/contextlab/codectx/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound = -32001 // Named project is not registered
	ErrorCodeNotIndexed      = -32003 // No index built or loaded
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
)

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, _ := args["path"].(string)
	projectName, _ := args["project"].(string)
	name, _ := args["name"].(string)
	save, _ := args["save"].(bool)

	if path == "" && projectName != "" {
		if s.registry == nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "no project registry available", nil)
		}
		p, err := s.registry.Get(ctx, projectName)
		if err != nil {
			if errors.Is(err, project.ErrNotFound) {
				return nil, newMCPError(ErrorCodeProjectNotFound, "project not registered", map[string]interface{}{
					"project": projectName,
				})
			}
			return nil, newMCPError(ErrorCodeInternalError, "registry lookup failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		path = p.Path
		if name == "" {
			name = p.IndexName
		}
	}
	if path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path or project parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	stats, err := s.ret.IndexCodebase(ctx, path, retriever.IndexOptions{Name: name, Save: save})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":       true,
		"files_scanned": stats.FilesScanned,
		"chunks":        stats.Chunks,
		"dimension":     stats.Dimension,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 5)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	var threshold *float64
	if raw, present := args["threshold"]; present {
		v, ok := raw.(float64)
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "threshold must be a number", map[string]interface{}{
				"param": "threshold",
			})
		}
		threshold = &v
	}

	_, results, err := s.ret.Query(ctx, query, limit, threshold)
	if err != nil {
		if errors.Is(err, types.ErrNotReady) {
			return nil, newMCPError(ErrorCodeNotIndexed, "no index built or loaded. Use index_codebase first.", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	formatted := make([]map[string]interface{}, len(results))
	for i, res := range results {
		formatted[i] = map[string]interface{}{
			"file":       res.File,
			"name":       res.Name,
			"kind":       string(res.Kind),
			"score":      res.Score,
			"line_start": res.LineStart,
			"line_end":   res.LineEnd,
			"text":       res.FullText,
		}
	}
	response := map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": formatted,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	provider, model := s.ret.EmbedderInfo()

	response := map[string]interface{}{
		"indexed": s.ret.Ready(),
		"chunks":  s.ret.IndexSize(),
		"embedder": map[string]interface{}{
			"provider": provider,
			"model":    model,
		},
		"build_mode": project.BuildMode,
	}
	if !s.ret.Ready() {
		response["message"] = "No index loaded. Use index_codebase to index a project."
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// validatePath checks if a path exists and is a directory
func validatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

func getIntDefault(args map[string]interface{}, key string, def int) int {
	if raw, ok := args[key]; ok {
		if f, ok := raw.(float64); ok {
			return int(f)
		}
	}
	return def
}

func formatJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
