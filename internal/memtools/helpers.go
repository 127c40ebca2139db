// Package memtools provides the MCP tool handlers for trae-mem.
//
// Each tool handler follows the same pattern:
// - A struct with its dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Validation and operation failures are reported as tool error results
// (isError=true); Handle only returns a Go error for programming faults.
// Successful results carry pretty-printed JSON text plus the same data as
// structured content.
package memtools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
// ok is false when the key is present but not an integral number.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) (int, bool) {
	raw, present := req.GetArguments()[key]
	if !present || raw == nil {
		return defaultVal, true
	}
	v, isNum := raw.(float64)
	if !isNum || v != float64(int(v)) {
		return defaultVal, false
	}
	return int(v), true
}

// objectArg extracts a JSON object argument. Absent or non-object values
// yield nil.
func objectArg(req mcp.CallToolRequest, key string) map[string]any {
	m, _ := req.GetArguments()[key].(map[string]any)
	return m
}

// stringsArg extracts a list of strings. ok is false when the value is not
// a list; non-string items are formatted with %v.
func stringsArg(req mcp.CallToolRequest, key string) ([]string, bool) {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, isStr := v.(string); isStr {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out, true
}

// jsonResult renders text as indented JSON and attaches structured as the
// structured content.
func jsonResult(text any, structured any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(text, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("memtools: marshal result: %w", err)
	}
	return mcp.NewToolResultStructured(structured, string(data)), nil
}

func errorf(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...))
}
