package rpc

import "encoding/json"

// ToolDescriptor is one entry of a tools/list result.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ListToolsResult is the result payload of the tools/list method.
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// ContentItem is one typed item inside a tools/call result. Only "text"
// items are consumed by the harness; their Text field carries an
// independently encoded JSON document.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result payload of the tools/call method.
type CallToolResult struct {
	Content []ContentItem `json:"content"`
}
