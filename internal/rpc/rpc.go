// Package rpc defines the line-delimited JSON-RPC envelopes exchanged
// with the MCP server and the builder that frames outgoing requests.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// Version is the JSON-RPC protocol tag carried on every envelope.
	Version = "2.0"

	// ProtocolVersion is the MCP protocol revision the harness announces.
	ProtocolVersion = "2024-11-05"

	// MethodInitialize performs the MCP initialization handshake.
	MethodInitialize = "initialize"
	// MethodListTools requests the server's tool listing.
	MethodListTools = "tools/list"
	// MethodCallTool invokes one named tool with an argument map.
	MethodCallTool = "tools/call"
)

// DefaultCorrelationID is the fixed request id. Each exchange runs against
// a fresh single-shot process, so one constant id is unambiguous.
const DefaultCorrelationID = 1

// Request is the outgoing JSON-RPC envelope. Params is omitted entirely
// when no parameters are supplied; servers may distinguish absent params
// from an empty object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the incoming JSON-RPC envelope. At most one of Result and
// Error is populated on a well-formed envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the protocol-level error variant of a response envelope.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "rpc error"
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// InitializeParams is the payload of the initialize method.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

// ClientInfo identifies the harness to the server.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CallParams is the payload of the tools/call method.
type CallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Builder frames request envelopes with a fixed protocol tag and
// correlation id.
type Builder struct {
	correlationID int
}

// NewBuilder constructs a request builder carrying the given correlation id.
func NewBuilder(correlationID int) (*Builder, error) {
	if correlationID <= 0 {
		return nil, errors.New("correlation id must be positive")
	}
	return &Builder{correlationID: correlationID}, nil
}

// Build frames one request envelope. A nil params value omits the params
// field from the wire encoding.
func (b *Builder) Build(method string, params any) (Request, error) {
	if b == nil {
		return Request{}, errors.New("builder is nil")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return Request{}, errors.New("method must not be empty")
	}

	req := Request{
		JSONRPC: Version,
		ID:      b.correlationID,
		Method:  method,
	}
	if params == nil {
		return req, nil
	}

	encoded, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("encode params for %s: %w", method, err)
	}
	req.Params = encoded
	return req, nil
}

// Encode serializes one request to its newline-terminated wire frame.
func Encode(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request %s: %w", req.Method, err)
	}
	return append(data, '\n'), nil
}

// Decode parses one response line into an envelope.
func Decode(line []byte) (*Response, error) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return nil, errors.New("response line is empty")
	}

	var resp Response
	if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	return &resp, nil
}
