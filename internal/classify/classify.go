// Package classify turns raw exchange outcomes into one of a fixed set
// of response classes, and decodes the JSON payload embedded as text
// inside successful tool-call results as a separate second stage.
package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/simprobe/simprobe/internal/rpc"
	"github.com/simprobe/simprobe/internal/transport"
)

const (
	// KindAbsent indicates the transport produced no response line.
	KindAbsent = "absent"
	// KindTimeout indicates the exchange deadline expired before a line arrived.
	KindTimeout = "timeout"
	// KindMalformed indicates a line was present but is not a well-formed envelope.
	KindMalformed = "malformed"
	// KindError indicates the server returned an explicit error envelope.
	KindError = "protocol_error"
	// KindSuccess indicates the envelope carries a result payload.
	KindSuccess = "success"
)

// Classification is the classified outcome of one exchange. Response is
// populated for KindError and KindSuccess; Raw echoes the response line
// when one was read.
type Classification struct {
	Kind     string
	Response *rpc.Response
	Raw      string
	Stderr   string
	Detail   string
}

// Classify inspects one transport result and assigns its response class.
// Absent and Malformed are distinct: a line that fails envelope decoding
// is never reported as missing.
func Classify(res transport.Result) Classification {
	if res.TimedOut {
		return Classification{
			Kind:   KindTimeout,
			Stderr: res.Stderr,
			Detail: "no response before exchange deadline",
		}
	}
	if res.Absent {
		return Classification{
			Kind:   KindAbsent,
			Stderr: res.Stderr,
			Detail: "server produced no response line",
		}
	}

	raw := strings.TrimSpace(string(res.Line))
	resp, err := rpc.Decode(res.Line)
	if err != nil {
		return Classification{
			Kind:   KindMalformed,
			Raw:    raw,
			Stderr: res.Stderr,
			Detail: err.Error(),
		}
	}

	if resp.Error != nil {
		return Classification{
			Kind:     KindError,
			Response: resp,
			Raw:      raw,
			Stderr:   res.Stderr,
			Detail:   resp.Error.Error(),
		}
	}
	if hasResult(resp) {
		return Classification{
			Kind:     KindSuccess,
			Response: resp,
			Raw:      raw,
			Stderr:   res.Stderr,
		}
	}

	return Classification{
		Kind:   KindMalformed,
		Raw:    raw,
		Stderr: res.Stderr,
		Detail: "envelope carries neither result nor error",
	}
}

func hasResult(resp *rpc.Response) bool {
	if resp == nil || len(resp.Result) == 0 {
		return false
	}
	return strings.TrimSpace(string(resp.Result)) != "null"
}

// EmptyResult reports whether a success envelope's result decodes to an
// empty object, empty array, or empty string. Checks that require a
// non-empty result treat such envelopes as failures even though the
// envelope itself is well formed.
func EmptyResult(resp *rpc.Response) bool {
	if !hasResult(resp) {
		return true
	}

	var value any
	if err := json.Unmarshal(resp.Result, &value); err != nil {
		return true
	}
	switch v := value.(type) {
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case string:
		return v == ""
	}
	return false
}

// PayloadError attributes a failure to the embedded text payload of an
// otherwise successful tool-call result, keeping it distinct from outer
// envelope decode failures.
type PayloadError struct {
	Reason string
	Text   string
	Err    error
}

func (e *PayloadError) Error() string {
	if e == nil {
		return "invalid tool payload"
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid tool payload: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid tool payload: %s", e.Reason)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// DecodeToolPayload extracts and decodes the JSON document carried as
// text inside the first content item of a successful tools/call result.
func DecodeToolPayload(resp *rpc.Response) (json.RawMessage, error) {
	if resp == nil || !hasResult(resp) {
		return nil, &PayloadError{Reason: "envelope carries no result"}
	}

	var result rpc.CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, &PayloadError{Reason: "result is not a tool-call result", Err: err}
	}
	if len(result.Content) == 0 {
		return nil, &PayloadError{Reason: "result content is empty"}
	}

	first := result.Content[0]
	if first.Type != "text" {
		return nil, &PayloadError{Reason: fmt.Sprintf("unexpected content type %q", first.Type)}
	}

	var payload json.RawMessage
	if err := json.Unmarshal([]byte(first.Text), &payload); err != nil {
		return nil, &PayloadError{Reason: "embedded text is not valid JSON", Text: first.Text, Err: err}
	}
	return payload, nil
}
