package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/simprobe/simprobe/internal/classify"
	"github.com/simprobe/simprobe/internal/rpc"
)

const (
	toolListSimulators   = "list_simulators"
	toolSimulatorControl = "simulator_control"
	toolInstallApp       = "install_app"
	toolLaunchApp        = "launch_app"
)

// RequiredTools is the fixed set of runtime tool names the server must
// expose to pass discovery.
func RequiredTools() []string {
	return []string{toolListSimulators, toolSimulatorControl, toolInstallApp, toolLaunchApp}
}

// Defaults returns the fixed ordered scenario list.
func Defaults() []Scenario {
	return []Scenario{
		Initialize(),
		DiscoverTools(RequiredTools()),
		ListSimulators(),
		SimulatorControlValidation(),
	}
}

// Initialize checks the MCP initialization handshake.
func Initialize() Scenario {
	return Scenario{
		Name: "Initialize",
		Build: func(b *rpc.Builder) (rpc.Request, error) {
			return b.Build(rpc.MethodInitialize, rpc.InitializeParams{
				ProtocolVersion: rpc.ProtocolVersion,
				Capabilities:    map[string]any{},
				ClientInfo: rpc.ClientInfo{
					Name:    "test-client",
					Version: "1.0.0",
				},
			})
		},
		Evaluate: func(c classify.Classification) Verdict {
			if c.Kind != classify.KindSuccess {
				return failed("server initialization failed", c)
			}
			if classify.EmptyResult(c.Response) {
				return Verdict{Status: StatusFailed, Detail: "server returned an empty initialization result"}
			}
			return Verdict{Status: StatusPassed, Detail: "server initialized successfully"}
		},
	}
}

// DiscoverTools checks that tools/list returns at least the required
// tool names. On failure the detail names exactly the missing ones.
func DiscoverTools(required []string) Scenario {
	required = append([]string(nil), required...)
	return Scenario{
		Name: "List Tools",
		Build: func(b *rpc.Builder) (rpc.Request, error) {
			return b.Build(rpc.MethodListTools, nil)
		},
		Evaluate: func(c classify.Classification) Verdict {
			if c.Kind != classify.KindSuccess {
				return failed("failed to list tools", c)
			}

			var result rpc.ListToolsResult
			if err := json.Unmarshal(c.Response.Result, &result); err != nil {
				return Verdict{Status: StatusFailed, Detail: fmt.Sprintf("tools listing did not decode: %v", err)}
			}

			names := make(map[string]struct{}, len(result.Tools))
			listed := make([]string, 0, len(result.Tools))
			for _, tool := range result.Tools {
				names[tool.Name] = struct{}{}
				listed = append(listed, tool.Name)
			}

			missing := make([]string, 0, len(required))
			for _, name := range required {
				if _, ok := names[name]; !ok {
					missing = append(missing, name)
				}
			}
			if len(missing) > 0 {
				return Verdict{Status: StatusFailed, Detail: "missing required tools: " + strings.Join(missing, ", ")}
			}
			return Verdict{
				Status: StatusPassed,
				Detail: fmt.Sprintf("found %d tools: %s", len(result.Tools), strings.Join(listed, ", ")),
			}
		},
	}
}

// ListSimulators invokes the list_simulators tool with empty arguments
// and checks structural validity of the embedded payload. The simulator
// count is reported, never asserted; an empty listing is acceptable.
func ListSimulators() Scenario {
	return Scenario{
		Name: "List Simulators",
		Build: func(b *rpc.Builder) (rpc.Request, error) {
			return b.Build(rpc.MethodCallTool, rpc.CallParams{
				Name:      toolListSimulators,
				Arguments: map[string]any{},
			})
		},
		Evaluate: func(c classify.Classification) Verdict {
			if c.Kind != classify.KindSuccess {
				return failed("list_simulators failed", c)
			}

			payload, err := classify.DecodeToolPayload(c.Response)
			if err != nil {
				return Verdict{Status: StatusFailed, Detail: err.Error()}
			}

			var listing struct {
				Simulators []json.RawMessage `json:"simulators"`
			}
			if err := json.Unmarshal(payload, &listing); err != nil {
				return Verdict{Status: StatusFailed, Detail: fmt.Sprintf("payload has no simulators sequence: %v", err)}
			}
			return Verdict{
				Status: StatusPassed,
				Detail: fmt.Sprintf("found %d simulators", len(listing.Simulators)),
			}
		},
	}
}

// SimulatorControlValidation invokes simulator_control with arguments
// known to violate its contract and requires an explicit protocol error.
// A success envelope means the server accepted invalid input, which
// fails the scenario outright.
func SimulatorControlValidation() Scenario {
	return Scenario{
		Name: "Simulator Control",
		Build: func(b *rpc.Builder) (rpc.Request, error) {
			return b.Build(rpc.MethodCallTool, rpc.CallParams{
				Name: toolSimulatorControl,
				Arguments: map[string]any{
					"action":       "invalid_action",
					"simulator_id": "invalid_id",
				},
			})
		},
		Evaluate: func(c classify.Classification) Verdict {
			switch c.Kind {
			case classify.KindError:
				return Verdict{Status: StatusPassed, Detail: "simulator_control correctly rejected invalid parameters"}
			case classify.KindSuccess:
				return Verdict{Status: StatusFailed, Detail: "simulator_control should have rejected invalid parameters"}
			default:
				detail := fmt.Sprintf("inconclusive (%s)", c.Kind)
				if c.Raw != "" {
					detail += ": " + c.Raw
				} else if c.Detail != "" {
					detail += ": " + c.Detail
				}
				return Verdict{Status: StatusFailed, Detail: detail}
			}
		},
	}
}

func failed(prefix string, c classify.Classification) Verdict {
	detail := fmt.Sprintf("%s (%s)", prefix, c.Kind)
	if c.Detail != "" {
		detail += ": " + c.Detail
	}
	if c.Stderr != "" {
		detail += "; stderr: " + strings.TrimSpace(c.Stderr)
	}
	return Verdict{Status: StatusFailed, Detail: detail}
}
