package scenario

import (
	"strings"
	"testing"

	"github.com/simprobe/simprobe/internal/classify"
	"github.com/simprobe/simprobe/internal/rpc"
	"github.com/simprobe/simprobe/internal/transport"
)

func classified(t *testing.T, line string) classify.Classification {
	t.Helper()
	return classify.Classify(transport.Result{Line: []byte(line)})
}

func toolsListLine(names ...string) string {
	entries := make([]string, 0, len(names))
	for _, name := range names {
		entries = append(entries, `{"name":"`+name+`"}`)
	}
	return `{"jsonrpc":"2.0","id":1,"result":{"tools":[` + strings.Join(entries, ",") + `]}}`
}

func TestInitializeEvaluate(t *testing.T) {
	t.Parallel()

	sc := Initialize()

	verdict := sc.Evaluate(classified(t, `{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05"}}`))
	if verdict.Status != StatusPassed {
		t.Fatalf("status = %q, want passed (%s)", verdict.Status, verdict.Detail)
	}

	verdict = sc.Evaluate(classify.Classify(transport.Result{Absent: true, Stderr: "crash log"}))
	if verdict.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", verdict.Status)
	}
	if !strings.Contains(verdict.Detail, "crash log") {
		t.Fatalf("detail %q should echo stderr", verdict.Detail)
	}
}

func TestInitializeRejectsEmptyResult(t *testing.T) {
	t.Parallel()

	sc := Initialize()
	for _, line := range []string{
		`{"jsonrpc":"2.0","id":1,"result":{}}`,
		`{"jsonrpc":"2.0","id":1,"result":[]}`,
	} {
		verdict := sc.Evaluate(classified(t, line))
		if verdict.Status != StatusFailed {
			t.Fatalf("status = %q for %s, want failed", verdict.Status, line)
		}
		if !strings.Contains(verdict.Detail, "empty") {
			t.Fatalf("detail %q should name the empty result", verdict.Detail)
		}
	}
}

func TestInitializeBuildsHandshakeParams(t *testing.T) {
	t.Parallel()

	builder, err := rpc.NewBuilder(rpc.DefaultCorrelationID)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}

	req, err := Initialize().Build(builder)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.Method != rpc.MethodInitialize {
		t.Fatalf("method = %q", req.Method)
	}
	params := string(req.Params)
	for _, want := range []string{`"2024-11-05"`, `"test-client"`, `"1.0.0"`, `"capabilities":{}`} {
		if !strings.Contains(params, want) {
			t.Fatalf("params %s missing %s", params, want)
		}
	}
}

func TestDiscoverToolsEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		line        string
		wantStatus  string
		wantDetail  []string
		rejectExtra []string
	}{
		{
			name:       "all required plus extras passes",
			line:       toolsListLine("build_project", "list_simulators", "simulator_control", "install_app", "launch_app"),
			wantStatus: StatusPassed,
			wantDetail: []string{"5 tools"},
		},
		{
			name:        "missing names are listed exactly",
			line:        toolsListLine("list_simulators", "launch_app"),
			wantStatus:  StatusFailed,
			wantDetail:  []string{"simulator_control", "install_app"},
			rejectExtra: []string{"list_simulators", "launch_app"},
		},
		{
			name:       "result without tools fails",
			line:       `{"jsonrpc":"2.0","id":1,"result":{}}`,
			wantStatus: StatusFailed,
			wantDetail: []string{"missing required tools"},
		},
	}

	sc := DiscoverTools(RequiredTools())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			verdict := sc.Evaluate(classified(t, tt.line))
			if verdict.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q (%s)", verdict.Status, tt.wantStatus, verdict.Detail)
			}
			for _, want := range tt.wantDetail {
				if !strings.Contains(verdict.Detail, want) {
					t.Fatalf("detail %q missing %q", verdict.Detail, want)
				}
			}
			for _, reject := range tt.rejectExtra {
				if strings.Contains(verdict.Detail, "missing") && strings.Contains(verdict.Detail, reject) {
					t.Fatalf("detail %q must name only the missing tools", verdict.Detail)
				}
			}
		})
	}
}

func TestDiscoverToolsFailsOnProtocolError(t *testing.T) {
	t.Parallel()

	sc := DiscoverTools(RequiredTools())
	verdict := sc.Evaluate(classified(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`))
	if verdict.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", verdict.Status)
	}
}

func TestListSimulatorsEvaluate(t *testing.T) {
	t.Parallel()

	sc := ListSimulators()

	tests := []struct {
		name       string
		line       string
		wantStatus string
		wantDetail string
	}{
		{
			name:       "empty listing passes with count zero",
			line:       `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{\"simulators\":[]}"}]}}`,
			wantStatus: StatusPassed,
			wantDetail: "found 0 simulators",
		},
		{
			name:       "populated listing reports count",
			line:       `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{\"simulators\":[{\"udid\":\"a\"},{\"udid\":\"b\"}]}"}]}}`,
			wantStatus: StatusPassed,
			wantDetail: "found 2 simulators",
		},
		{
			name:       "invalid embedded payload fails distinctly",
			line:       `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{broken"}]}}`,
			wantStatus: StatusFailed,
			wantDetail: "invalid tool payload",
		},
		{
			name:       "simulators field of wrong shape fails",
			line:       `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{\"simulators\":42}"}]}}`,
			wantStatus: StatusFailed,
			wantDetail: "simulators sequence",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			verdict := sc.Evaluate(classified(t, tt.line))
			if verdict.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q (%s)", verdict.Status, tt.wantStatus, verdict.Detail)
			}
			if !strings.Contains(verdict.Detail, tt.wantDetail) {
				t.Fatalf("detail %q missing %q", verdict.Detail, tt.wantDetail)
			}
		})
	}
}

func TestSimulatorControlValidationEvaluate(t *testing.T) {
	t.Parallel()

	sc := SimulatorControlValidation()

	verdict := sc.Evaluate(classified(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid params"}}`))
	if verdict.Status != StatusPassed {
		t.Fatalf("status = %q, want passed for explicit rejection", verdict.Status)
	}

	verdict = sc.Evaluate(classified(t, `{"jsonrpc":"2.0","id":1,"result":{"content":[]}}`))
	if verdict.Status != StatusFailed {
		t.Fatal("server accepting invalid arguments must fail the scenario")
	}

	verdict = sc.Evaluate(classify.Classify(transport.Result{Line: []byte("garbage")}))
	if verdict.Status != StatusFailed {
		t.Fatalf("status = %q, want inconclusive failure", verdict.Status)
	}
	if !strings.Contains(verdict.Detail, "inconclusive") || !strings.Contains(verdict.Detail, "garbage") {
		t.Fatalf("detail %q should mark inconclusive and echo the raw response", verdict.Detail)
	}
}

func TestSimulatorControlValidationBuildsInvalidArguments(t *testing.T) {
	t.Parallel()

	builder, err := rpc.NewBuilder(rpc.DefaultCorrelationID)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}

	req, err := SimulatorControlValidation().Build(builder)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	params := string(req.Params)
	for _, want := range []string{"simulator_control", "invalid_action", "invalid_id"} {
		if !strings.Contains(params, want) {
			t.Fatalf("params %s missing %s", params, want)
		}
	}
}

func TestDefaultsOrderIsFixed(t *testing.T) {
	t.Parallel()

	want := []string{"Initialize", "List Tools", "List Simulators", "Simulator Control"}
	scenarios := Defaults()
	if len(scenarios) != len(want) {
		t.Fatalf("scenario count = %d, want %d", len(scenarios), len(want))
	}
	for i, name := range want {
		if scenarios[i].Name != name {
			t.Fatalf("scenario %d = %q, want %q", i, scenarios[i].Name, name)
		}
	}
}
