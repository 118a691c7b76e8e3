// Package transport owns the child-process lifecycle for a single
// request/response exchange with the MCP server. Every exchange starts a
// fresh process, writes one framed request line, reads at most one
// response line, and terminates the process on every exit path.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/simprobe/simprobe/internal/rpc"
)

const (
	// DefaultTimeout bounds the single blocking line read per exchange.
	DefaultTimeout = 30 * time.Second
	// DefaultStderrLimitBytes caps captured stderr diagnostics per exchange.
	DefaultStderrLimitBytes = 64 * 1024
)

// Result is the raw outcome of one exchange. Exactly one of Line,
// Absent, or TimedOut describes the response; Stderr carries whatever
// the server wrote to its error stream before termination.
type Result struct {
	Line     []byte
	Stderr   string
	Absent   bool
	TimedOut bool
}

// Config configures the per-exchange client.
type Config struct {
	ServerPath       string
	Timeout          time.Duration
	StderrLimitBytes int
}

// Client runs one-shot exchanges against the configured server binary.
type Client struct {
	path        string
	timeout     time.Duration
	stderrLimit int
}

// NewClient validates the config and constructs an exchange client.
func NewClient(cfg Config) (*Client, error) {
	path := strings.TrimSpace(cfg.ServerPath)
	if path == "" {
		return nil, errors.New("server path must not be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	stderrLimit := cfg.StderrLimitBytes
	if stderrLimit <= 0 {
		stderrLimit = DefaultStderrLimitBytes
	}
	return &Client{
		path:        path,
		timeout:     timeout,
		stderrLimit: stderrLimit,
	}, nil
}

type readOutcome struct {
	line []byte
	err  error
}

// Exchange starts the server, writes one framed request, performs one
// deadline-bounded line read, and terminates the process. The process is
// never leaked: termination runs on every path, including write and read
// failures.
func (c *Client) Exchange(ctx context.Context, req rpc.Request) (Result, error) {
	if c == nil {
		return Result{}, errors.New("client is nil")
	}
	frame, err := rpc.Encode(req)
	if err != nil {
		return Result{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.path)
	stderr := newLimitedBuffer(c.stderrLimit)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Result{}, fmt.Errorf("open server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("open server stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start server %q: %w", c.path, err)
	}

	terminated := false
	terminate := func() {
		if terminated {
			return
		}
		terminated = true
		_ = stdin.Close()
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
	}
	defer terminate()

	if _, err := stdin.Write(frame); err != nil {
		// Server exited before accepting the request; report Absent with
		// whatever it left on stderr.
		terminate()
		return Result{Absent: true, Stderr: stderr.String()}, nil
	}

	readCh := make(chan readOutcome, 1)
	go func() {
		line, readErr := bufio.NewReader(stdout).ReadBytes('\n')
		readCh <- readOutcome{line: line, err: readErr}
	}()

	select {
	case <-runCtx.Done():
		terminate()
		if errors.Is(ctx.Err(), context.Canceled) {
			return Result{}, fmt.Errorf("exchange cancelled: %w", ctx.Err())
		}
		return Result{TimedOut: true, Stderr: stderr.String()}, nil
	case outcome := <-readCh:
		terminate()
		line := bytes.TrimSpace(outcome.line)
		if len(line) == 0 {
			return Result{Absent: true, Stderr: stderr.String()}, nil
		}
		return Result{Line: line, Stderr: stderr.String()}, nil
	}
}
