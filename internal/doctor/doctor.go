// Package doctor runs deterministic preflight checks on the environment
// the harness needs: the server binary must exist, be a regular file,
// and be executable before any scenario can exchange with it.
package doctor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Check is one named preflight check outcome.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Report aggregates preflight check outcomes.
type Report struct {
	Checks []Check
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	for _, check := range r.Checks {
		if !check.Passed {
			return false
		}
	}
	return len(r.Checks) > 0
}

// Checker inspects the harness environment with deterministic checks.
type Checker struct {
	serverPath string
	stat       func(string) (os.FileInfo, error)
}

// NewChecker builds a checker for the given server binary path.
func NewChecker(serverPath string) (*Checker, error) {
	serverPath = strings.TrimSpace(serverPath)
	if serverPath == "" {
		return nil, errors.New("server path must not be empty")
	}
	return &Checker{
		serverPath: serverPath,
		stat:       os.Stat,
	}, nil
}

// Run executes all preflight checks and returns their outcomes in order.
func (c *Checker) Run() Report {
	if c == nil {
		return Report{}
	}

	info, err := c.stat(c.serverPath)
	if err != nil {
		detail := fmt.Sprintf("stat %s: %v", c.serverPath, err)
		if errors.Is(err, fs.ErrNotExist) {
			detail = fmt.Sprintf("server binary not found at %s", c.serverPath)
		}
		return Report{Checks: []Check{
			{Name: "server binary present", Passed: false, Detail: detail},
		}}
	}

	checks := []Check{
		{
			Name:   "server binary present",
			Passed: true,
			Detail: c.serverPath,
		},
		{
			Name:   "server binary is a regular file",
			Passed: info.Mode().IsRegular(),
			Detail: fmt.Sprintf("mode %s", info.Mode()),
		},
		{
			Name:   "server binary is executable",
			Passed: info.Mode().Perm()&0o111 != 0,
			Detail: fmt.Sprintf("permissions %s", info.Mode().Perm()),
		},
	}
	return Report{Checks: checks}
}
