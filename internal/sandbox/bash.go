package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sync"
	"syscall"
	"time"
)

// BashRequest is the bash(command, workdir?, timeout?) tool call, per
// spec.md §4.1.
type BashRequest struct {
	Command string
	Workdir string
	Timeout time.Duration
}

// BashResult carries combined stdout+stderr output, the exit code (-1 on
// timeout or spawn failure), and whether the command timed out.
type BashResult struct {
	Output   string
	ExitCode int
	TimedOut bool
}

// bashGuard compiles and checks a command against the deny-list, in
// default mode and (optionally) safe mode. Grounded on tool_guard.go's
// checkCommandSafety: every policy-configured pattern is compiled once
// and reused for every call.
type bashGuard struct {
	mu       sync.Mutex
	compiled []*regexp.Regexp
	safeMode []*regexp.Regexp
}

func newBashGuard(p Policy) (*bashGuard, error) {
	g := &bashGuard{}
	all := append(append([]string{}, defaultBashPatterns...), p.BlockedBashPatterns...)
	for _, pat := range all {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("sandbox: invalid bash deny pattern %q: %w", pat, err)
		}
		g.compiled = append(g.compiled, re)
	}
	for _, pat := range defaultSafeModeBashPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("sandbox: invalid safe-mode bash pattern %q: %w", pat, err)
		}
		g.safeMode = append(g.safeMode, re)
	}
	return g, nil
}

// check returns a non-nil error naming the first matched deny pattern.
// safeMode additionally applies the network/installer deny-list.
func (g *bashGuard) check(command string, safeMode bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, re := range g.compiled {
		if re.MatchString(command) {
			return blocked("command matches disallowed pattern %q", re.String())
		}
	}
	if safeMode {
		for _, re := range g.safeMode {
			if re.MatchString(command) {
				return blocked("command matches disallowed pattern %q (safe mode)", re.String())
			}
		}
	}
	return nil
}

// runBash executes command via `sh -c` in its own process group so a
// timeout kill reaches every child it spawned, not just the shell.
// Grounded on exec_direct.go's DirectExecutor: SysProcAttr{Setpgid: true}
// plus a context.Cancel func that sends SIGKILL to the negated pgid.
func runBash(ctx context.Context, req BashRequest, maxBytes int) (BashResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", req.Command)
	if req.Workdir != "" {
		cmd.Dir = req.Workdir
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()

	timedOut := ctx.Err() == context.DeadlineExceeded
	out := truncate(buf.String(), maxBytes)

	if timedOut {
		// Spec.md: on timeout return a synthetic "timed out" string, not
		// an error — the model should see this as a tool result, not a
		// broken call.
		return BashResult{
			Output:   out + fmt.Sprintf("\n[command timed out after %s]", req.Timeout),
			ExitCode: -1,
			TimedOut: true,
		}, nil
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return BashResult{Output: out, ExitCode: -1}, fmt.Errorf("bash: spawn failed: %w", err)
		}
	}

	return BashResult{Output: out, ExitCode: exitCode}, nil
}

// Bash validates req against the deny-list, clamps its timeout, and
// executes it. The caller (sandbox.go) owns round/call accounting.
func (s *Sandbox) Bash(ctx context.Context, req BashRequest) (BashResult, error) {
	if err := s.bash.check(req.Command, s.policy.SafeMode); err != nil {
		return BashResult{}, err
	}

	if req.Workdir != "" && !filepath.IsAbs(req.Workdir) {
		req.Workdir = filepath.Join(s.policy.ProjectRoot, req.Workdir)
	}

	timeout := clampDuration(req.Timeout, s.policy.BashTimeout, s.policy.HardBashTimeout)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req.Timeout = timeout
	return runBash(callCtx, req, s.policy.MaxResultBytes)
}
