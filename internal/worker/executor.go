package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os/exec"

	"github.com/dyluth/warren/pkg/taskboard"
)

// maxOutputSize caps captured tool stdout/stderr at 10MB.
const maxOutputSize = 10 * 1024 * 1024

// toolInput is the JSON structure fed to the tool on stdin.
type toolInput struct {
	Agent string                `json:"agent"`
	Task  *taskboard.TaskRecord `json:"task"`
}

// runTool executes the configured command as a subprocess for one task.
//
// The subprocess is:
//   - Bounded by Config.ExecTimeout via context
//   - Run in Config.WorkDir when set
//   - Fed the task JSON via stdin (pipe closed after write)
//   - Output captured with a 10MB limit on stdout and stderr
//
// Returns (exitCode, stdout, stderr, error) where exitCode is -1 when the
// process could not start or timed out.
func (e *Engine) runTool(ctx context.Context, task *taskboard.TaskRecord) (int, string, string, error) {
	if len(e.config.Command) == 0 {
		return -1, "", "", fmt.Errorf("command array is empty")
	}

	input, err := json.Marshal(toolInput{Agent: e.config.AgentName, Task: task})
	if err != nil {
		return -1, "", "", fmt.Errorf("failed to marshal tool input: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.config.ExecTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, e.config.Command[0], e.config.Command[1:]...)
	if e.config.WorkDir != "" {
		cmd.Dir = e.config.WorkDir
	}

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return -1, "", "", fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	cmd.Stdout = &limitedWriter{w: stdoutBuf, limit: maxOutputSize}
	cmd.Stderr = &limitedWriter{w: stderrBuf, limit: maxOutputSize}

	if err := cmd.Start(); err != nil {
		return -1, "", "", fmt.Errorf("failed to start process: %w", err)
	}

	go func() {
		defer stdinPipe.Close()
		if _, err := stdinPipe.Write(input); err != nil {
			log.Printf("[WARN] Failed to write to stdin: %v", err)
		}
	}()

	err = cmd.Wait()

	stdout := stdoutBuf.String()
	stderr := stderrBuf.String()

	if stdoutBuf.Len() >= maxOutputSize || stderrBuf.Len() >= maxOutputSize {
		return -1, stdout, stderr, fmt.Errorf("tool output exceeded 10MB limit")
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			if execCtx.Err() == context.DeadlineExceeded {
				return -1, stdout, stderr, fmt.Errorf("tool execution timeout (%s)", e.config.ExecTimeout)
			}
			return -1, stdout, stderr, err
		}
	}

	if exitCode != 0 {
		return exitCode, stdout, stderr, fmt.Errorf("process exited with code %d", exitCode)
	}

	return exitCode, stdout, stderr, nil
}

// limitedWriter wraps a writer and enforces a size limit.
// Once the limit is reached, further writes are discarded.
type limitedWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (lw *limitedWriter) Write(p []byte) (n int, err error) {
	remaining := lw.limit - lw.written
	if remaining <= 0 {
		return len(p), nil
	}

	toWrite := p
	if len(p) > remaining {
		toWrite = p[:remaining]
	}

	n, err = lw.w.Write(toWrite)
	lw.written += n
	return len(p), err
}

// truncate limits a string to maxLen characters, appending "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
