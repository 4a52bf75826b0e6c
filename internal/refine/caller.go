package refine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Caller invokes the external text-refinement engine with a prompt and
// returns its raw completion.
type Caller interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, prompt string) (string, error)

func (f CallerFunc) Call(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// CLIConfig configures the subprocess-backed caller.
type CLIConfig struct {
	Cmd            []string      // engine command and arguments, e.g. ["claude", "-p"]
	Timeout        time.Duration // wall-clock bound per invocation
	MaxOutputBytes int64         // stdout cap; larger responses are an error
}

// DefaultCLIConfig returns the standard settings for an engine command.
func DefaultCLIConfig(cmd []string) CLIConfig {
	return CLIConfig{
		Cmd:            cmd,
		Timeout:        90 * time.Second,
		MaxOutputBytes: 1024 * 1024,
	}
}

// CLICaller runs the engine as a one-shot subprocess: prompt on stdin,
// completion on stdout. Each Call spawns a fresh process bounded by the
// configured timeout; when the timeout elapses the process is killed and
// the call fails.
type CLICaller struct {
	config CLIConfig
	logger *slog.Logger
}

// NewCLICaller creates a subprocess-backed caller.
func NewCLICaller(config CLIConfig, logger *slog.Logger) *CLICaller {
	return &CLICaller{config: config, logger: logger}
}

// Call runs the engine once and returns its stdout.
func (c *CLICaller) Call(ctx context.Context, prompt string) (string, error) {
	if len(c.config.Cmd) == 0 {
		return "", fmt.Errorf("engine command not configured")
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.config.Cmd[0], c.config.Cmd[1:]...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = newCappedWriter(&stdout, c.config.MaxOutputBytes)
	cmd.Stderr = &stderr

	start := time.Now()
	c.logger.Debug("invoking refinement engine", "cmd", c.config.Cmd[0], "prompt_bytes", len(prompt))

	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("engine call timed out after %s: %w", elapsed.Round(time.Millisecond), ctxErr)
		}
		var capErr *outputCapError
		if errors.As(err, &capErr) {
			return "", capErr
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("engine exited with error: %w: %s", err, detail)
		}
		return "", fmt.Errorf("engine exited with error: %w", err)
	}

	c.logger.Debug("engine call completed", "elapsed", elapsed, "output_bytes", stdout.Len())
	return stdout.String(), nil
}

// cappedWriter fails the copy once the size limit is exceeded, which in
// turn fails cmd.Run with an outputCapError.
type cappedWriter struct {
	dst     io.Writer
	remain  int64
	limited bool
}

func newCappedWriter(dst io.Writer, limit int64) *cappedWriter {
	return &cappedWriter{dst: dst, remain: limit, limited: limit > 0}
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	if w.limited {
		if int64(len(p)) > w.remain {
			return 0, &outputCapError{}
		}
		w.remain -= int64(len(p))
	}
	return w.dst.Write(p)
}

type outputCapError struct{}

func (*outputCapError) Error() string { return "engine output exceeds size limit" }
