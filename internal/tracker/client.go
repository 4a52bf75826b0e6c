// Package tracker files issues with the external tracker through the gh
// CLI. It owns error classification at that boundary: creation failures
// are typed and surfaced, board-registration failures are logged and
// swallowed, since the issue already exists by then.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// CreatedIssue is the durable record the tracker hands back on success.
// It is used to compose the confirmation message and not stored.
type CreatedIssue struct {
	Number string
	URL    string
}

// BoardItem is one entry of the tracking board, as listed for /status.
type BoardItem struct {
	Status string `json:"status"`
	Title  string `json:"title"`
}

// Config locates the repository and tracking board.
type Config struct {
	Bin     string        // gh binary, default "gh"
	Owner   string        // repository owner
	Repo    string        // repository name
	Project string        // tracking board (project) number
	Timeout time.Duration // per-invocation bound
}

// Client drives the gh CLI.
type Client struct {
	config Config
	logger *slog.Logger
}

// NewClient creates a tracker client. Zero-valued optional config fields
// are defaulted.
func NewClient(config Config, logger *slog.Logger) *Client {
	if config.Bin == "" {
		config.Bin = "gh"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{config: config, logger: logger}
}

// Create files a new issue and then registers it on the tracking board.
// A creation error returns a *CreateFailure. A board-registration error is
// logged only: partial success is preferred over leaving the user with no
// record at all.
func (c *Client) Create(ctx context.Context, title, body string, phase int, typeLabel string) (*CreatedIssue, error) {
	args := []string{
		"issue", "create",
		"--repo", c.config.Owner + "/" + c.config.Repo,
		"--title", title,
		"--body", body,
		"--label", fmt.Sprintf("phase:%d", phase),
		"--label", "type:" + typeLabel,
	}

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, &CreateFailure{Detail: errDetail(err), Err: err}
	}

	url := strings.TrimSpace(out)
	if url == "" {
		return nil, &CreateFailure{Detail: "tracker returned no issue URL"}
	}

	created := &CreatedIssue{
		Number: lastPathSegment(url),
		URL:    url,
	}

	c.logger.Info("issue created", "number", created.Number, "url", created.URL)

	if err := c.addToBoard(ctx, url); err != nil {
		c.logger.Warn("board registration failed", "url", url, "error", err)
	}

	return created, nil
}

// addToBoard registers an issue URL on the tracking board.
func (c *Client) addToBoard(ctx context.Context, url string) error {
	_, err := c.run(ctx,
		"project", "item-add", c.config.Project,
		"--owner", c.config.Owner,
		"--url", url,
	)
	if err != nil {
		return &BoardFailure{URL: url, Err: err}
	}
	return nil
}

// BoardItems lists the tracking board for status reporting.
func (c *Client) BoardItems(ctx context.Context) ([]BoardItem, error) {
	out, err := c.run(ctx,
		"project", "item-list", c.config.Project,
		"--owner", c.config.Owner,
		"--format", "json",
		"--limit", "20",
	)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Items []BoardItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		return nil, fmt.Errorf("failed to parse board listing: %w", err)
	}
	return listing.Items, nil
}

// cliError reports a failed gh invocation with the CLI's own stderr as
// the human-readable detail.
type cliError struct {
	Detail string
	Err    error
}

func (e *cliError) Error() string { return e.Detail }
func (e *cliError) Unwrap() error { return e.Err }

// errDetail pulls the CLI detail out of a run error.
func errDetail(err error) string {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.Detail
	}
	return err.Error()
}

// run executes one gh invocation and returns its stdout.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.config.Bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("invoking tracker CLI", "bin", c.config.Bin, "subcommand", strings.Join(args[:2], " "))

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if ctxErr := ctx.Err(); ctxErr != nil {
			detail = fmt.Sprintf("timed out after %s", c.config.Timeout)
		}
		if detail == "" {
			detail = err.Error()
		}
		return "", &cliError{Detail: detail, Err: err}
	}

	return stdout.String(), nil
}

// lastPathSegment extracts the tracker-assigned issue number from an
// issue URL.
func lastPathSegment(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if i := strings.LastIndex(trimmed, "/"); i != -1 {
		return trimmed[i+1:]
	}
	return trimmed
}
