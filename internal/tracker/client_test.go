package tracker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// createGhStub writes a fake gh binary. Each invocation appends its
// arguments to argsFile; behavior per subcommand is controlled by the
// script body passed in.
func createGhStub(t *testing.T, body string) (bin string, argsFile string) {
	t.Helper()

	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args.log")
	bin = filepath.Join(dir, "gh")

	script := "#!/bin/bash\necho \"$@\" >> " + argsFile + "\n" + body
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))
	return bin, argsFile
}

func newTestClient(t *testing.T, body string) (*Client, string) {
	bin, argsFile := createGhStub(t, body)
	client := NewClient(Config{
		Bin:     bin,
		Owner:   "wooix",
		Repo:    "claude-blog-app",
		Project: "11",
		Timeout: 5 * time.Second,
	}, testLogger())
	return client, argsFile
}

func TestCreateSuccess(t *testing.T) {
	client, argsFile := newTestClient(t, `
if [ "$1" = "issue" ]; then
  echo "https://github.com/wooix/claude-blog-app/issues/42"
fi
exit 0
`)

	created, err := client.Create(context.Background(), "[feat] 다크 모드 토글 추가", "## 목표\n\n...", 2, "feat")
	require.NoError(t, err)

	assert.Equal(t, "42", created.Number)
	assert.Equal(t, "https://github.com/wooix/claude-blog-app/issues/42", created.URL)

	logged, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	calls := strings.Split(strings.TrimSpace(string(logged)), "\n")
	require.Len(t, calls, 2, "expected issue create followed by board registration")

	assert.Contains(t, calls[0], "issue create")
	assert.Contains(t, calls[0], "--repo wooix/claude-blog-app")
	assert.Contains(t, calls[0], "[feat] 다크 모드 토글 추가")
	assert.Contains(t, calls[0], "--label phase:2")
	assert.Contains(t, calls[0], "--label type:feat")

	assert.Contains(t, calls[1], "project item-add 11")
	assert.Contains(t, calls[1], "--owner wooix")
	assert.Contains(t, calls[1], "--url https://github.com/wooix/claude-blog-app/issues/42")
}

func TestCreateFailureCarriesStderr(t *testing.T) {
	client, _ := newTestClient(t, `
echo "rate limited" >&2
exit 1
`)

	_, err := client.Create(context.Background(), "title", "body", 1, "fix")

	var cf *CreateFailure
	require.ErrorAs(t, err, &cf)
	assert.Contains(t, cf.Detail, "rate limited")
}

func TestCreateBoardFailureIsNonFatal(t *testing.T) {
	client, argsFile := newTestClient(t, `
if [ "$1" = "issue" ]; then
  echo "https://github.com/wooix/claude-blog-app/issues/7"
  exit 0
fi
echo "project not found" >&2
exit 1
`)

	created, err := client.Create(context.Background(), "title", "body", 1, "feat")
	require.NoError(t, err, "board registration failure must not fail create")
	assert.Equal(t, "7", created.Number)

	logged, readErr := os.ReadFile(argsFile)
	require.NoError(t, readErr)
	assert.Contains(t, string(logged), "item-add", "board registration was attempted")
}

func TestCreateEmptyURLFails(t *testing.T) {
	client, _ := newTestClient(t, `exit 0`)

	_, err := client.Create(context.Background(), "title", "body", 1, "feat")

	var cf *CreateFailure
	require.ErrorAs(t, err, &cf)
	assert.Contains(t, cf.Detail, "no issue URL")
}

func TestBoardItems(t *testing.T) {
	client, _ := newTestClient(t, `
echo '{"items": [{"status": "Backlog", "title": "이슈 A"}, {"status": "Done", "title": "이슈 B"}]}'
exit 0
`)

	items, err := client.BoardItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Backlog", items[0].Status)
	assert.Equal(t, "이슈 A", items[0].Title)
	assert.Equal(t, "Done", items[1].Status)
}

func TestBoardItemsEmpty(t *testing.T) {
	client, _ := newTestClient(t, `
echo '{"items": []}'
exit 0
`)

	items, err := client.BoardItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestBoardItemsBadJSON(t *testing.T) {
	client, _ := newTestClient(t, `
echo 'not json'
exit 0
`)

	_, err := client.BoardItems(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLastPathSegment(t *testing.T) {
	assert.Equal(t, "42", lastPathSegment("https://github.com/o/r/issues/42"))
	assert.Equal(t, "42", lastPathSegment("https://github.com/o/r/issues/42/"))
	assert.Equal(t, "bare", lastPathSegment("bare"))
}

func TestCreateTimeout(t *testing.T) {
	bin, _ := createGhStub(t, `
sleep 2
exit 0
`)
	client := NewClient(Config{
		Bin:     bin,
		Owner:   "o",
		Repo:    "r",
		Project: "1",
		Timeout: 100 * time.Millisecond,
	}, testLogger())

	_, err := client.Create(context.Background(), "title", "body", 1, "feat")

	var cf *CreateFailure
	require.ErrorAs(t, err, &cf)
	assert.Contains(t, cf.Detail, "timed out")
}
