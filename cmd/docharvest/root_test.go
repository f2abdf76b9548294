package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/docharvest/config"
	"github.com/use-agent/docharvest/models"
)

const articlePage = `<!doctype html>
<html><head><title>ignored</title></head>
<body>
<nav>Menu</nav>
<main>
  <h1>Generating content</h1>
  <p>Call the session.</p>
  <pre><code>let session = LanguageModelSession()</code></pre>
</main>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/generating", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeTargets(t *testing.T, base string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.yaml")
	body := fmt.Sprintf(`targets:
  - name: generating
    url: %s/docs/generating
  - name: missing
    url: %s/docs/missing
`, base, base)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRootCmd_HTTPEngine(t *testing.T) {
	site := newSite(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "results.json")
	md := filepath.Join(dir, "results.md")

	var hooks atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks.Add(1)
	}))
	defer hook.Close()

	var stdout bytes.Buffer
	cmd := newRootCmd(config.Load(), &stdout, io.Discard)
	cmd.SetArgs([]string{
		"--engine", "http",
		"--targets", writeTargets(t, site.URL),
		"--output", out,
		"--markdown", md,
		"--delay", "0s",
		"--webhook", hook.URL,
		"--log-level", "error",
	})

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "generating", decoded[0]["name"])
	assert.Equal(t, true, decoded[0]["success"])
	assert.Equal(t, "Generating content", decoded[0]["title"])
	// <pre><code> matches both "pre code" and "pre".
	code := "let session = LanguageModelSession()"
	assert.Equal(t, []any{code, code}, decoded[0]["code_blocks"])

	assert.Equal(t, "missing", decoded[1]["name"])
	assert.Equal(t, false, decoded[1]["success"])
	assert.Contains(t, decoded[1]["error"], "404")

	digest, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(digest), "# Generating content")

	assert.Contains(t, stdout.String(), "\n📄 generating...\n")
	assert.Contains(t, stdout.String(), "\n✅ Done! 1/2 successful\n")
	assert.Equal(t, int32(1), hooks.Load())
}

func TestRootCmd_UnknownEngine(t *testing.T) {
	cmd := newRootCmd(config.Load(), &bytes.Buffer{}, io.Discard)
	cmd.SetArgs([]string{"--engine", "carrier-pigeon", "--log-level", "error"})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	cmd := newRootCmd(config.Load(), &bytes.Buffer{}, io.Discard)
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.Execute())
}

func TestRootCmd_WriteFailureIsFatal(t *testing.T) {
	site := newSite(t)
	out := filepath.Join(t.TempDir(), "no-such-dir", "results.json")

	var stdout bytes.Buffer
	cmd := newRootCmd(config.Load(), &stdout, io.Discard)
	cmd.SetArgs([]string{
		"--engine", "http",
		"--targets", writeTargets(t, site.URL),
		"--output", out,
		"--delay", "0s",
		"--log-level", "error",
	})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeOutputWrite, models.CodeOf(err))
	assert.NotContains(t, stdout.String(), "Done!")
}

func TestRootCmd_BrowserLaunchFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HARVEST_BROWSER_BIN", filepath.Join(dir, "no-such-chrome"))
	out := filepath.Join(dir, "results.json")

	var stdout bytes.Buffer
	cmd := newRootCmd(config.Load(), &stdout, io.Discard)
	cmd.SetArgs([]string{
		"--engine", "browser",
		"--output", out,
		"--delay", "0s",
		"--log-level", "error",
	})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeBrowserCrash, models.CodeOf(err))
	assert.NoFileExists(t, out)
	assert.NotContains(t, stdout.String(), "📄")
	assert.NotContains(t, stdout.String(), "Done!")
}

func TestExecute_ReportsFatalErrorOnce(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), config.Load(),
		[]string{"--engine", "carrier-pigeon"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Equal(t, 1, strings.Count(stderr.String(), "unknown engine"), stderr.String())
	assert.Contains(t, stderr.String(), "harvest failed")
	assert.Empty(t, stdout.String())
}

func TestExecute_Success(t *testing.T) {
	site := newSite(t)
	out := filepath.Join(t.TempDir(), "results.json")

	code := execute(context.Background(), config.Load(), []string{
		"--engine", "http",
		"--targets", writeTargets(t, site.URL),
		"--output", out,
		"--delay", "0s",
	}, io.Discard, io.Discard)

	assert.Equal(t, 0, code)
	assert.FileExists(t, out)
}
