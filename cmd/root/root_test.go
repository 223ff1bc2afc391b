package root

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/mdattach/pkg/catalog"
	"github.com/docker/mdattach/pkg/paths"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// setupHome points HOME at a temp dir and writes a config storing
// attachments under it.
func setupHome(t *testing.T) (home, configPath string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)

	configPath = filepath.Join(home, "config.yaml")
	content := "store_dir: " + filepath.Join(home, "store") + "\nbase_url: http://files.local\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return home, configPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	err := Execute(t.Context(), nil, &stdout, io.Discard, args...)
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mdattach version dev")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	assert.ErrorContains(t, err, "unknown command")
}

func TestConfigShowCommand(t *testing.T) {
	_, configPath := setupHome(t)

	out, err := execute(t, "--config", configPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_size_mib: 50")
	assert.Contains(t, out, "base_url: http://files.local")
}

func TestConfigSetAndGet(t *testing.T) {
	_, configPath := setupHome(t)

	_, err := execute(t, "--config", configPath, "config", "set", "upload_mode", "fail-fast")
	require.NoError(t, err)

	out, err := execute(t, "--config", configPath, "config", "get", "upload_mode")
	require.NoError(t, err)
	assert.Equal(t, "fail-fast\n", out)

	_, err = execute(t, "--config", configPath, "config", "set", "upload_mode", "sometimes")
	assert.ErrorContains(t, err, "unknown upload mode")

	_, err = execute(t, "--config", configPath, "config", "set", "colour", "blue")
	assert.ErrorContains(t, err, "unknown config key")
}

func TestConfigPathCommand(t *testing.T) {
	_, configPath := setupHome(t)

	out, err := execute(t, "--config", configPath, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, configPath+"\n", out)
}

func TestInsertCommand(t *testing.T) {
	home, configPath := setupHome(t)
	doc := filepath.Join(home, "notes.md")
	require.NoError(t, os.WriteFile(doc, []byte("first\nsecond\n"), 0o644))
	image := filepath.Join(home, "a.png")
	require.NoError(t, os.WriteFile(image, []byte("png"), 0o644))

	out, err := execute(t, "--config", configPath, "insert", doc, image, "--line", "2", "--name", "Diagram")
	require.NoError(t, err)
	assert.Contains(t, out, "Inserted into "+doc+" at 2:1")

	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Regexp(t, `^first\n\[Diagram\]\(http://files\.local/[^)]+\.png\)second\n$`, string(data))

	out, err = execute(t, "catalog", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "a.png")
}

func TestInsertCommand_SizeLimit(t *testing.T) {
	home, configPath := setupHome(t)
	_, err := execute(t, "--config", configPath, "config", "set", "max_size_mib", "1")
	require.NoError(t, err)

	doc := filepath.Join(home, "notes.md")
	big := filepath.Join(home, "big.bin")
	require.NoError(t, os.WriteFile(big, make([]byte, 2<<20), 0o644))

	_, err = execute(t, "--config", configPath, "insert", doc, big)
	require.Error(t, err)
	assert.NoFileExists(t, doc)
}

func TestInsertCommand_UploadRejected(t *testing.T) {
	home, configPath := setupHome(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer srv.Close()
	_, err := execute(t, "--config", configPath, "config", "set", "endpoint", srv.URL)
	require.NoError(t, err)

	doc := filepath.Join(home, "notes.md")
	require.NoError(t, os.WriteFile(doc, []byte("text"), 0o644))
	image := filepath.Join(home, "a.png")
	require.NoError(t, os.WriteFile(image, []byte("png"), 0o644))

	_, err = execute(t, "--config", configPath, "insert", doc, image)
	assert.ErrorContains(t, err, "no upload succeeded")

	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "text", string(data))
}

func TestLinkCommand(t *testing.T) {
	home, configPath := setupHome(t)
	doc := filepath.Join(home, "notes.md")
	require.NoError(t, os.WriteFile(doc, []byte("See "), 0o644))

	_, err := execute(t, "--config", configPath, "link", doc, "--url", "https://example.com/docs/guide.pdf")
	require.NoError(t, err)

	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "See [guide.pdf](https://example.com/docs/guide.pdf)", string(data))

	_, err = execute(t, "--config", configPath, "link", doc)
	assert.ErrorContains(t, err, "--url is required")
}

func TestCatalogRemoveCommand(t *testing.T) {
	home, configPath := setupHome(t)
	doc := filepath.Join(home, "notes.md")
	image := filepath.Join(home, "a.png")
	require.NoError(t, os.WriteFile(image, []byte("png"), 0o644))

	_, err := execute(t, "--config", configPath, "insert", doc, image)
	require.NoError(t, err)

	cat, err := catalog.NewSQLiteStore(t.Context(), paths.GetCatalogPath())
	require.NoError(t, err)
	entries, err := cat.List(t.Context())
	require.NoError(t, err)
	require.NoError(t, cat.Close())
	require.Len(t, entries, 1)
	stored := filepath.Join(home, "store", entries[0].StorageKey)
	assert.FileExists(t, stored)

	out, err := execute(t, "--config", configPath, "catalog", "rm", entries[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed a.png")
	assert.NoFileExists(t, stored)

	_, err = execute(t, "--config", configPath, "catalog", "rm", entries[0].ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestInsertCommand_Diff(t *testing.T) {
	home, configPath := setupHome(t)
	doc := filepath.Join(home, "notes.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Notes\n"), 0o644))

	out, err := execute(t, "--config", configPath, "link", doc, "--url", "https://example.com/a.pdf", "--name", "A", "--diff")
	require.NoError(t, err)
	assert.Contains(t, out, "--- a/notes.md")
	assert.Contains(t, out, "+++ b/notes.md")
	assert.Contains(t, out, "+[A](https://example.com/a.pdf)")
}

func TestLinksCommand(t *testing.T) {
	home, configPath := setupHome(t)
	doc := filepath.Join(home, "notes.md")
	require.NoError(t, os.WriteFile(doc, []byte("See [site](https://example.com).\n"), 0o644))
	image := filepath.Join(home, "a.png")
	require.NoError(t, os.WriteFile(image, []byte("png"), 0o644))

	_, err := execute(t, "--config", configPath, "insert", doc, image, "--name", "Shot")
	require.NoError(t, err)

	out, err := execute(t, "links", doc)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^\s+1  link\s+site https://example\.com$`, out)
	assert.Regexp(t, `(?m)^\*\s+2  link\s+Shot http://files\.local/\S+\.png$`, out)
}

func TestLinksCommand_NoCatalog(t *testing.T) {
	home, _ := setupHome(t)
	doc := filepath.Join(home, "empty.md")
	require.NoError(t, os.WriteFile(doc, []byte("plain text\n"), 0o644))

	out, err := execute(t, "links", doc)
	require.NoError(t, err)
	assert.Equal(t, "No links\n", out)
	assert.NoFileExists(t, paths.GetCatalogPath())
}

func TestEditCommand_RefusesOverlongDocument(t *testing.T) {
	home, configPath := setupHome(t)
	doc := filepath.Join(home, "huge.md")
	require.NoError(t, os.WriteFile(doc, []byte(strings.Repeat("x\n", 10000)), 0o644))

	_, err := execute(t, "--config", configPath, "edit", doc)
	assert.ErrorContains(t, err, "at most 10000")
}
