package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestVersionCmd(t *testing.T) {
	root := newRootCmd("1.2.3", "2026-01-01", "abc123")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "inkwash-card: 1.2.3")
	assert.Contains(t, out.String(), "gitCommit: abc123")
}

func TestReadPhoto(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "me.png")
	require.NoError(t, os.WriteFile(png, pngHeader, 0o644))

	uri, err := readPhoto(png)
	require.NoError(t, err)
	assert.Regexp(t, `^data:image/png;base64,`, uri)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	_, err = readPhoto(txt)
	assert.Error(t, err)
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "photos/me_inkwash.png", defaultOutputPath("photos/me.jpg", "image/png"))
	assert.Equal(t, "me_inkwash.jpg", defaultOutputPath("me.png", "image/jpeg"))
}

func TestLoadConfig_DefaultsFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)

	tbl, err := newStyleTable(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"cute", "elegant"}, tbl.IDs())
}

func TestGenerateCmd_Misconfigured(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	photo := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(photo, pngHeader, 0o644))

	root := newRootCmd("dev", "", "")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"generate", photo})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
