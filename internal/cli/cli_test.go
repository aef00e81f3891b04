package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/reader/internal/config"
	"github.com/mrlokans/reader/internal/historytest"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	return &config.Config{
		History: config.History{
			BaseURL:        serverURL,
			SaveSchedule:   config.DefaultSaveSchedule,
			UpdateDebounce: 10 * time.Millisecond,
		},
		Preferences: config.Preferences{
			Path:    filepath.Join(t.TempDir(), "prefs.bolt"),
			Backend: "bolt",
		},
		Reader: config.Reader{
			EnableFontControl: true,
			ResizeQuiet:       20 * time.Millisecond,
			FontDebounce:      10 * time.Millisecond,
			LookupDebounce:    10 * time.Millisecond,
		},
		Notice: config.Notice{Timeout: time.Second},
	}
}

func writeBook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moby-dick.txt")
	content := "# Loomings\nCall me Ishmael. Some years ago, never mind how long precisely.\n" +
		"# The Carpet-Bag\nI stuffed a shirt or two into my old carpet-bag.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPositionCommand(t *testing.T) {
	srv := historytest.NewServer()
	defer srv.Close()
	srv.Seed("abc", "loc-5", 3)

	out := &bytes.Buffer{}
	cmd := &PositionCommand{DocumentID: "abc", Out: out, Config: testConfig(t, srv.URL())}
	require.NoError(t, cmd.Run())
	assert.Equal(t, "📍 abc: loc-5 (version 3)\n", out.String())

	out.Reset()
	cmd.DocumentID = "unknown"
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "No saved position for unknown")
}

func TestPositionCommand_ServerFailure(t *testing.T) {
	srv := historytest.NewServer()
	defer srv.Close()
	srv.FailGets(1, 503, "maintenance")

	cmd := &PositionCommand{DocumentID: "abc", Out: &bytes.Buffer{}, Config: testConfig(t, srv.URL())}
	err := cmd.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maintenance")
}

func TestPositionCommand_ParseFlags(t *testing.T) {
	cmd := NewPositionCommand()
	assert.Error(t, cmd.ParseFlags(nil))

	require.NoError(t, cmd.ParseFlags([]string{"-id", "abc", "-server", "http://books.local"}))
	assert.Equal(t, "abc", cmd.DocumentID)
	assert.Equal(t, "http://books.local", cmd.ServerURL)
}

func TestReadCommand_Session(t *testing.T) {
	srv := historytest.NewServer()
	defer srv.Close()
	srv.Seed("moby", "section-2.xhtml#w0", 3)

	script := strings.Join([]string{
		"toc",
		"font 300",
		"font 120",
		"zoom in 2",
		"status",
		"goto 1",
		"bogus",
		"q",
	}, "\n")

	out := &syncBuffer{}
	cmd := &ReadCommand{
		DocumentID: "moby",
		BookPath:   writeBook(t),
		In:         strings.NewReader(script),
		Out:        out,
		Config:     testConfig(t, srv.URL()),
	}
	require.NoError(t, cmd.Run())

	text := out.String()
	assert.Contains(t, text, "📖 moby-dick")
	assert.Contains(t, text, "[The Carpet-Bag] page 1/1")
	assert.Contains(t, text, "* 2. The Carpet-Bag")
	assert.Contains(t, text, "❌ font size must be between 50 and 200 percent")
	assert.Contains(t, text, "🔍 Scale 1.3")
	assert.Contains(t, text, "Stored:   section-2.xhtml#w0 (version 3, unsaved: false)")
	assert.Contains(t, text, "[Loomings] page 1/1")
	assert.Contains(t, text, `unknown command "bogus"`)
}

func TestReadCommand_WithoutSync(t *testing.T) {
	out := &syncBuffer{}
	cmd := &ReadCommand{
		BookPath: writeBook(t),
		In:       strings.NewReader("next\nstatus\nretry\n"),
		Out:      out,
		Config:   testConfig(t, "http://127.0.0.1:1"),
	}
	require.NoError(t, cmd.Run())

	text := out.String()
	assert.Contains(t, text, "Position sync disabled")
	assert.Contains(t, text, "[The Carpet-Bag] page 1/1")
	assert.Contains(t, text, "Sync:     disabled")
	assert.Contains(t, text, "nothing to retry")
}

func TestReadCommand_ParseFlags(t *testing.T) {
	cmd := NewReadCommand()
	assert.Error(t, cmd.ParseFlags([]string{"-id", "abc"}))

	require.NoError(t, cmd.ParseFlags([]string{"-book", "b.txt", "-id", "abc", "-prefs-backend", "bolt", "-no-dictionary"}))
	assert.Equal(t, "b.txt", cmd.BookPath)
	assert.Equal(t, "bolt", cmd.PreferencesStore)
	assert.True(t, cmd.NoDictionary)
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "moby-dick", titleFromPath("/books/moby-dick.txt"))
	assert.Equal(t, "notes", titleFromPath("notes"))
}
