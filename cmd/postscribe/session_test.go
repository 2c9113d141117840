package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeSessionNameSkipsTakenNames(t *testing.T) {
	none := func(string) bool { return false }
	assert.Equal(t, "postscribe", freeSessionName(none))

	taken := map[string]bool{"postscribe": true, "postscribe-2": true}
	assert.Equal(t, "postscribe-3", freeSessionName(func(name string) bool { return taken[name] }))
}

func TestNewSessionArgsPassExitFile(t *testing.T) {
	args := newSessionArgs("postscribe-2", "/work", "/usr/local/bin/postscribe", "/work/.postscribe/postscribe-2.exit")
	assert.Equal(t, []string{
		"new-session", "-s", "postscribe-2", "-c", "/work",
		"-e", "POSTSCRIBE_HOLD=1",
		"-e", "POSTSCRIBE_EXIT_FILE=/work/.postscribe/postscribe-2.exit",
		"/usr/local/bin/postscribe",
	}, args)
}

func TestExitCodeRoundTrip(t *testing.T) {
	path := exitFilePath(t.TempDir(), "postscribe")
	assert.Equal(t, "postscribe.exit", filepath.Base(path))

	for _, code := range []int{0, 1, 2} {
		require.NoError(t, writeExitCode(path, code))
		got, err := readExitCode(path)
		require.NoError(t, err)
		assert.Equal(t, code, got)
	}
}

func TestReadExitCodeErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := readExitCode(filepath.Join(dir, "missing.exit"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage.exit")
	require.NoError(t, os.WriteFile(garbage, []byte("partial\n"), 0o644))
	_, err = readExitCode(garbage)
	assert.ErrorContains(t, err, "parse exit code")
}
