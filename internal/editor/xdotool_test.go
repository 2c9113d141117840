package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	pid    int
	killed bool
}

func (p *fakeProcess) Pid() int    { return p.pid }
func (p *fakeProcess) Kill() error { p.killed = true; return nil }
func (p *fakeProcess) Wait() error { return nil }

// fakeDesktop imitates an X11 session holding one editor window ("4242")
// that opens a save dialog ("5151") on ctrl+shift+s and writes the typed path
// on Return.
type fakeDesktop struct {
	mu          sync.Mutex
	calls       [][]string
	searchMiss  int
	dialogOpen  bool
	typedPath   string
	noWindow    bool
	refuseSaves bool
}

func (d *fakeDesktop) run(_ context.Context, name string, args ...string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, append([]string{name}, args...))
	switch args[0] {
	case "search":
		if d.noWindow || d.searchMiss > 0 {
			d.searchMiss--
			return nil, errors.New("exit status 1")
		}
		return []byte("4242\n"), nil
	case "getactivewindow":
		if d.dialogOpen {
			return []byte("5151\n"), nil
		}
		return []byte("4242\n"), nil
	case "key":
		switch args[len(args)-1] {
		case "ctrl+shift+s":
			d.dialogOpen = !d.refuseSaves
		case "Return":
			if d.dialogOpen {
				d.dialogOpen = false
				_ = os.WriteFile(d.typedPath, []byte("content"), 0o644)
			}
		}
	case "type":
		if d.dialogOpen {
			d.typedPath = args[len(args)-1]
		}
	}
	return nil, nil
}

func (d *fakeDesktop) commands(verb string) [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out [][]string
	for _, call := range d.calls {
		if call[1] == verb {
			out = append(out, call)
		}
	}
	return out
}

func xdotoolOptions(d *fakeDesktop, proc *fakeProcess) Options {
	return Options{
		Run: d.run,
		Start: func(name string, args ...string) (Process, error) {
			return proc, nil
		},
		ReadyTimeout: 200 * time.Millisecond,
		SaveTimeout:  200 * time.Millisecond,
		PollInterval: time.Millisecond,
	}
}

func TestXdotoolLaunchFindsWindowByPid(t *testing.T) {
	d := &fakeDesktop{searchMiss: 2}
	proc := &fakeProcess{pid: 31337}
	sess, err := NewXdotool(xdotoolOptions(d, proc)).Launch(context.Background())
	require.NoError(t, err)

	xs := sess.(*xdotoolSession)
	assert.Equal(t, "4242", xs.window)
	searches := d.commands("search")
	require.Len(t, searches, 3)
	assert.Equal(t, []string{"xdotool", "search", "--onlyvisible", "--pid", "31337"}, searches[0])
	assert.Equal(t, []string{"xdotool", "windowactivate", "--sync", "4242"}, d.commands("windowactivate")[0])
}

func TestXdotoolLaunchWithoutWindowKillsProcess(t *testing.T) {
	d := &fakeDesktop{noWindow: true}
	proc := &fakeProcess{pid: 1}
	opts := xdotoolOptions(d, proc)
	opts.ReadyTimeout = 10 * time.Millisecond
	_, err := NewXdotool(opts).Launch(context.Background())

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, BackendXdotool, launchErr.Backend)
	assert.True(t, proc.killed)
}

func TestXdotoolLaunchStartFailure(t *testing.T) {
	opts := Options{
		Start: func(string, ...string) (Process, error) {
			return nil, errors.New("executable file not found in $PATH")
		},
	}
	_, err := NewXdotool(opts).Launch(context.Background())

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Contains(t, err.Error(), "mousepad")
}

func TestXdotoolTypeUsesReturnBetweenLines(t *testing.T) {
	d := &fakeDesktop{}
	proc := &fakeProcess{pid: 7}
	opts := xdotoolOptions(d, proc)
	opts.KeyDelay = 5 * time.Millisecond
	sess, err := NewXdotool(opts).Launch(context.Background())
	require.NoError(t, err)

	require.NoError(t, sess.Type(context.Background(), "Title\nbody\n"))

	types := d.commands("type")
	require.Len(t, types, 2)
	assert.Equal(t, []string{"xdotool", "type", "--clearmodifiers", "--delay", "5", "--", "Title"}, types[0])
	assert.Equal(t, "body", types[1][len(types[1])-1])

	var keys []string
	for _, call := range d.commands("key") {
		keys = append(keys, call[len(call)-1])
	}
	assert.Equal(t, []string{"ctrl+a", "Delete", "Return", "Return"}, keys)
}

func TestXdotoolSaveAsDrivesDialog(t *testing.T) {
	d := &fakeDesktop{}
	proc := &fakeProcess{pid: 7}
	sess, err := NewXdotool(xdotoolOptions(d, proc)).Launch(context.Background())
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "out", "post 3.txt")
	require.NoError(t, sess.SaveAs(context.Background(), target))

	assert.Equal(t, target, d.typedPath)
	_, statErr := os.Stat(target)
	assert.NoError(t, statErr)

	require.NoError(t, sess.Close())
	assert.True(t, proc.killed)
}

func TestXdotoolSaveAsWithoutDialogIsSaveError(t *testing.T) {
	d := &fakeDesktop{refuseSaves: true}
	proc := &fakeProcess{pid: 7}
	sess, err := NewXdotool(xdotoolOptions(d, proc)).Launch(context.Background())
	require.NoError(t, err)

	err = sess.SaveAs(context.Background(), filepath.Join(t.TempDir(), "post 4.txt"))

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Contains(t, err.Error(), "dialog did not appear")
}

func TestXdotoolNewDocumentOpensFreshBuffer(t *testing.T) {
	d := &fakeDesktop{}
	proc := &fakeProcess{pid: 7}
	sess, err := NewXdotool(xdotoolOptions(d, proc)).Launch(context.Background())
	require.NoError(t, err)
	activations := len(d.commands("windowactivate"))

	require.NoError(t, sess.NewDocument(context.Background()))

	keys := d.commands("key")
	require.Len(t, keys, 1)
	assert.Equal(t, []string{"xdotool", "key", "--clearmodifiers", "ctrl+n"}, keys[0])
	assert.Len(t, d.commands("windowactivate"), activations+1)
}
