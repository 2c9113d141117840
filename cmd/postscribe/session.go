package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	sessionName = "postscribe"
	// holdEnv asks a run started in a fresh tmux session to wait for Enter
	// before exiting, so the summary stays on screen.
	holdEnv = "POSTSCRIBE_HOLD"
	// exitFileEnv names the file the inner run writes its exit code to.
	exitFileEnv = "POSTSCRIBE_EXIT_FILE"
)

// startTmuxSession creates a new tmux session and runs this same binary
// inside it. tmux itself always exits 0, so the inner run's exit code is
// relayed through a file under stateDir.
func startTmuxSession(workingDir, stateDir string) int {
	// Get the path to our own executable so we can run it inside tmux
	executable, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding executable: %v\n", err)
		return 1
	}
	executable, err = filepath.Abs(executable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving executable path: %v\n", err)
		return 1
	}

	name := freeSessionName(tmuxHasSession)
	exitFile := exitFilePath(stateDir, name)
	if err := os.Remove(exitFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error clearing %s: %v\n", exitFile, err)
		return 1
	}

	fmt.Printf("Starting postscribe session %s...\n", name)
	cmd := exec.Command("tmux", newSessionArgs(name, workingDir, executable, exitFile)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tmux session %q failed: %v\n", name, err)
		return 1
	}

	code, err := readExitCode(exitFile)
	switch {
	case err == nil:
		_ = os.Remove(exitFile)
		return code
	case errors.Is(err, os.ErrNotExist) && tmuxHasSession(name):
		fmt.Printf("Detached; the run continues in session %s (tmux attach -t %s).\n", name, name)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "No exit status from session %s: %v\n", name, err)
		return 1
	}
}

// freeSessionName returns "postscribe", or "postscribe-2", "postscribe-3"...
// when earlier names are taken, so an old session never blocks a new run.
func freeSessionName(exists func(string) bool) string {
	name := sessionName
	for n := 2; exists(name); n++ {
		name = fmt.Sprintf("%s-%d", sessionName, n)
	}
	return name
}

// newSessionArgs builds the tmux arguments for the inner run.
// -s: session name
// -c: starting directory
// -e: environment for the inner run
func newSessionArgs(name, workingDir, executable, exitFile string) []string {
	return []string{
		"new-session", "-s", name, "-c", workingDir,
		"-e", holdEnv + "=1",
		"-e", exitFileEnv + "=" + exitFile,
		executable,
	}
}

func exitFilePath(stateDir, session string) string {
	return filepath.Join(stateDir, session+".exit")
}

func tmuxHasSession(name string) bool {
	// "=" asks tmux for an exact match instead of a prefix match.
	return exec.Command("tmux", "has-session", "-t", "="+name).Run() == nil
}

func writeExitCode(path string, code int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(code)+"\n"), 0o644)
}

func readExitCode(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse exit code in %s: %w", path, err)
	}
	return code, nil
}
