package editor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ProcessStarter starts a long-lived child process without waiting for it.
type ProcessStarter func(name string, args ...string) (Process, error)

// Process is the handle of a started editor.
type Process interface {
	Pid() int
	Kill() error
	Wait() error
}

// ExecRunner runs commands through os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		out := strings.TrimSpace(buf.String())
		if out == "" {
			return buf.Bytes(), fmt.Errorf("%s: %w", name, err)
		}
		return buf.Bytes(), fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return buf.Bytes(), nil
}

// ExecStarter starts processes through os/exec.
func ExecStarter(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p execProcess) Pid() int    { return p.cmd.Process.Pid }
func (p execProcess) Kill() error { return p.cmd.Process.Kill() }
func (p execProcess) Wait() error { return p.cmd.Wait() }
