package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var errTimeout = errors.New("timed out")

// poll calls check every interval until it reports done, returns an error,
// the timeout elapses or ctx ends.
func poll(ctx context.Context, interval, timeout time.Duration, check func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return errTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitForFile polls until path exists as a regular file.
func waitForFile(ctx context.Context, path string, interval, timeout time.Duration) error {
	err := poll(ctx, interval, timeout, func() (bool, error) {
		info, err := os.Stat(path)
		if err != nil {
			return false, nil
		}
		return info.Mode().IsRegular(), nil
	})
	if errors.Is(err, errTimeout) {
		return fmt.Errorf("waiting for %s: %w", path, err)
	}
	return err
}

// prepareTarget creates the destination directory and removes a stale file
// so that its reappearance confirms the save.
func prepareTarget(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale file: %w", err)
	}
	return nil
}
