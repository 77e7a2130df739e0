package clipboard

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const DefaultTimeout = 3 * time.Second

// Available reports whether wl-copy can be found on PATH.
func Available() error {
	if _, err := exec.LookPath("wl-copy"); err != nil {
		return fmt.Errorf("wl-copy not found: %w (install wl-clipboard)", err)
	}
	return nil
}

// Copy places text on the Wayland clipboard.
func Copy(ctx context.Context, text string, timeout time.Duration) error {
	if text == "" {
		return fmt.Errorf("nothing to copy")
	}
	if err := Available(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "wl-copy")
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}
	return nil
}
