package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// osascriptNotify posts a Notification Center banner on darwin.
func osascriptNotify(ctx context.Context, title, text string) error {
	script := fmt.Sprintf("display notification \"%s\" with title \"%s\"",
		escapeAppleScript(text), escapeAppleScript(title))

	out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("osascript notify failed: %w", err)
		}
		return fmt.Errorf("osascript notify failed: %w (%s)", err, trimmed)
	}
	return nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
