// Package doctor performs environment checks for required tools and services.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/Aeovy/QuickTransType/internal/history"
	"github.com/Aeovy/QuickTransType/internal/ipc"
	"github.com/Aeovy/QuickTransType/internal/output"
)

const (
	probeTimeout    = 250 * time.Millisecond
	endpointTimeout = 3 * time.Second
)

// Check is a single diagnostic result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report aggregates all checks.
type Report struct {
	Checks []Check
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders one line per check.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return b.String()
}

// Run checks the loaded configuration, the tools the translation pipeline
// shells out to, the daemon socket, the history database, and the LLM
// endpoint.
func Run(ctx context.Context, cfg config.Loaded, settings config.Settings) Report {
	checks := []Check{checkConfig(cfg)}
	checks = append(checks, checkLLMConfig(cfg.Config.LLM))
	checks = append(checks, checkTargetLanguage(cfg.Config.Language))
	checks = append(checks, checkClipboardTools(settings.Clipboard)...)
	checks = append(checks, checkDaemon(ctx, settings))
	checks = append(checks, checkDatabase(settings))
	checks = append(checks, checkLLMEndpoint(ctx, cfg.Config.LLM))
	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{
			Name:    "config",
			Pass:    true,
			Message: fmt.Sprintf("%s not found; running on defaults", cfg.Path),
		}
	}
	message := fmt.Sprintf("loaded %s", cfg.Path)
	if n := len(cfg.Warnings); n > 0 {
		message = fmt.Sprintf("loaded %s with %d warning(s)", cfg.Path, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkLLMConfig validates the request-forming fields without any network
// traffic.
func checkLLMConfig(cfg config.LLMConfig) Check {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Check{Name: "llm.config", Pass: false, Message: "base_url is empty"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return Check{Name: "llm.config", Pass: false, Message: "model is empty"}
	}
	message := fmt.Sprintf("model %q at %s", cfg.Model, cfg.BaseURL)
	if strings.TrimSpace(cfg.APIKey) == "" {
		message += " (api_key is empty)"
	}
	return Check{Name: "llm.config", Pass: true, Message: message}
}

func checkTargetLanguage(lang config.LanguageConfig) Check {
	target := strings.TrimSpace(lang.TargetName())
	if target == "" {
		return Check{Name: "language.target", Pass: false, Message: "no target language configured"}
	}
	return Check{
		Name:    "language.target",
		Pass:    true,
		Message: fmt.Sprintf("translating into %s (%d favorites)", target, len(lang.FavoriteLanguages)),
	}
}

// checkClipboardTools verifies the platform clipboard and keystroke binaries,
// plus the first word of any configured command override.
func checkClipboardTools(cfg config.ClipboardSettings) []Check {
	var checks []Check
	for _, tool := range output.RequiredTools() {
		checks = append(checks, checkBinary(tool, "required for capture and commit"))
	}
	checks = append(checks, checkArgvOverride("clipboard.copy_command", cfg.CopyArgv)...)
	checks = append(checks, checkArgvOverride("clipboard.paste_command", cfg.PasteArgv)...)
	return checks
}

func checkArgvOverride(name string, parse func() ([]string, error)) []Check {
	argv, err := parse()
	if err != nil {
		return []Check{{Name: name, Pass: false, Message: err.Error()}}
	}
	if len(argv) == 0 {
		return nil
	}
	return []Check{checkBinary(argv[0], fmt.Sprintf("%s override", name))}
}

func checkBinary(name, message string) Check {
	if _, err := exec.LookPath(name); err != nil {
		return Check{Name: name, Pass: false, Message: "binary not found in PATH"}
	}
	return Check{Name: name, Pass: true, Message: message}
}

// checkDaemon probes the daemon socket. A missing daemon is not a failure;
// an unusable socket directory is, because the daemon could never start.
func checkDaemon(ctx context.Context, settings config.Settings) Check {
	path := strings.TrimSpace(settings.Socket)
	if path == "" {
		path = ipc.RuntimeSocketPath()
	}

	resp, err := ipc.Send(ctx, path, ipc.Request{Command: "status"}, probeTimeout)
	if err == nil && resp.OK {
		message := fmt.Sprintf("running at %s (%s%s)", path, resp.State, enabledSuffix(ctx, path))
		return Check{Name: "daemon", Pass: true, Message: message}
	}

	dir := filepath.Dir(path)
	if err := probeDirWritable(dir); err != nil {
		return Check{Name: "daemon", Pass: false, Message: fmt.Sprintf("not running and %v", err)}
	}
	return Check{Name: "daemon", Pass: true, Message: fmt.Sprintf("not running (socket dir %s is writable)", dir)}
}

func enabledSuffix(ctx context.Context, path string) string {
	resp, err := ipc.Send(ctx, path, ipc.Request{Command: "get-enabled"}, probeTimeout)
	if err != nil || !resp.OK || len(resp.Data) == 0 {
		return ""
	}
	var enabled bool
	if json.Unmarshal(resp.Data, &enabled) != nil {
		return ""
	}
	if enabled {
		return ", enabled"
	}
	return ", disabled"
}

func probeDirWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("socket dir is unusable: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("socket dir %s is not a directory", dir)
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("socket dir %s is not writable: %v", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// checkDatabase opens the history database, creating it if needed, and
// closes it again.
func checkDatabase(settings config.Settings) Check {
	path := strings.TrimSpace(settings.Database)
	if path == "" {
		resolved, err := history.DefaultPath()
		if err != nil {
			return Check{Name: "history.db", Pass: false, Message: err.Error()}
		}
		path = resolved
	}

	store, err := history.Open(path)
	if err != nil {
		return Check{Name: "history.db", Pass: false, Message: err.Error()}
	}
	if err := store.Close(); err != nil {
		return Check{Name: "history.db", Pass: false, Message: fmt.Sprintf("close: %v", err)}
	}
	return Check{Name: "history.db", Pass: true, Message: fmt.Sprintf("opened %s", path)}
}

// checkLLMEndpoint lists models, the cheapest authenticated call an
// OpenAI-compatible server answers. It spends no tokens.
func checkLLMEndpoint(ctx context.Context, cfg config.LLMConfig) Check {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return Check{Name: "llm.endpoint", Pass: false, Message: "base_url is empty"}
	}
	url := strings.TrimRight(base, "/") + "/models"

	reqCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: "llm.endpoint", Pass: false, Message: err.Error()}
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := http.Client{Timeout: endpointTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: "llm.endpoint", Pass: false, Message: fmt.Sprintf("request %s: %v", url, err)}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Check{Name: "llm.endpoint", Pass: true, Message: fmt.Sprintf("reachable at %s", url)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Check{Name: "llm.endpoint", Pass: false, Message: fmt.Sprintf("rejected credentials (HTTP %d)", resp.StatusCode)}
	default:
		return Check{Name: "llm.endpoint", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
}
