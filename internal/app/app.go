// Package app wires configuration, session orchestration, storage, and the
// IPC surface into the quicktranstype CLI and daemon.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Aeovy/QuickTransType/internal/cli"
	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/Aeovy/QuickTransType/internal/doctor"
	"github.com/Aeovy/QuickTransType/internal/history"
	"github.com/Aeovy/QuickTransType/internal/ipc"
	"github.com/Aeovy/QuickTransType/internal/logging"
	"github.com/Aeovy/QuickTransType/internal/version"
)

const binaryName = "quicktranstype"

// forwardTimeout bounds quick daemon round trips. Translation and LLM probes
// get their own timeouts derived from the configured HTTP timeout.
const forwardTimeout = 2 * time.Second

const statusTimeout = 500 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	settings, err := config.LoadSettings("")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(settings.Log)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	logger.Info("command start", "command", parsed.Command, "log", logRuntime.Path)

	switch parsed.Command {
	case cli.CommandDaemon:
		return r.runDaemon(ctx, parsed.ConfigPath, settings, logger)
	case cli.CommandDoctor:
		return r.commandDoctor(ctx, parsed.ConfigPath, settings, logger)
	case cli.CommandStatus:
		return r.commandStatus(ctx, settings)
	case cli.CommandStop:
		return r.forwardSimple(ctx, settings, "stop", nil)
	case cli.CommandCancel:
		return r.forwardSimple(ctx, settings, "cancel", nil)
	case cli.CommandEnable:
		return r.forwardSimple(ctx, settings, "set-enabled", true)
	case cli.CommandDisable:
		return r.forwardSimple(ctx, settings, "set-enabled", false)
	case cli.CommandSwitchLanguage:
		return r.forwardSimple(ctx, settings, "switch-language", parsed.Arg)
	case cli.CommandCount:
		limit, err := strconv.Atoi(parsed.Arg)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 2
		}
		return r.forwardSimple(ctx, settings, "set-count", limit)
	case cli.CommandTestLLM:
		return r.commandTestLLM(ctx, settings)
	case cli.CommandGetConfig:
		return r.commandGetConfig(ctx, settings)
	case cli.CommandSaveConfig:
		return r.commandSaveConfig(ctx, settings)
	case cli.CommandConflicts:
		return r.commandConflicts(ctx, settings)
	case cli.CommandTranslate:
		return r.commandTranslate(ctx, settings, parsed.Arg, logger)
	case cli.CommandHistory:
		return r.commandHistory(ctx, settings, parsed.Arg)
	case cli.CommandStats:
		return r.commandStats(ctx, settings, parsed.Arg)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDoctor(ctx context.Context, configPath string, settings config.Settings, logger *slog.Logger) int {
	cfgLoaded, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	r.printWarnings(cfgLoaded.Warnings)

	report := doctor.Run(ctx, cfgLoaded, settings)
	fmt.Fprint(r.Stdout, report.String())
	if report.OK() {
		return 0
	}
	return 1
}

func (r Runner) commandStatus(ctx context.Context, settings config.Settings) int {
	resp, handled, err := r.forward(ctx, settings, "status", nil, statusTimeout)
	if !handled {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	return 0
}

func (r Runner) commandTranslate(ctx context.Context, settings config.Settings, mode string, logger *slog.Logger) int {
	timeout := settings.HTTPTimeout() + 30*time.Second
	resp, handled, err := r.forward(ctx, settings, "translate", mode, timeout)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: daemon not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
		return 0
	}

	var reply translateReply
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &reply); err != nil {
			fmt.Fprintf(r.Stderr, "error: decode result: %v\n", err)
			return 1
		}
	}

	logger.Info("translation committed",
		"mode", mode,
		"model", reply.Model,
		"target_language", reply.TargetLanguage,
		"source_chars", reply.SourceChars,
		"translated_chars", len([]rune(reply.TranslatedText)),
		"duration_ms", reply.DurationMS,
	)

	if text := strings.TrimSpace(reply.TranslatedText); text != "" {
		fmt.Fprintln(r.Stdout, text)
	}
	return 0
}

func (r Runner) commandTestLLM(ctx context.Context, settings config.Settings) int {
	timeout := settings.HTTPTimeout() + 5*time.Second
	resp, handled, err := r.forward(ctx, settings, "test-llm", nil, timeout)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: daemon not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandGetConfig(ctx context.Context, settings config.Settings) int {
	resp, handled, err := r.forward(ctx, settings, "get-config", nil, forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: daemon not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Data, "", "  "); err != nil {
		fmt.Fprintf(r.Stderr, "error: decode config: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, pretty.String())
	return 0
}

// commandSaveConfig validates the document client-side so syntax errors
// surface with line positions before any daemon round trip.
func (r Runner) commandSaveConfig(ctx context.Context, settings config.Settings) int {
	stdin := r.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	raw, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read configuration from stdin: %v\n", err)
		return 1
	}

	cfg, warnings, err := config.Parse(string(raw), config.Default())
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	r.printWarnings(warnings)

	doc, err := config.EncodeDocument(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := r.forward(ctx, settings, "save-config", json.RawMessage(doc), forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: daemon not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandConflicts(ctx context.Context, settings config.Settings) int {
	resp, handled, err := r.forward(ctx, settings, "check-conflicts", nil, forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: daemon not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var conflicts []string
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &conflicts); err != nil {
			fmt.Fprintf(r.Stderr, "error: decode conflicts: %v\n", err)
			return 1
		}
	}
	if len(conflicts) == 0 {
		fmt.Fprintln(r.Stdout, "no conflicts")
		return 0
	}
	for _, c := range conflicts {
		fmt.Fprintln(r.Stdout, c)
	}
	return 0
}

func (r Runner) commandHistory(ctx context.Context, settings config.Settings, pageArg string) int {
	q := history.Query{Page: 1, PageSize: 20}
	if pageArg != "" {
		page, err := strconv.ParseInt(pageArg, 10, 64)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 2
		}
		q.Page = page
	}

	resp, handled, err := r.forward(ctx, settings, "history", q, forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: daemon not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var page history.Page
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		fmt.Fprintf(r.Stderr, "error: decode history page: %v\n", err)
		return 1
	}
	if len(page.Records) == 0 {
		fmt.Fprintln(r.Stdout, "no translations recorded")
		return 0
	}

	for _, rec := range page.Records {
		ts := time.Unix(rec.Timestamp, 0).Format("2006-01-02 15:04")
		fmt.Fprintf(r.Stdout, "#%d  %s  [%s, %s]  %s -> %s\n",
			rec.ID, ts, rec.Mode, rec.TargetLang, clip(rec.OriginalText, 40), clip(rec.TranslatedText, 40))
	}
	pages := (page.Total + q.PageSize - 1) / q.PageSize
	fmt.Fprintf(r.Stdout, "page %d of %d (%d total)\n", q.Page, pages, page.Total)
	return 0
}

func (r Runner) commandStats(ctx context.Context, settings config.Settings, periodArg string) int {
	var payload any
	if periodArg != "" {
		payload = periodArg
	}

	resp, handled, err := r.forward(ctx, settings, "stats", payload, forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: daemon not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var stats history.Stats
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		fmt.Fprintf(r.Stderr, "error: decode stats: %v\n", err)
		return 1
	}

	period := periodArg
	if period == "" {
		period = "day"
	}
	fmt.Fprintf(r.Stdout, "period: %s\n", period)
	fmt.Fprintf(r.Stdout, "translations: %d (%d ok, %d failed)\n",
		stats.TotalTranslations, stats.SuccessfulTranslations, stats.FailedTranslations)
	if stats.SuccessfulTranslations > 0 {
		fmt.Fprintf(r.Stdout, "latency ms: avg %.0f, min %d, max %d\n",
			stats.AvgDurationMS, stats.MinDurationMS, stats.MaxDurationMS)
	}
	fmt.Fprintf(r.Stdout, "characters translated: %d\n", stats.TotalCharsTranslated)
	fmt.Fprintf(r.Stdout, "modes: selected %d, full %d\n", stats.SelectedModeCount, stats.FullModeCount)
	if len(stats.ErrorDistribution) > 0 {
		fmt.Fprintln(r.Stdout, "errors:")
		for _, e := range stats.ErrorDistribution {
			fmt.Fprintf(r.Stdout, "  %s: %d\n", e.ErrorType, e.Count)
		}
	}
	return 0
}

// forwardSimple forwards one command and prints its message, treating a
// missing daemon as an error.
func (r Runner) forwardSimple(ctx context.Context, settings config.Settings, command string, payload any) int {
	resp, handled, err := r.forward(ctx, settings, command, payload, forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: daemon not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) forward(ctx context.Context, settings config.Settings, command string, payload any, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.SendCommand(ctx, socketPathFromSettings(settings), command, payload, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}
	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func (r Runner) printWarnings(warnings []config.Warning) {
	for _, w := range warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
	}
}

func socketPathFromSettings(settings config.Settings) string {
	if path := strings.TrimSpace(settings.Socket); path != "" {
		return path
	}
	return ipc.RuntimeSocketPath()
}

// clip renders s as one line at most max runes long.
func clip(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
