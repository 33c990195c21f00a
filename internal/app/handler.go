package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/Aeovy/QuickTransType/internal/history"
	"github.com/Aeovy/QuickTransType/internal/ipc"
	"github.com/Aeovy/QuickTransType/internal/output"
	"github.com/Aeovy/QuickTransType/internal/pipeline"
	"github.com/Aeovy/QuickTransType/internal/session"
)

// daemonHandler answers IPC requests for the long-lived daemon. Session
// commands delegate to the controller; translate runs a full session on the
// caller's connection so the client sees the outcome.
type daemonHandler struct {
	logger     *slog.Logger
	store      *config.Store
	history    *history.Store
	translator *pipeline.Translator
	controller *session.Controller
	stop       context.CancelFunc
}

// translateReply summarizes a completed run for IPC clients.
type translateReply struct {
	TranslatedText string `json:"translated_text"`
	SourceChars    int    `json:"source_chars"`
	TargetLanguage string `json:"target_language"`
	Model          string `json:"model"`
	DurationMS     int64  `json:"duration_ms"`
}

func (h *daemonHandler) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status", "cancel":
		return h.controller.Handle(ctx, req)
	case "translate":
		return h.handleTranslate(ctx, req.Payload)
	case "get-config":
		return h.handleGetConfig(ctx)
	case "save-config":
		return h.handleSaveConfig(ctx, req.Payload)
	case "check-conflicts":
		return h.handleCheckConflicts(ctx, req.Payload)
	case "get-enabled":
		return h.handleGetEnabled(ctx)
	case "set-enabled":
		return h.handleSetEnabled(ctx, req.Payload)
	case "switch-language":
		return h.handleSwitchLanguage(ctx, req.Payload)
	case "set-count":
		return h.handleSetCount(ctx, req.Payload)
	case "test-llm":
		return h.handleTestLLM(ctx)
	case "history":
		return h.handleHistory(req.Payload)
	case "stats":
		return h.handleStats(req.Payload)
	case "stop":
		h.stop()
		return ipc.Response{OK: true, Message: "stopping"}
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (h *daemonHandler) handleTranslate(ctx context.Context, payload json.RawMessage) ipc.Response {
	var raw string
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &raw); err != nil {
			return ipc.Response{OK: false, Error: fmt.Sprintf("decode translate mode: %v", err)}
		}
	}
	mode, err := output.ParseMode(raw)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}

	enabled, err := h.store.Enabled(ctx)
	if err != nil {
		return ipc.Response{OK: false, Error: fmt.Sprintf("read enabled state: %v", err)}
	}
	if !enabled {
		return ipc.Response{OK: false, State: string(h.controller.State()), Error: "hotkeys are disabled"}
	}

	result := h.controller.Run(ctx, mode)
	switch {
	case errors.Is(result.Err, session.ErrBusy):
		return ipc.Response{OK: false, State: string(result.State), Error: result.Err.Error()}
	case result.Cancelled:
		return ipc.Response{OK: true, State: string(result.State), Message: "cancelled"}
	case result.Err != nil:
		return ipc.Response{OK: false, State: string(result.State), Error: result.Err.Error()}
	}

	data, err := json.Marshal(translateReply{
		TranslatedText: result.TranslatedText,
		SourceChars:    len([]rune(result.SourceText)),
		TargetLanguage: result.TargetLanguage,
		Model:          result.Model,
		DurationMS:     result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	})
	if err != nil {
		return ipc.Response{OK: false, Error: fmt.Sprintf("encode result: %v", err)}
	}
	return ipc.Response{OK: true, State: string(result.State), Data: data}
}

func (h *daemonHandler) handleGetConfig(ctx context.Context) ipc.Response {
	doc, err := config.EncodeDocument(h.currentConfig(ctx))
	if err != nil {
		return ipc.Response{OK: false, Error: fmt.Sprintf("encode config: %v", err)}
	}
	return ipc.Response{OK: true, Data: doc}
}

func (h *daemonHandler) handleSaveConfig(ctx context.Context, payload json.RawMessage) ipc.Response {
	if len(payload) == 0 {
		return ipc.Response{OK: false, Error: "save-config requires a configuration payload"}
	}

	cfg, warnings, err := config.Parse(string(payload), config.Default())
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	if err := h.store.Save(ctx, cfg); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}

	resp := ipc.Response{OK: true, Message: "configuration saved"}
	if len(warnings) > 0 {
		messages := make([]string, 0, len(warnings))
		for _, w := range warnings {
			messages = append(messages, w.Message)
		}
		if data, err := json.Marshal(messages); err == nil {
			resp.Data = data
		}
	}
	return resp
}

// handleCheckConflicts checks one hotkey when a payload is present, otherwise
// both configured slots.
func (h *daemonHandler) handleCheckConflicts(ctx context.Context, payload json.RawMessage) ipc.Response {
	conflicts := make([]string, 0)

	if len(payload) > 0 && string(payload) != "null" {
		hk, err := config.DecodeHotkey(payload)
		if err != nil {
			return ipc.Response{OK: false, Error: fmt.Sprintf("decode hotkey: %v", err)}
		}
		found, err := h.store.CheckConflicts(ctx, hk)
		if err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		conflicts = append(conflicts, found...)
	} else {
		cfg := h.currentConfig(ctx)
		for _, slot := range []config.Slot{config.SlotSelected, config.SlotFull} {
			hk := cfg.Hotkey.ForSlot(slot)
			if hk == nil {
				continue
			}
			found, err := h.store.CheckConflicts(ctx, hk)
			if err != nil {
				return ipc.Response{OK: false, Error: err.Error()}
			}
			for _, c := range found {
				conflicts = append(conflicts, fmt.Sprintf("%s: %s", slot, c))
			}
		}
	}

	data, err := json.Marshal(conflicts)
	if err != nil {
		return ipc.Response{OK: false, Error: fmt.Sprintf("encode conflicts: %v", err)}
	}
	return ipc.Response{OK: true, Data: data}
}

func (h *daemonHandler) handleGetEnabled(ctx context.Context) ipc.Response {
	enabled, err := h.store.Enabled(ctx)
	if err != nil {
		return ipc.Response{OK: false, Error: fmt.Sprintf("read enabled state: %v", err)}
	}
	data, err := json.Marshal(enabled)
	if err != nil {
		return ipc.Response{OK: false, Error: fmt.Sprintf("encode enabled state: %v", err)}
	}
	return ipc.Response{OK: true, Data: data}
}

func (h *daemonHandler) handleSetEnabled(ctx context.Context, payload json.RawMessage) ipc.Response {
	var enabled bool
	if len(payload) == 0 || json.Unmarshal(payload, &enabled) != nil {
		return ipc.Response{OK: false, Error: "set-enabled requires a boolean payload"}
	}
	if err := h.store.SetEnabled(ctx, enabled); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	message := "hotkeys disabled"
	if enabled {
		message = "hotkeys enabled"
	}
	return ipc.Response{OK: true, Message: message}
}

func (h *daemonHandler) handleSwitchLanguage(ctx context.Context, payload json.RawMessage) ipc.Response {
	var code string
	if len(payload) == 0 || json.Unmarshal(payload, &code) != nil || strings.TrimSpace(code) == "" {
		return ipc.Response{OK: false, Error: "switch-language requires a language code payload"}
	}

	cfg := h.currentConfig(ctx)
	lang, err := cfg.Language.WithTarget(code)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	cfg.Language = lang
	if err := h.store.Save(ctx, cfg); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	return ipc.Response{OK: true, Message: fmt.Sprintf("target language set to %s (%s)", lang.TargetName(), code)}
}

func (h *daemonHandler) handleSetCount(ctx context.Context, payload json.RawMessage) ipc.Response {
	var limit int
	if len(payload) == 0 || json.Unmarshal(payload, &limit) != nil {
		return ipc.Response{OK: false, Error: "set-count requires an integer payload"}
	}
	if limit <= 0 {
		return ipc.Response{OK: false, Error: fmt.Sprintf("history limit must be positive, got %d", limit)}
	}

	cfg := h.currentConfig(ctx)
	cfg.HistoryLimit = limit
	if err := h.store.Save(ctx, cfg); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	if _, err := h.history.CleanupHistory(int64(limit)); err != nil {
		h.logger.Warn("history cleanup failed", "error", err.Error())
	}
	return ipc.Response{OK: true, Message: fmt.Sprintf("history limit set to %d", limit)}
}

func (h *daemonHandler) handleTestLLM(ctx context.Context) ipc.Response {
	if err := h.translator.TestConnection(ctx); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	model := ""
	if cfg, ok := h.store.Current(); ok {
		model = cfg.LLM.Model
	}
	return ipc.Response{OK: true, Message: fmt.Sprintf("LLM endpoint ok (model %s)", model)}
}

func (h *daemonHandler) handleHistory(payload json.RawMessage) ipc.Response {
	var q history.Query
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &q); err != nil {
			return ipc.Response{OK: false, Error: fmt.Sprintf("decode history query: %v", err)}
		}
	}

	page, err := h.history.History(q)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	data, err := json.Marshal(page)
	if err != nil {
		return ipc.Response{OK: false, Error: fmt.Sprintf("encode history page: %v", err)}
	}
	return ipc.Response{OK: true, Data: data}
}

func (h *daemonHandler) handleStats(payload json.RawMessage) ipc.Response {
	var period string
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &period); err != nil {
			return ipc.Response{OK: false, Error: fmt.Sprintf("decode stats period: %v", err)}
		}
	}

	stats, err := h.history.Stats(period)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return ipc.Response{OK: false, Error: fmt.Sprintf("encode stats: %v", err)}
	}
	return ipc.Response{OK: true, Data: data}
}

func (h *daemonHandler) currentConfig(ctx context.Context) config.Config {
	if cfg, ok := h.store.Current(); ok {
		return cfg
	}
	return h.store.Load(ctx)
}
