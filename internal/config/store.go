package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Backend persists configuration and answers conflict/enabled queries. The
// daemon binds this to the filesystem and the system shortcut tables; tests
// swap in fakes.
type Backend interface {
	GetConfig(ctx context.Context) (Config, error)
	SaveConfig(ctx context.Context, cfg Config) error
	CheckConflicts(ctx context.Context, hk Hotkey) ([]string, error)
	GetEnabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, enabled bool) error
}

// PersistError marks a save that failed at the backend. The in-memory
// configuration is left unchanged when this is returned.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return "persist config: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Store holds the mutable configuration state shared by the capture machine,
// the translation pipeline and the IPC surface. Reads return copies; writers
// go through Save or UpdateLocal.
type Store struct {
	logger  *slog.Logger
	backend Backend

	mu      sync.Mutex
	current *Config
	loading bool
	lastErr string

	// saveSeq orders concurrent saves. A save's result is applied to memory
	// only if no later save has been applied already, so the in-memory view
	// converges on the newest write rather than the slowest one.
	saveSeq    atomic.Uint64
	appliedSeq uint64
}

// NewStore builds a Store over backend. A nil backend degrades to one that
// fails every call, which keeps read paths usable before wiring completes.
func NewStore(logger *slog.Logger, backend Backend) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if backend == nil {
		backend = unavailableBackend{}
	}
	return &Store{
		logger:  logger,
		backend: backend,
	}
}

// Load fetches the configuration from the backend and installs it as the
// current view. A failed fetch falls back to defaults; Load never fails, it
// only logs, so startup proceeds even with a broken document on disk.
func (s *Store) Load(ctx context.Context) Config {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	cfg, err := s.backend.GetConfig(ctx)
	if err != nil {
		s.logger.Warn("config load failed, using defaults", "error", err)
		cfg = Default()
	}

	s.mu.Lock()
	installed := cfg.Clone()
	s.current = &installed
	s.loading = false
	s.mu.Unlock()

	return cfg
}

// Save validates candidate, persists it, and on success installs it as the
// current view. On a persistence failure the in-memory configuration is left
// untouched, the failure message is recorded for LastError, and the returned
// error unwraps to the backend error.
func (s *Store) Save(ctx context.Context, candidate Config) error {
	if _, err := Validate(candidate); err != nil {
		return err
	}

	seq := s.saveSeq.Add(1)

	if err := s.backend.SaveConfig(ctx, candidate); err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("config save failed", "error", err)
		return &PersistError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.appliedSeq {
		s.appliedSeq = seq
		installed := candidate.Clone()
		s.current = &installed
	}
	s.lastErr = ""
	return nil
}

// Partial carries section-level replacements for UpdateLocal. Nil sections
// are left alone.
type Partial struct {
	LLM          *LLMConfig
	Hotkey       *HotkeyConfig
	Language     *LanguageConfig
	HistoryLimit *int
}

// UpdateLocal replaces sections of the in-memory configuration without
// persisting. It is the optimistic half of an edit flow whose durable half
// goes through Save. Before the first Load there is nothing to update; the
// call is dropped with a warning.
func (s *Store) UpdateLocal(p Partial) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		s.logger.Warn("local config update before first load ignored")
		return
	}

	if p.LLM != nil {
		s.current.LLM = *p.LLM
	}
	if p.Hotkey != nil {
		s.current.Hotkey = HotkeyConfig{
			SelectedMode: cloneHotkey(p.Hotkey.SelectedMode),
			FullMode:     cloneHotkey(p.Hotkey.FullMode),
		}
	}
	if p.Language != nil {
		langs := make([]Language, len(p.Language.FavoriteLanguages))
		copy(langs, p.Language.FavoriteLanguages)
		s.current.Language = LanguageConfig{
			CurrentTarget:     p.Language.CurrentTarget,
			FavoriteLanguages: langs,
		}
	}
	if p.HistoryLimit != nil {
		s.current.HistoryLimit = *p.HistoryLimit
	}
}

// Current returns a copy of the loaded configuration. The second return is
// false before the first Load completes.
func (s *Store) Current() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Config{}, false
	}
	return s.current.Clone(), true
}

// Loading reports whether a Load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the most recent persistence failure message, or "" when
// the last save succeeded.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// CheckConflicts asks the backend whether hk collides with system shortcuts.
func (s *Store) CheckConflicts(ctx context.Context, hk Hotkey) ([]string, error) {
	return s.backend.CheckConflicts(ctx, hk)
}

// Enabled reports the hotkey listener switch. The flag lives beside the
// configuration document, not in it, so toggling never rewrites the document.
func (s *Store) Enabled(ctx context.Context) (bool, error) {
	return s.backend.GetEnabled(ctx)
}

// SetEnabled flips the hotkey listener switch.
func (s *Store) SetEnabled(ctx context.Context, enabled bool) error {
	return s.backend.SetEnabled(ctx, enabled)
}

var errBackendUnavailable = errors.New("config backend unavailable")

type unavailableBackend struct{}

func (unavailableBackend) GetConfig(context.Context) (Config, error) {
	return Config{}, errBackendUnavailable
}

func (unavailableBackend) SaveConfig(context.Context, Config) error {
	return errBackendUnavailable
}

func (unavailableBackend) CheckConflicts(context.Context, Hotkey) ([]string, error) {
	return nil, errBackendUnavailable
}

func (unavailableBackend) GetEnabled(context.Context) (bool, error) {
	return false, errBackendUnavailable
}

func (unavailableBackend) SetEnabled(context.Context, bool) error {
	return errBackendUnavailable
}
