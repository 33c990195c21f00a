// Package config defines the application configuration document, its hotkey
// variants, validation, persistence codec, and the synchronizing store.
package config

import (
	"encoding/json"
	"fmt"
)

// Config is the aggregate configuration document shared with the UI layers.
// It is replaced wholesale on every successful save, never mutated field-by-field
// from outside the store.
type Config struct {
	LLM          LLMConfig      `json:"llm"`
	Hotkey       HotkeyConfig   `json:"hotkey"`
	Language     LanguageConfig `json:"language"`
	HistoryLimit int            `json:"history_limit"`
}

// LLMConfig holds the translation backend parameters.
type LLMConfig struct {
	BaseURL            string  `json:"base_url"`
	APIKey             string  `json:"api_key"`
	Model              string  `json:"model"`
	Temperature        float64 `json:"temperature"`
	TopP               float64 `json:"top_p"`
	SystemPrompt       string  `json:"system_prompt"`
	UserPromptTemplate string  `json:"user_prompt_template"`
}

// HotkeyConfig binds one hotkey to each slot.
type HotkeyConfig struct {
	SelectedMode Hotkey `json:"selected_mode"`
	FullMode     Hotkey `json:"full_mode"`
}

// ForSlot returns the hotkey bound to a slot.
func (hc HotkeyConfig) ForSlot(slot Slot) Hotkey {
	if slot == SlotFull {
		return hc.FullMode
	}
	return hc.SelectedMode
}

// WithSlot returns a copy with one slot's hotkey replaced.
func (hc HotkeyConfig) WithSlot(slot Slot, h Hotkey) HotkeyConfig {
	if slot == SlotFull {
		hc.FullMode = h
		return hc
	}
	hc.SelectedMode = h
	return hc
}

// UnmarshalJSON decodes both slots through the tagged hotkey codec. Absent
// fields keep their current value so documents overlay onto defaults.
func (hc *HotkeyConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		SelectedMode json.RawMessage `json:"selected_mode"`
		FullMode     json.RawMessage `json:"full_mode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if present(raw.SelectedMode) {
		h, err := DecodeHotkey(raw.SelectedMode)
		if err != nil {
			return fmt.Errorf("selected_mode: %w", err)
		}
		hc.SelectedMode = h
	}
	if present(raw.FullMode) {
		h, err := DecodeHotkey(raw.FullMode)
		if err != nil {
			return fmt.Errorf("full_mode: %w", err)
		}
		hc.FullMode = h
	}
	return nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// LanguageConfig holds the translation target and the favorites list.
type LanguageConfig struct {
	CurrentTarget     string     `json:"current_target"`
	FavoriteLanguages []Language `json:"favorite_languages"`
}

// Language is one favorites entry.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TargetName resolves the display name of the current target, falling back to
// the raw code when it is not a favorite.
func (lc LanguageConfig) TargetName() string {
	for _, lang := range lc.FavoriteLanguages {
		if lang.Code == lc.CurrentTarget {
			return lang.Name
		}
	}
	return lc.CurrentTarget
}

// WithTarget returns a copy with the current target switched. The code must
// name a favorite.
func (lc LanguageConfig) WithTarget(code string) (LanguageConfig, error) {
	for _, lang := range lc.FavoriteLanguages {
		if lang.Code == code {
			lc.CurrentTarget = code
			return lc, nil
		}
	}
	return lc, fmt.Errorf("language %q is not in the favorites list", code)
}

// RemoveFavorite returns a copy without the named entry. Removing the current
// target reassigns it to the new first entry; removing the last entry leaves
// the list empty and clears the target.
func (lc LanguageConfig) RemoveFavorite(code string) LanguageConfig {
	kept := make([]Language, 0, len(lc.FavoriteLanguages))
	removed := false
	for _, lang := range lc.FavoriteLanguages {
		if lang.Code == code {
			removed = true
			continue
		}
		kept = append(kept, lang)
	}
	lc.FavoriteLanguages = kept
	if !removed || lc.CurrentTarget != code {
		return lc
	}

	if len(kept) == 0 {
		lc.CurrentTarget = ""
		return lc
	}
	lc.CurrentTarget = kept[0].Code
	return lc
}

// Clone returns a deep copy safe to hand to readers.
func (c Config) Clone() Config {
	clone := c
	clone.Language.FavoriteLanguages = append([]Language(nil), c.Language.FavoriteLanguages...)
	clone.Hotkey.SelectedMode = cloneHotkey(c.Hotkey.SelectedMode)
	clone.Hotkey.FullMode = cloneHotkey(c.Hotkey.FullMode)
	return clone
}

func cloneHotkey(h Hotkey) Hotkey {
	switch v := h.(type) {
	case Combination:
		v.Modifiers = append([]string(nil), v.Modifiers...)
		return v
	case Consecutive:
		return v
	default:
		return h
	}
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
