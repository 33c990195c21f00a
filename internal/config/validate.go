package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks cfg for hard errors and collects advisory warnings.
// Errors are reported one at a time so the user can fix the document
// incrementally; warnings never block a save.
func Validate(cfg Config) ([]Warning, error) {
	if err := validateHotkeys(cfg.Hotkey); err != nil {
		return nil, err
	}
	if err := validateLanguage(cfg.Language); err != nil {
		return nil, err
	}
	if err := validateLLM(cfg.LLM); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("history_limit must be positive, got %d", cfg.HistoryLimit)
	}
	return collectWarnings(cfg), nil
}

func validateHotkeys(hc HotkeyConfig) error {
	for _, slot := range []Slot{SlotSelected, SlotFull} {
		hk := hc.ForSlot(slot)
		if hk == nil {
			return fmt.Errorf("hotkey.%s is missing", slot)
		}
		if err := ValidateHotkey(hk, slot); err != nil {
			return fmt.Errorf("hotkey.%s: %w", slot, err)
		}
		switch h := hk.(type) {
		case Combination:
			if strings.TrimSpace(h.Key) == "" {
				return fmt.Errorf("hotkey.%s: key must not be empty", slot)
			}
		case Consecutive:
			if strings.TrimSpace(h.Key) == "" {
				return fmt.Errorf("hotkey.%s: key must not be empty", slot)
			}
			if h.Count < MinConsecutiveCount || h.Count > MaxConsecutiveCount {
				return fmt.Errorf("hotkey.%s: %w (got %d)", slot, ErrCountOutOfRange, h.Count)
			}
		}
	}
	return nil
}

func validateLanguage(lc LanguageConfig) error {
	seen := make(map[string]struct{}, len(lc.FavoriteLanguages))
	for _, lang := range lc.FavoriteLanguages {
		code := strings.TrimSpace(lang.Code)
		if code == "" {
			return fmt.Errorf("language.favorite_languages: entry %q has an empty code", lang.Name)
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("language.favorite_languages: duplicate code %q", code)
		}
		seen[code] = struct{}{}
	}

	if len(lc.FavoriteLanguages) == 0 {
		if lc.CurrentTarget != "" {
			return fmt.Errorf("language.current_target %q set but favorite_languages is empty", lc.CurrentTarget)
		}
		return nil
	}

	if _, ok := seen[lc.CurrentTarget]; !ok {
		return fmt.Errorf("language.current_target %q is not one of the favorite languages", lc.CurrentTarget)
	}
	return nil
}

func validateLLM(lc LLMConfig) error {
	base := strings.TrimSpace(lc.BaseURL)
	if base == "" {
		return fmt.Errorf("llm.base_url must not be empty")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("llm.base_url %q is not a valid URL: %w", base, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("llm.base_url %q must use http or https", base)
	}
	if strings.TrimSpace(lc.Model) == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if lc.Temperature < 0 || lc.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %g", lc.Temperature)
	}
	if lc.TopP < 0 || lc.TopP > 1 {
		return fmt.Errorf("llm.top_p must be between 0 and 1, got %g", lc.TopP)
	}
	return nil
}

func collectWarnings(cfg Config) []Warning {
	var warnings []Warning

	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		warnings = append(warnings, Warning{
			Message: "llm.api_key is empty; translation requests will be unauthenticated",
		})
	}
	if !strings.Contains(cfg.LLM.UserPromptTemplate, "{text}") {
		warnings = append(warnings, Warning{
			Message: "llm.user_prompt_template has no {text} placeholder; the source text will not reach the model",
		})
	}
	for _, slot := range []Slot{SlotSelected, SlotFull} {
		if comb, ok := cfg.Hotkey.ForSlot(slot).(Combination); ok {
			for _, mod := range comb.Modifiers {
				if !knownModifier(mod) {
					warnings = append(warnings, Warning{
						Message: fmt.Sprintf("hotkey.%s: unrecognized modifier %q", slot, mod),
					})
				}
			}
		}
	}

	return warnings
}

func knownModifier(name string) bool {
	for _, known := range []string{ModifierMeta, ModifierControl, ModifierAlt, ModifierShift} {
		if strings.EqualFold(name, known) {
			return true
		}
	}
	return false
}
