package config

import (
	"strings"
	"testing"
)

func TestParseValidDocument(t *testing.T) {
	input := `
{
  // target model override
  "llm": {
    "model": "gpt-4.1-mini",
    "temperature": 0.7
  },
  "hotkey": {
    "selected_mode": {"type": "Consecutive", "key": "Shift", "count": 2}
  },
  "history_limit": 200,
}
`

	cfg, warnings, err := Parse(input, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.LLM.Model != "gpt-4.1-mini" {
		t.Fatalf("unexpected llm.model: %s", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Fatalf("unexpected llm.temperature: %g", cfg.LLM.Temperature)
	}
	if cfg.HistoryLimit != 200 {
		t.Fatalf("unexpected history_limit: %d", cfg.HistoryLimit)
	}

	selected, ok := cfg.Hotkey.SelectedMode.(Consecutive)
	if !ok {
		t.Fatalf("expected consecutive selected hotkey, got %T", cfg.Hotkey.SelectedMode)
	}
	if selected.Key != "Shift" || selected.Count != 2 {
		t.Fatalf("unexpected selected hotkey: %+v", selected)
	}

	// Sections absent from the document keep their defaults.
	if cfg.Hotkey.FullMode == nil {
		t.Fatal("full_mode lost its default")
	}
	if cfg.LLM.BaseURL != Default().LLM.BaseURL {
		t.Fatalf("base_url should keep default, got %s", cfg.LLM.BaseURL)
	}
	if len(warnings) == 0 {
		t.Fatal("expected empty api_key warning")
	}
}

func TestParseEmptyDocumentReturnsBase(t *testing.T) {
	cfg, _, err := Parse("   \n\t", Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.LLM.Model != Default().LLM.Model {
		t.Fatalf("unexpected model: %s", cfg.LLM.Model)
	}
}

func TestParseRejectsNonObjectDocument(t *testing.T) {
	_, _, err := Parse(`["not", "an", "object"]`, Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "JSON object") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseUnknownFieldFails(t *testing.T) {
	_, _, err := Parse(`{"llm": {"modle": "typo"}}`, Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseReportsLineAndColumnOnSyntaxError(t *testing.T) {
	_, _, err := Parse("{\n  \"llm\": {\n    \"model\": oops\n  }\n}", Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line info in error, got: %v", err)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, _, err := Parse(`{"history_limit": 50} {"history_limit": 60}`, Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "trailing data") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseStripsBlockCommentsAndTrailingCommas(t *testing.T) {
	input := `{
  /* block
     comment */
  "language": {
    "current_target": "ja-JP",
    "favorite_languages": [
      {"code": "ja-JP", "name": "Japanese"},
    ],
  },
}`

	cfg, _, err := Parse(input, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Language.CurrentTarget != "ja-JP" {
		t.Fatalf("unexpected current_target: %s", cfg.Language.CurrentTarget)
	}
	if len(cfg.Language.FavoriteLanguages) != 1 {
		t.Fatalf("unexpected favorites: %+v", cfg.Language.FavoriteLanguages)
	}
}

func TestParsePreservesCommentMarkersInsideStrings(t *testing.T) {
	input := `{"llm": {"system_prompt": "use // and /* literally */"}}`

	cfg, _, err := Parse(input, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.LLM.SystemPrompt != "use // and /* literally */" {
		t.Fatalf("comment stripping corrupted string: %q", cfg.LLM.SystemPrompt)
	}
}

func TestParseInvalidConfigFailsValidation(t *testing.T) {
	_, _, err := Parse(`{"hotkey": {"selected_mode": {"type": "Combination", "modifiers": [], "key": "K"}}}`, Default())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "modifier") {
		t.Fatalf("unexpected error: %v", err)
	}
}
