package config

// Default returns the built-in configuration used when no document is present
// or the persisted one cannot be loaded.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL:            "https://api.openai.com/v1",
			APIKey:             "",
			Model:              "gpt-4o-mini",
			Temperature:        0.3,
			TopP:               1.0,
			SystemPrompt:       "You are a professional translator. Maintain the original formatting of the text.",
			UserPromptTemplate: "Translate the following text into {target_language}, preserving its formatting: {text}",
		},
		Hotkey: HotkeyConfig{
			SelectedMode: Combination{Modifiers: []string{ModifierControl}, Key: "k"},
			FullMode:     Combination{Modifiers: []string{ModifierControl}, Key: "j"},
		},
		Language: LanguageConfig{
			CurrentTarget: "en-US",
			FavoriteLanguages: []Language{
				{Code: "en-US", Name: "English"},
				{Code: "zh-CN", Name: "简体中文"},
				{Code: "ja-JP", Name: "日本語"},
				{Code: "ko-KR", Name: "한국어"},
				{Code: "fr-FR", Name: "Français"},
				{Code: "es-ES", Name: "Español"},
			},
		},
		HistoryLimit: 500,
	}
}
