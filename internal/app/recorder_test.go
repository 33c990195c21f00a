package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/Aeovy/QuickTransType/internal/history"
	"github.com/Aeovy/QuickTransType/internal/llm"
	"github.com/Aeovy/QuickTransType/internal/output"
	"github.com/Aeovy/QuickTransType/internal/pipeline"
	"github.com/Aeovy/QuickTransType/internal/session"
	"github.com/stretchr/testify/require"
)

func newRecorderForTest(t *testing.T) (*historyRecorder, *history.Store) {
	t.Helper()

	historyStore, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = historyStore.Close() })

	configStore := config.NewStore(nil, newFileBackend(nil, filepath.Join(t.TempDir(), "config.json")))
	return newHistoryRecorder(nil, historyStore, configStore), historyStore
}

func TestRecorderPersistsSuccessfulRun(t *testing.T) {
	recorder, historyStore := newRecorderForTest(t)

	entry := session.Entry{
		Mode:           output.ModeSelected,
		SourceText:     "héllo",
		TranslatedText: "bonjour",
		TargetLanguage: "fr-FR",
		Duration:       180 * time.Millisecond,
	}
	require.NoError(t, recorder.Record(context.Background(), entry))

	page, err := historyStore.History(history.Query{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, "héllo", page.Records[0].OriginalText)
	require.Equal(t, "bonjour", page.Records[0].TranslatedText)
	require.Equal(t, "fr-FR", page.Records[0].TargetLang)
	require.Equal(t, "selected", page.Records[0].Mode)

	stats, err := historyStore.Stats("day")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalTranslations)
	require.Equal(t, int64(1), stats.SuccessfulTranslations)
	// character counts are runes, so accented text is not inflated
	require.Equal(t, int64(5), stats.TotalCharsTranslated)
	require.Equal(t, int64(1), stats.SelectedModeCount)
}

func TestRecorderFailureSkipsHistory(t *testing.T) {
	recorder, historyStore := newRecorderForTest(t)

	entry := session.Entry{
		Mode:     output.ModeFull,
		Duration: 90 * time.Millisecond,
		Err:      errors.New("copy source text: executable file not found"),
	}
	require.NoError(t, recorder.Record(context.Background(), entry))

	page, err := historyStore.History(history.Query{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Zero(t, page.Total)

	stats, err := historyStore.Stats("day")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalTranslations)
	require.Equal(t, int64(1), stats.FailedTranslations)
	require.Equal(t, int64(0), stats.TotalCharsTranslated)
	require.Equal(t, int64(1), stats.FullModeCount)
	require.Len(t, stats.ErrorDistribution, 1)
	require.Equal(t, "other", stats.ErrorDistribution[0].ErrorType)
}

func TestRecorderCancelledRunLeavesNoHistory(t *testing.T) {
	recorder, historyStore := newRecorderForTest(t)

	entry := session.Entry{
		Mode:      output.ModeSelected,
		Duration:  40 * time.Millisecond,
		Cancelled: true,
	}
	require.NoError(t, recorder.Record(context.Background(), entry))

	page, err := historyStore.History(history.Query{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Zero(t, page.Total)

	stats, err := historyStore.Stats("day")
	require.NoError(t, err)
	require.Len(t, stats.ErrorDistribution, 1)
	require.Equal(t, "cancelled", stats.ErrorDistribution[0].ErrorType)
}

func TestRecorderTrimsHistoryToConfiguredLimit(t *testing.T) {
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.json")
	cfg := config.Default()
	cfg.HistoryLimit = 2
	require.NoError(t, config.WriteDocument(configPath, cfg))

	configStore := config.NewStore(nil, newFileBackend(nil, configPath))
	configStore.Load(context.Background())

	historyStore, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = historyStore.Close() })

	recorder := newHistoryRecorder(nil, historyStore, configStore)

	for i := 0; i < 4; i++ {
		entry := session.Entry{
			Mode:           output.ModeSelected,
			SourceText:     fmt.Sprintf("source %d", i),
			TranslatedText: fmt.Sprintf("target %d", i),
			TargetLanguage: "en-US",
			Duration:       50 * time.Millisecond,
		}
		require.NoError(t, recorder.Record(context.Background(), entry))
	}

	page, err := historyStore.History(history.Query{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Equal(t, "source 3", page.Records[0].OriginalText)
	require.Equal(t, "source 2", page.Records[1].OriginalText)
}

func TestClassifyErrorBuckets(t *testing.T) {
	cases := []struct {
		name  string
		entry session.Entry
		want  string
	}{
		{"cancelled flag", session.Entry{Cancelled: true}, "cancelled"},
		{"context canceled", session.Entry{Err: fmt.Errorf("run: %w", context.Canceled)}, "cancelled"},
		{"empty selection", session.Entry{Err: session.ErrNothingToTranslate}, "empty_selection"},
		{"empty translation", session.Entry{Err: session.ErrEmptyTranslation}, "empty_translation"},
		{"unconfigured", session.Entry{Err: fmt.Errorf("build request: %w", pipeline.ErrNotConfigured)}, "config"},
		{"api failure", session.Entry{Err: &llm.APIError{Status: 429, Type: "rate_limit", Message: "slow down"}}, "api"},
		{"timeout", session.Entry{Err: fmt.Errorf("call model: %w", context.DeadlineExceeded)}, "network"},
		{"transport", session.Entry{Err: &url.Error{Op: "Post", URL: "http://127.0.0.1:1", Err: errors.New("connection refused")}}, "network"},
		{"unknown", session.Entry{Err: errors.New("boom")}, "other"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, classifyError(tc.entry), tc.name)
	}
}
