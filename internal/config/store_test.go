package config

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	cfg      Config
	cfgSet   bool
	loadErr  error
	saveErr  error
	enabled  bool
	saved    []Config
	saveGate chan chan struct{}
}

func (f *fakeBackend) GetConfig(context.Context) (Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return Config{}, f.loadErr
	}
	if !f.cfgSet {
		return Default(), nil
	}
	return f.cfg, nil
}

func (f *fakeBackend) SaveConfig(_ context.Context, cfg Config) error {
	if f.saveGate != nil {
		release := make(chan struct{})
		f.saveGate <- release
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.cfg = cfg
	f.cfgSet = true
	f.saved = append(f.saved, cfg)
	return nil
}

func (f *fakeBackend) CheckConflicts(context.Context, Hotkey) ([]string, error) {
	return nil, nil
}

func (f *fakeBackend) GetEnabled(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled, nil
}

func (f *fakeBackend) SetEnabled(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
	return nil
}

func (f *fakeBackend) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func TestCurrentBeforeFirstLoad(t *testing.T) {
	store := NewStore(nil, &fakeBackend{})

	_, ok := store.Current()
	require.False(t, ok)

	limit := 42
	store.UpdateLocal(Partial{HistoryLimit: &limit})
	_, ok = store.Current()
	require.False(t, ok, "update before load must not invent a config")
}

func TestLoadInstallsBackendConfig(t *testing.T) {
	want := Default()
	want.LLM.Model = "gpt-4o"
	backend := &fakeBackend{cfg: want, cfgSet: true}
	store := NewStore(nil, backend)

	got := store.Load(context.Background())
	require.Equal(t, "gpt-4o", got.LLM.Model)

	current, ok := store.Current()
	require.True(t, ok)
	require.Equal(t, "gpt-4o", current.LLM.Model)
	require.False(t, store.Loading())
}

func TestLoadFailureFallsBackToDefaults(t *testing.T) {
	backend := &fakeBackend{loadErr: errors.New("corrupt document")}
	store := NewStore(nil, backend)

	got := store.Load(context.Background())
	require.Equal(t, Default(), got)

	current, ok := store.Current()
	require.True(t, ok)
	require.Equal(t, Default(), current)
	require.Empty(t, store.LastError(), "load failures are not save failures")
}

func TestSavePersistsThenInstalls(t *testing.T) {
	backend := &fakeBackend{}
	store := NewStore(nil, backend)
	store.Load(context.Background())

	next := Default()
	next.HistoryLimit = 99
	require.NoError(t, store.Save(context.Background(), next))

	require.Equal(t, 1, backend.savedCount())
	current, ok := store.Current()
	require.True(t, ok)
	require.Equal(t, 99, current.HistoryLimit)
	require.Empty(t, store.LastError())
}

func TestSaveRejectsInvalidConfigWithoutPersisting(t *testing.T) {
	backend := &fakeBackend{}
	store := NewStore(nil, backend)
	store.Load(context.Background())

	bad := Default()
	bad.HistoryLimit = -1
	err := store.Save(context.Background(), bad)
	require.Error(t, err)

	var persistErr *PersistError
	require.False(t, errors.As(err, &persistErr), "validation failures are not persistence failures")
	require.Zero(t, backend.savedCount())

	current, _ := store.Current()
	require.Equal(t, Default().HistoryLimit, current.HistoryLimit)
}

func TestSaveBackendFailureKeepsMemory(t *testing.T) {
	diskFull := errors.New("disk full")
	backend := &fakeBackend{saveErr: diskFull}
	store := NewStore(nil, backend)
	store.Load(context.Background())

	next := Default()
	next.HistoryLimit = 7
	err := store.Save(context.Background(), next)
	require.Error(t, err)

	var persistErr *PersistError
	require.True(t, errors.As(err, &persistErr))
	require.True(t, errors.Is(err, diskFull))

	current, _ := store.Current()
	require.Equal(t, Default().HistoryLimit, current.HistoryLimit, "failed save must not touch memory")
	require.Contains(t, store.LastError(), "disk full")

	backend.mu.Lock()
	backend.saveErr = nil
	backend.mu.Unlock()

	require.NoError(t, store.Save(context.Background(), next))
	require.Empty(t, store.LastError(), "recovered save clears the error")
	current, _ = store.Current()
	require.Equal(t, 7, current.HistoryLimit)
}

func TestSaveConcurrentLastSequenceWins(t *testing.T) {
	backend := &fakeBackend{saveGate: make(chan chan struct{})}
	store := NewStore(nil, backend)
	store.Load(context.Background())

	first := Default()
	first.HistoryLimit = 111
	second := Default()
	second.HistoryLimit = 222

	firstDone := make(chan error, 1)
	secondDone := make(chan error, 1)

	go func() { firstDone <- store.Save(context.Background(), first) }()
	releaseFirst := <-backend.saveGate

	go func() { secondDone <- store.Save(context.Background(), second) }()
	releaseSecond := <-backend.saveGate

	// The later save finishes first and is applied.
	close(releaseSecond)
	require.NoError(t, <-secondDone)
	current, _ := store.Current()
	require.Equal(t, 222, current.HistoryLimit)

	// The earlier save finishes afterwards; it persisted, but its stale
	// result must not clobber the newer in-memory view.
	close(releaseFirst)
	require.NoError(t, <-firstDone)
	current, _ = store.Current()
	require.Equal(t, 222, current.HistoryLimit)
	require.Equal(t, 2, backend.savedCount())
}

func TestUpdateLocalReplacesSectionsWithoutPersisting(t *testing.T) {
	backend := &fakeBackend{}
	store := NewStore(nil, backend)
	store.Load(context.Background())

	limit := 12
	lang := LanguageConfig{
		CurrentTarget:     "fr-FR",
		FavoriteLanguages: []Language{{Code: "fr-FR", Name: "French"}},
	}
	hotkeys := HotkeyConfig{
		SelectedMode: Consecutive{Key: "Shift", Count: 2},
		FullMode:     Combination{Modifiers: []string{ModifierMeta}, Key: "J"},
	}
	store.UpdateLocal(Partial{HistoryLimit: &limit, Language: &lang, Hotkey: &hotkeys})

	current, ok := store.Current()
	require.True(t, ok)
	require.Equal(t, 12, current.HistoryLimit)
	require.Equal(t, "fr-FR", current.Language.CurrentTarget)
	require.Equal(t, Consecutive{Key: "Shift", Count: 2}, current.Hotkey.SelectedMode)
	require.Equal(t, Default().LLM, current.LLM, "untouched sections keep their values")
	require.Zero(t, backend.savedCount())
}

func TestCurrentReturnsIsolatedCopies(t *testing.T) {
	store := NewStore(nil, &fakeBackend{})
	store.Load(context.Background())

	first, _ := store.Current()
	first.Language.FavoriteLanguages[0].Name = "mutated"
	first.LLM.Model = "mutated"

	second, _ := store.Current()
	require.NotEqual(t, "mutated", second.Language.FavoriteLanguages[0].Name)
	require.NotEqual(t, "mutated", second.LLM.Model)
}

func TestEnabledFlagDelegatesToBackend(t *testing.T) {
	backend := &fakeBackend{enabled: true}
	store := NewStore(nil, backend)

	enabled, err := store.Enabled(context.Background())
	require.NoError(t, err)
	require.True(t, enabled)

	require.NoError(t, store.SetEnabled(context.Background(), false))
	enabled, err = store.Enabled(context.Background())
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestNilBackendDegradesToErrors(t *testing.T) {
	store := NewStore(nil, nil)

	got := store.Load(context.Background())
	require.Equal(t, Default(), got)

	err := store.Save(context.Background(), Default())
	var persistErr *PersistError
	require.True(t, errors.As(err, &persistErr))

	_, err = store.Enabled(context.Background())
	require.Error(t, err)
}
