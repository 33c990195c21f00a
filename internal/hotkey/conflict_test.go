package hotkey

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aeovy/QuickTransType/internal/config"
)

func TestMatchesComparesChordsLoosely(t *testing.T) {
	comb := config.Combination{Modifiers: []string{config.ModifierMeta, config.ModifierShift}, Key: "T"}

	require.True(t, Matches(comb, "t", []string{"shift", "meta"}), "case and order must not matter")
	require.True(t, Matches(comb, "T", []string{config.ModifierShift, config.ModifierMeta}))
	require.False(t, Matches(comb, "T", []string{config.ModifierMeta}), "missing modifier")
	require.False(t, Matches(comb, "U", []string{config.ModifierMeta, config.ModifierShift}), "different key")
	require.False(t, Matches(comb, "T", []string{config.ModifierMeta, config.ModifierShift, config.ModifierAlt}), "extra modifier")
}

func TestCheckConsecutiveNeverConflicts(t *testing.T) {
	d := NewDetector(nil)

	names, err := d.Check(context.Background(), config.Consecutive{Key: "Shift", Count: 3})
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestCheckBuiltinCollisions(t *testing.T) {
	d := NewDetector(nil)
	d.plistPath = ""

	tests := []struct {
		name   string
		hotkey config.Combination
		want   []string
	}{
		{
			name:   "spotlight",
			hotkey: config.Combination{Modifiers: []string{config.ModifierMeta}, Key: config.KeySpace},
			want:   []string{"Spotlight Search"},
		},
		{
			name:   "finder search",
			hotkey: config.Combination{Modifiers: []string{config.ModifierAlt, config.ModifierMeta}, Key: config.KeySpace},
			want:   []string{"Finder Search Window"},
		},
		{
			name:   "screenshot",
			hotkey: config.Combination{Modifiers: []string{config.ModifierMeta, config.ModifierShift}, Key: "4"},
			want:   []string{"Screenshot (Selection)"},
		},
		{
			name:   "clean hotkey",
			hotkey: config.Combination{Modifiers: []string{config.ModifierControl}, Key: "k"},
			want:   nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			names, err := d.Check(context.Background(), tc.hotkey)
			require.NoError(t, err)
			require.Equal(t, tc.want, names)
		})
	}
}

const sampleSymbolicHotkeys = `{
  "AppleSymbolicHotKeys": {
    "64": {"enabled": true, "value": {"parameters": [32, 49, 262144], "type": "standard"}},
    "28": {"enabled": false, "value": {"parameters": [51, 20, 1179648]}},
    "65": {"value": {"parameters": [65535, 49, 1572864]}},
    "32": {"enabled": 1, "value": {"parameters": [126, 125, 1310720]}},
    "999": {"enabled": true, "value": {"parameters": [32, 49, 1048576]}}
  }
}`

func TestParseSymbolicHotkeys(t *testing.T) {
	shortcuts, err := parseSymbolicHotkeys([]byte(sampleSymbolicHotkeys))
	require.NoError(t, err)

	byName := make(map[string]Shortcut)
	for _, sc := range shortcuts {
		byName[sc.Name] = sc
	}

	// 64 is remapped to Control+Space and enabled.
	spotlight, ok := byName["Spotlight Search"]
	require.True(t, ok)
	require.Equal(t, config.KeySpace, spotlight.Key)
	require.Equal(t, []string{config.ModifierControl}, spotlight.Modifiers)

	// 28 is disabled, 65 has no printable character, 999 is unknown.
	require.NotContains(t, byName, "Screenshot (Full Screen)")
	require.NotContains(t, byName, "Finder Search Window")
	require.Len(t, shortcuts, 2)

	// 32 uses numeric enabled and a multi-bit mask.
	mission, ok := byName["Mission Control"]
	require.True(t, ok)
	require.ElementsMatch(t, []string{config.ModifierControl, config.ModifierMeta}, mission.Modifiers)
}

func TestParseSymbolicHotkeysRejectsMalformedJSON(t *testing.T) {
	_, err := parseSymbolicHotkeys([]byte("not json"))
	require.Error(t, err)
}

func TestCheckMergesSystemOverrides(t *testing.T) {
	d := NewDetector(nil)
	d.plistPath = "injected"
	d.runPlist = func(context.Context, string) ([]byte, error) {
		return []byte(sampleSymbolicHotkeys), nil
	}

	// The override moved Spotlight to Control+Space.
	names, err := d.Check(context.Background(), config.Combination{
		Modifiers: []string{config.ModifierControl},
		Key:       config.KeySpace,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Spotlight Search"}, names)

	// The builtin table still reports the stock chord, without duplicates.
	names, err = d.Check(context.Background(), config.Combination{
		Modifiers: []string{config.ModifierMeta},
		Key:       config.KeySpace,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Spotlight Search"}, names)
}

func TestCheckDegradesToBuiltinsWhenPlistUnreadable(t *testing.T) {
	d := NewDetector(nil)
	d.plistPath = "injected"
	d.runPlist = func(context.Context, string) ([]byte, error) {
		return nil, errors.New("plutil missing")
	}

	names, err := d.Check(context.Background(), config.Combination{
		Modifiers: []string{config.ModifierMeta},
		Key:       config.KeySpace,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Spotlight Search"}, names)
}
