package indicator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aeovy/QuickTransType/internal/config"
)

func TestCueSamplesPresent(t *testing.T) {
	require.NotEmpty(t, cueSamples(cueComplete))
	require.NotEmpty(t, cueSamples(cueCancel))
	require.NotEmpty(t, cueSamples(cueError))
	require.Empty(t, cueSamples(cueKind(0)))
}

func TestCuePathSelectsConfiguredFile(t *testing.T) {
	sound := config.SoundSettings{
		CompleteFile: "/cues/done.wav",
		CancelFile:   "/cues/cancel.wav",
		ErrorFile:    "/cues/error.wav",
	}

	require.Equal(t, "/cues/done.wav", cuePath(cueComplete, sound))
	require.Equal(t, "/cues/cancel.wav", cuePath(cueCancel, sound))
	require.Equal(t, "/cues/error.wav", cuePath(cueError, sound))
	require.Empty(t, cuePath(cueKind(0), sound))
	require.Empty(t, cuePath(cueComplete, config.SoundSettings{}))
}

func TestCuePathExpandsHomeRelativeFiles(t *testing.T) {
	home, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	t.Setenv("HOME", home)

	sound := config.SoundSettings{CompleteFile: "~/cue.wav"}
	require.Equal(t, filepath.Join(home, "cue.wav"), cuePath(cueComplete, sound))
}
