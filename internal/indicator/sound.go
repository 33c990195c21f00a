package indicator

import (
	"time"

	"github.com/Aeovy/QuickTransType/internal/audio"
	"github.com/Aeovy/QuickTransType/internal/config"
)

type cueKind int

const (
	cueComplete cueKind = iota + 1
	cueCancel
	cueError
)

var (
	completeCuePCM = audio.SynthesizeCue([]audio.Tone{
		{FrequencyHz: 740, Duration: 65 * time.Millisecond, Volume: 0.18},
		{FrequencyHz: 988, Duration: 90 * time.Millisecond, Volume: 0.18},
	})
	cancelCuePCM = audio.SynthesizeCue([]audio.Tone{
		{FrequencyHz: 480, Duration: 75 * time.Millisecond, Volume: 0.18},
		{FrequencyHz: 360, Duration: 90 * time.Millisecond, Volume: 0.18},
	})
	errorCuePCM = audio.SynthesizeCue([]audio.Tone{
		{FrequencyHz: 330, Duration: 90 * time.Millisecond, Volume: 0.18},
		{FrequencyHz: 247, Duration: 120 * time.Millisecond, Volume: 0.18},
	})
)

// emitCue plays a user-provided cue file when configured, falling back to
// the synthesized tone.
func emitCue(kind cueKind, sound config.SoundSettings) error {
	if path := cuePath(kind, sound); path != "" {
		if err := audio.PlayFile(path); err == nil {
			return nil
		}
	}

	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}

	return audio.PlaySamples(samples)
}

func cuePath(kind cueKind, sound config.SoundSettings) string {
	var raw string
	switch kind {
	case cueComplete:
		raw = sound.CompleteFile
	case cueCancel:
		raw = sound.CancelFile
	case cueError:
		raw = sound.ErrorFile
	default:
		return ""
	}
	return audio.ExpandUserPath(raw)
}

func cueSamples(kind cueKind) []int16 {
	switch kind {
	case cueComplete:
		return completeCuePCM
	case cueCancel:
		return cancelCuePCM
	case cueError:
		return errorCuePCM
	default:
		return nil
	}
}
