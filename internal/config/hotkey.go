package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Slot identifies one of the two hotkey roles.
type Slot string

const (
	SlotSelected Slot = "selected"
	SlotFull     Slot = "full"
)

// Modifier identities as stored in the configuration document.
const (
	ModifierMeta    = "Meta"
	ModifierControl = "Control"
	ModifierAlt     = "Alt"
	ModifierShift   = "Shift"
)

// KeySpace is the space key, encoded distinctly from printable keys.
const KeySpace = " "

// Consecutive repeat count bounds.
const (
	MinConsecutiveCount     = 2
	MaxConsecutiveCount     = 10
	DefaultConsecutiveCount = 3
)

// ErrMissingModifier is returned when a selected-slot combination has no modifiers.
var ErrMissingModifier = errors.New("combination hotkey for the selected slot requires at least one modifier")

// ErrCountOutOfRange is returned for consecutive counts outside [2,10].
var ErrCountOutOfRange = fmt.Errorf("consecutive count must be between %d and %d", MinConsecutiveCount, MaxConsecutiveCount)

// Hotkey is a closed variant: Combination or Consecutive.
type Hotkey interface {
	isHotkey()
}

// Combination is a trigger key plus a set of held modifiers.
type Combination struct {
	Modifiers []string
	Key       string
}

// Consecutive is a single key pressed Count times in quick succession.
type Consecutive struct {
	Key   string
	Count int
}

func (Combination) isHotkey() {}
func (Consecutive) isHotkey() {}

// ValidateHotkey checks a hotkey for use in a slot. The only rejected shape is a
// combination with an empty modifier set assigned to the selected slot.
func ValidateHotkey(h Hotkey, slot Slot) error {
	switch v := h.(type) {
	case Combination:
		if slot == SlotSelected && len(v.Modifiers) == 0 {
			return ErrMissingModifier
		}
		return nil
	case Consecutive:
		return nil
	case nil:
		return errors.New("hotkey is not set")
	default:
		return fmt.Errorf("unknown hotkey variant %T", h)
	}
}

// FormatHotkey renders a hotkey for display. Deterministic and slot-independent.
func FormatHotkey(h Hotkey) string {
	switch v := h.(type) {
	case Combination:
		parts := make([]string, 0, len(v.Modifiers)+1)
		for _, m := range v.Modifiers {
			parts = append(parts, displayModifier(m))
		}
		key := v.Key
		if key == KeySpace {
			key = "Space"
		}
		parts = append(parts, strings.ToUpper(key))
		return strings.Join(parts, " + ")
	case Consecutive:
		name := v.Key
		if name == KeySpace {
			name = "Space"
		}
		return fmt.Sprintf("%s × %d", strings.ToUpper(name), v.Count)
	default:
		return ""
	}
}

// displayModifier maps stored modifier identities to platform display names.
func displayModifier(m string) string {
	switch m {
	case ModifierMeta:
		return "Cmd"
	case ModifierControl:
		return "Ctrl"
	case ModifierAlt:
		return "Option"
	default:
		return m
	}
}

// IsModifierKey reports whether a key event names a modifier identity itself.
func IsModifierKey(key string) bool {
	switch key {
	case ModifierMeta, ModifierControl, ModifierAlt, ModifierShift:
		return true
	default:
		return false
	}
}

// hotkeyEnvelope is the persisted tagged-object form of a Hotkey.
type hotkeyEnvelope struct {
	Type      string   `json:"type"`
	Modifiers []string `json:"modifiers,omitempty"`
	Key       string   `json:"key"`
	Count     *int     `json:"count,omitempty"`
}

const (
	hotkeyTagCombination = "Combination"
	hotkeyTagConsecutive = "Consecutive"
)

// MarshalJSON encodes the combination in the tagged-object document form.
func (c Combination) MarshalJSON() ([]byte, error) {
	mods := c.Modifiers
	if mods == nil {
		mods = []string{}
	}
	return json.Marshal(struct {
		Type      string   `json:"type"`
		Modifiers []string `json:"modifiers"`
		Key       string   `json:"key"`
	}{Type: hotkeyTagCombination, Modifiers: mods, Key: c.Key})
}

// MarshalJSON encodes the consecutive hotkey in the tagged-object document form.
func (c Consecutive) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Key   string `json:"key"`
		Count int    `json:"count"`
	}{Type: hotkeyTagConsecutive, Key: c.Key, Count: c.Count})
}

// DecodeHotkey parses the tagged-object form back into a concrete variant.
func DecodeHotkey(data []byte) (Hotkey, error) {
	var env hotkeyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode hotkey: %w", err)
	}

	switch env.Type {
	case hotkeyTagCombination:
		mods := env.Modifiers
		if mods == nil {
			mods = []string{}
		}
		return Combination{Modifiers: mods, Key: env.Key}, nil
	case hotkeyTagConsecutive:
		count := DefaultConsecutiveCount
		if env.Count != nil {
			count = *env.Count
		}
		return Consecutive{Key: env.Key, Count: count}, nil
	case "":
		return nil, errors.New("hotkey is missing the type tag")
	default:
		return nil, fmt.Errorf("unknown hotkey type %q", env.Type)
	}
}
