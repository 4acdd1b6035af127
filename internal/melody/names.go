package melody

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPitchClass = errors.New("invalid note number")

var noteNames = [PitchClasses]string{
	"C",
	"C#/Db",
	"D",
	"D#/Eb",
	"E",
	"F",
	"F#/Gb",
	"G",
	"G#/Ab",
	"A",
	"A#/Bb",
	"B",
}

// NoteName returns the display name for a pitch class.
func NoteName(value int) (string, error) {
	if value < 0 || value >= PitchClasses {
		return "", fmt.Errorf("%w: %d", ErrInvalidPitchClass, value)
	}
	return noteNames[value], nil
}

// ParsePitchClass accepts either enharmonic spelling ("C#", "Db", "C#/Db")
// and is case-insensitive.
func ParsePitchClass(name string) (PitchClass, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return 0, fmt.Errorf("%w: empty name", ErrInvalidPitchClass)
	}
	for i, full := range noteNames {
		if strings.ToLower(full) == want {
			return PitchClass(i), nil
		}
		for _, part := range strings.Split(full, "/") {
			if strings.ToLower(part) == want {
				return PitchClass(i), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPitchClass, name)
}
