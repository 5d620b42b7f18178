// Package gain decides the output gain and R128 tags applied when
// normalizing a file. It is pure calculation; measurement and rewriting
// live elsewhere.
package gain

import (
	"errors"
	"fmt"

	"github.com/ogain/oggain/header"
)

// Loudness references, in LUFS.
const (
	ReplayGainLUFS = -18.0
	R128LUFS       = -23.0
)

var (
	ErrMissingLoudness = errors.New("missing loudness measurement")
	ErrUnknownPreset   = errors.New("unknown preset")
	ErrUnknownMode     = errors.New("unknown output gain mode")
)

type Preset int

const (
	// PresetOriginal restores a header gain of zero.
	PresetOriginal Preset = iota
	// PresetReplayGain normalizes playback to -18 LUFS.
	PresetReplayGain
	// PresetR128 normalizes playback to -23 LUFS.
	PresetR128
	// PresetNoChange keeps the existing header gain.
	PresetNoChange
)

func (p Preset) String() string {
	switch p {
	case PresetOriginal:
		return "original"
	case PresetReplayGain:
		return "rg"
	case PresetR128:
		return "r128"
	case PresetNoChange:
		return "no-change"
	}
	return fmt.Sprintf("preset(%d)", int(p))
}

func ParsePreset(s string) (Preset, error) {
	for _, p := range []Preset{PresetOriginal, PresetReplayGain, PresetR128, PresetNoChange} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPreset, s)
}

// TargetLUFS is the playback loudness a preset normalizes to; ok is
// false for presets that do not set their own target.
func (p Preset) TargetLUFS() (target float64, ok bool) {
	switch p {
	case PresetReplayGain:
		return ReplayGainLUFS, true
	case PresetR128:
		return R128LUFS, true
	}
	return 0, false
}

// reference is the loudness tags are written against. Presets without a
// target of their own use the R128 reference.
func (p Preset) reference() float64 {
	if target, ok := p.TargetLUFS(); ok {
		return target
	}
	return R128LUFS
}

type Mode int

const (
	// ModeAuto follows the album gain when album mode is on, otherwise
	// the track gain.
	ModeAuto Mode = iota
	// ModeTrack always follows the track gain.
	ModeTrack
)

func (m Mode) String() string {
	if m == ModeTrack {
		return "track"
	}
	return "auto"
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "auto":
		return ModeAuto, nil
	case "track":
		return ModeTrack, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

type Config struct {
	Preset Preset
	Mode   Mode
	Album  bool
}

// Source is what is known about a file before deciding.
type Source struct {
	Output    header.Gain
	TrackLUFS *float64
	AlbumLUFS *float64
}

// Decision is the header gain and tags to write. A nil tag means the
// tag is removed.
type Decision struct {
	Output   header.Gain
	TrackTag *header.Gain
	AlbumTag *header.Gain
}

// Compute decides the header gain and tags for one file. Tags record the
// source loudness relative to the preset's reference so they remain
// valid however the header gain is set; presets without a target of
// their own use the R128 -23 LUFS reference for tags. Out-of-range
// results saturate at the Q7.8 bounds.
func Compute(cfg Config, src Source) (Decision, error) {
	ref := cfg.Preset.reference()

	if src.TrackLUFS == nil {
		return Decision{}, fmt.Errorf("track: %w", ErrMissingLoudness)
	}
	track := header.GainFromDecibels(ref - *src.TrackLUFS)
	d := Decision{TrackTag: &track}

	if cfg.Album {
		if src.AlbumLUFS == nil {
			return Decision{}, fmt.Errorf("album: %w", ErrMissingLoudness)
		}
		album := header.GainFromDecibels(ref - *src.AlbumLUFS)
		d.AlbumTag = &album
	}

	switch cfg.Preset {
	case PresetOriginal:
		d.Output = 0
	case PresetNoChange:
		d.Output = src.Output
	default:
		if cfg.Mode == ModeAuto && cfg.Album {
			d.Output = *d.AlbumTag
		} else {
			d.Output = *d.TrackTag
		}
	}
	return d, nil
}

// Clear removes both tags and leaves the header gain untouched.
func Clear(src Source) Decision {
	return Decision{Output: src.Output}
}

// TrackLUFSFromTag recovers the source loudness recorded by a valid
// R128_TRACK_GAIN tag, letting already-tagged files skip a decode pass.
// Recovery uses the same reference Compute writes the tag against, so
// feeding a recovered loudness back into Compute with the same preset
// reproduces the tag exactly.
func TrackLUFSFromTag(p Preset, g header.Gain) float64 {
	return p.reference() - g.Decibels()
}
