// Package rewrite replaces the header packets of an Ogg Opus or Vorbis
// stream while passing every audio packet through untouched, and drives
// the temp-file dance that makes in-place rewrites safe to interrupt.
package rewrite

import (
	"errors"
	"fmt"

	"github.com/ogain/oggain/comments"
	"github.com/ogain/oggain/gain"
	"github.com/ogain/oggain/header"
)

var (
	ErrInterrupted    = errors.New("interrupted")
	ErrMissingStream  = errors.New("no opus or vorbis stream found")
	ErrMissingHeaders = errors.New("stream ended before both headers were seen")
	ErrNoOutputGain   = errors.New("stream has no output gain field")
)

// HeaderPair is one logical stream's identification and comment headers.
// Exactly one of OpusID and VorbisID is set, matching Codec.
type HeaderPair struct {
	Codec    header.Codec
	OpusID   *header.OpusID
	VorbisID *header.VorbisID
	Comments *header.CommentHeader
}

func (hp *HeaderPair) idBytes() ([]byte, error) {
	if hp.Codec == header.CodecVorbis {
		return hp.VorbisID.MarshalBinary()
	}
	return hp.OpusID.MarshalBinary()
}

// OutputGain returns the header gain for codecs that have one.
func (hp *HeaderPair) OutputGain() (header.Gain, bool) {
	if hp.OpusID == nil {
		return 0, false
	}
	return hp.OpusID.OutputGain(), true
}

// GainValues summarizes the loudness metadata of a header pair for
// reporting. Unparseable tags read as absent.
type GainValues struct {
	Output   header.Gain
	TrackTag *header.Gain
	AlbumTag *header.Gain
}

func (hp *HeaderPair) GainValues() GainValues {
	var gv GainValues
	gv.Output, _ = hp.OutputGain()
	if g, ok, err := hp.Comments.GainTag(header.TagTrackGain); ok && err == nil {
		gv.TrackTag = &g
	}
	if g, ok, err := hp.Comments.GainTag(header.TagAlbumGain); ok && err == nil {
		gv.AlbumTag = &g
	}
	return gv
}

// Action mutates a header pair in place before it is re-serialized.
type Action interface {
	Apply(hp *HeaderPair) error
}

// Gains applies a gain decision: the header output gain plus the R128
// tags, removing tags the decision leaves unset. Only Opus streams carry
// an output gain.
type Gains struct {
	Decision gain.Decision
}

func (g Gains) Apply(hp *HeaderPair) error {
	if hp.Codec != header.CodecOpus {
		return fmt.Errorf("%w: cannot adjust gain on a %s stream", ErrNoOutputGain, hp.Codec)
	}
	hp.OpusID.SetOutputGain(g.Decision.Output)

	if err := applyTag(hp.Comments, header.TagTrackGain, g.Decision.TrackTag); err != nil {
		return err
	}
	return applyTag(hp.Comments, header.TagAlbumGain, g.Decision.AlbumTag)
}

func applyTag(h *header.CommentHeader, name string, g *header.Gain) error {
	if g == nil {
		h.Comments.RemoveAll(name)
		return nil
	}
	return h.SetGainTag(name, *g)
}

// EditComments rewrites the comment list: optionally dropping it, or
// filtering it, then appending new comments. The vendor string and any
// trailing header data are never touched.
type EditComments struct {
	// Replace drops the existing list before appending.
	Replace bool
	// Keep filters the existing list when not replacing.
	Keep func(key, value string) bool
	// Append is added at the end, in order.
	Append *comments.List
}

func (e EditComments) Apply(hp *HeaderPair) error {
	cs := &hp.Comments.Comments
	if e.Replace {
		cs.Clear()
	} else if e.Keep != nil {
		cs.Retain(e.Keep)
	}
	if e.Append != nil {
		return cs.Extend(e.Append)
	}
	return nil
}
