// Package header implements the binary headers at the front of Ogg Opus
// and Ogg Vorbis streams: the identification headers, the comment header
// shared by both codecs, and the Q7.8 gain values stored in them.
package header

import (
	"bytes"
	"errors"
)

var ErrMalformedHeader = errors.New("malformed header")

// Comment field names standardized by RFC 7845 for loudness metadata.
const (
	TagTrackGain = "R128_TRACK_GAIN"
	TagAlbumGain = "R128_ALBUM_GAIN"
)

type Codec uint8

const (
	CodecOpus Codec = iota + 1
	CodecVorbis
)

func (c Codec) String() string {
	switch c {
	case CodecOpus:
		return "opus"
	case CodecVorbis:
		return "vorbis"
	}
	return "unknown"
}

var (
	opusIDMagic      = []byte("OpusHead")
	opusCommentMagic = []byte("OpusTags")

	vorbisIDMagic      = []byte("\x01vorbis")
	vorbisCommentMagic = []byte("\x03vorbis")
)

// Sniff identifies the codec from the first packet of a logical stream.
func Sniff(packet []byte) (Codec, bool) {
	switch {
	case bytes.HasPrefix(packet, opusIDMagic):
		return CodecOpus, true
	case bytes.HasPrefix(packet, vorbisIDMagic):
		return CodecVorbis, true
	}
	return 0, false
}
