package header_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogain/oggain/header"
)

func buildCommentHeader(t *testing.T, magic, vendor string, fields []string, suffix []byte) []byte {
	t.Helper()
	var b []byte
	b = append(b, magic...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(vendor)))
	b = append(b, vendor...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(fields)))
	for _, f := range fields {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(f)))
		b = append(b, f...)
	}
	return append(b, suffix...)
}

func TestCommentHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	in := buildCommentHeader(t, "OpusTags", "libopus 1.4",
		[]string{"TITLE=x", "artist=y", "TITLE=z", "COMMENT=a=b"},
		[]byte{0x01, 0xde, 0xad})

	h, err := header.ParseCommentHeader(in, header.CodecOpus)
	require.NoError(t, err)
	assert.Equal(t, "libopus 1.4", h.Vendor)
	assert.Equal(t, 4, h.Comments.Len())

	v, ok := h.Comments.GetFirst("title")
	require.True(t, ok)
	assert.Equal(t, "x", v)
	v, ok = h.Comments.GetFirst("COMMENT")
	require.True(t, ok)
	assert.Equal(t, "a=b", v)

	out, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCommentHeaderRoundTripPadding(t *testing.T) {
	t.Parallel()

	// Trailing data survives even when its first byte has a clear low bit.
	in := buildCommentHeader(t, "OpusTags", "", nil, []byte{0x00, 0x00, 0x00})
	h, err := header.ParseCommentHeader(in, header.CodecOpus)
	require.NoError(t, err)
	out, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// And absent trailing data stays absent.
	in = buildCommentHeader(t, "OpusTags", "v", []string{"A=1"}, nil)
	h, err = header.ParseCommentHeader(in, header.CodecOpus)
	require.NoError(t, err)
	out, err = h.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCommentHeaderVorbisFraming(t *testing.T) {
	t.Parallel()

	in := buildCommentHeader(t, "\x03vorbis", "Xiph.Org", []string{"TITLE=t"}, []byte{0x01})
	h, err := header.ParseCommentHeader(in, header.CodecVorbis)
	require.NoError(t, err)
	out, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = header.ParseCommentHeader(
		buildCommentHeader(t, "\x03vorbis", "v", nil, nil), header.CodecVorbis)
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	_, err = header.ParseCommentHeader(
		buildCommentHeader(t, "\x03vorbis", "v", nil, []byte{0x00}), header.CodecVorbis)
	require.ErrorIs(t, err, header.ErrMalformedHeader)
}

func TestCommentHeaderMalformed(t *testing.T) {
	t.Parallel()

	_, err := header.ParseCommentHeader([]byte("NotTags\x00"), header.CodecOpus)
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	// Vendor length overruns the buffer.
	b := []byte("OpusTags")
	b = binary.LittleEndian.AppendUint32(b, 100)
	_, err = header.ParseCommentHeader(b, header.CodecOpus)
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	// Truncated comment count.
	b = buildCommentHeader(t, "OpusTags", "v", nil, nil)
	_, err = header.ParseCommentHeader(b[:len(b)-2], header.CodecOpus)
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	// Comment entry without a separator.
	_, err = header.ParseCommentHeader(
		buildCommentHeader(t, "OpusTags", "v", []string{"NOSEP"}, nil), header.CodecOpus)
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	// Key byte outside the permitted subset.
	_, err = header.ParseCommentHeader(
		buildCommentHeader(t, "OpusTags", "v", []string{"BAD\x7fKEY=v"}, nil), header.CodecOpus)
	require.ErrorIs(t, err, header.ErrMalformedHeader)
}

func TestGainTags(t *testing.T) {
	t.Parallel()

	h := header.NewCommentHeader(header.CodecOpus, "test")
	_, ok, err := h.GainTag(header.TagTrackGain)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.SetGainTag(header.TagTrackGain, -512))
	g, ok, err := h.GainTag(header.TagTrackGain)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, header.Gain(-512), g)

	require.NoError(t, h.Comments.Append(header.TagAlbumGain, "junk"))
	_, _, err = h.GainTag(header.TagAlbumGain)
	require.ErrorIs(t, err, header.ErrInvalidGainValue)
}

func TestNewCommentHeaderVorbisFraming(t *testing.T) {
	t.Parallel()

	h := header.NewCommentHeader(header.CodecVorbis, "v")
	out, err := h.MarshalBinary()
	require.NoError(t, err)

	parsed, err := header.ParseCommentHeader(out, header.CodecVorbis)
	require.NoError(t, err)
	assert.Equal(t, "v", parsed.Vendor)
}
