package header_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogain/oggain/header"
)

func buildOpusID(t *testing.T, channels int, preSkip int, gain int16) []byte {
	t.Helper()
	b := []byte("OpusHead")
	b = append(b, 1, byte(channels))
	b = binary.LittleEndian.AppendUint16(b, uint16(preSkip))
	b = binary.LittleEndian.AppendUint32(b, 44100)
	b = binary.LittleEndian.AppendUint16(b, uint16(gain))
	return append(b, 0)
}

func buildVorbisID(t *testing.T, channels int, rate uint32) []byte {
	t.Helper()
	b := []byte("\x01vorbis")
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = append(b, byte(channels))
	b = binary.LittleEndian.AppendUint32(b, rate)
	// Bitrates, block sizes, framing.
	b = append(b, make([]byte, 13)...)
	return append(b, 0x01)
}

func TestSniff(t *testing.T) {
	t.Parallel()

	c, ok := header.Sniff(buildOpusID(t, 2, 312, 0))
	require.True(t, ok)
	assert.Equal(t, header.CodecOpus, c)

	c, ok = header.Sniff(buildVorbisID(t, 2, 44100))
	require.True(t, ok)
	assert.Equal(t, header.CodecVorbis, c)

	_, ok = header.Sniff([]byte("ID3\x03"))
	assert.False(t, ok)
	_, ok = header.Sniff(nil)
	assert.False(t, ok)
}

func TestOpusID(t *testing.T) {
	t.Parallel()

	in := buildOpusID(t, 2, 312, -4608)
	id, err := header.ParseOpusID(in)
	require.NoError(t, err)

	assert.Equal(t, 2, id.Channels())
	assert.Equal(t, 312, id.PreSkip())
	assert.Equal(t, 44100, id.InputSampleRate())
	assert.Equal(t, header.Gain(-4608), id.OutputGain())
	assert.Equal(t, 0, id.ChannelMappingFamily())

	out, err := id.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	id.SetOutputGain(256)
	assert.Equal(t, header.Gain(256), id.OutputGain())
	out, err = id.MarshalBinary()
	require.NoError(t, err)
	assert.NotEqual(t, in, out)
	// Only the gain field differs.
	assert.Equal(t, in[:16], out[:16])
	assert.Equal(t, in[18:], out[18:])
}

func TestOpusIDMalformed(t *testing.T) {
	t.Parallel()

	_, err := header.ParseOpusID([]byte("OpusHead"))
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	_, err = header.ParseOpusID(buildVorbisID(t, 2, 44100))
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	bad := buildOpusID(t, 0, 0, 0)
	_, err = header.ParseOpusID(bad)
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	bad = buildOpusID(t, 2, 0, 0)
	bad[8] = 0x20
	_, err = header.ParseOpusID(bad)
	require.ErrorIs(t, err, header.ErrMalformedHeader)
}

func TestVorbisID(t *testing.T) {
	t.Parallel()

	in := buildVorbisID(t, 1, 48000)
	id, err := header.ParseVorbisID(in)
	require.NoError(t, err)
	assert.Equal(t, 1, id.Channels())
	assert.Equal(t, 48000, id.SampleRate())

	out, err := id.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestVorbisIDMalformed(t *testing.T) {
	t.Parallel()

	_, err := header.ParseVorbisID([]byte("\x01vorbis"))
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	bad := buildVorbisID(t, 2, 44100)
	binary.LittleEndian.PutUint32(bad[7:], 7)
	_, err = header.ParseVorbisID(bad)
	require.ErrorIs(t, err, header.ErrMalformedHeader)

	_, err = header.ParseVorbisID(buildVorbisID(t, 0, 44100))
	require.ErrorIs(t, err, header.ErrMalformedHeader)
	_, err = header.ParseVorbisID(buildVorbisID(t, 2, 0))
	require.ErrorIs(t, err, header.ErrMalformedHeader)
}
