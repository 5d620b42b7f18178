package volume_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogain/oggain/header"
	"github.com/ogain/oggain/ogg"
	"github.com/ogain/oggain/volume"
)

func opusIDPacket(t *testing.T, channels int, preSkip int) []byte {
	t.Helper()
	b := []byte("OpusHead")
	b = append(b, 1, byte(channels))
	b = binary.LittleEndian.AppendUint16(b, uint16(preSkip))
	b = binary.LittleEndian.AppendUint32(b, 48000)
	b = binary.LittleEndian.AppendUint16(b, 0)
	return append(b, 0)
}

func opusTagsPacket(t *testing.T) []byte {
	t.Helper()
	h := header.NewCommentHeader(header.CodecOpus, "test")
	b, err := h.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestSubmitRejectsJunkHeader(t *testing.T) {
	t.Parallel()

	a := volume.NewAnalyzer()
	err := a.Submit(&ogg.Packet{Data: []byte("definitely not a header")})
	require.ErrorIs(t, err, header.ErrMalformedHeader)
}

func TestSubmitRejectsTooManyChannels(t *testing.T) {
	t.Parallel()

	a := volume.NewAnalyzer()
	err := a.Submit(&ogg.Packet{Data: opusIDPacket(t, 6, 0)})
	require.ErrorIs(t, err, volume.ErrUnsupportedChannels)
}

func TestSubmitRejectsJunkComments(t *testing.T) {
	t.Parallel()

	a := volume.NewAnalyzer()
	require.NoError(t, a.Submit(&ogg.Packet{Data: opusIDPacket(t, 2, 312)}))
	err := a.Submit(&ogg.Packet{Data: []byte("not OpusTags")})
	require.ErrorIs(t, err, header.ErrMalformedHeader)
}

func TestFileCompleteBeforeHeaders(t *testing.T) {
	t.Parallel()

	a := volume.NewAnalyzer()
	require.ErrorIs(t, a.FileComplete(), volume.ErrMissingHeaders)

	require.NoError(t, a.Submit(&ogg.Packet{Data: opusIDPacket(t, 2, 0)}))
	require.ErrorIs(t, a.FileComplete(), volume.ErrMissingHeaders)
}

func TestFileCompleteOnSilence(t *testing.T) {
	t.Parallel()

	a := volume.NewAnalyzer()
	require.NoError(t, a.Submit(&ogg.Packet{Data: opusIDPacket(t, 2, 0)}))
	require.NoError(t, a.Submit(&ogg.Packet{Data: opusTagsPacket(t)}))
	require.NoError(t, a.FileComplete())

	require.Len(t, a.TrackLUFS(), 1)
	assert.Equal(t, 0.0, a.TrackLUFS()[0])
	assert.Equal(t, 0.0, a.AlbumLUFS())
}

func TestAnalyzeFileNotOpus(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in.ogg")
	f, err := os.Create(path)
	require.NoError(t, err)
	pw := ogg.NewPacketWriter(f)
	require.NoError(t, pw.WritePacket(&ogg.Packet{Serial: 1, Data: []byte("garbage"), EOS: true}))
	require.NoError(t, pw.Close())
	require.NoError(t, f.Close())

	err = volume.AnalyzeFile(context.Background(), path, volume.NewAnalyzer())
	require.ErrorIs(t, err, volume.ErrNotOpus)
}

func TestAnalyzeFileCancelled(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in.opus")
	f, err := os.Create(path)
	require.NoError(t, err)
	pw := ogg.NewPacketWriter(f)
	require.NoError(t, pw.WritePacket(&ogg.Packet{Serial: 1, Data: opusIDPacket(t, 2, 0), EndPage: true}))
	require.NoError(t, pw.WritePacket(&ogg.Packet{Serial: 1, Data: opusTagsPacket(t), EOS: true}))
	require.NoError(t, f.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = volume.AnalyzeFile(ctx, path, volume.NewAnalyzer())
	require.ErrorIs(t, err, context.Canceled)
}
