package header

import (
	"encoding/binary"
	"fmt"
)

const vorbisIDMinLen = 30

// VorbisID is a Vorbis identification header, kept as the original packet
// bytes. Vorbis has no header gain field, so it is read-only.
type VorbisID struct {
	data []byte
}

func ParseVorbisID(data []byte) (*VorbisID, error) {
	if len(data) < vorbisIDMinLen {
		return nil, fmt.Errorf("%w: vorbis identification header too short", ErrMalformedHeader)
	}
	if c, ok := Sniff(data); !ok || c != CodecVorbis {
		return nil, fmt.Errorf("%w: missing vorbis identification magic", ErrMalformedHeader)
	}
	if v := binary.LittleEndian.Uint32(data[7:]); v != 0 {
		return nil, fmt.Errorf("%w: unknown vorbis version %d", ErrMalformedHeader, v)
	}
	id := VorbisID{data: append([]byte(nil), data...)}
	if id.Channels() == 0 {
		return nil, fmt.Errorf("%w: vorbis channel count is zero", ErrMalformedHeader)
	}
	if id.SampleRate() == 0 {
		return nil, fmt.Errorf("%w: vorbis sample rate is zero", ErrMalformedHeader)
	}
	return &id, nil
}

func (id *VorbisID) Channels() int {
	return int(id.data[11])
}

func (id *VorbisID) SampleRate() int {
	return int(binary.LittleEndian.Uint32(id.data[12:]))
}

func (id *VorbisID) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), id.data...), nil
}
