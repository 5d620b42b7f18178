package header

import (
	"encoding/binary"
	"fmt"
)

// DecodeSampleRate is the rate all Opus streams decode at, regardless of
// the input rate recorded in the identification header.
const DecodeSampleRate = 48000

const opusIDMinLen = 19

// OpusID is an Opus identification header. It wraps the original packet
// bytes so unedited fields round-trip verbatim.
type OpusID struct {
	data []byte
}

func ParseOpusID(data []byte) (*OpusID, error) {
	if len(data) < opusIDMinLen {
		return nil, fmt.Errorf("%w: opus identification header too short", ErrMalformedHeader)
	}
	if c, ok := Sniff(data); !ok || c != CodecOpus {
		return nil, fmt.Errorf("%w: missing opus identification magic", ErrMalformedHeader)
	}
	if data[8]>>4 != 0 {
		return nil, fmt.Errorf("%w: incompatible opus version %d", ErrMalformedHeader, data[8])
	}
	id := OpusID{data: append([]byte(nil), data...)}
	if id.Channels() == 0 {
		return nil, fmt.Errorf("%w: opus channel count is zero", ErrMalformedHeader)
	}
	return &id, nil
}

func (id *OpusID) Channels() int {
	return int(id.data[9])
}

// PreSkip is the number of 48 kHz samples to discard from the start of the
// decoded stream.
func (id *OpusID) PreSkip() int {
	return int(binary.LittleEndian.Uint16(id.data[10:]))
}

// InputSampleRate is the original input rate, informational only.
func (id *OpusID) InputSampleRate() int {
	return int(binary.LittleEndian.Uint32(id.data[12:]))
}

func (id *OpusID) OutputGain() Gain {
	return Gain(binary.LittleEndian.Uint16(id.data[16:]))
}

func (id *OpusID) SetOutputGain(g Gain) {
	binary.LittleEndian.PutUint16(id.data[16:], uint16(g))
}

func (id *OpusID) ChannelMappingFamily() int {
	return int(id.data[18])
}

func (id *OpusID) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), id.data...), nil
}
