package ogg

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PacketWriter lays packets back out as pages. Pages are finished when a
// packet is flagged EndPage or EOS, or when the 255-segment limit forces
// a split; oversized packets continue onto following pages.
type PacketWriter struct {
	w       io.Writer
	streams map[uint32]*streamState
}

type streamState struct {
	started bool
	seq     uint32

	lacing      []byte
	body        []byte
	continued   bool
	completed   bool
	lastGranule uint64
}

func NewPacketWriter(w io.Writer) *PacketWriter {
	return &PacketWriter{w: w, streams: map[uint32]*streamState{}}
}

// WritePacket buffers a packet into the current page of its logical
// stream, emitting pages as they fill. The first page written for a
// serial carries the beginning-of-stream flag.
func (pw *PacketWriter) WritePacket(p *Packet) error {
	st := pw.streams[p.Serial]
	if st == nil {
		st = &streamState{}
		pw.streams[p.Serial] = st
	}

	rest := p.Data
	for {
		if len(st.lacing) == maxSegments {
			if err := pw.flushPage(p.Serial, st, false); err != nil {
				return err
			}
		}
		if len(rest) >= maxSegments {
			st.lacing = append(st.lacing, maxSegments)
			st.body = append(st.body, rest[:maxSegments]...)
			rest = rest[maxSegments:]
			continue
		}
		st.lacing = append(st.lacing, byte(len(rest)))
		st.body = append(st.body, rest...)
		break
	}
	st.completed = true
	st.lastGranule = p.Granule

	if p.EndPage || p.EOS {
		return pw.flushPage(p.Serial, st, p.EOS)
	}
	return nil
}

// Close flushes any partially filled pages. Streams whose last packet was
// flagged EOS or EndPage have nothing left to flush.
func (pw *PacketWriter) Close() error {
	for serial, st := range pw.streams {
		if len(st.lacing) == 0 {
			continue
		}
		if err := pw.flushPage(serial, st, false); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PacketWriter) flushPage(serial uint32, st *streamState, eos bool) error {
	granule := GranuleUnset
	if st.completed {
		granule = st.lastGranule
	}

	var flags byte
	if st.continued {
		flags |= flagContinuation
	}
	if !st.started {
		flags |= flagBOS
	}
	if eos {
		flags |= flagEOS
	}

	page := make([]byte, 0, headerLen+len(st.lacing)+len(st.body))
	page = append(page, pageMagic...)
	page = append(page, 0, flags)
	page = binary.LittleEndian.AppendUint64(page, granule)
	page = binary.LittleEndian.AppendUint32(page, serial)
	page = binary.LittleEndian.AppendUint32(page, st.seq)
	page = binary.LittleEndian.AppendUint32(page, 0)
	page = append(page, byte(len(st.lacing)))
	page = append(page, st.lacing...)
	page = append(page, st.body...)
	binary.LittleEndian.PutUint32(page[22:], crcUpdate(0, page))

	if _, err := pw.w.Write(page); err != nil {
		return fmt.Errorf("write page: %w", err)
	}

	st.started = true
	st.seq++
	st.continued = len(st.lacing) > 0 && st.lacing[len(st.lacing)-1] == maxSegments
	st.lacing = st.lacing[:0]
	st.body = st.body[:0]
	st.completed = false
	return nil
}
