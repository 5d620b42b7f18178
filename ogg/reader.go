package ogg

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// PacketReader assembles logical packets from a physical Ogg stream,
// verifying page checksums and joining packets that span pages.
// Interleaved logical streams are supported; packets are yielded in
// page order.
type PacketReader struct {
	r       *bufio.Reader
	queue   []*Packet
	pending map[uint32]*partial
}

type partial struct {
	data   []byte
	active bool
}

func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{
		r:       bufio.NewReader(r),
		pending: map[uint32]*partial{},
	}
}

// Next returns the next complete packet, or io.EOF at the end of a
// well-formed stream. A stream that ends mid-packet or mid-page is
// reported as ErrBadContainer.
func (pr *PacketReader) Next() (*Packet, error) {
	for len(pr.queue) == 0 {
		if err := pr.readPage(); err != nil {
			if errors.Is(err, io.EOF) {
				for _, p := range pr.pending {
					if p.active {
						return nil, fmt.Errorf("%w: stream ends mid packet", ErrBadContainer)
					}
				}
				return nil, io.EOF
			}
			return nil, err
		}
	}
	p := pr.queue[0]
	pr.queue = pr.queue[1:]
	return p, nil
}

func (pr *PacketReader) readPage() error {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(pr.r, hdr[:1]); err != nil {
		return err
	}
	if _, err := io.ReadFull(pr.r, hdr[1:]); err != nil {
		return truncated(err)
	}
	if string(hdr[:4]) != pageMagic {
		return fmt.Errorf("%w: bad page magic", ErrBadContainer)
	}
	if hdr[4] != 0 {
		return fmt.Errorf("%w: unknown page version %d", ErrBadContainer, hdr[4])
	}

	flags := hdr[5]
	granule := binary.LittleEndian.Uint64(hdr[6:])
	serial := binary.LittleEndian.Uint32(hdr[14:])
	wantCRC := binary.LittleEndian.Uint32(hdr[22:])

	lacing := make([]byte, int(hdr[26]))
	if _, err := io.ReadFull(pr.r, lacing); err != nil {
		return truncated(err)
	}
	var bodyLen int
	for _, l := range lacing {
		bodyLen += int(l)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(pr.r, body); err != nil {
		return truncated(err)
	}

	zeroed := hdr
	binary.LittleEndian.PutUint32(zeroed[22:], 0)
	crc := crcUpdate(0, zeroed[:])
	crc = crcUpdate(crc, lacing)
	crc = crcUpdate(crc, body)
	if crc != wantCRC {
		return fmt.Errorf("%w: page checksum mismatch", ErrBadContainer)
	}

	part := pr.pending[serial]
	if part == nil {
		part = &partial{}
		pr.pending[serial] = part
	}
	if continued := flags&flagContinuation != 0; continued != part.active {
		if continued {
			return fmt.Errorf("%w: continuation page without a pending packet", ErrBadContainer)
		}
		return fmt.Errorf("%w: pending packet not continued", ErrBadContainer)
	}

	var done []*Packet
	off := 0
	for _, l := range lacing {
		part.data = append(part.data, body[off:off+int(l)]...)
		part.active = true
		off += int(l)
		if l == maxSegments {
			continue
		}
		done = append(done, &Packet{
			Serial:  serial,
			Data:    part.data,
			Granule: granule,
		})
		part.data = nil
		part.active = false
	}
	if n := len(done); n > 0 {
		done[n-1].EndPage = true
		done[n-1].EOS = flags&flagEOS != 0 && !part.active
	}
	pr.queue = append(pr.queue, done...)
	return nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated page", ErrBadContainer)
	}
	return err
}
