// Package ogg reads and writes Ogg container framing at the packet level.
// A PacketReader yields logical packets with enough page metadata to
// reproduce the original framing, and a PacketWriter re-chunks packets
// into pages with correct lacing, continuation and checksums.
package ogg

import "errors"

var ErrBadContainer = errors.New("bad ogg container")

const (
	pageMagic   = "OggS"
	headerLen   = 27
	maxSegments = 255

	flagContinuation = 0x01
	flagBOS          = 0x02
	flagEOS          = 0x04
)

// GranuleUnset marks a page that completes no packet.
const GranuleUnset = ^uint64(0)

// Packet is one logical packet plus the page metadata the writer needs.
type Packet struct {
	Serial  uint32
	Data    []byte
	Granule uint64

	// EOS is set on the packet that ends its logical stream.
	EOS bool
	// EndPage is set on the last packet completed on its page. The
	// writer finishes a page after such a packet, which keeps header
	// packets on their own pages as the Opus and Vorbis encapsulations
	// require.
	EndPage bool
}
