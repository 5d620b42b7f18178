package header

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ogain/oggain/comments"
)

// CommentHeader is the second header packet of an Opus or Vorbis stream:
// a vendor string, the comment list, and any trailing bytes after the
// declared comments. The trailing bytes are preserved verbatim so an
// unmodified header round-trips byte-identically. For Vorbis the first
// trailing byte carries the mandatory framing bit.
type CommentHeader struct {
	Codec    Codec
	Vendor   string
	Comments comments.List
	Suffix   []byte
}

// NewCommentHeader builds an empty header ready for serialization. Vorbis
// headers get their framing byte.
func NewCommentHeader(codec Codec, vendor string) *CommentHeader {
	h := CommentHeader{Codec: codec, Vendor: vendor}
	if codec == CodecVorbis {
		h.Suffix = []byte{1}
	}
	return &h
}

func ParseCommentHeader(data []byte, codec Codec) (*CommentHeader, error) {
	magic := commentMagic(codec)
	if !bytes.HasPrefix(data, magic) {
		return nil, fmt.Errorf("%w: missing %s comment magic", ErrMalformedHeader, codec)
	}
	rest := data[len(magic):]

	vendor, rest, err := readLenPrefixed(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: vendor string: %v", ErrMalformedHeader, err)
	}
	if len(rest) < 4 {
		return nil, fmt.Errorf("%w: truncated comment count", ErrMalformedHeader)
	}
	count := binary.LittleEndian.Uint32(rest)
	rest = rest[4:]

	h := CommentHeader{Codec: codec, Vendor: string(vendor)}
	for i := uint32(0); i < count; i++ {
		var field []byte
		field, rest, err = readLenPrefixed(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: comment %d: %v", ErrMalformedHeader, i, err)
		}
		key, value, ok := bytes.Cut(field, []byte{comments.Separator})
		if !ok {
			return nil, fmt.Errorf("%w: comment %d lacks %q", ErrMalformedHeader, i, string(comments.Separator))
		}
		if err := h.Comments.Append(string(key), string(value)); err != nil {
			return nil, fmt.Errorf("%w: comment %d: %v", ErrMalformedHeader, i, err)
		}
	}

	if codec == CodecVorbis {
		if len(rest) == 0 || rest[0]&1 == 0 {
			return nil, fmt.Errorf("%w: vorbis framing bit missing", ErrMalformedHeader)
		}
	}
	if len(rest) > 0 {
		h.Suffix = append([]byte(nil), rest...)
	}
	return &h, nil
}

func (h *CommentHeader) MarshalBinary() ([]byte, error) {
	var b bytes.Buffer
	b.Write(commentMagic(h.Codec))
	writeLenPrefixed(&b, []byte(h.Vendor))

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(h.Comments.Len()))
	b.Write(count[:])

	for key, value := range h.Comments.All() {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(key)+1+len(value)))
		b.Write(n[:])
		b.WriteString(key)
		b.WriteByte(comments.Separator)
		b.WriteString(value)
	}
	b.Write(h.Suffix)
	return b.Bytes(), nil
}

func (h *CommentHeader) Clone() *CommentHeader {
	c := CommentHeader{Codec: h.Codec, Vendor: h.Vendor, Comments: *h.Comments.Clone()}
	if h.Suffix != nil {
		c.Suffix = append([]byte(nil), h.Suffix...)
	}
	return &c
}

// GainTag reads the named R128 tag, if present.
func (h *CommentHeader) GainTag(name string) (Gain, bool, error) {
	v, ok := h.Comments.GetFirst(name)
	if !ok {
		return 0, false, nil
	}
	g, err := ParseGain(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return g, true, nil
}

// SetGainTag replaces the named R128 tag with the given value.
func (h *CommentHeader) SetGainTag(name string, g Gain) error {
	return h.Comments.Replace(name, g.TagValue())
}

func commentMagic(c Codec) []byte {
	if c == CodecVorbis {
		return vorbisCommentMagic
	}
	return opusCommentMagic
}

func readLenPrefixed(data []byte) (field, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("truncated length field")
	}
	n := binary.LittleEndian.Uint32(data)
	data = data[4:]
	if uint64(n) > uint64(len(data)) {
		return nil, nil, fmt.Errorf("length %d overruns buffer", n)
	}
	return data[:n], data[n:], nil
}

func writeLenPrefixed(b *bytes.Buffer, field []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(field)))
	b.Write(n[:])
	b.Write(field)
}
