// Package testcmds has the fixture and inspection commands the script
// tests run alongside the real binaries.
package testcmds

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ogain/oggain/header"
	"github.com/ogain/oggain/ogg"
	"github.com/ogain/oggain/rewrite"
)

// MkOpus writes a minimal Ogg Opus file: identification and comment
// headers, no audio packets. With nothing to gate the file measures
// 0 LUFS, which keeps analysis runnable in scripts.
//
//	mk-opus [-gain N] [-tag NAME=VALUE]... <path>
func MkOpus() {
	fl := flag.NewFlagSet("mk-opus", flag.ExitOnError)
	outputGain := fl.Int("gain", 0, "header output gain, raw Q7.8 units")
	var tags stringsFlag
	fl.Var(&tags, "tag", "NAME=VALUE comment (repeatable)")
	fl.Parse(os.Args[1:])
	if fl.NArg() != 1 {
		log.Fatal("mk-opus: expected exactly one path")
	}

	id := []byte("OpusHead")
	id = append(id, 1, 2)
	id = binary.LittleEndian.AppendUint16(id, 312)
	id = binary.LittleEndian.AppendUint32(id, 48000)
	id = binary.LittleEndian.AppendUint16(id, uint16(int16(*outputGain)))
	id = append(id, 0)

	h := header.NewCommentHeader(header.CodecOpus, "test vendor")
	for _, kv := range tags {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			log.Fatalf("mk-opus: bad tag %q", kv)
		}
		if err := h.Comments.Append(name, value); err != nil {
			log.Fatalf("mk-opus: append tag: %v", err)
		}
	}
	tagData, err := h.MarshalBinary()
	if err != nil {
		log.Fatalf("mk-opus: marshal comment header: %v", err)
	}

	var buf bytes.Buffer
	pw := ogg.NewPacketWriter(&buf)
	for _, p := range []*ogg.Packet{
		{Serial: 11, Data: id, EndPage: true},
		{Serial: 11, Data: tagData, EOS: true},
	} {
		if err := pw.WritePacket(p); err != nil {
			log.Fatalf("mk-opus: write packet: %v", err)
		}
	}
	if err := os.WriteFile(fl.Arg(0), buf.Bytes(), 0o644); err != nil {
		log.Fatalf("mk-opus: %v", err)
	}
}

// Gains prints a file's header output gain and R128 tags on one line in
// raw Q7.8 units, "-" for an absent tag.
//
//	gains <path>
func Gains() {
	fl := flag.NewFlagSet("gains", flag.ExitOnError)
	fl.Parse(os.Args[1:])
	if fl.NArg() != 1 {
		log.Fatal("gains: expected exactly one path")
	}

	hp, err := rewrite.ReadFileHeaders(fl.Arg(0))
	if err != nil {
		log.Fatalf("gains: %v", err)
	}
	gv := hp.GainValues()
	fmt.Printf("output=%s track=%s album=%s\n",
		gv.Output.TagValue(), tagOrDash(gv.TrackTag), tagOrDash(gv.AlbumTag))
}

func tagOrDash(g *header.Gain) string {
	if g == nil {
		return "-"
	}
	return g.TagValue()
}

type stringsFlag []string

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (s *stringsFlag) String() string {
	return strings.Join(*s, ", ")
}
