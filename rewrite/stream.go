package rewrite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ogain/oggain/header"
	"github.com/ogain/oggain/ogg"
)

// Outcome reports what a rewrite did. After is nil when the action left
// the serialized headers byte-identical.
type Outcome struct {
	Changed bool
	Before  *HeaderPair
	After   *HeaderPair
}

type streamPhase int

const (
	phaseAwaitTarget streamPhase = iota
	phaseAwaitComments
	phaseCopying
)

// Stream applies the action to the first recognized logical stream in r
// and writes the result to w. Every other packet passes through with its
// payload bytes intact. With abortOnUnchanged set, an action that leaves
// both headers byte-identical stops the rewrite early and the Outcome
// has Changed false. Cancellation is checked between page writes.
func Stream(ctx context.Context, action Action, r io.Reader, w io.Writer, abortOnUnchanged bool) (*Outcome, error) {
	pr := ogg.NewPacketReader(r)
	pw := ogg.NewPacketWriter(w)

	var (
		phase    streamPhase
		serial   uint32
		idPacket *ogg.Packet
		outcome  *Outcome
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		p, err := pr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch {
		case phase == phaseAwaitTarget:
			if _, ok := header.Sniff(p.Data); ok {
				serial, idPacket = p.Serial, p
				phase = phaseAwaitComments
				continue
			}
			if err := pw.WritePacket(p); err != nil {
				return nil, err
			}

		case phase == phaseAwaitComments && p.Serial == serial:
			var idOut, commentsOut []byte
			outcome, idOut, commentsOut, err = replaceHeaders(action, idPacket.Data, p.Data)
			if err != nil {
				return nil, err
			}
			if !outcome.Changed && abortOnUnchanged {
				return outcome, nil
			}
			id := *idPacket
			id.Data = idOut
			id.EndPage = true
			if err := pw.WritePacket(&id); err != nil {
				return nil, err
			}
			cm := *p
			cm.Data = commentsOut
			cm.EndPage = true
			if err := pw.WritePacket(&cm); err != nil {
				return nil, err
			}
			phase = phaseCopying

		default:
			if err := pw.WritePacket(p); err != nil {
				return nil, err
			}
		}
	}

	switch phase {
	case phaseAwaitTarget:
		return nil, ErrMissingStream
	case phaseAwaitComments:
		return nil, ErrMissingHeaders
	}
	if err := pw.Close(); err != nil {
		return nil, err
	}
	return outcome, nil
}

func replaceHeaders(action Action, idData, commentData []byte) (*Outcome, []byte, []byte, error) {
	before, err := parsePair(idData, commentData)
	if err != nil {
		return nil, nil, nil, err
	}
	// A second parse gives the action a private copy to mutate.
	after, err := parsePair(idData, commentData)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := action.Apply(after); err != nil {
		return nil, nil, nil, err
	}

	afterID, err := after.idBytes()
	if err != nil {
		return nil, nil, nil, err
	}
	afterComments, err := after.Comments.MarshalBinary()
	if err != nil {
		return nil, nil, nil, err
	}

	outcome := Outcome{Before: before}
	if bytes.Equal(afterID, idData) && bytes.Equal(afterComments, commentData) {
		// Unchanged: the caller re-emits the original bytes if it keeps
		// going.
		return &outcome, idData, commentData, nil
	}
	outcome.Changed = true
	outcome.After = after
	return &outcome, afterID, afterComments, nil
}

func parsePair(idData, commentData []byte) (*HeaderPair, error) {
	codec, ok := header.Sniff(idData)
	if !ok {
		return nil, ErrMissingStream
	}
	hp := HeaderPair{Codec: codec}
	var err error
	switch codec {
	case header.CodecVorbis:
		hp.VorbisID, err = header.ParseVorbisID(idData)
	default:
		hp.OpusID, err = header.ParseOpusID(idData)
	}
	if err != nil {
		return nil, err
	}
	hp.Comments, err = header.ParseCommentHeader(commentData, codec)
	if err != nil {
		return nil, err
	}
	return &hp, nil
}

// ReadHeaders parses the headers of the first recognized stream without
// rewriting anything.
func ReadHeaders(r io.Reader) (*HeaderPair, error) {
	pr := ogg.NewPacketReader(r)
	var (
		serial   uint32
		idPacket *ogg.Packet
	)
	for {
		p, err := pr.Next()
		if errors.Is(err, io.EOF) {
			if idPacket == nil {
				return nil, ErrMissingStream
			}
			return nil, ErrMissingHeaders
		}
		if err != nil {
			return nil, err
		}
		if idPacket == nil {
			if _, ok := header.Sniff(p.Data); ok {
				serial, idPacket = p.Serial, p
			}
			continue
		}
		if p.Serial != serial {
			continue
		}
		return parsePair(idPacket.Data, p.Data)
	}
}
