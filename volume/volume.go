// Package volume measures the loudness of Ogg Opus streams by decoding
// them and feeding the PCM through the BS.1770 meter.
package volume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/thesyncim/gopus"

	"github.com/ogain/oggain/header"
	"github.com/ogain/oggain/loudness"
	"github.com/ogain/oggain/ogg"
)

var (
	ErrDecode              = errors.New("opus decode failed")
	ErrNotOpus             = errors.New("no opus stream found")
	ErrUnsupportedChannels = errors.New("unsupported channel count")
	ErrMissingHeaders      = errors.New("stream ended before both headers were seen")
)

// Opus packets are at most 120 ms, 5760 samples per channel at 48 kHz.
const maxFrameSamples = 5760

type analyzerState int

const (
	stateAwaitingHeader analyzerState = iota
	stateAwaitingComments
	stateAnalyzing
)

// Analyzer accumulates loudness over one or more Opus streams submitted
// packet by packet. Each stream runs through the usual header sequence
// before audio; FileComplete closes out the current stream and folds its
// windows into the running concatenation used for album loudness.
// An Analyzer is not safe for concurrent use.
type Analyzer struct {
	state    analyzerState
	dec      *gopus.Decoder
	channels int
	preSkip  int
	meters   []*loudness.ChannelMeter
	pcm      []float32
	scratch  []float32

	trackLUFS []float64
	windows   []float64
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Submit feeds the next packet of the current stream. The caller is
// responsible for filtering to a single logical stream.
func (a *Analyzer) Submit(p *ogg.Packet) error {
	switch a.state {
	case stateAwaitingHeader:
		id, err := header.ParseOpusID(p.Data)
		if err != nil {
			return err
		}
		if id.Channels() > 2 {
			return fmt.Errorf("%w: %d", ErrUnsupportedChannels, id.Channels())
		}
		dec, err := gopus.NewDecoder(gopus.DefaultDecoderConfig(header.DecodeSampleRate, id.Channels()))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		a.dec = dec
		a.channels = id.Channels()
		a.preSkip = id.PreSkip()
		a.meters = make([]*loudness.ChannelMeter, a.channels)
		for i := range a.meters {
			a.meters[i] = loudness.NewChannelMeter(header.DecodeSampleRate)
		}
		a.pcm = make([]float32, maxFrameSamples*a.channels)
		a.scratch = make([]float32, maxFrameSamples)
		a.state = stateAwaitingComments
		return nil

	case stateAwaitingComments:
		if _, err := header.ParseCommentHeader(p.Data, header.CodecOpus); err != nil {
			return err
		}
		a.state = stateAnalyzing
		return nil

	default:
		n, err := a.dec.Decode(p.Data, a.pcm)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		skip := min(a.preSkip, n)
		a.preSkip -= skip
		if skip == n {
			return nil
		}
		for ch := range a.channels {
			out := a.scratch[:0]
			for i := skip; i < n; i++ {
				out = append(out, a.pcm[i*a.channels+ch])
			}
			a.meters[ch].Push(out)
		}
		return nil
	}
}

// FileComplete ends the current stream: its gated loudness is recorded
// and its windows join the album concatenation, then the analyzer resets
// for the next stream.
func (a *Analyzer) FileComplete() error {
	if a.state != stateAnalyzing {
		return ErrMissingHeaders
	}
	perChannel := make([][]float64, a.channels)
	for i, m := range a.meters {
		perChannel[i] = m.Windows()
	}
	combined := loudness.Combine(perChannel)
	a.trackLUFS = append(a.trackLUFS, gatedOrZero(combined))
	a.windows = append(a.windows, combined...)

	a.state = stateAwaitingHeader
	a.dec = nil
	a.meters = nil
	return nil
}

// TrackLUFS returns the loudness of each completed stream, in order.
func (a *Analyzer) TrackLUFS() []float64 {
	return a.trackLUFS
}

// AlbumLUFS gates the concatenated windows of every completed stream.
func (a *Analyzer) AlbumLUFS() float64 {
	return gatedOrZero(a.windows)
}

// Windows exposes the combined gating windows for cross-analyzer album
// aggregation.
func (a *Analyzer) Windows() []float64 {
	return a.windows
}

// AlbumLUFSAcross gates the concatenation of several analyzers' windows,
// for when each file was analyzed by its own Analyzer.
func AlbumLUFSAcross(analyzers []*Analyzer) float64 {
	var all []float64
	for _, a := range analyzers {
		all = append(all, a.windows...)
	}
	return gatedOrZero(all)
}

// Near-silent input gates to nothing; report it as 0 LUFS rather than
// letting a -inf measurement produce an absurd gain.
func gatedOrZero(windows []float64) float64 {
	l := loudness.Gated(windows)
	if math.IsNaN(l) {
		return 0
	}
	return l
}

// AnalyzeFile decodes one Opus file into the analyzer. Secondary logical
// streams are skipped; the context is checked between packets.
func AnalyzeFile(ctx context.Context, path string, a *Analyzer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr := ogg.NewPacketReader(f)
	var serial uint32
	var haveSerial bool
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := pr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if !haveSerial {
			if c, ok := header.Sniff(p.Data); !ok || c != header.CodecOpus {
				continue
			}
			serial, haveSerial = p.Serial, true
		}
		if p.Serial != serial {
			continue
		}
		if err := a.Submit(p); err != nil {
			return err
		}
	}
	if !haveSerial {
		return ErrNotOpus
	}
	return a.FileComplete()
}
