// Package oggain coordinates loudness analysis and header rewriting
// across a batch of Ogg Opus files: analysis runs in parallel, rewrites
// run one at a time in submission order, and each file gets its own
// report so one broken file never stops the rest.
package oggain

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ogain/oggain/gain"
	"github.com/ogain/oggain/header"
	"github.com/ogain/oggain/rewrite"
	"github.com/ogain/oggain/volume"
)

type Status int

const (
	StatusFailed Status = iota
	StatusUnchanged
	StatusRewritten
	StatusSkipped
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusUnchanged:
		return "unchanged"
	case StatusRewritten:
		return "rewritten"
	case StatusSkipped:
		return "skipped"
	case StatusInterrupted:
		return "interrupted"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Config struct {
	Preset gain.Preset
	Mode   gain.Mode
	Album  bool
	// Clear removes both R128 tags and leaves the header gain alone.
	Clear  bool
	DryRun bool
	// Workers bounds the parallel analysis phase. Zero means NumCPU.
	Workers int
}

// Report is the outcome for one submitted file.
type Report struct {
	Path   string
	Status Status
	Err    error

	// TrackLUFS is the measured or tag-derived source loudness, absent
	// when clearing or when analysis failed.
	TrackLUFS *float64
	Before    rewrite.GainValues
	After     *rewrite.GainValues
}

type Summary struct {
	Processed, Rewritten, Unchanged, Failed, Skipped, Interrupted int
}

func Summarize(reports []Report) Summary {
	var s Summary
	s.Processed = len(reports)
	for _, r := range reports {
		switch r.Status {
		case StatusRewritten:
			s.Rewritten++
		case StatusUnchanged:
			s.Unchanged++
		case StatusSkipped:
			s.Skipped++
		case StatusInterrupted:
			s.Interrupted++
		default:
			s.Failed++
		}
	}
	return s
}

type analysis struct {
	headers   *rewrite.HeaderPair
	trackLUFS float64
	analyzer  *volume.Analyzer
}

// Process analyzes and rewrites the given files. Analysis fans out over
// Config.Workers goroutines; rewrites then run strictly serially in the
// order the paths were given. Per-file failures are isolated in their
// reports. Once the context is cancelled no new rewrite begins and the
// remaining files report skipped.
func Process(ctx context.Context, cfg Config, paths []string) []Report {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	reports := make([]Report, len(paths))
	slots := make([]*analysis, len(paths))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		reports[i].Path = path
		g.Go(func() error {
			if ctx.Err() != nil {
				reports[i].Err = ctx.Err()
				return nil
			}
			a, err := analyze(ctx, cfg, path)
			if err != nil {
				reports[i].Err = err
				return nil
			}
			slots[i] = a
			return nil
		})
	}
	g.Wait()

	// Album loudness joins the windows of every file that analyzed
	// cleanly; failed files are already excluded by their empty slots.
	var albumLUFS *float64
	if cfg.Album && !cfg.Clear {
		var analyzers []*volume.Analyzer
		for _, a := range slots {
			if a != nil {
				analyzers = append(analyzers, a.analyzer)
			}
		}
		l := volume.AlbumLUFSAcross(analyzers)
		albumLUFS = &l
	}

	var interrupted bool
	for i := range reports {
		r := &reports[i]
		if r.Err != nil {
			r.Status = statusFor(r.Err)
			continue
		}
		if interrupted || ctx.Err() != nil {
			r.Status = StatusSkipped
			continue
		}

		a := slots[i]
		r.Before = a.headers.GainValues()

		var decision gain.Decision
		if cfg.Clear {
			out, _ := a.headers.OutputGain()
			decision = gain.Clear(gain.Source{Output: out})
		} else {
			r.TrackLUFS = &a.trackLUFS
			out, _ := a.headers.OutputGain()
			var err error
			decision, err = gain.Compute(
				gain.Config{Preset: cfg.Preset, Mode: cfg.Mode, Album: cfg.Album},
				gain.Source{Output: out, TrackLUFS: &a.trackLUFS, AlbumLUFS: albumLUFS},
			)
			if err != nil {
				r.Err = err
				r.Status = StatusFailed
				continue
			}
		}

		outcome, err := rewrite.File(ctx, rewrite.Gains{Decision: decision}, r.Path, "", cfg.DryRun)
		switch {
		case errors.Is(err, rewrite.ErrInterrupted):
			r.Status = StatusInterrupted
			interrupted = true
		case err != nil:
			r.Err = err
			r.Status = StatusFailed
		case outcome.Changed:
			r.Status = StatusRewritten
			after := outcome.After.GainValues()
			r.After = &after
		default:
			r.Status = StatusUnchanged
		}
	}
	return reports
}

func analyze(ctx context.Context, cfg Config, path string) (*analysis, error) {
	hp, err := rewrite.ReadFileHeaders(path)
	if err != nil {
		return nil, err
	}
	if hp.Codec != header.CodecOpus {
		return nil, fmt.Errorf("%w: cannot adjust gain on a %s stream", rewrite.ErrNoOutputGain, hp.Codec)
	}
	a := analysis{headers: hp}
	if cfg.Clear {
		return &a, nil
	}

	// A valid existing track tag records the source loudness, letting us
	// skip the decode. Album mode always decodes, since album gating
	// needs the underlying power windows.
	if !cfg.Album {
		if tg, ok, err := hp.Comments.GainTag(header.TagTrackGain); err == nil && ok {
			a.trackLUFS = gain.TrackLUFSFromTag(cfg.Preset, tg)
			return &a, nil
		}
	}

	an := volume.NewAnalyzer()
	if err := volume.AnalyzeFile(ctx, path, an); err != nil {
		return nil, err
	}
	a.analyzer = an
	a.trackLUFS = an.TrackLUFS()[0]
	return &a, nil
}

func statusFor(err error) Status {
	if errors.Is(err, context.Canceled) || errors.Is(err, rewrite.ErrInterrupted) {
		return StatusInterrupted
	}
	return StatusFailed
}
