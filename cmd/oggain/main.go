package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"go.senan.xyz/table/table"

	"github.com/ogain/oggain"
	"github.com/ogain/oggain/cmd/internal/cmds"
	"github.com/ogain/oggain/gain"
	"github.com/ogain/oggain/header"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] <path>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Rewrite the output gain and R128 tags of ogg opus files.\n")
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Presets:\n")
		fmt.Fprintf(flag.Output(), "  rg         normalize playback to -18 LUFS\n")
		fmt.Fprintf(flag.Output(), "  r128       normalize playback to -23 LUFS\n")
		fmt.Fprintf(flag.Output(), "  original   restore a header gain of zero\n")
		fmt.Fprintf(flag.Output(), "  no-change  keep the header gain, refresh tags\n")
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	exit := cmds.Logging()
	defer exit()
	var (
		presetName = flag.String("preset", "rg", "normalization preset (original, rg, r128, no-change)")
		modeName   = flag.String("output-gain-mode", "auto", "which gain the header follows (auto, track)")
		album      = flag.Bool("album", false, "measure album loudness over all files and write album tags")
		clearTags  = flag.Bool("clear", false, "remove R128 tags and leave the header gain alone")
		dryRun     = flag.Bool("dry-run", false, "report what would change without writing")
		numWorkers = flag.Int("workers", runtime.NumCPU(), "parallel analysis workers")
	)
	cmds.FlagParse()

	preset, err := gain.ParsePreset(*presetName)
	if err != nil {
		slog.Error("parsing preset", "err", err)
		return
	}
	mode, err := gain.ParseMode(*modeName)
	if err != nil {
		slog.Error("parsing output gain mode", "err", err)
		return
	}
	if *clearTags {
		*album = false
	}

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		slog.Error("no files provided")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reports := oggain.Process(ctx, oggain.Config{
		Preset:  preset,
		Mode:    mode,
		Album:   *album,
		Clear:   *clearTags,
		DryRun:  *dryRun,
		Workers: *numWorkers,
	}, paths)

	t := table.NewStringWriter()
	fmt.Fprintf(t, "file\tstatus\tloudness\toutput\ttrack\talbum\n")
	for _, r := range reports {
		if r.Err != nil {
			slog.Error("processing file", "path", r.Path, "err", r.Err)
		}
		gv := r.Before
		if r.After != nil {
			gv = *r.After
		}
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Path, r.Status, fmtLUFS(r.TrackLUFS),
			gv.Output, fmtGain(gv.TrackTag), fmtGain(gv.AlbumTag))
	}
	fmt.Println(strings.TrimRight(t.String(), "\n"))

	s := oggain.Summarize(reports)
	slog.Info("done",
		"processed", s.Processed, "rewritten", s.Rewritten,
		"already normalized", s.Unchanged, "failed", s.Failed)
	if s.Interrupted+s.Skipped > 0 {
		slog.Error("interrupted before all files were processed",
			"interrupted", s.Interrupted, "skipped", s.Skipped)
	}
}

func fmtGain(g *header.Gain) string {
	if g == nil {
		return "-"
	}
	return g.String()
}

func fmtLUFS(l *float64) string {
	if l == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f LUFS", *l)
}
