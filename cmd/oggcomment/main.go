package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ogain/oggain/cmd/internal/cmds"
	"github.com/ogain/oggain/comments"
	"github.com/ogain/oggain/fileutil"
	"github.com/ogain/oggain/rewrite"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] list    [<list options>] <path>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] modify  [<edit options>] <path>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] replace [<edit options>] <path>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Example:\n")
		fmt.Fprintf(flag.Output(), "  $ %s list song.opus\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s modify -tag TITLE=x -delete COMMENT song.opus\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s replace -tags-in - song.opus < tags.txt\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	exit := cmds.Logging()
	defer exit()
	cmds.FlagParse()

	command := flag.Arg(0)
	switch command {
	case "list", "modify", "replace":
	default:
		flag.Usage()
		slog.Error("unknown command", "command", command)
		return
	}

	subflag := flag.NewFlagSet(command, flag.ExitOnError)
	escapes := subflag.Bool("escapes", false, `encode and decode \n \r \\ \0 sequences in values`)
	dryRun := subflag.Bool("dry-run", false, "report without writing")
	outputPath := subflag.String("output", "", "write the result to this path instead of in place")
	tagsIn := subflag.String("tags-in", "", "read NAME=VALUE lines from this file, or - for stdin")
	tagsOut := subflag.String("tags-out", "", "write the listing to this file instead of stdout")
	var addArgs, deleteArgs stringList
	subflag.Var(&addArgs, "tag", "append a NAME=VALUE comment (repeatable)")
	subflag.Var(&deleteArgs, "delete", "remove comments named NAME, or only exact NAME=VALUE matches (repeatable)")
	subflag.Parse(flag.Args()[1:])

	if subflag.NArg() != 1 {
		subflag.Usage()
		slog.Error("expected exactly one path")
		return
	}
	path := subflag.Arg(0)

	var err error
	switch command {
	case "list":
		err = list(path, *tagsOut, *escapes)
	case "modify", "replace":
		err = edit(command, path, editOptions{
			escapes:    *escapes,
			dryRun:     *dryRun,
			outputPath: *outputPath,
			tagsIn:     *tagsIn,
			addArgs:    addArgs,
			deleteArgs: deleteArgs,
		})
	}
	if err != nil {
		slog.Error("running command", "command", command, "err", err)
	}
}

func list(path, tagsOut string, escapes bool) error {
	hp, err := rewrite.ReadFileHeaders(path)
	if err != nil {
		return err
	}
	write := func(w io.Writer) error {
		return hp.Comments.Comments.WriteText(w, escapes)
	}
	if tagsOut == "" {
		return write(os.Stdout)
	}
	if fileutil.LooksLikeOgg(tagsOut) {
		return fmt.Errorf("tags output %q looks like an audio file", tagsOut)
	}
	return fileutil.WriteAtomic(tagsOut, write)
}

type editOptions struct {
	escapes    bool
	dryRun     bool
	outputPath string
	tagsIn     string
	addArgs    []string
	deleteArgs []string
}

func edit(command, path string, opts editOptions) error {
	add, err := collectTags(opts)
	if err != nil {
		return err
	}

	var action rewrite.EditComments
	switch command {
	case "replace":
		if len(opts.deleteArgs) > 0 {
			return fmt.Errorf("replace discards all comments, -delete has no effect")
		}
		action = rewrite.EditComments{Replace: true, Append: add}
	default:
		keep, err := parseDeletes(opts.deleteArgs, opts.escapes)
		if err != nil {
			return err
		}
		action = rewrite.EditComments{Keep: keep, Append: add}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	outcome, err := rewrite.File(ctx, action, path, opts.outputPath, opts.dryRun)
	if err != nil {
		return err
	}
	if outcome.Changed {
		slog.Info("rewrote comment header", "path", path, "dry run", opts.dryRun)
	} else {
		slog.Info("comment header already up to date", "path", path)
	}
	return nil
}

func collectTags(opts editOptions) (*comments.List, error) {
	var add comments.List
	appendLine := func(line string) error {
		key, value, err := comments.ParseLine(line)
		if err != nil {
			return err
		}
		if opts.escapes {
			if value, err = comments.Unescape(value); err != nil {
				return err
			}
		}
		return add.Append(key, value)
	}

	for _, arg := range opts.addArgs {
		if err := appendLine(arg); err != nil {
			return nil, err
		}
	}
	if opts.tagsIn == "" {
		return &add, nil
	}

	var r io.Reader = os.Stdin
	if opts.tagsIn != "-" {
		if fileutil.LooksLikeOgg(opts.tagsIn) {
			return nil, fmt.Errorf("tags input %q looks like an audio file", opts.tagsIn)
		}
		f, err := os.Open(opts.tagsIn)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if sc.Text() == "" {
			continue
		}
		if err := appendLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &add, nil
}

func parseDeletes(args []string, escapes bool) (func(key, value string) bool, error) {
	if len(args) == 0 {
		return nil, nil
	}
	type pattern struct {
		key   string
		value *string
	}
	var patterns []pattern
	for _, arg := range args {
		key, value, found := strings.Cut(arg, string(comments.Separator))
		if err := comments.ValidateFieldName(key); err != nil {
			return nil, err
		}
		p := pattern{key: key}
		if found {
			if escapes {
				var err error
				if value, err = comments.Unescape(value); err != nil {
					return nil, err
				}
			}
			p.value = &value
		}
		patterns = append(patterns, p)
	}
	return func(key, value string) bool {
		for _, p := range patterns {
			if strings.EqualFold(p.key, key) && (p.value == nil || *p.value == value) {
				return false
			}
		}
		return true
	}, nil
}

type stringList []string

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (s *stringList) String() string {
	return strings.Join(*s, ", ")
}
