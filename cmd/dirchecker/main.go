package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	dirchecker "github.com/mattkeenan/dirchecker/pkg"
)

// Exit codes
const (
	exitValid   = 0
	exitInvalid = 1
	exitError   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func defineOptions() *ParsedOptions {
	options := NewParsedOptions()
	options.DefineOption("help", "h", OptionTypeBool, "false", "Show help message")
	options.DefineOption("config", "c", OptionTypeString, "", "Read settings from an ini file")
	options.DefineOption("save", "s", OptionTypeString, "", "Write the created index to FILE")
	options.DefineOption("index", "i", OptionTypeString, "", "Verify against a saved index instead of building one")
	options.DefineOption("follow-symlinks", "L", OptionTypeBool, "false", "Follow symbolic links")
	options.DefineOption("no-hidden", "H", OptionTypeBool, "false", "Skip dot files and dot directories")
	options.DefineOption("exclude", "x", OptionTypeList, "", "Exclude paths matching glob(s)")
	options.DefineOption("hash", "", OptionTypeString, "", "Hash algorithm (sha1|sha256|sha512)")
	options.DefineOption("workers", "j", OptionTypeInt, "", "Concurrent hash workers")
	options.DefineOption("fast", "", OptionTypeBool, "false", "Trust size and mtime when both are unchanged")
	options.DefineOption("strict", "", OptionTypeBool, "false", "Fail on the first unreadable entry")
	options.DefineOption("format", "", OptionTypeString, "human", "Output format (human|json)")
	options.DefineOption("verbose", "v", OptionTypeInt, "0", "Verbose output (repeat for more)")
	options.DefineOption("debug", "", OptionTypeString, "", "Debug flags (scan,hash,verify)")
	return options
}

// run executes one invocation and returns the process exit code
func run(argv []string, stdout, stderr io.Writer) int {
	options := defineOptions()
	if err := options.Parse(argv); err != nil {
		fmt.Fprintf(stderr, "dirchecker: %v\n", err)
		fmt.Fprintf(stderr, "Try 'dirchecker --help' for more information.\n")
		return exitError
	}

	if options.GetBool("help") {
		showHelp(stdout, options)
		return exitValid
	}

	args := options.GetArgs()
	if len(args) != 1 {
		fmt.Fprintf(stderr, "dirchecker: expected exactly one directory, got %d arguments\n", len(args))
		fmt.Fprintf(stderr, "Try 'dirchecker --help' for more information.\n")
		return exitError
	}
	rootDir := args[0]

	format := options.GetString("format")
	if format != "human" && format != "json" {
		fmt.Fprintf(stderr, "dirchecker: invalid format '%s', must be 'human' or 'json'\n", format)
		return exitError
	}

	checker, err := newChecker(options)
	if err != nil {
		fmt.Fprintf(stderr, "dirchecker: %v\n", err)
		return exitError
	}

	ctx, stop := signalContext(context.Background(), stderr)
	defer stop()

	report, err := check(ctx, checker, rootDir, options)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "dirchecker: interrupted\n")
		return exitError
	}
	if err != nil {
		fmt.Fprintf(stderr, "dirchecker: %v\n", err)
		return exitError
	}

	if format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "dirchecker: %v\n", err)
			return exitError
		}
	} else {
		newPrinter(stdout).printReport(report, stderr)
	}

	if !report.Valid {
		return exitInvalid
	}
	return exitValid
}

// newChecker layers command-line flags over the config file as overrides
func newChecker(options *ParsedOptions) (*dirchecker.DirectoryChecker, error) {
	cfg, err := dirchecker.LoadConfig(options.GetString("config"))
	if err != nil {
		return nil, err
	}

	var overrides []string
	if options.IsSet("follow-symlinks") {
		overrides = append(overrides, "follow_symlinks:"+strconv.FormatBool(options.GetBool("follow-symlinks")))
	}
	if options.IsSet("no-hidden") {
		overrides = append(overrides, "include_hidden:"+strconv.FormatBool(!options.GetBool("no-hidden")))
	}
	if options.IsSet("exclude") {
		overrides = append(overrides, "exclude:"+strings.Join(options.GetList("exclude"), ","))
	}
	if options.IsSet("hash") {
		overrides = append(overrides, "hash:"+options.GetString("hash"))
	}
	if options.IsSet("workers") {
		overrides = append(overrides, "hash_workers:"+options.GetString("workers"))
	}
	if options.IsSet("fast") {
		overrides = append(overrides, "force_full_hash:"+strconv.FormatBool(!options.GetBool("fast")))
	}
	if options.IsSet("strict") {
		overrides = append(overrides, "strict:"+strconv.FormatBool(options.GetBool("strict")))
	}
	if options.IsSet("verbose") {
		overrides = append(overrides, "level:"+options.GetString("verbose"))
	}
	if options.IsSet("debug") {
		overrides = append(overrides, "debug:"+options.GetString("debug"))
	}

	if err := cfg.ApplyOverrides(overrides); err != nil {
		return nil, err
	}
	dirchecker.ApplyVerboseConfig(cfg)

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return dirchecker.NewDirectoryChecker(opts)
}

// report is the outcome of one run, also the json output shape
type report struct {
	Root    string                    `json:"root"`
	Files   int                       `json:"files"`
	Bytes   uint64                    `json:"bytes"`
	Policy  dirchecker.Policy         `json:"policy"`
	Skipped []dirchecker.SkippedEntry `json:"skipped"`
	Valid   bool                      `json:"valid"`
	Diff    *dirchecker.Diff          `json:"diff"`
}

// check builds (or loads) an index for rootDir and verifies the tree against it
func check(ctx context.Context, checker *dirchecker.DirectoryChecker, rootDir string, options *ParsedOptions) (*report, error) {
	var (
		idx *dirchecker.Index
		err error
	)

	if indexPath := options.GetString("index"); indexPath != "" {
		idx, err = dirchecker.ReadIndexFile(indexPath)
	} else {
		idx, err = checker.CreateIndex(ctx, rootDir)
	}
	if err != nil {
		return nil, err
	}

	if savePath := options.GetString("save"); savePath != "" {
		if err := dirchecker.WriteIndexFile(idx, savePath); err != nil {
			return nil, err
		}
		dirchecker.VerboseLog(1, "saved index to %s", savePath)
	}

	diff, err := checker.Verify(ctx, idx, rootDir)
	if err != nil {
		return nil, err
	}

	files, size := idx.Stats()
	skipped := idx.Skipped()
	if skipped == nil {
		skipped = []dirchecker.SkippedEntry{}
	}
	return &report{
		Root:    rootDir,
		Files:   files,
		Bytes:   size,
		Policy:  idx.Policy(),
		Skipped: skipped,
		Valid:   diff.Valid(),
		Diff:    diff,
	}, nil
}

// printer renders human output, colored only when writing to a terminal
type printer struct {
	out    io.Writer
	colors map[dirchecker.FileStatus]*color.Color
	ok     *color.Color
	bad    *color.Color
}

func newPrinter(out io.Writer) *printer {
	p := &printer{
		out: out,
		colors: map[dirchecker.FileStatus]*color.Color{
			dirchecker.StatusAdded:      color.New(color.FgGreen),
			dirchecker.StatusRemoved:    color.New(color.FgRed),
			dirchecker.StatusModified:   color.New(color.FgYellow),
			dirchecker.StatusTouched:    color.New(color.FgCyan),
			dirchecker.StatusUnreadable: color.New(color.FgMagenta),
		},
		ok:  color.New(color.FgGreen, color.Bold),
		bad: color.New(color.FgRed, color.Bold),
	}

	tty := false
	if f, isFile := out.(*os.File); isFile {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	for _, c := range append([]*color.Color{p.ok, p.bad}, p.colorList()...) {
		if tty {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) colorList() []*color.Color {
	list := make([]*color.Color, 0, len(p.colors))
	for _, c := range p.colors {
		list = append(list, c)
	}
	return list
}

func (p *printer) printReport(r *report, stderr io.Writer) {
	for _, s := range r.Skipped {
		fmt.Fprintf(stderr, "dirchecker: skipped %s\n", s)
	}

	fmt.Fprintf(p.out, "index has: %d files\n", r.Files)

	if r.Valid {
		fmt.Fprintf(p.out, "valid: %s\n", p.ok.Sprint("true"))
		return
	}
	fmt.Fprintf(p.out, "valid: %s\n", p.bad.Sprint("false"))

	r.Diff.ForEach(func(status dirchecker.FileStatus, path string) {
		label := fmt.Sprintf("%-11s", status.String()+":")
		fmt.Fprintf(p.out, "  %s %s\n", p.colors[status].Sprint(label), path)
	})
}

func showHelp(w io.Writer, options *ParsedOptions) {
	fmt.Fprintf(w, "dirchecker - index a directory tree and verify it has not changed\n\n")
	fmt.Fprintf(w, "Usage: dirchecker [OPTIONS] DIR\n\n")
	fmt.Fprintf(w, "Builds an index of DIR (or loads one with --index), verifies DIR against it\n")
	fmt.Fprintf(w, "and reports whether anything was added, removed, modified or touched.\n\n")
	fmt.Fprintf(w, "Options:\n")
	options.ShowUsage(w)
	fmt.Fprintf(w, "\nExit status: 0 valid, 1 invalid, 2 error.\n\n")
	fmt.Fprintf(w, "Examples:\n")
	fmt.Fprintf(w, "  # Snapshot a tree, then check it later\n")
	fmt.Fprintf(w, "  dirchecker --save=tree.idx /srv/data\n")
	fmt.Fprintf(w, "  dirchecker --index=tree.idx /srv/data\n\n")
	fmt.Fprintf(w, "  # Skip build output and dot files\n")
	fmt.Fprintf(w, "  dirchecker --no-hidden --exclude='build/**,*.o' .\n")
}
