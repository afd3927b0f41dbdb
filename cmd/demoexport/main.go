// Command demoexport turns a CS:GO demo into a statistics workbook.
//
//	demoexport -demo match.dem [-out report.xlsx] [-force] [-source faceit]
//	demoexport -batch demos/ [-out reports/] [-format csv]
//	demoexport -cache-list
//	demoexport -cache-delete <identity>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"demoreport/internal/app"
	"demoreport/internal/config"
	"demoreport/internal/demo"
	apperrors "demoreport/internal/errors"
	"demoreport/internal/infrastructure"
	"demoreport/pkg/contracts"
	"demoreport/pkg/contracts/domain"
)

type flags struct {
	demo        string
	out         string
	format      string
	source      string
	configFile  string
	batch       string
	cacheDelete string
	cacheList   bool
	force       bool
	version     bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("demoexport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.demo, "demo", "", "demo file to export")
	fs.StringVar(&f.out, "out", "", "output file (xlsx) or directory (csv, batch); defaults to the reports directory")
	fs.StringVar(&f.format, "format", "", "report format: xlsx or csv (defaults to the configured format)")
	fs.StringVar(&f.source, "source", "", "override the demo source: valve, faceit, esea, ebot, pov, unknown")
	fs.StringVar(&f.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&f.batch, "batch", "", "export every demo in this directory")
	fs.StringVar(&f.cacheDelete, "cache-delete", "", "delete the cache entry for a match identity")
	fs.BoolVar(&f.cacheList, "cache-list", false, "list cached match identities")
	fs.BoolVar(&f.force, "force", false, "analyze even when the match is cached")
	fs.BoolVar(&f.version, "version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.version {
		return f, nil
	}

	modes := 0
	for _, set := range []bool{f.demo != "", f.batch != "", f.cacheList, f.cacheDelete != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return nil, apperrors.NewAppValidationError("exactly one of -demo, -batch, -cache-list or -cache-delete is required", nil)
	}
	if f.source != "" {
		if _, ok := demo.ParseSource(f.source); !ok {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown source %q", f.source), nil)
		}
	}
	return f, nil
}

func main() {
	// .env is optional; real environment variables win
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	if f.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.Load(f.configFile)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	paths, err := config.GetPaths(cfg)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return runWith(ctx, f, cfg, paths, stdout, stderr)
}

func runWith(ctx context.Context, f *flags, cfg *config.Config, paths *config.Paths, stdout, stderr io.Writer, opts ...app.Option) int {
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = paths.LogFile
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	paths.LogPathResolution(logger)

	a, err := app.NewApplication(ctx, cfg, paths, logger, opts...)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("application_close_failed", slog.String("error", err.Error()))
		}
	}()

	switch {
	case f.cacheList:
		ids, err := a.CacheList(ctx)
		if err != nil {
			fmt.Fprintln(stderr, "error:", apperrors.UserMessage(err))
			return app.ExitCode(err)
		}
		for _, id := range ids {
			fmt.Fprintln(stdout, id)
		}
		return 0

	case f.cacheDelete != "":
		if err := a.CacheDelete(ctx, domain.MatchIdentity(f.cacheDelete)); err != nil {
			fmt.Fprintln(stderr, "error:", apperrors.UserMessage(err))
			return app.ExitCode(err)
		}
		fmt.Fprintln(stdout, "deleted", f.cacheDelete)
		return 0

	case f.batch != "":
		summary, err := a.ExportBatch(ctx, f.batch, f.out, f.format, f.force)
		if err != nil {
			fmt.Fprintln(stderr, "error:", apperrors.UserMessage(err))
			return app.ExitCode(err)
		}
		for _, r := range summary.Reports {
			printReport(stdout, stderr, r)
		}
		fmt.Fprintf(stdout, "%d exported, %d failed, %d cancelled, %s written in %s\n",
			summary.Completed, summary.Failed, summary.Cancelled,
			humanize.Bytes(uint64(summary.Bytes)), summary.Duration.Round(time.Millisecond))
		switch {
		case summary.Cancelled > 0:
			return 130
		case summary.Failed > 0:
			return 1
		}
		return 0
	}

	var source domain.Source
	if f.source != "" {
		source, _ = demo.ParseSource(f.source)
	}
	rep := a.ExportFile(ctx, app.Request{
		DemoPath: f.demo,
		Output:   f.out,
		Format:   f.format,
		Force:    f.force,
		Source:   source,
		OnAnalyzeStart: func() {
			fmt.Fprintln(stdout, "Analyzing demo, this may take a while...")
		},
	})
	printReport(stdout, stderr, rep)
	return app.ExitCode(rep.Err)
}

func printReport(stdout, stderr io.Writer, r *app.Report) {
	for _, w := range r.Warnings {
		fmt.Fprintf(stderr, "warning: %s: %v\n", r.DemoPath, w)
	}
	if r.Err != nil {
		fmt.Fprintf(stderr, "%s: %s (%v)\n", r.DemoPath, apperrors.UserMessage(r.Err), r.Err)
		return
	}
	origin := "analyzed"
	if r.CacheHit {
		origin = "cached"
	}
	for _, p := range r.Output.Paths {
		fmt.Fprintf(stdout, "%s -> %s\n", r.DemoPath, p)
	}
	fmt.Fprintf(stdout, "match %s (%s), %s in %s\n",
		r.Identity.Short(), origin, humanize.Bytes(uint64(r.Output.Bytes)), r.Duration.Round(time.Millisecond))
}
