// Command carenotes runs the care documentation pipeline: ingest .eml files
// into SQLite, extract canonical records per detected template, write the
// report set, or serve the operational API.
//
// Usage:
//
//	carenotes [-config carenotes.yaml] ingest [dir]
//	carenotes [-config carenotes.yaml] extract
//	carenotes [-config carenotes.yaml] report
//	carenotes [-config carenotes.yaml] serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/carenotes/api"
	"github.com/hazyhaar/carenotes/dbopen"
	"github.com/hazyhaar/carenotes/ingest"
	"github.com/hazyhaar/carenotes/mailfile"
	"github.com/hazyhaar/carenotes/pipeline"
	"github.com/hazyhaar/carenotes/report"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Usage = usage
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	verb := flag.Arg(0)

	db, err := dbopen.Open(cfg.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(ingest.Schema))
	if err != nil {
		slog.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := pipeline.NewStore(db)
	if err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}

	switch verb {
	case "ingest":
		dir := cfg.InboxDir
		if flag.NArg() > 1 {
			dir = flag.Arg(1)
		}
		in, err := ingest.New(db, cfg.RawDir, cfg.AttachmentsDir)
		if err != nil {
			slog.Error("ingest", "error", err)
			os.Exit(1)
		}
		n, err := in.IngestDir(dir)
		if err != nil {
			slog.Error("ingest", "dir", dir, "error", err)
			os.Exit(1)
		}
		slog.Info("ingest complete", "dir", dir, "stored", n)

	case "extract":
		p := pipeline.New(store, pipeline.LoaderFunc(mailfile.Load))
		n, err := p.ProcessAll(cfg.BatchLimit)
		if err != nil {
			slog.Error("extract", "error", err)
			os.Exit(1)
		}
		slog.Info("extract complete", "attempted", n)

	case "report":
		if err := report.Run(db, cfg.ReportsDir); err != nil {
			slog.Error("report", "error", err)
			os.Exit(1)
		}
		slog.Info("reports written", "dir", cfg.ReportsDir)

	case "serve":
		srv := &http.Server{
			Addr:         cfg.Listen,
			Handler:      api.New(db),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
		slog.Info("api listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("serve", "error", err)
			os.Exit(1)
		}

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: carenotes [-config file] <verb>

verbs:
  ingest [dir]   ingest .eml files from dir (default: configured inbox)
  extract        process ingested messages without a status row
  report         write the CSV and xlsx report set
  serve          run the read-only operational API
`)
	flag.PrintDefaults()
}
