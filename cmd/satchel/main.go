package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jask/satchel/internal/catalog"
	"github.com/jask/satchel/internal/config"
	"github.com/jask/satchel/internal/database"
	"github.com/jask/satchel/internal/document"
	"github.com/jask/satchel/internal/levels"
	"github.com/jask/satchel/internal/logging"
	"github.com/jask/satchel/internal/tui"
)

func main() {
	ctx := context.Background()

	configPath := flag.String("config", "", "path to config.toml")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] <document>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	key := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closer, err := logging.Open(cfg.Log)
	if err != nil {
		log.Fatalf("log: %v", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if wrote, err := config.WriteDefault(cfg, *configPath); err != nil {
		logger.Warn("write default config", "err", err)
	} else if wrote {
		logger.Info("wrote default config", "path", config.Path(*configPath))
	}

	cat, err := catalog.LoadDir(cfg.Catalog.Dir, logger)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	backend, done, err := openBackend(cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer done.Close()

	reg := prometheus.NewRegistry()
	adapter := document.NewAdapter(backend, key, cat,
		document.WithLogger(logger),
		document.WithMetrics(document.NewMetrics(reg)),
	)
	sync := levels.New(adapter.Load(ctx), adapter, logger)

	p := tea.NewProgram(tui.New(sync, cat, key), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
	document.LogSummary(logger, reg)
}

func openBackend(cfg config.StorageConfig) (document.Backend, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		db, err := database.OpenMigrated(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return document.NewSQLiteBackend(db), db, nil
	default:
		b, err := document.NewFileBackend(cfg.Root)
		if err != nil {
			return nil, nil, err
		}
		return b, nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
