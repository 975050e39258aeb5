package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/inodb/vibe-spdi/internal/duckdb"
	"github.com/inodb/vibe-spdi/internal/ncbi"
	"github.com/inodb/vibe-spdi/internal/ratelimit"
)

// newClient creates the NCBI client for a command. All lookups made by the
// command share its rate limiter.
func (a *app) newClient() (*ncbi.Client, error) {
	limiter, err := ratelimit.New(a.cfg.Rate.Calls, a.cfg.Rate.Window)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("ncbi client",
		zap.String("base_url", a.cfg.NCBI.BaseURL),
		zap.String("rate", limiter.String()),
		zap.String("assembly", a.cfg.Assembly))

	return ncbi.NewClient(
		ncbi.WithBaseURL(a.cfg.NCBI.BaseURL),
		ncbi.WithAssembly(a.cfg.Assembly),
		ncbi.WithLimiter(limiter),
		ncbi.WithTimeout(a.cfg.NCBI.Timeout),
		ncbi.WithMaxRetries(a.cfg.NCBI.MaxRetries),
		ncbi.WithRetryInterval(a.cfg.NCBI.RetryInterval),
		ncbi.WithLogger(a.logger.Named("ncbi")),
	), nil
}

// createOutput opens the output file, or stdout when path is empty.
func createOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// openExport opens a DuckDB export and records a run for the input file.
func openExport(path, command, input string) (*duckdb.Store, duckdb.Run, error) {
	fp, err := duckdb.StatFile(input)
	if err != nil {
		return nil, duckdb.Run{}, fmt.Errorf("stat input: %w", err)
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return nil, duckdb.Run{}, err
	}
	run := duckdb.NewRun(command, fp)
	if err := store.BeginRun(run); err != nil {
		store.Close()
		return nil, duckdb.Run{}, err
	}
	return store, run, nil
}
