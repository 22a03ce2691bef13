package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/hospi-scanner/internal/scanning"
	"github.com/zombor/hospi-scanner/internal/session"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("hospi-scanner")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "", "Audit log database file path (empty disables the audit log)")
		input       = fs.StringLong("input", "-", "Decoded QR payloads, one per line: a file path, '-' for stdin, or empty to accept scans over HTTP only")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		debug       = fs.BoolLong("debug", "Enable debug logging")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("HOSPI_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	controller := session.NewController()
	controller.Subscribe(session.ObserverFunc(logSnapshot))
	controller.Subscribe(session.MetricsRecorder{})

	// Initialize audit log
	var db session.DB
	if *dbPath != "" {
		slog.Info("Initializing audit log...", "path", *dbPath)
		boltDB, err := session.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize audit log", "error", err)
			os.Exit(1)
		}
		defer boltDB.Close()
		db = boltDB
		controller.Subscribe(session.NewAuditRecorder(db))
	}

	// Initialize server
	basicAuth := session.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := session.NewServer(controller, db, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize code reader
	if *input != "" {
		reader, err := openReader(*input)
		if err != nil {
			slog.Error("Failed to open input", "input", *input, "error", err)
			os.Exit(1)
		}
		defer reader.Close()

		go func() {
			if err := session.Feed(ctx, reader, controller); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Code reader stopped", "error", err)
				return
			}
			slog.Info("Code reader finished", "input", *input)
		}()
	}

	// Wait for interrupt signal
	<-ctx.Done()

	slog.Info("Shutting down...")
	controller.Close()
}

func openReader(input string) (scanning.Reader, error) {
	if input == "-" {
		return scanning.NewLineReader(io.NopCloser(os.Stdin)), nil
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return scanning.NewLineReader(f), nil
}

func logSnapshot(s session.Snapshot) {
	attrs := []any{
		"event", s.Event,
		"state", s.State.Name(),
		"session_id", s.SessionID,
	}
	if s.FailedAttempts > 0 {
		attrs = append(attrs, "failed_attempts", s.FailedAttempts)
	}
	if s.LastError != "" {
		attrs = append(attrs, "error", s.LastError)
	}
	slog.Info("Session updated", attrs...)
}
