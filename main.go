package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gamma-omg/servicelog-mcp/docstore"
	"github.com/gamma-omg/servicelog-mcp/exporter"
	"github.com/gamma-omg/servicelog-mcp/readers"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
)

// app bundles what every command needs.
type app struct {
	cfg     *Config
	log     *slog.Logger
	store   *docstore.SQLiteStore
	service *Service
	closers []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func openApp(ctx context.Context, cmd *cli.Command) (*app, error) {
	if err := loadEnvFile(cmd.String("env")); err != nil {
		return nil, err
	}

	cfg, err := readConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.closers = append(a.closers, logFile)
		logOut = logFile
	}
	a.log = slog.New(slog.NewJSONHandler(logOut, nil))

	store, err := docstore.Open(ctx, cfg.DB)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, store)
	a.store = store

	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.service = NewService(a.log, store, &readers.UniversalFileReader{}, cfg.Labels(), loc)

	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "servicelog",
		Usage: "Service job records and reference documents over MCP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file",
				Value: "cfg/config.yaml",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Env file with SERVICELOG_* overrides",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Sync the documents folder and serve the MCP tools",
				Action: serveAction,
			},
			{
				Name:      "import",
				Usage:     "Merge a JSON file into the records",
				ArgsUsage: "<file>",
				Action:    importAction,
			},
			{
				Name:      "search",
				Usage:     "Full-text search over jobs and documents",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "facet",
						Usage: "Search a single facet instead: error-code or machine-model",
					},
				},
				Action: searchAction,
			},
			{
				Name:  "export",
				Usage: "Export records to stdout or a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "scope",
						Usage: "jobs, documents or all",
						Value: string(exporter.ScopeAll),
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "json or csv",
						Value: string(exporter.FormatJSON),
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output file. Use - for stdout, empty for the default file name",
						Value: "-",
					},
				},
				Action: exportAction,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.DocRoot != "" {
		reg := &DocRegistry{
			log:              a.log,
			root:             a.cfg.DocRoot,
			mergeEventsDelay: a.cfg.MergeEventsDelay(),
			sources:          a.store,
			docs:             a.service,
		}
		reg.RegisterReader(&readers.UniversalFileReader{})

		if err := reg.Sync(ctx); err != nil {
			return fmt.Errorf("failed to sync documents: %w", err)
		}

		if err := reg.Watch(ctx); err != nil {
			return fmt.Errorf("failed to watch documents: %w", err)
		}
	}

	srv := NewServiceLogServer(a.service)

	if a.cfg.Transport == TransportStdio {
		a.log.Info("serving over stdio")
		return server.ServeStdio(srv)
	}

	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", a.cfg.ServerAddr)))
	go func() {
		<-ctx.Done()
		_ = sse.Shutdown(context.Background())
	}()

	a.log.Info("serving over sse", "addr", a.cfg.ServerAddr)
	err = sse.Start(a.cfg.ServerAddr)
	if err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}

func importAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("import needs a file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.service.Import(ctx, data)
	if err != nil {
		return err
	}

	fmt.Printf("jobs:        %d inserted, %d updated, %d skipped\n", stats.Jobs.Inserted, stats.Jobs.Updated, stats.Jobs.Skipped)
	fmt.Printf("documents:   %d inserted, %d updated, %d skipped\n", stats.Documents.Inserted, stats.Documents.Updated, stats.Documents.Skipped)
	fmt.Printf("attachments: %d inserted, %d updated, %d skipped\n", stats.Attachments.Inserted, stats.Attachments.Updated, stats.Attachments.Skipped)

	return nil
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	q := cmd.Args().First()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	find := a.service.Search
	switch cmd.String("facet") {
	case "":
	case "error-code":
		find = a.service.SearchErrorCode
	case "machine-model":
		find = a.service.SearchMachineModel
	default:
		return fmt.Errorf("unknown facet %q", cmd.String("facet"))
	}

	res, err := find(ctx, q)
	if err != nil {
		return err
	}

	for _, r := range res {
		fmt.Printf("[%s] %s (%s)\n    %s\n", r.Kind, r.Title, r.ID, r.Snippet)
	}

	return nil
}

func exportAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	scope := exporter.Scope(cmd.String("scope"))
	format := exporter.Format(cmd.String("format"))

	out := cmd.String("out")
	if out == "-" {
		return a.service.Export(ctx, os.Stdout, scope, format)
	}
	if out == "" {
		out = a.service.ExportFilename(scope, format)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer f.Close()

	if err := a.service.Export(ctx, f, scope, format); err != nil {
		return err
	}

	fmt.Println(out)
	return nil
}
