package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/mitsuha/setforge/internal"
	"github.com/mitsuha/setforge/internal/builder"
	"github.com/mitsuha/setforge/internal/index"
	"github.com/mitsuha/setforge/internal/mcpserver"
	"github.com/mitsuha/setforge/internal/setservice"
	"github.com/mitsuha/setforge/internal/storage"
	pkgconfig "github.com/mitsuha/setforge/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := os.Stat(configPath); os.IsNotExist(err) && !cmd.IsSet("config") {
		// No config file; defaults are enough for local use.
		return cfg, cfg.Validate()
	}
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runMCP serves the MCP tools over stdio. Logs go to stderr so they do
// not corrupt the protocol stream on stdout.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := setservice.NewService(builder.New(logger), cfg.Export.Dir, logger)

	return mcpserver.New(store, db, svc).ServeStdio()
}

// runBuild assembles a .osz from the difficulty files given as arguments
// in a single shot, without starting any server.
func runBuild(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("at least one .osu file is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := setservice.NewService(builder.New(logger), ".", logger)

	for _, p := range paths {
		if _, err := svc.AddDifficulty(ctx, p); err != nil {
			return fmt.Errorf("add %s: %w", p, err)
		}
	}

	if cmd.Bool("renumber") {
		svc.Renumber(ctx)
	}

	meta := svc.Snapshot(ctx).Meta
	applyFlag(cmd, "title", &meta.Title)
	applyFlag(cmd, "artist", &meta.Artist)
	applyFlag(cmd, "creator", &meta.Creator)
	applyFlag(cmd, "source", &meta.Source)
	applyFlag(cmd, "tags", &meta.Tags)
	svc.SetMetadata(ctx, meta)

	if bg := cmd.String("background"); bg != "" {
		if err := svc.SetBackground(ctx, bg); err != nil {
			return err
		}
	}
	if cmd.IsSet("preview") {
		ms := int(cmd.Int("preview"))
		if err := svc.SetPreview(ctx, &ms); err != nil {
			return err
		}
	}

	res, err := svc.Export(ctx, cmd.String("out"))
	if err != nil {
		return err
	}

	fmt.Println(res.Path)
	for _, f := range res.Files {
		fmt.Printf("  %s\n", f)
	}
	return nil
}

func applyFlag(cmd *cli.Command, name string, dst *string) {
	if cmd.IsSet(name) {
		*dst = cmd.String(name)
	}
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "setforge",
		Usage: "Assemble osu! beatmap sets (.osz) from .osu difficulty files",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the REST API server with library indexing and SSE",
				Action: runServe,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:      "build",
				Usage:     "Build a .osz archive from .osu files in one shot",
				ArgsUsage: "<file.osu> [file.osu ...]",
				Action:    runBuild,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Override set title"},
					&cli.StringFlag{Name: "artist", Usage: "Override set artist"},
					&cli.StringFlag{Name: "creator", Usage: "Override set creator"},
					&cli.StringFlag{Name: "source", Usage: "Override set source"},
					&cli.StringFlag{Name: "tags", Usage: "Override set tags"},
					&cli.StringFlag{Name: "background", Aliases: []string{"b"}, Usage: "Background image (png, jpg, jpeg)"},
					&cli.IntFlag{Name: "preview", Usage: "Preview time in milliseconds"},
					&cli.BoolFlag{Name: "renumber", Usage: "Rename difficulties to 1, 2, 3, ..."},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output .osz path (default: 'Artist - Title.osz')"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio for LLM integration",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
