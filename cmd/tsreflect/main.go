package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/tsreflect/tsreflect/internal/compiler"
	"github.com/tsreflect/tsreflect/internal/config"
	"github.com/tsreflect/tsreflect/internal/diagnostic"
	"github.com/tsreflect/tsreflect/internal/pipeline"
)

type CLI struct {
	Globals

	Build   BuildCmd   `cmd:"" default:"withargs" help:"Rewrite markers and emit the project (default)."`
	Dump    DumpCmd    `cmd:"" help:"Print the type description of every marker as JSON."`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild on every source change."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

// Globals are the flags shared by every command.
type Globals struct {
	LogLevel slog.Level `name:"log-level" help:"Log level: debug, info, warn or error." default:"warn" env:"TSREFLECT_LOG_LEVEL"`
	Config   string     `help:"Path to the tsreflect config file." env:"TSREFLECT_CONFIG" placeholder:"PATH"`
	Project  string     `short:"p" help:"Path to tsconfig.json." default:"tsconfig.json" placeholder:"PATH"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

func main() {
	// .env values must be in the environment before kong reads env tags.
	loadDotenv(os.Stderr, ".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &CLI{Globals: Globals{Stdout: os.Stdout, Stderr: os.Stderr}}
	k := kong.Parse(cli,
		kong.Name("tsreflect"),
		kong.Description("Replaces $schema<T>() markers in TypeScript sources with the JSON description of T."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := k.Run(&cli.Globals)
	k.FatalIfErrorf(err)
}

// loadDotenv loads the given env file. A missing file is not an error; a
// file that cannot be read or parsed is reported on w and startup goes on.
func loadDotenv(w io.Writer, path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "warning: loading %s: %v\n", path, err)
	}
}

// session is the state every command derives from the globals.
type session struct {
	cwd     string
	cfg     *config.Config
	cfgPath string
	log     *slog.Logger
}

func (g *Globals) open() (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("could not get working directory: %w", err)
	}
	cfg, cfgPath, err := loadOrDiscoverConfig(g.Config, cwd)
	if err != nil {
		return nil, err
	}
	log := g.logger()
	if cfgPath != "" {
		log.Debug("loaded config", "path", cfgPath)
	}
	return &session{cwd: cwd, cfg: cfg, cfgPath: cfgPath, log: log}, nil
}

func (g *Globals) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(g.Stderr, &slog.HandlerOptions{Level: g.LogLevel}))
}

// loadOrDiscoverConfig loads the config at configPath, or discovers one in
// cwd when configPath is empty. Without a config file the defaults apply and
// the returned path is "".
func loadOrDiscoverConfig(configPath, cwd string) (*config.Config, string, error) {
	if configPath != "" {
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(cwd, configPath)
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, "", err
		}
		return cfg, configPath, nil
	}

	found, err := config.Discover(cwd)
	if err != nil {
		return nil, "", err
	}
	if found == "" {
		cfg := config.DefaultConfig()
		return &cfg, "", nil
	}
	cfg, err := config.Load(found)
	if err != nil {
		return nil, "", err
	}
	return cfg, found, nil
}

// collector creates the diagnostics collector for one build and records the
// config's own findings in it. Invalid configs are printed to w.
func (s *session) collector(w io.Writer, strict, quiet bool) (*diagnostic.Collector, error) {
	c := diagnostic.NewCollector(strict || s.cfg.Strict, quiet)
	result := s.cfg.ValidateDetailed()
	result.Report(c, s.cfgPath)
	if !result.IsValid() {
		c.WriteTo(w)
		return nil, fmt.Errorf("invalid config: %s", c.Summary())
	}
	return c, nil
}

func (s *session) request(g *Globals, c *diagnostic.Collector) pipeline.Request {
	return pipeline.Request{
		Dir:         s.cwd,
		Project:     g.Project,
		Config:      s.cfg,
		ConfigPath:  s.cfgPath,
		Diagnostics: c,
		Logger:      s.log,
		Progress:    g.Stderr,
	}
}

// reportTypeErrors prints TypeScript diagnostics the way tsc does.
func reportTypeErrors(w io.Writer, cwd string, report *pipeline.Report) {
	if len(report.TSDiagnostics) == 0 {
		return
	}
	compiler.NewReporter(w, cwd, compiler.IsPrettyOutput()).ReportAll(report.TSDiagnostics)
}
