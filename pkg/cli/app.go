package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mchmarny/raschctl/pkg/config"
	"github.com/mchmarny/raschctl/pkg/data"
	"github.com/mchmarny/raschctl/pkg/logging"
	"github.com/mchmarny/raschctl/pkg/metrics"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "raschctl"
	appConfigKey = "app-config"
)

const (
	debugFlagName     = "debug"
	logFormatFlagName = "log-format"
	dbFlagName        = "db"
	formatFlagName    = "format"
	configFlagName    = "config"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// globalFlags are created per app so parsed values never leak between runs.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  debugFlagName,
			Usage: "Prints verbose logs (optional, default: false)",
		},
		&cli.StringFlag{
			Name:  logFormatFlagName,
			Usage: "Log format [cli, text]",
			Value: logging.FormatCLI,
		},
		&cli.StringFlag{
			Name:    dbFlagName,
			Usage:   "Run store: SQLite file path or postgres:// URL (default: $HOME/.raschctl/data.db)",
			Sources: cli.EnvVars("RASCHCTL_DB"),
		},
		&cli.StringFlag{
			Name:  formatFlagName,
			Usage: "Output format [json, yaml]",
			Value: config.FormatJSON,
		},
		&cli.StringFlag{
			Name:  configFlagName,
			Usage: "Path to config file (default: $HOME/.raschctl/config.yaml)",
		},
	}
}

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false, logging.FormatCLI)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Config  *config.Config
	HomeDir string
	Metrics *metrics.Metrics

	mu    sync.Mutex
	store *data.Store
}

// openStore connects to the run store on first use.
func (a *appConfig) openStore(ctx context.Context) (*data.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		return a.store, nil
	}
	s, err := data.Open(ctx, a.Config.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	a.store = s
	return s, nil
}

func (a *appConfig) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Debug("error closing run store", "error", err)
		}
		a.store = nil
	}
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Rasch model item calibration, ability scoring and grading",
		Flags:                 globalFlags(),
		Commands: []*cli.Command{
			analyzeCmd(),
			reportCmd(),
			runsCmd(),
			serverCmd(),
			configCmd(),
		},
		Metadata: map[string]any{},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cmd.Metadata[appConfigKey] = &appConfig{Metrics: metrics.New()}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok {
				cfg.close()
			}
			return nil
		},
	}
}

// applyFlags resolves logging, config and flag overrides for the running
// command. Flags may be given before or after the command name.
func applyFlags(cmd *cli.Command) (*appConfig, error) {
	cfg := getConfig(cmd)
	initLogging(cmd.Bool(debugFlagName), cmd.String(logFormatFlagName))

	cfg.HomeDir = getHomeDir()

	var conf *config.Config
	var err error
	if p := cmd.String(configFlagName); p != "" {
		conf, err = config.Read(p)
	} else {
		conf, err = config.ReadOrCreate(cfg.HomeDir)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.IsSet(formatFlagName) {
		conf.Output.Format = normalizeFormat(cmd.String(formatFlagName))
	}
	if cmd.IsSet(dbFlagName) {
		conf.Store.DSN = cmd.String(dbFlagName)
	}
	if conf.Store.DSN == "" {
		conf.Store.DSN = filepath.Join(cfg.HomeDir, data.DataFileName)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	cfg.Config = conf
	return cfg, nil
}

func initLogging(debug bool, format string) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(logging.NewLogger(os.Stderr, format, level))
}

func getHomeDir() string {
	dir, created, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	if created {
		slog.Debug("created home dir", "path", dir)
	}
	return dir
}

func normalizeFormat(f string) string {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case config.FormatYAML, "yml":
		return config.FormatYAML
	case config.FormatJSON:
		return config.FormatJSON
	default:
		return f
	}
}

func encode(w io.Writer, format string, v any) error {
	if format == config.FormatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

// output encodes v to the app writer in the configured format.
func output(cmd *cli.Command, cfg *appConfig, v any) error {
	return encode(cmd.Root().Writer, cfg.Config.Output.Format, v)
}
