// Command rezervator runs the warehouse reservation service.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/erazemk/rezervator/internal/config"
)

// levelRouter is a slog.Handler that routes DEBUG/INFO/WARN to stdout and
// ERROR+ to stderr.
type levelRouter struct {
	min    slog.Level
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.min
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// newLogger builds the process logger. If cfg.File is set, all levels are
// also written to that file, rotated by size.
func newLogger(cfg config.LogConfig, stdout, stderr io.Writer) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	cleanup := func() {}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cleanup = func() { file.Close() }
		stdout = io.MultiWriter(stdout, file)
		stderr = io.MultiWriter(stderr, file)
	}

	return slog.New(&levelRouter{
		min:    level,
		stdout: slog.NewTextHandler(stdout, opts),
		stderr: slog.NewTextHandler(stderr, opts),
	}), cleanup
}

// options are the global flags. Set flags override the config file.
type options struct {
	configPath string
	database   string
	blobs      string
	logFile    string
	debug      bool
}

func (o *options) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&o.configPath, "config", "c", "", "YAML config file")
	flags.StringVarP(&o.database, "db", "d", "", "SQLite database path")
	flags.StringVar(&o.blobs, "blobs", "", "image store path")
	flags.StringVarP(&o.logFile, "log", "l", "", "log file path")
	flags.BoolVar(&o.debug, "debug", false, "debug logging")
}

func (o *options) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = o.database
	}
	if flags.Changed("blobs") {
		cfg.Blobs = o.blobs
	}
	if flags.Changed("log") {
		cfg.Log.File = o.logFile
	}
	if flags.Changed("debug") {
		cfg.Log.Debug = o.debug
	}
	return cfg, cfg.Validate()
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "rezervator",
		Short:         "Warehouse stock and reservation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.bind(cmd.PersistentFlags())

	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newConsoleCommand(opts))
	cmd.AddCommand(newDigestCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
