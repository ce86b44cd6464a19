package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dracory/weesql"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Condition flags shared by count and select
	whereClause string
	whereArgs   []string
	rowID       string

	// Serve flags
	port     int
	basePath string
	safeMode bool
	readOnly bool
	adhoc    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "weesql",
	Short: "weesql - SQL action dispatcher",
	Long: `weesql runs SQL actions (query, add, edit, delete, select, count, next, ...)
against a MySQL compatible database, either over HTTP or one at a time from the
command line. The default connection comes from DB_* environment variables,
a .env file, or a YAML file given with --config.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the action endpoint over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var countCmd = &cobra.Command{
	Use:   "count <table>",
	Short: "Count the rows of a table matching a condition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *weesql.Dispatcher) error {
			n, err := d.Count(ctx, args[0], condition())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"count": n})
		})
	},
}

var selectCmd = &cobra.Command{
	Use:   "select <table> [fields]",
	Short: "Fetch one row, or one field of it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := ""
		if len(args) == 2 {
			fields = args[1]
		}
		return withDispatcher(cmd, func(ctx context.Context, d *weesql.Dispatcher) error {
			res, err := d.Select(ctx, args[0], fields, condition())
			if err != nil {
				return err
			}
			if !res.Found {
				return printJSON(cmd, nil)
			}
			if res.Value != nil {
				return printJSON(cmd, res.Value)
			}
			return printJSON(cmd, res.Row)
		})
	},
}

var nextCmd = &cobra.Command{
	Use:   "next <table>",
	Short: "Show the next auto-increment value of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *weesql.Dispatcher) error {
			n, err := d.Next(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"next": n})
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	serveCmd.Flags().IntVar(&port, "port", 0, "HTTP port to listen on (default from HTTP_PORT)")
	serveCmd.Flags().StringVar(&basePath, "base", "", "Base path to mount handler under (e.g. /db)")
	serveCmd.Flags().BoolVar(&safeMode, "safe", true, "Require confirm=yes for edit and delete")
	serveCmd.Flags().BoolVar(&readOnly, "readonly", false, "Reject add, edit and delete")
	serveCmd.Flags().BoolVar(&adhoc, "adhoc", false, "Allow clients to open their own connection")

	for _, c := range []*cobra.Command{countCmd, selectCmd} {
		c.Flags().StringVar(&whereClause, "where", "", "Condition clause with ? placeholders")
		c.Flags().StringArrayVar(&whereArgs, "arg", nil, "Value bound to the next placeholder (repeatable)")
		c.Flags().StringVar(&rowID, "id", "", "Match the row whose <table>_id equals this value")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(nextCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (weesql.Config, error) {
	cfg, err := weesql.LoadConfig()
	if err != nil {
		return cfg, fmt.Errorf("config error: %w", err)
	}
	if configPath != "" {
		return weesql.LoadConfigFile(cfg, configPath)
	}
	return cfg, nil
}

// withDispatcher opens the default connection, runs fn and closes it.
func withDispatcher(cmd *cobra.Command, fn func(context.Context, *weesql.Dispatcher) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d := weesql.New(weesql.WithLogger(logger))
	conn, err := d.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, d)
}

func condition() weesql.Condition {
	if rowID != "" {
		return weesql.ByID(rowID)
	}
	args := make([]any, len(whereArgs))
	for i, a := range whereArgs {
		args[i] = a
	}
	return weesql.Where(whereClause, args...)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.HTTPPort = port
	}
	if cmd.Flags().Changed("base") {
		cfg.BasePath = basePath
	}
	if cmd.Flags().Changed("safe") {
		cfg.SafeModeDefault = safeMode
	}
	if cmd.Flags().Changed("readonly") {
		cfg.ReadOnlyMode = readOnly
	}
	if cmd.Flags().Changed("adhoc") {
		cfg.AllowAdHocConnections = adhoc
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := weesql.New(weesql.WithLogger(logger))
	conn, err := d.Connect(ctx, cfg.Database)
	if err != nil {
		// The server still starts; with --adhoc clients can open their own connection.
		logger.Warn("default connection unavailable", zap.Error(err))
	} else {
		defer conn.Close()
	}

	h := weesql.NewHandler(d, cfg.Options())
	defer h.Close()

	mux := http.NewServeMux()
	weesql.Register(mux, cfg.BasePath, h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           weesql.RequestLogger(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("weesql listening", zap.String("addr", srv.Addr), zap.String("mount", cfg.BasePath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
