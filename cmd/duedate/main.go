package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abatilo/duedate/internal/client"
	"github.com/abatilo/duedate/internal/config"
	"github.com/abatilo/duedate/internal/editor"
	"github.com/abatilo/duedate/internal/logging"
	"github.com/abatilo/duedate/internal/output"
	"github.com/abatilo/duedate/internal/storage"
)

//nolint:gochecknoglobals // CLI flags, config and formatter are package-level by design
var (
	jsonOutput bool
	localStore bool
	configPath string
	apiURL     string
	cfg        *config.Config
	logger     *zap.Logger
	formatter  output.Formatter
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "duedate",
		Short: "A task list editor that keeps due dates off weekends",
		Long: "duedate - A task list editor. Due dates that land on a Saturday or Sunday\n" +
			"are moved to the following Monday when saved.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			formatter = output.New(jsonOutput)
			return setup()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/duedate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Task API base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&localStore, "local", false, "Use the configured store directly instead of the API")

	rootCmd.AddCommand(
		initCmd(),
		serveCmd(),
		listCmd(),
		addCmd(),
		editCmd(),
		rmCmd(),
		adjustCmd(),
		exportCmd(),
	)

	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

// setup loads .env, the config file and environment overrides, then builds the logger.
func setup() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	var err error
	if configPath == "" {
		if configPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}
	if apiURL != "" {
		cfg.Client.APIURL = apiURL
	}

	logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
	return err
}

// openTasks returns the task source for the editing commands: the API client
// or, with --local, the configured store itself.
func openTasks(ctx context.Context) (editor.Store, func(), error) {
	if !localStore {
		return client.New(cfg.Client.APIURL, cfg.Client.Timeout), func() {}, nil
	}
	st, err := storage.Open(ctx, storeOptions(), logger)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

func storeOptions() storage.Options {
	return storage.Options{
		Driver:   cfg.Store.Driver,
		CSVPath:  cfg.Store.CSVPath,
		MySQLDSN: cfg.Store.MySQLDSN,
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printOutput(s string) {
	os.Stdout.WriteString(s) //nolint:gosec // stdout write errors are unrecoverable
}

func printError(err error) {
	os.Stdout.WriteString(formatter.FormatError(err)) //nolint:gosec // stdout write errors are unrecoverable
	os.Exit(1)
}
