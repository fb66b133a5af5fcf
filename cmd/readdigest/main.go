package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readdigest/internal/config"
	logpkg "github.com/kailas-cloud/readdigest/internal/logger"
	"github.com/kailas-cloud/readdigest/internal/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	env        string
	logLevel   string
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "readdigest",
		Short:         "Extract keyword passages from documents into a record store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default config/<env>.yaml)")
	root.PersistentFlags().StringVar(&flags.env, "env", config.GetEnv(), "environment: local, dev, docker, prod")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newRunCmd(flags),
		newEstimateCmd(flags),
		newServeCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "readdigest %s (%s, %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

// loadConfig resolves the config file. A missing default file falls back to built-in defaults.
func (f *globalFlags) loadConfig() (config.Config, error) {
	if f.configPath != "" {
		return config.LoadFile(f.configPath)
	}
	cfg, err := config.Load(f.env)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		return config.Config{}, err
	}
	return cfg, nil
}

func (f *globalFlags) newLogger(cfg config.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if f.logLevel != "" {
		level = f.logLevel
	}
	return logpkg.NewLogger(f.env, level)
}
