package main

import (
	"github.com/spf13/cobra"
	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/pkg/nativelog"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "trendjack",
		Short:         "Turn company transcripts and trending links into LinkedIn posts",
		SilenceUsage:  true,
		SilenceErrors: false,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (default "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	serve := newServeCommand(opts)
	rootCmd.AddCommand(serve, newMigrateCommand(opts), newGenerateCommand(opts), newTokenCommand(opts), newHistoryCommand())
	// Running the binary without a subcommand starts the server.
	rootCmd.RunE = serve.RunE
	return rootCmd
}

func (o *rootOptions) load() (*config.AppConfig, error) {
	return config.Load(o.configPath)
}

// logger writes to the rotating log directory and falls back to a console
// logger when that is unavailable.
func (o *rootOptions) logger(cfg *config.AppConfig) *zap.Logger {
	logger, err := nativelog.NewZapLogger(nativelog.Options{Dir: cfg.LogDir(), Level: o.logLevel})
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("native log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	return logger
}
