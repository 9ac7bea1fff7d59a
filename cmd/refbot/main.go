package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/refbot/core/app"
	"github.com/m3rciful/refbot/core/buildinfo"
	corecmd "github.com/m3rciful/refbot/core/cmd"
	coredatabase "github.com/m3rciful/refbot/core/database"
	"github.com/m3rciful/refbot/core/logger"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	runOpts := func() corecmd.Options {
		return corecmd.Options{
			ConfigPath:        configPath,
			ConfigEnvVar:      "CONFIG_PATH",
			DefaultConfigPath: defaultConfigPath,
			LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
				return app.LoadConfig(path)
			},
			Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
				c, ok := cfg.(*app.Config)
				if !ok {
					return nil, errors.New("unexpected config type")
				}
				return app.Bootstrap(c)
			},
		}
	}

	root := &cobra.Command{
		Use:           "refbot",
		Short:         "Telegram reference bot: encyclopedia, translation, exchange rates and feedback",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return corecmd.Run(runOpts())
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (env CONFIG_PATH)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start the bot",
			RunE: func(*cobra.Command, []string) error {
				return corecmd.Run(runOpts())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(*cobra.Command, []string) error {
				return migrate(runOpts())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Summary())
			},
		},
	)
	return root
}

func migrate(opts corecmd.Options) (err error) {
	path, err := corecmd.ResolveConfigPath(opts)
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfig(path)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
		return err
	}
	defer func() { err = errors.Join(err, logger.Shutdown()) }()
	return coredatabase.RunMigrations(cfg.Database)
}
