package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ayusman/mouthwatch/internal/config"
	"github.com/ayusman/mouthwatch/internal/log"
)

// cliContext carries the loaded settings to subcommands.
type cliContext struct {
	v          *viper.Viper
	configFile string
	settings   *config.Settings
}

// newRootCommand builds the command tree. Running without a subcommand
// starts the watcher.
func newRootCommand() *cobra.Command {
	ctx := &cliContext{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:          "mouthwatch",
		Short:        "Chime when your mouth has been open too long",
		SilenceUsage: true,
	}

	setupFlags(rootCmd, ctx)

	runCmd := runCommand(ctx)
	rootCmd.AddCommand(
		runCmd,
		replayCommand(ctx),
		calibrateCommand(ctx),
		chimeCommand(ctx),
		configCommand(ctx),
	)

	// The bare command behaves like "run".
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
	rootCmd.RunE = runCmd.RunE

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(ctx.v, ctx.configFile)
		if err != nil {
			return err
		}
		ctx.settings = settings

		log.InitWriter(os.Stderr, settings.LogLevel, os.Getenv("GO_ENV") == "production")
		log.Debug("configuration loaded", "config", ctx.v.ConfigFileUsed(), "data_dir", settings.DataDir)
		return nil
	}

	return rootCmd
}

// setupFlags defines flags shared by every subcommand.
func setupFlags(rootCmd *cobra.Command, ctx *cliContext) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFile, "config", "c", "", "Config file (default ./config.yaml or ~/.mouthwatch/config.yaml)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("data-dir", config.DefaultDataDir(), "Directory for the database, chime and plugins")

	bindFlags(ctx.v, flags, map[string]string{
		"log_level": "log-level",
		"data_dir":  "data-dir",
	})
}

// bindFlags binds config keys to flag names so that flags set on the
// command line override the config file and environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s to %s: %v", name, key, err))
		}
	}
}
