package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "softserial-host",
	Short: "Exercise software serial ports",
	Long: `Exercise software serial ports from a Linux host.

Settings come from flags, SOFTSERIAL_* environment variables (for example
SOFTSERIAL_BAUD=19200) or a config file given with --config.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗"), err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.Uint32("baud", 9600, "baud rate")
	pf.Bool("invert", false, "inverse logic (idle low)")
	pf.Duration("timeout", 0, "how long to wait for data to come back (0 = frame-time based)")
	_ = viper.BindPFlag("baud", pf.Lookup("baud"))
	_ = viper.BindPFlag("invert", pf.Lookup("invert"))
	_ = viper.BindPFlag("timeout", pf.Lookup("timeout"))
}

func initConfig() {
	viper.SetEnvPrefix("SOFTSERIAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintln(os.Stderr, warnStyle.Render("!"), "config:", err)
		}
	}
}
