/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/serialmagic/internal/settings"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialmagic",
	Short: "Find USB serial devices and talk to them",
	Long: `serialmagic enumerates USB serial devices, resolves a driver family for
each of them and connects to a selected (device, port) pair. After
connecting it writes a fixed command sequence and logs whatever the device
sends back as a hex dump.

Without a subcommand the interactive picker is started.

Configuration is read from $XDG_CONFIG_HOME/serialmagic/config.yaml and can
be overridden by SERIALMAGIC_* environment variables and flags.`,
	SilenceUsage: true,
	RunE:         runUI,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/serialmagic/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Write a rotated log to this file")
	rootCmd.PersistentFlags().IntP("baud", "b", 9600, "Baud rate")
	rootCmd.PersistentFlags().Bool("stream", false, "Start the read loop after connecting")

	cobra.CheckErr(viper.BindPFlag(settings.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag(settings.KeyLogFile, rootCmd.PersistentFlags().Lookup("log-file")))
	cobra.CheckErr(viper.BindPFlag(settings.KeyBaud, rootCmd.PersistentFlags().Lookup("baud")))
	cobra.CheckErr(viper.BindPFlag(settings.KeyStream, rootCmd.PersistentFlags().Lookup("stream")))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	settings.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := os.UserConfigDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(dir, "serialmagic"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(settings.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}
