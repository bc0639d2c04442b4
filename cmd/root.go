package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jsternberg/zap-logfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	logLevel string

	log *zap.SugaredLogger
)

// rootCmd is the entry point every subcommand attaches to, following the
// teacher's cobra layout (one root, one file per command group).
var rootCmd = &cobra.Command{
	Use:   "connection-relayer",
	Short: "Drive ICS-003 connection handshakes between two IBC chains",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
}

// Execute runs the CLI, exiting the process on error the way cobra's own
// generated main.go does.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	defaultConfig := filepath.Join(home, ".connection-relayer", "config.yaml")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfig, "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // a missing config file is fine; commands that need one report it themselves
}

// initLogger builds the zap logger every command logs through, formatted
// with logfmt the way the teacher's structured logging setup does rather
// than zap's default JSON encoder.
func initLogger() error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	enc := zaplogfmt.NewEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	log = zap.New(core).Sugar()
	return nil
}
