package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/riptide-sh/riptide/internal/config"
	"github.com/riptide-sh/riptide/internal/errors"
)

// Exit codes. "Not ready" rejections are informative: nothing changed and
// the caller should retry once more evidence has arrived.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitNotReady = 2
)

var rootCmd = &cobra.Command{
	Use:   "riptide",
	Short: "Wave-gated orchestration engine for autonomous build agents",
	Long: `Riptide coordinates autonomous worker agents through a multi-stage
build pipeline. A planning pipeline (brainstorm, specify, clarify,
architecture, decompose) produces a task graph whose tasks execute in
dependency-ordered waves; evidence parsed from each worker's output
gates wave promotion.

Riptide is invoked per completion event: each command acquires the
state lock, applies one mutation, and exits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps the error taxonomy onto exit
// codes: 0 success, 2 "not ready yet" (no state change), 1 hard failure.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}
	if errors.IsNotReady(err) {
		fmt.Fprintf(os.Stderr, "not ready: %v\n", err)
		return ExitNotReady
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return ExitFailure
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/riptide/config.yaml)")
	rootCmd.PersistentFlags().String("run-dir", "", "orchestration run directory (default .riptide)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("paths.run_dir", rootCmd.PersistentFlags().Lookup("run-dir"))
}

func initConfig() {
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RIPTIDE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
