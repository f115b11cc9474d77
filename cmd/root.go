package cmd

import (
	"fmt"
	"os"

	"github.com/flanksource/clicky"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "quality-unit",
	Short: "Incremental code quality analyzer",
	Long: `quality-unit analyzes a codebase for quality issues through pluggable
analyzers, reusing cached results for files that have not changed since
the previous run.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Flush any background clicky tasks and render the task tree
	exitCode := clicky.WaitForGlobalCompletion()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .quality-unit.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".quality-unit")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("QUALITY_UNIT")
	viper.AutomaticEnv()

	// Missing config file is fine, flags and defaults apply
	_ = viper.ReadInConfig()
}
