// Package cmd defines and implements the CLI commands for the spindle executable.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/spindle/internal/logging"
	"github.com/JakeFAU/spindle/pkg/config"
)

// newRootCmd creates and configures the root command. Every command built
// from it shares v, which holds flags, environment and config file values.
func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "spindle",
		Short: "A same-origin web crawler that builds a full-text index.",
		Long: `spindle crawls a web site starting from one or more seed URLs, stays on
the seeds' host and port, and indexes every HTML and text page it reaches.
Pages can be split into separate documents at their named anchors.`,
		SilenceUsage: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.InitConfig(v, cfgFile)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./spindle.yaml)")
	flags.BoolP("verbose", "v", false, "log each URL, fragment and skip")
	flags.Bool("development", true, "human-readable console logs instead of JSON")
	mustBind(v, "log.verbose", flags.Lookup("verbose"))
	mustBind(v, "log.development", flags.Lookup("development"))

	cmd.AddCommand(newCrawlCmd(v))
	return cmd
}

// Execute is the main entry point.
func Execute() {
	// Initialize the logger once at the very start.
	logging.InitLogger()

	if err := newRootCmd(viper.New()).Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
