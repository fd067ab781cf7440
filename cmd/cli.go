// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"tempo/internal/config"
	applog "tempo/internal/log"
	"tempo/pkg/build"

	"github.com/spf13/cobra"
)

// rootOptions carries the persistent flags and the configuration loaded
// from them.
type rootOptions struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	rootCmd.SetVersionTemplate("{{.Name}} " + buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file. Defaults to tempo.yaml or config.yaml if present")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		newAnalyzeCommand(opts),
		newPlayCommand(opts),
		newListenCommand(opts),
		newDevicesCommand(opts),
		newClickCommand(opts),
	)
	return rootCmd
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.Execute()
}

func (o *rootOptions) load() error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	if o.verbose {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	o.cfg = cfg
	return nil
}
