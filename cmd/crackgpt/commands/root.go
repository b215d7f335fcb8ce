// Package commands implements the CrackGPT CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crackgpt",
		Short: "CrackGPT - Discord bot powered by a local Ollama model",
		Long: `CrackGPT is a Discord chat bot backed by a locally hosted Ollama model,
with optional website previews and Spotify track context for shared links.

Examples:
  crackgpt serve
  crackgpt serve --config ./config.yaml
  crackgpt serve --verbose`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logs")

	return rootCmd
}
