// Package cli implements the patas command-line client: session commands
// plus paginated pets and tutors listings over the authenticated pipeline.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL     string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "patas",
	Short: "CLI for the patas pet adoption backend",
	Long: `patas is a command-line client for the pet adoption backend.

It keeps a persistent session on disk, refreshes tokens silently, and lists
pets and tutors with server- or client-side search.

Environment Variables:
  PATAS_API_URL           Backend API URL (default: http://localhost:8080)
  PATAS_CREDENTIALS_FILE  Where the token pair is persisted`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides PATAS_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// resolveAPIURL returns the API URL from flag, env, or default (in priority order).
func resolveAPIURL(fallback string) string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("PATAS_API_URL"); envURL != "" {
		return envURL
	}
	return fallback
}
