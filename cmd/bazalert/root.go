// Command bazalert scrapes Bazaraki car listings, detects changes against
// stored state and sends Telegram notifications for matching alerts.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "bazalert",
	Short: "Classifieds scraper with change detection and Telegram alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bazalert version %s\n", version)
		},
	})
	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(onceCommand())
	rootCmd.AddCommand(statsCommand())
	rootCmd.AddCommand(searchCommand())
}
