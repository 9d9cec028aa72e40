package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print ad store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			alerts, err := store.ListActiveAlerts(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Total ads tracked: %d\n", stats.TotalAds)
			fmt.Printf("New in last 24h:   %d\n", stats.NewToday)
			fmt.Printf("Active alerts:     %d\n", len(alerts))
			return nil
		},
	}
}
