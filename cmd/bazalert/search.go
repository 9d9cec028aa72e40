package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itcaat/bazalert/internal/match"
	"github.com/itcaat/bazalert/internal/models"
)

func searchCommand() *cobra.Command {
	var (
		filter models.Filter
		model  string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Evaluate a filter against recently seen ads",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if model != "" {
				filter.Models = []string{model}
			}

			ads, err := store.ListRecentAds(cmd.Context(), 500)
			if err != nil {
				return err
			}

			found := 0
			for _, ad := range ads {
				if !match.Filter(ad, filter) {
					continue
				}
				found++
				fmt.Printf("%d. %s %s %d\n", found, ad.Brand, ad.Model, ad.Year)
				fmt.Printf("   URL: %s\n", ad.URL)
				if ad.Price.Known {
					fmt.Printf("   Price: %d %s\n", ad.Price.Amount, ad.Price.Currency)
				} else if ad.Price.Text != "" {
					fmt.Printf("   Price: %s\n", ad.Price.Text)
				}
				if ad.Mileage > 0 {
					fmt.Printf("   Mileage: %d km\n", ad.Mileage)
				}
				if found >= limit {
					break
				}
			}
			fmt.Printf("Found %d matching ads\n", found)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Brand, "brand", "", "car brand")
	cmd.Flags().StringVar(&model, "model", "", "car model")
	cmd.Flags().IntVar(&filter.YearMin, "year-min", 0, "minimum year")
	cmd.Flags().IntVar(&filter.YearMax, "year-max", 0, "maximum year")
	cmd.Flags().IntVar(&filter.PriceMin, "price-min", 0, "minimum price")
	cmd.Flags().IntVar(&filter.PriceMax, "price-max", 0, "maximum price")
	cmd.Flags().IntVar(&filter.MileageMax, "mileage-max", 0, "maximum mileage")
	cmd.Flags().StringVar(&filter.Gearbox, "gearbox", "", "gearbox type")
	cmd.Flags().StringVar(&filter.FuelType, "fuel", "", "fuel type")
	cmd.Flags().StringVar(&filter.Tier, "tier", "", "ad tier (Basic, TOP, VIP, VIP+TOP)")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results to print")
	return cmd
}
