package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"law-rag/internal/di"
)

var resetCountryCmd = &cobra.Command{
	Use:   "reset-country [country]",
	Short: "Delete and recreate a country's collection",
	Long: `Delete every chunk in a country's collection. In-flight queries and
ingestions for that country finish first; the collection is empty afterwards
and ready for re-ingestion.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(func(ctx context.Context, c *di.ApplicationComponents) error {
			if err := c.IngestUsecase.ResetCountry(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("reset", args[0])
			return nil
		})
	},
}

var deleteCountryCmd = &cobra.Command{
	Use:   "delete-country [country]",
	Short: "Remove a country's collection entirely",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(func(ctx context.Context, c *di.ApplicationComponents) error {
			if err := c.IngestUsecase.DeleteCountry(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(resetCountryCmd)
	rootCmd.AddCommand(deleteCountryCmd)
}
