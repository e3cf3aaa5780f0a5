package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"law-rag/internal/di"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live session ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(func(ctx context.Context, c *di.ApplicationComponents) error {
			ids, err := c.Ledger.List(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		})
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show a session's conversation history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(func(ctx context.Context, c *di.ApplicationComponents) error {
			session, err := c.Ledger.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("session %s (country: %s, expires: %s)\n",
				session.ID, session.Country, session.ExpiresAt.Format("2006-01-02 15:04:05"))
			for i, turn := range session.Turns {
				fmt.Printf("\n[%d] س: %s\n", i+1, turn.Question)
				fmt.Printf("    ج: %s\n", turn.Answer)
			}
			return nil
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(func(ctx context.Context, c *di.ApplicationComponents) error {
			if err := c.Ledger.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		})
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
