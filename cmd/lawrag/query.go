package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"law-rag/internal/di"
	"law-rag/internal/usecase"
)

var (
	queryCountry   string
	querySessionID string
	queryTopK      int
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question against a country's statutes",
	Long: `Ask a question against the ingested statutes of one country.
Pass --session to continue a conversation; the answer cites the articles
it was grounded in.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryCountry, "country", "", "country to search (required)")
	queryCmd.Flags().StringVar(&querySessionID, "session", "", "session id to continue")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of articles to ground the answer in")
	_ = queryCmd.MarkFlagRequired("country")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	return withComponents(func(ctx context.Context, c *di.ApplicationComponents) error {
		output, err := c.QueryUsecase.Query(ctx, usecase.QueryInput{
			Question:  strings.Join(args, " "),
			Country:   queryCountry,
			SessionID: querySessionID,
			TopK:      queryTopK,
		})
		if err != nil {
			return err
		}

		fmt.Println(output.Answer)
		if len(output.Sources) > 0 {
			fmt.Println("\nالمصادر:")
			for i, source := range output.Sources {
				fmt.Printf("%d. %s (score %.4f)\n", i+1, source.Citation, source.Relevance)
			}
		}
		fmt.Printf("\nsession: %s", output.Metadata.SessionID)
		if output.Metadata.RerankDegraded {
			fmt.Printf(" (rerank degraded)")
		}
		fmt.Printf(" [%d retrieved, %d used, %dms]\n",
			output.Metadata.ChunksRetrieved, output.Metadata.ChunksReranked, output.Metadata.ElapsedMs)
		return nil
	})
}
