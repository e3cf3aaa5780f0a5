package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"law-rag/internal/di"
	"law-rag/internal/infra/config"
	"law-rag/internal/infra/logger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lawrag",
	Short: "Legal statute retrieval over Arabic law corpora",
	Long: `lawrag ingests legal PDF documents into a per-country hybrid search
index and answers questions against it with article-level citations.

Example usage:
  lawrag ingest --country jordan --law-name "قانون العمل" labor_law.pdf
  lawrag ingest-dir --country jordan --law-type labor ./pdfs
  lawrag query --country jordan "ما هي مدة الإجازة السنوية؟"
  lawrag reset-country jordan`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withComponents bootstraps the container for one command invocation and
// tears it down afterwards. The context is cancelled on SIGINT/SIGTERM so a
// long batch ingestion stops admitting new documents.
func withComponents(fn func(ctx context.Context, c *di.ApplicationComponents) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New()

	components, err := di.NewApplicationComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer components.Close()

	return fn(ctx, components)
}
