package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"law-rag/internal/di"
	"law-rag/internal/usecase"
	"law-rag/internal/worker"
)

var (
	ingestCountry   string
	ingestLawName   string
	ingestLawNameEn string
	ingestLawType   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf-file]",
	Short: "Ingest one legal PDF into the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var ingestDirCmd = &cobra.Command{
	Use:   "ingest-dir [directory]",
	Short: "Ingest every PDF in a directory",
	Long: `Ingest every .pdf file in a directory on a bounded worker pool.
The law name for each document defaults to its file name; documents that
fail are reported at the end without stopping the rest of the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestDir,
}

func init() {
	for _, cmd := range []*cobra.Command{ingestCmd, ingestDirCmd} {
		cmd.Flags().StringVar(&ingestCountry, "country", "", "country the law belongs to (required)")
		cmd.Flags().StringVar(&ingestLawNameEn, "law-name-en", "", "English law name")
		cmd.Flags().StringVar(&ingestLawType, "law-type", "", "law type (labor, civil, ...)")
		_ = cmd.MarkFlagRequired("country")
	}
	ingestCmd.Flags().StringVar(&ingestLawName, "law-name", "", "Arabic law name (required)")
	_ = ingestCmd.MarkFlagRequired("law-name")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(ingestDirCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	return withComponents(func(ctx context.Context, c *di.ApplicationComponents) error {
		report, err := ingestFile(ctx, c, args[0], ingestLawName)
		if err != nil {
			return err
		}
		fmt.Printf("ingested %s: batch %s, %d articles, %d chunks\n",
			args[0], report.BatchID, report.ArticlesFound, report.ChunksCreated)
		return nil
	})
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	return withComponents(func(ctx context.Context, c *di.ApplicationComponents) error {
		entries, err := os.ReadDir(args[0])
		if err != nil {
			return fmt.Errorf("failed to read directory: %w", err)
		}

		var jobs []worker.Job
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
				continue
			}
			path := filepath.Join(args[0], entry.Name())
			lawName := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			jobs = append(jobs, worker.Job{
				Name: entry.Name(),
				Run: func(ctx context.Context) error {
					_, err := ingestFile(ctx, c, path, lawName)
					return err
				},
			})
		}
		if len(jobs) == 0 {
			return fmt.Errorf("no pdf files in %s", args[0])
		}

		results := c.IngestPool.Run(ctx, jobs)
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "failed: %s: %v\n", r.Name, r.Err)
			}
		}
		fmt.Printf("ingested %d/%d documents\n", len(results)-failed, len(results))
		if failed > 0 {
			return fmt.Errorf("%d documents failed", failed)
		}
		return nil
	})
}

func ingestFile(ctx context.Context, c *di.ApplicationComponents, path, lawName string) (*usecase.IngestReport, error) {
	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return c.IngestUsecase.Ingest(ctx, usecase.IngestInput{
		PDF:        pdfBytes,
		Country:    ingestCountry,
		LawName:    lawName,
		LawNameEn:  ingestLawNameEn,
		LawType:    ingestLawType,
		SourceFile: filepath.Base(path),
	})
}
