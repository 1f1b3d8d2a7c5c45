package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/siherrmann/paperqa/core/extract"
	"github.com/siherrmann/paperqa/core/pipeline"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	"github.com/spf13/cobra"
)

var (
	keywordsLimit int
	keywordsFrom  string
	keywordsJSON  bool
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "List the heaviest keywords",
	Long: `Lists keyword weights summed over all papers, heaviest first.

With --from the lexical keywords of a single file are computed locally
without touching the stores.`,
	Args: cobra.NoArgs,
	RunE: runKeywords,
}

func init() {
	keywordsCmd.Flags().IntVarP(&keywordsLimit, "limit", "n", 25, "maximum number of keywords")
	keywordsCmd.Flags().StringVar(&keywordsFrom, "from", "", "compute lexical keywords of this file")
	keywordsCmd.Flags().BoolVar(&keywordsJSON, "json", false, "output keywords as JSON")
	rootCmd.AddCommand(keywordsCmd)
}

func runKeywords(cmd *cobra.Command, _ []string) error {
	if keywordsFrom != "" {
		keywords, err := fileKeywords(keywordsFrom, keywordsLimit)
		if err != nil {
			return err
		}
		return printKeywords(cmd, keywords)
	}

	return withService(cmd, func(ctx context.Context, s service, _ *helper.Configuration) error {
		keywords, err := s.KeywordTotals(ctx, keywordsLimit)
		if err != nil {
			return err
		}
		return printKeywords(cmd, keywords)
	})
}

// fileKeywords chunks a file like ingestion does and ranks its lexical keywords.
func fileKeywords(path string, limit int) ([]model.KeywordWeight, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helper.NewError("read file", err)
	}

	text, err := extract.Text(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}

	chunks, err := pipeline.DefaultPipeline(model.DefaultPipelineConfig()).Process("local", text)
	if err != nil {
		return nil, err
	}

	return pipeline.ExtractKeywords(model.ChunkTexts(chunks), limit), nil
}

func printKeywords(cmd *cobra.Command, keywords []model.KeywordWeight) error {
	if keywordsJSON {
		return printJSON(cmd, keywords)
	}
	if len(keywords) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No keywords found.")
		return nil
	}
	for _, k := range keywords {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-30s %d\n", k.Keyword, k.Weight)
	}
	return nil
}
