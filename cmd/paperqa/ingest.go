package main

import (
	"context"
	"fmt"

	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	"github.com/spf13/cobra"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents",
	Long: `Extracts, chunks, embeds and summarizes each file and stores it as a new paper.
Supported types are .pdf, .txt and .md. Ingesting a file twice creates two papers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output manifests as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, s service, _ *helper.Configuration) error {
		manifests := make([]*model.IngestManifest, 0, len(args))
		for _, path := range args {
			manifest, err := s.IngestFile(ctx, path)
			if err != nil {
				return helper.NewError("ingest "+path, err)
			}
			manifests = append(manifests, manifest)

			if !ingestJSON {
				fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s as paper %d (%d chunks)\n", manifest.FileName, manifest.PaperID, manifest.ChunkCount)
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", manifest.Summary)
			}
		}

		if ingestJSON {
			return printJSON(cmd, manifests)
		}
		return nil
	})
}
