package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/siherrmann/paperqa/helper"
	"github.com/spf13/cobra"
)

var (
	papersLimit int
	papersJSON  bool
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Manage ingested papers",
}

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers, newest first",
	Args:  cobra.NoArgs,
	RunE:  runPapersList,
}

var papersShowCmd = &cobra.Command{
	Use:   "show [paper-id]",
	Short: "Show a paper with its summary and keywords",
	Args:  cobra.ExactArgs(1),
	RunE:  runPapersShow,
}

var papersDeleteCmd = &cobra.Command{
	Use:   "delete [paper-id]",
	Short: "Delete a paper with its chunks, keywords and embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runPapersDelete,
}

var reembedCmd = &cobra.Command{
	Use:   "reembed [paper-id]",
	Short: "Rebuild the embeddings of a paper from its stored chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runReembed,
}

func init() {
	papersListCmd.Flags().IntVarP(&papersLimit, "limit", "n", 0, "maximum number of papers (0 = all)")
	papersCmd.PersistentFlags().BoolVar(&papersJSON, "json", false, "output as JSON")

	papersCmd.AddCommand(papersListCmd)
	papersCmd.AddCommand(papersShowCmd)
	papersCmd.AddCommand(papersDeleteCmd)
	rootCmd.AddCommand(papersCmd)
	rootCmd.AddCommand(reembedCmd)
}

func runPapersList(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, s service, _ *helper.Configuration) error {
		papers, err := s.ListPapers(ctx, nil, papersLimit)
		if err != nil {
			return err
		}

		if papersJSON {
			return printJSON(cmd, papers)
		}
		if len(papers) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No papers found.")
			return nil
		}
		for _, p := range papers {
			fmt.Fprintf(cmd.OutOrStdout(), "  %6d  %s  %s (%s)\n", p.ID, p.CreatedAt.Format(time.DateOnly), p.Title, p.Source)
		}
		return nil
	})
}

func runPapersShow(cmd *cobra.Command, args []string) error {
	id, err := parsePaperID(args[0])
	if err != nil {
		return err
	}

	return withService(cmd, func(ctx context.Context, s service, _ *helper.Configuration) error {
		paper, err := s.Paper(ctx, id)
		if err != nil {
			return err
		}

		if papersJSON {
			return printJSON(cmd, paper)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (paper %d)\n", paper.Title, paper.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "  Author: %s\n  Source: %s\n  Created: %s\n  Chunks: %d\n", paper.Author, paper.Source, paper.CreatedAt.Format(time.RFC3339), len(paper.Chunks))
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", paper.Summary)
		if len(paper.Keywords) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "\nKeywords:")
		}
		for _, k := range paper.Keywords {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-30s %d\n", k.Keyword, k.Weight)
		}
		return nil
	})
}

func runPapersDelete(cmd *cobra.Command, args []string) error {
	id, err := parsePaperID(args[0])
	if err != nil {
		return err
	}

	return withService(cmd, func(ctx context.Context, s service, _ *helper.Configuration) error {
		if err := s.DeletePaper(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted paper %d\n", id)
		return nil
	})
}

func runReembed(cmd *cobra.Command, args []string) error {
	id, err := parsePaperID(args[0])
	if err != nil {
		return err
	}

	return withService(cmd, func(ctx context.Context, s service, _ *helper.Configuration) error {
		result, err := s.ReembedPaper(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt embeddings of paper %d (%d chunks)\n", result.PaperID, result.UpsertedCount)
		return nil
	})
}

func parsePaperID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, helper.Kind(helper.ErrPrecondition, fmt.Errorf("invalid paper id %q", arg))
	}
	return id, nil
}
