package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/siherrmann/paperqa/helper"
	"github.com/spf13/cobra"
)

var (
	askK    int
	askJSON bool

	searchK    int
	searchJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the ingested papers",
	Long: `Retrieves the passages nearest to the question and asks the language model
to answer from them. Citations are numbered in retrieval order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find the passages nearest to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	askCmd.Flags().IntVarP(&askK, "top-k", "k", 5, "number of passages to answer from")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)

	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 5, "maximum number of passages")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	return withService(cmd, func(ctx context.Context, s service, _ *helper.Configuration) error {
		answer, err := s.Query(ctx, question, askK)
		if err != nil {
			return err
		}

		if askJSON {
			return printJSON(cmd, answer)
		}

		fmt.Fprintln(cmd.OutOrStdout(), answer.Answer)
		if len(answer.Citations) > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Citations:")
		}
		for _, c := range answer.Citations {
			fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s: %s\n", c.Index, c.ID, c.Snippet)
		}
		return nil
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	return withService(cmd, func(ctx context.Context, s service, _ *helper.Configuration) error {
		hits, err := s.Search(ctx, query, searchK)
		if err != nil {
			return err
		}

		if searchJSON {
			return printJSON(cmd, hits)
		}

		if len(hits) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
			return nil
		}
		for i, hit := range hits {
			fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s (%.3f)\n", i+1, hit.ID, hit.Distance)
			fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", snippet(hit.Text, 160))
		}
		return nil
	})
}

// snippet flattens whitespace and cuts text to n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
