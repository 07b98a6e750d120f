package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const previewValues = 5

var embedCmd = &cobra.Command{
	Use:   "embed TEXT...",
	Short: "Print the embedding of a text",
	Long:  "Embeds the given text with the configured embedding model and prints its dimension and first values.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vec, err := current.client.Embed(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		n := min(previewValues, len(vec))
		parts := make([]string, n)
		for i := range n {
			parts[i] = fmt.Sprintf("%.6f", vec[i])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dimensions: %d\nfirst values: [%s]\n", len(vec), strings.Join(parts, ", "))
		return nil
	},
}
