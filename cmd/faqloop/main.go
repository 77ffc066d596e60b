package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "faqloop",
		Short: "Review FAQ knowledge base answers and propagate corrections",
		Long: `faqloop reviews the canonical answers of a call-center FAQ knowledge base.

A reviewer confirms an answer, or corrects it. A correction is propagated to
the operator answers in the flat question/answer export: a text-generation
model flags answers that contradict the new one and rewrites only the
offending snippet. Every action is appended to an audit log and the most
recent correction of an entry can be undone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default <root>/faqloop.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newListCmd(),
		newShowCmd(),
		newCandidatesCmd(),
		newConfirmCmd(),
		newCorrectCmd(),
		newUndoCmd(),
		newHistoryCmd(),
		newStatusCmd(),
		newExportCmd(),
		newServeCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "faqloop version %s\n", version)
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
