package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/review"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge base entries with their review status",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			pendingOnly, _ := cmd.Flags().GetBool("pending")

			return withApp(cmd, func(a *app) error {
				entries, err := a.orch.Entries()
				if err != nil {
					return err
				}
				if pendingOnly {
					kept := entries[:0]
					for _, e := range entries {
						if e.PendingReview {
							kept = append(kept, e)
						}
					}
					entries = kept
				}

				out := cmd.OutOrStdout()
				if jsonOut {
					if entries == nil {
						entries = []models.KnowledgeBaseEntry{}
					}
					return printJSON(out, map[string]any{"entries": entries, "count": len(entries)})
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "No entries.")
					return nil
				}
				pending := 0
				for _, e := range entries {
					if e.PendingReview {
						pending++
					}
				}
				fmt.Fprintf(out, "Knowledge base entries (%d, %d pending):\n\n", len(entries), pending)
				for i, e := range entries {
					status := "reviewed"
					if e.PendingReview {
						status = "pending"
					}
					fmt.Fprintf(out, "%d. [%s] %s\n", i+1, status, e.CanonicalQuestion)
					fmt.Fprintf(out, "   %s\n", e.BestAnswer)
					if e.LastReviewedAt != "" {
						fmt.Fprintf(out, "   Last reviewed: %s by %s\n", e.LastReviewedAt, e.LastReviewer)
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}

	cmd.Flags().Bool("pending", false, "Only show entries pending review")

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <question>",
		Short: "Show an entry with its cluster and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(a *app) error {
				detail, err := a.orch.Entry(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					return printJSON(out, detail)
				}

				e := detail.Entry
				fmt.Fprintf(out, "Question: %s\n", e.CanonicalQuestion)
				fmt.Fprintf(out, "Answer:   %s\n", e.BestAnswer)
				if e.Intent != "" {
					fmt.Fprintf(out, "Intent:   %s\n", e.Intent)
				}
				fmt.Fprintf(out, "Pending:  %v\n", e.PendingReview)
				if e.LastReviewedAt != "" {
					fmt.Fprintf(out, "Reviewed: %s by %s\n", e.LastReviewedAt, e.LastReviewer)
				}
				if e.ReviewComment != "" {
					fmt.Fprintf(out, "Comment:  %s\n", e.ReviewComment)
				}
				if c := detail.Cluster; c != nil {
					fmt.Fprintf(out, "Cluster:  %d source calls, %d near-duplicates\n",
						len(c.SourceConversationIDs), len(c.NearDuplicates))
				}
				fmt.Fprintf(out, "History:  %d records\n", len(detail.History))
				return nil
			})
		},
	}
}

func newCandidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <question>",
		Short: "List the flat export rows a correction would consider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(a *app) error {
				cands, err := a.orch.Candidates(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					if cands == nil {
						cands = []review.Candidate{}
					}
					return printJSON(out, map[string]any{"candidates": cands, "count": len(cands)})
				}
				if len(cands) == 0 {
					fmt.Fprintln(out, "No candidate rows.")
					return nil
				}
				fmt.Fprintf(out, "Candidate rows (%d):\n\n", len(cands))
				for _, c := range cands {
					fmt.Fprintf(out, "#%d %s/%d\n", c.Index, c.Row.CallID, c.Row.PairIndex)
					fmt.Fprintf(out, "   Q: %s\n", c.Row.Question)
					fmt.Fprintf(out, "   A: %s\n", c.Row.Answer)
				}
				return nil
			})
		},
	}
}

func newConfirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm <question>",
		Short: "Confirm that an entry's answer is correct",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewer, _ := cmd.Flags().GetString("reviewer")
			comment, _ := cmd.Flags().GetString("comment")
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(a *app) error {
				rec, err := a.orch.Confirm(cmd.Context(), review.ConfirmRequest{
					Question: args[0],
					Reviewer: reviewer,
					Comment:  comment,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Confirmed %q (%s, %s)\n", rec.CanonicalQuestion, rec.Reviewer, rec.ReviewedAt)
				return nil
			})
		},
	}

	cmd.Flags().String("reviewer", "", "Reviewer name (required)")
	cmd.Flags().String("comment", "", "Optional comment")
	cmd.MarkFlagRequired("reviewer")

	return cmd
}

func newCorrectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <question>",
		Short: "Replace an entry's answer and propagate it to operator answers",
		Long: `Replace the canonical answer of an entry and propagate the change.

Candidate rows of the flat export are checked by the text-generation model;
rows that contradict the new answer get only the offending snippet rewritten.
At most review.max_rewrites rows change per correction.

Example:
  faqloop correct "Какая ставка?" --answer "Ставка 15% годовых" \
    --reviewer "Анна" --comment "ставка снижена с 1 мая"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer, _ := cmd.Flags().GetString("answer")
			reviewer, _ := cmd.Flags().GetString("reviewer")
			comment, _ := cmd.Flags().GetString("comment")
			jsonOut, _ := cmd.Flags().GetBool("json")

			var rows []int
			if cmd.Flags().Changed("rows") {
				rows, _ = cmd.Flags().GetIntSlice("rows")
				if rows == nil {
					rows = []int{}
				}
			}

			return withApp(cmd, func(a *app) error {
				rec, err := a.orch.Correct(cmd.Context(), review.CorrectRequest{
					Question:  args[0],
					NewAnswer: answer,
					Reviewer:  reviewer,
					Comment:   comment,
					Rows:      rows,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Corrected %q (%s, %s)\n", rec.CanonicalQuestion, rec.Reviewer, rec.ReviewedAt)
				fmt.Fprintf(out, "  Rows checked: %d, changed: %d, export regenerated: %v\n",
					len(rec.RowDiffs), len(rec.UpdatedRows), rec.NLURegenerated)
				printDiffs(out, rec.RowDiffs)
				return nil
			})
		},
	}

	cmd.Flags().String("answer", "", "New canonical answer (required)")
	cmd.Flags().String("reviewer", "", "Reviewer name (required)")
	cmd.Flags().String("comment", "", "What changed and why (required)")
	cmd.Flags().IntSlice("rows", nil, "Flat export row indices to propagate to (default: the entry's candidates)")
	cmd.MarkFlagRequired("answer")
	cmd.MarkFlagRequired("reviewer")
	cmd.MarkFlagRequired("comment")

	return cmd
}

func newUndoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo <question>",
		Short: "Revert the most recent correction of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewer, _ := cmd.Flags().GetString("reviewer")
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(a *app) error {
				rec, err := a.orch.Undo(cmd.Context(), review.UndoRequest{
					Question: args[0],
					Reviewer: reviewer,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Undid correction from %s of %q\n", rec.UndoneRecord, rec.CanonicalQuestion)
				return nil
			})
		},
	}

	cmd.Flags().String("reviewer", "", "Reviewer name")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <question>",
		Short: "Show the audit history of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(a *app) error {
				history, err := a.orch.History(args[0], limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					if history == nil {
						history = []models.CorrectionRecord{}
					}
					return printJSON(out, map[string]any{"history": history, "count": len(history)})
				}
				if len(history) == 0 {
					fmt.Fprintln(out, "No history.")
					return nil
				}
				for _, r := range history {
					printRecord(out, r)
				}
				for i := len(history) - 1; i >= 0; i-- {
					if history[i].Type == models.RecordCorrected {
						fmt.Fprintf(out, "\nLast correction (%s):\n", history[i].ReviewedAt)
						printDiffs(out, history[i].RowDiffs)
						break
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().Int("limit", 10, "Number of most recent records to show (0 for all)")

	return cmd
}

func printRecord(w io.Writer, r models.CorrectionRecord) {
	switch r.Type {
	case models.RecordUndo:
		fmt.Fprintf(w, "%s  undo      of %s", r.UndoneAt, r.UndoneRecord)
		if r.Reviewer != "" {
			fmt.Fprintf(w, " by %s", r.Reviewer)
		}
		fmt.Fprintln(w)
	case models.RecordCorrected:
		fmt.Fprintf(w, "%s  corrected by %s: %s (%d rows changed)\n", r.ReviewedAt, r.Reviewer, r.Comment, len(r.UpdatedRows))
	default:
		fmt.Fprintf(w, "%s  %-9s by %s", r.ReviewedAt, r.Type, r.Reviewer)
		if r.Comment != "" {
			fmt.Fprintf(w, ": %s", r.Comment)
		}
		fmt.Fprintln(w)
	}
}

func printDiffs(w io.Writer, diffs []models.RowDiff) {
	for _, d := range diffs {
		mark := " "
		if d.Changed {
			mark = "*"
		}
		fmt.Fprintf(w, "  %s %s/%d [%s]\n", mark, d.CallID, d.PairIndex, d.Reason)
		if d.Changed {
			fmt.Fprintf(w, "      - %s\n", oneLine(d.OldAnswer))
			fmt.Fprintf(w, "      + %s\n", oneLine(d.NewAnswer))
		}
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
