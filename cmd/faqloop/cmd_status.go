package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/faqloop/internal/config"
	"github.com/nvandessel/faqloop/internal/corrlog"
	"github.com/nvandessel/faqloop/internal/store"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the artifact directories and a sample config",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			cfgPath, _ := cmd.Flags().GetString("config")
			jsonOut, _ := cmd.Flags().GetBool("json")

			if cfgPath == "" {
				cfgPath = filepath.Join(root, config.FileName)
			}
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.WriteFile(cfgPath, []byte(config.Sample), 0644); err != nil {
					return fmt.Errorf("failed to create %s: %w", config.FileName, err)
				}
			}

			cfg, err := config.Load(root, cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Paths.EnsureDirs(); err != nil {
				return err
			}
			if err := store.EnsureGitignore(cfg.Paths.StateDir); err != nil {
				return err
			}
			if _, err := os.Stat(cfg.Paths.Corrections); os.IsNotExist(err) {
				if err := os.WriteFile(cfg.Paths.Corrections, []byte{}, 0644); err != nil {
					return fmt.Errorf("failed to create correction log: %w", err)
				}
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status": "initialized",
					"config": cfgPath,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized faqloop in %s\n", root)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize review progress from the correction log",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			recent, _ := cmd.Flags().GetInt("recent")

			return withApp(cmd, func(a *app) error {
				ctx := cmd.Context()
				snap, err := a.log.Read()
				if err != nil {
					return err
				}
				index, err := corrlog.OpenIndex(a.cfg.Paths.IndexPath(), a.logger)
				if err != nil {
					return err
				}
				defer index.Close()
				if err := index.Rebuild(ctx, snap.Records); err != nil {
					return err
				}
				summary, err := index.Summary(ctx)
				if err != nil {
					return err
				}
				latest, err := index.Recent(ctx, recent)
				if err != nil {
					return err
				}

				entries, err := a.orch.Entries()
				if err != nil {
					return err
				}
				pending := 0
				for _, e := range entries {
					if e.PendingReview {
						pending++
					}
				}

				out := cmd.OutOrStdout()
				if jsonOut {
					if summary == nil {
						summary = []corrlog.QuestionSummary{}
					}
					if latest == nil {
						latest = []corrlog.Entry{}
					}
					return printJSON(out, map[string]any{
						"entries":           len(entries),
						"pending":           pending,
						"records":           len(snap.Records),
						"malformed_records": snap.Malformed,
						"questions":         summary,
						"recent":            latest,
					})
				}

				fmt.Fprintf(out, "Entries: %d (%d pending review)\n", len(entries), pending)
				fmt.Fprintf(out, "Log records: %d", len(snap.Records))
				if snap.Malformed > 0 {
					fmt.Fprintf(out, " (%d malformed lines skipped)", snap.Malformed)
				}
				fmt.Fprintln(out)
				if len(summary) > 0 {
					fmt.Fprintf(out, "\nReviewed questions (%d):\n", len(summary))
					for _, s := range summary {
						fmt.Fprintf(out, "  %s  confirmed=%d corrected=%d undone=%d  last=%s\n",
							s.CanonicalQuestion, s.Confirmed, s.Corrected, s.Undone, s.LastReviewedAt)
					}
				}
				if len(latest) > 0 {
					fmt.Fprintln(out, "\nRecent activity:")
					for _, e := range latest {
						fmt.Fprintf(out, "  %s  %-9s %s", e.ReviewedAt, e.Type, e.CanonicalQuestion)
						if e.ChangedRows > 0 {
							fmt.Fprintf(out, " (%d rows)", e.ChangedRows)
						}
						fmt.Fprintln(out)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().Int("recent", 10, "Number of recent log records to show")

	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Regenerate the flat question/answer export from the per-call records",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(a *app) error {
				if err := a.regen.Regenerate(cmd.Context()); err != nil {
					return err
				}
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), map[string]string{
						"status": "regenerated",
						"mode":   a.cfg.Export.Mode,
						"path":   a.cfg.Paths.QAExport,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Regenerated %s\n", a.cfg.Paths.QAExport)
				return nil
			})
		},
	}
}
