package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carechain/carechain/internal/config"
	"github.com/carechain/carechain/internal/domain/interaction"
	"github.com/carechain/carechain/internal/domain/medication"
	"github.com/carechain/carechain/internal/domain/prescription"
	"github.com/carechain/carechain/internal/domain/report"
	"github.com/carechain/carechain/internal/domain/risk"
	"github.com/carechain/carechain/internal/platform/db"
	"github.com/carechain/carechain/internal/platform/export"
	"github.com/carechain/carechain/internal/platform/ruleset"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres record store schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
			}
			return w.Flush()
		},
	})

	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect heuristic rule sets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a rule set file and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := ruleset.Load(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rs.Summary())
		},
	})

	return cmd
}

func scoreCmd() *cobra.Command {
	var (
		history   string
		meds      []string
		text      string
		rulesFile string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a medical history and medication list without a record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := ruleset.LoadOrDefault(rulesFile)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), scoreOffline(rs, history, meds, text))
		},
	}
	cmd.Flags().StringVar(&history, "history", "", "free-text medical history")
	cmd.Flags().StringSliceVar(&meds, "med", nil, "medication name (repeatable)")
	cmd.Flags().StringVar(&text, "text", "", "free-text prescription to mine for medications")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "rule set file (built-in tables when empty)")
	return cmd
}

type offlineScore struct {
	RuleSetVersion string             `json:"rule_set_version"`
	Medications    *medication.Set    `json:"medications"`
	Interactions   []interaction.Rule `json:"interactions"`
	Risk           risk.Profile       `json:"risk"`
}

func scoreOffline(rs *ruleset.RuleSet, history string, meds []string, text string) offlineScore {
	eng := rs.Build()
	lines := make([]prescription.MedicationLine, 0, len(meds))
	for _, m := range meds {
		lines = append(lines, prescription.MedicationLine{Medicine: m})
	}
	records := []prescription.Record{{Medications: lines}}
	if strings.TrimSpace(text) != "" {
		records = append(records, prescription.Record{PrescriptionText: text})
	}
	set := eng.Extractor.Extract(records)
	matched := eng.Table.Match(set)
	return offlineScore{
		RuleSetVersion: eng.Version,
		Medications:    set,
		Interactions:   matched,
		Risk:           eng.Scorer.Score(history, matched),
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export aggregated reports",
	}

	var (
		out    string
		doctor string
	)
	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "Write the risk roster to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg).Level(zerolog.WarnLevel)

			rules, err := ruleset.LoadOrDefault(cfg.RuleSetFile)
			if err != nil {
				return err
			}
			ctx := context.Background()
			src, err := openSource(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer src.Close()

			svc, err := report.NewService(src, rules, cfg.PatientStream, logger)
			if err != nil {
				return err
			}
			n, err := exportRoster(ctx, svc, doctor, out, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d patient(s) to %s\n", n, out)
			return nil
		},
	}
	rosterCmd.Flags().StringVar(&out, "out", "risk-roster.xlsx", "output workbook path")
	rosterCmd.Flags().StringVar(&doctor, "doctor", "", "only patients who authorized this doctor email")
	cmd.AddCommand(rosterCmd)

	return cmd
}

func exportRoster(ctx context.Context, svc *report.Service, doctor, out string, now time.Time) (int, error) {
	reports, err := svc.RosterReports(ctx, doctor, now)
	if err != nil {
		return 0, err
	}
	data, err := export.Roster(report.RosterRows(reports))
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", out, err)
	}
	return len(reports), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
