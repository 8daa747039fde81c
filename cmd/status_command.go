package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/video-subtitles/internal/checkpoint"
	"github.com/MimeLyc/video-subtitles/internal/config"
	"github.com/MimeLyc/video-subtitles/internal/jobs"
	"github.com/MimeLyc/video-subtitles/internal/persistence"
	"github.com/MimeLyc/video-subtitles/pkg/file"
)

func newStatusCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show unfinished translations and queued watch jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return printStatus(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
}

func printStatus(ctx context.Context, out io.Writer, cfg *config.Config) error {
	// the database is only read when a previous run created it
	var db *persistence.SQLiteStore
	if file.Exists(cfg.DBPath()) {
		var err error
		db, err = persistence.NewSQLiteStore(cfg.DBPath())
		if err != nil {
			return err
		}
		defer db.Close()
	}

	var summaries []checkpoint.Summary
	var err error
	switch cfg.Translate.CheckpointBackend {
	case config.BackendSQLite:
		if db != nil {
			summaries, err = checkpoint.ListRows(ctx, db)
		}
	default:
		summaries, err = checkpoint.ListFiles(cfg.Translate.CheckpointDir)
	}
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(out, "No unfinished translations.")
	} else {
		fmt.Fprintln(out, renderCheckpoints(summaries))
	}

	if db == nil {
		return nil
	}
	list, err := db.LoadJobs(ctx)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	if len(list) > 0 {
		fmt.Fprintln(out, renderJobs(list))
	}
	return nil
}

func renderCheckpoints(summaries []checkpoint.Summary) string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		next := "-"
		if s.LastCompleted >= 0 {
			next = strconv.Itoa(s.LastCompleted + 1)
		}
		rows = append(rows, []string{
			s.JobID,
			next,
			strconv.Itoa(s.Translated),
			formatTime(s.UpdatedAt),
		})
	}
	return renderTable(
		[]string{"Job", "Resume At", "Translated", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	)
}

func renderJobs(list []*jobs.TranslationJob) string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			job.ID,
			string(job.Status),
			job.Payload.SegmentsFile,
			job.Error,
		})
	}
	return renderTable([]string{"ID", "Status", "Segments", "Error"}, rows, nil)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
