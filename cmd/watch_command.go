package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/video-subtitles/internal/config"
	"github.com/MimeLyc/video-subtitles/internal/httpapi"
	"github.com/MimeLyc/video-subtitles/internal/jobs"
	"github.com/MimeLyc/video-subtitles/internal/library"
	"github.com/MimeLyc/video-subtitles/internal/persistence"
	"github.com/MimeLyc/video-subtitles/internal/service"
	"github.com/MimeLyc/video-subtitles/pkg/log"
)

func newWatchCommand(configPath *string) *cobra.Command {
	var once bool
	var dirs []string
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Translate new transcripts in WATCH_DIRS on a cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if len(dirs) > 0 {
				cfg.Watch.Dirs = dirs
			}
			if len(cfg.Watch.Dirs) == 0 {
				return service.NewError(service.ErrConfig, "no directories to watch; set WATCH_DIRS or --dir")
			}

			db, err := persistence.NewSQLiteStore(cfg.DBPath())
			if err != nil {
				return service.WrapError(err, service.ErrConfig, "open database").WithContext("path", cfg.DBPath())
			}
			defer db.Close()

			deps := service.Dependencies{}
			if cfg.Translate.CheckpointBackend == config.BackendSQLite {
				deps.Rows = db
			}
			pipeline := service.NewPipeline(*cfg, deps)
			scanner := library.NewScanner(library.SourcesFromDirs(cfg.Watch.Dirs), cfg.Translate.TargetLanguage)
			queue := jobs.NewQueue(db)
			svc := service.NewWatchService(pipeline, scanner, queue, cron.New(), cfg.Watch.CronExpr)

			ctx := cmd.Context()
			if once {
				return svc.RunOnce(ctx)
			}

			if err := svc.Start(ctx); err != nil {
				return fmt.Errorf("start watch: %w", err)
			}
			log.Info("Watching %v", cfg.Watch.Dirs)

			var srv *httpapi.Server
			if httpAddr != "" {
				srv = httpapi.NewServer(scanner, queue,
					httpapi.WithSweeper(svc),
					httpapi.WithCheckpoints(pipeline.OpenCheckpoint),
				)
				go func() {
					log.Info("HTTP API listening on %s", httpAddr)
					if err := srv.ListenAndServe(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("HTTP API stopped: %v", err)
					}
				}()
			}

			<-ctx.Done()
			log.Info("Stopping watch")
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Warn("HTTP API shutdown: %v", err)
				}
			}
			svc.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Sweep once, translate what was found and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve the job and library API on this address, e.g. :8080")
	cmd.Flags().StringSliceVar(&dirs, "dir", nil, "Directory to watch (overrides WATCH_DIRS, repeatable)")
	return cmd
}
