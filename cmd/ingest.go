package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sangtrankt98/invoice-collection/internal/config"
	"github.com/sangtrankt98/invoice-collection/internal/docai"
	"github.com/sangtrankt98/invoice-collection/internal/drive"
	"github.com/sangtrankt98/invoice-collection/internal/gmail"
	"github.com/sangtrankt98/invoice-collection/internal/google"
	"github.com/sangtrankt98/invoice-collection/internal/metrics"
	"github.com/sangtrankt98/invoice-collection/internal/pipeline"
	"github.com/sangtrankt98/invoice-collection/internal/storage"
)

func newIngestCmd() *cobra.Command {
	var (
		query      string
		maxResults int64
		sinceDays  int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest matching Gmail threads and extract their documents",
		Long: `Lists Gmail threads matching the query, selects the newest qualifying
message per thread, collects its attachments and Drive-linked files,
expands archives and extracts structured fields from every document.
Results land in the local database; use the report command to export
them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Require("GOOGLE_CLIENT_ID", cfg.GoogleClientID); err != nil {
				return err
			}
			if err := cfg.Require("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret); err != nil {
				return err
			}
			if err := cfg.Require("OPENAI_API_KEY", cfg.OpenAIAPIKey); err != nil {
				return err
			}

			if query == "" {
				query = cfg.GmailQuery
			}
			if maxResults <= 0 {
				maxResults = cfg.MaxResults
			}

			var cutoff *time.Time
			if sinceDays > 0 {
				t := time.Now().AddDate(0, 0, -sinceDays)
				cutoff = &t
			} else {
				// Without an explicit cutoff, still bound the listing to the
				// ledger's lookback window; selection stays uncut.
				query = pipeline.LookbackQuery(query, cfg.LookbackDays)
			}

			ctx := cmd.Context()
			creds := google.Credentials{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
			}

			mailClient, err := gmail.NewClient(ctx, creds)
			if err != nil {
				return err
			}
			mailClient.SetMaxAttachmentSize(cfg.MaxAttachmentBytes)
			driveClient, err := drive.NewClient(ctx, creds)
			if err != nil {
				return err
			}
			extractor, err := docai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAITextModel, cfg.OpenAIImageModel)
			if err != nil {
				return err
			}

			store, err := storage.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if cfg.MetricsEnabled {
				startMetricsServer(ctx, cfg.MetricsAddr)
			}

			logger := slog.Default()
			processor := pipeline.NewProcessor(
				mailClient,
				driveClient,
				pipeline.NewDocProcessor(extractor, logger),
				store,
				logger,
				pipeline.Config{
					DownloadDir:        cfg.DownloadDir,
					MaxFilesPerMessage: cfg.MaxFilesPerMessage,
					ArchiveCountLimit:  cfg.ArchiveCountLimit,
					DirectCountLimit:   cfg.DirectCountLimit,
					LookbackDays:       cfg.LookbackDays,
				},
			)

			processed, err := processor.Ingest(ctx, query, cutoff, maxResults)
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			var files int
			for _, pm := range processed {
				files += pm.ProcessedCount
			}
			fmt.Printf("Processed %d messages, %d documents extracted (run %s)\n",
				len(processed), files, store.RunID())
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Gmail search query (default from GMAIL_QUERY)")
	cmd.Flags().Int64VarP(&maxResults, "max-results", "n", 0, "Maximum number of threads to process")
	cmd.Flags().IntVar(&sinceDays, "since-days", 0, "Only consider messages newer than this many days")
	return cmd
}

func startMetricsServer(ctx context.Context, addr string) {
	server := metrics.NewServer(addr)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
