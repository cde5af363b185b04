package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sangtrankt98/invoice-collection/internal/config"
	"github.com/sangtrankt98/invoice-collection/internal/report"
	"github.com/sangtrankt98/invoice-collection/internal/storage"
)

func newReportCmd() *cobra.Command {
	var (
		runID     string
		sinceDays int
		output    string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export stored extraction results to a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := storage.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.ReportRows(cmd.Context(), runID, sinceDays)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No results to export.")
				return nil
			}

			if output == "" {
				name := fmt.Sprintf("invoices_%s.xlsx", time.Now().Format("2006-01-02"))
				output = filepath.Join(cfg.OutputDir, name)
			}

			if err := report.WriteXLSX(output, rows); err != nil {
				return err
			}

			fmt.Printf("Wrote %d rows to %s\n", len(rows), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Only export rows from this run id")
	cmd.Flags().IntVar(&sinceDays, "since-days", 0, "Only export rows created within this many days")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default under OUTPUT_DIR)")
	return cmd
}
