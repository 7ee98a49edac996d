package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/motorline-group/pricing-cli/internal/ingest"
)

var (
	importXLSXPath string
	importSheet    string
	importSource   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a competitor-listing XLSX export into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		listings, err := ingest.ReadListings(importXLSXPath, ingest.XLSXOptions{
			SheetName: importSheet,
			Source:    importSource,
		})
		if err != nil {
			return eris.Wrap(err, "read listings")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		imported, err := st.ImportListings(ctx, listings)
		if err != nil {
			return eris.Wrap(err, "import listings")
		}

		recorded, err := st.RecordPriceChanges(ctx, ingest.DerivePriceChanges(listings, time.Now().UTC()))
		if err != nil {
			return eris.Wrap(err, "record price changes")
		}

		zap.L().Info("import complete",
			zap.Int("imported", imported),
			zap.Int("price_changes", recorded),
			zap.String("xlsx", importXLSXPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importXLSXPath, "xlsx", "", "path to XLSX file (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name (default first sheet)")
	importCmd.Flags().StringVar(&importSource, "source", "BPS", "source system for rows without one")
	_ = importCmd.MarkFlagRequired("xlsx")
	rootCmd.AddCommand(importCmd)
}
