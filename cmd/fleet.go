package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/motorline-group/pricing-cli/internal/engine"
	"github.com/motorline-group/pricing-cli/internal/model"
)

var (
	fleetModel    string
	fleetPosition string
	fleetSource   string
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Analyze the whole available stock",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter := engine.FleetFilter{Model: fleetModel, Source: fleetSource}
		if fleetPosition != "" {
			pos, ok := model.ParsePosition(fleetPosition)
			if !ok {
				return eris.Errorf("unknown position %q (competitivo, justo, alto)", fleetPosition)
			}
			filter.Position = pos
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		eng, err := buildEngine(st)
		if err != nil {
			return err
		}

		report, err := eng.AnalyzeFleet(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "fleet analyze")
		}

		zap.L().Info("fleet analysis complete",
			zap.Int("vehicles", report.Count),
			zap.Int("opportunities", report.Stats.Opportunities),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "encode report")
	},
}

func init() {
	fleetCmd.Flags().StringVar(&fleetModel, "model", "", "only vehicles whose model contains this text")
	fleetCmd.Flags().StringVar(&fleetPosition, "position", "", "only vehicles in this position (competitivo, justo, alto)")
	fleetCmd.Flags().StringVar(&fleetSource, "source", "", "restrict the competitor pool to one source")
	rootCmd.AddCommand(fleetCmd)
}
