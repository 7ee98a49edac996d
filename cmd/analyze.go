package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <vehicle-id>",
	Short: "Analyze one stock vehicle against the competitor pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		eng, err := buildEngine(st)
		if err != nil {
			return err
		}

		report, err := eng.AnalyzeVehicle(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		zap.L().Info("analysis complete",
			zap.String("vehicle", args[0]),
			zap.Int("competitors", report.MatchedTotal),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "encode report")
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
