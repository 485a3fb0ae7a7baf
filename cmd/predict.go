package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cpipredict/cpi-predictor/config"
	"github.com/cpipredict/cpi-predictor/core/prediction"
)

var (
	predictSemesters []float64
	predictCPI       []float64
	predictOut       string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the next semester CPI once and write the chart",
	Example: `  cpi-predictor predict --semesters 1,2,3 --cpi 6,6.5,7 --out chart.png
  cpi-predictor predict --cpi 8.1,8.4 # semesters default to 1..N`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().Float64SliceVar(&predictSemesters, "semesters", nil, "semester numbers (default 1..N)")
	predictCmd.Flags().Float64SliceVar(&predictCPI, "cpi", nil, "CPI per semester")
	predictCmd.Flags().StringVarP(&predictOut, "out", "o", "", "write the chart PNG to this file")
	_ = predictCmd.MarkFlagRequired("cpi")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	semesters := predictSemesters
	if len(semesters) == 0 {
		semesters = make([]float64, len(predictCPI))
		for i := range semesters {
			semesters[i] = float64(i + 1)
		}
	}

	engine := prediction.NewPredictor(prediction.WithSize(cfg.Chart.Width, cfg.Chart.Height))
	res, err := engine.Predict(semesters, predictCPI)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "Predicted CPI: %.2f\n", res.Prediction); err != nil {
		return err
	}
	if res.Clamped() {
		if _, err := fmt.Fprintf(out, "(model output %.4f clamped to [%g, %g])\n", res.Raw, prediction.MinCPI, prediction.MaxCPI); err != nil {
			return err
		}
	}
	if predictOut == "" {
		return nil
	}
	img, err := base64.StdEncoding.DecodeString(res.Chart)
	if err != nil {
		return fmt.Errorf("decode chart: %w", err)
	}
	if err := os.WriteFile(predictOut, img, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	_, err = fmt.Fprintf(out, "Chart written to %s\n", predictOut)
	return err
}
