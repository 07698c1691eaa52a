package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mouthwatch/internal/app"
	"github.com/ayusman/mouthwatch/internal/calibrate"
	"github.com/ayusman/mouthwatch/internal/config"
	"github.com/ayusman/mouthwatch/internal/detector"
	"github.com/ayusman/mouthwatch/internal/log"
	"github.com/ayusman/mouthwatch/internal/store"
)

// calibrationReport is printed as YAML.
type calibrationReport struct {
	Closed    calibrate.Summary `yaml:"closed"`
	Open      calibrate.Summary `yaml:"open"`
	Threshold float64           `yaml:"threshold"`
	Saved     bool              `yaml:"saved"`
}

func calibrateCommand(ctx *cliContext) *cobra.Command {
	var closedPath, openPath string
	var save bool

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Suggest a threshold from closed-mouth and open-mouth recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			closed, err := loadRatios(closedPath)
			if err != nil {
				return err
			}
			open, err := loadRatios(openPath)
			if err != nil {
				return err
			}

			report, err := calibration(closed, open)
			if err != nil {
				return err
			}

			if save {
				if err := saveThreshold(ctx.settings, report.Threshold); err != nil {
					return err
				}
				report.Saved = true
				log.Info("saved threshold", "threshold", report.Threshold)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(report)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&closedPath, "closed", "", "Recording made with the mouth closed")
	flags.StringVar(&openPath, "open", "", "Recording made with the mouth open")
	flags.BoolVar(&save, "save", false, "Store the suggested threshold as the live setting")
	_ = cmd.MarkFlagRequired("closed")
	_ = cmd.MarkFlagRequired("open")

	return cmd
}

func loadRatios(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames, err := detector.ReadRecording(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return calibrate.Ratios(frames), nil
}

func calibration(closed, open []float64) (calibrationReport, error) {
	var report calibrationReport
	var err error

	if report.Closed, err = calibrate.Summarize(closed); err != nil {
		return report, fmt.Errorf("closed: %w", err)
	}
	if report.Open, err = calibrate.Summarize(open); err != nil {
		return report, fmt.Errorf("open: %w", err)
	}
	if report.Threshold, err = calibrate.SuggestThreshold(closed, open); err != nil {
		return report, err
	}
	return report, nil
}

func saveThreshold(settings *config.Settings, threshold float64) error {
	if err := os.MkdirAll(settings.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(settings.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	return st.Settings().Set(app.KeyThreshold, strconv.FormatFloat(threshold, 'g', -1, 64))
}
