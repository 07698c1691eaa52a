package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mouthwatch/internal/detector"
	"github.com/ayusman/mouthwatch/internal/mouth"
)

// replayEpoch anchors recording offsets to wall-clock time. Any fixed
// non-zero instant works; only differences matter to the pipeline.
var replayEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

type replayOptions struct {
	changesOnly bool
	json        bool
}

// replayLine is one --json output line.
type replayLine struct {
	Offset float64 `json:"t"`
	mouth.Result
}

// replaySummary counts what happened over a replay.
type replaySummary struct {
	Frames      int
	WithFace    int
	Transitions int
	Alerts      int
}

func replayCommand(ctx *cliContext) *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay <recording>",
		Short: "Run a landmark recording through the mouth pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.settings.MouthConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			frames, err := detector.ReadRecording(f)
			if err != nil {
				return err
			}

			sum, err := replay(cmd.OutOrStdout(), frames, cfg, opts)
			if err != nil {
				return err
			}
			if !opts.json {
				fmt.Fprintf(cmd.OutOrStdout(), "frames=%d face=%d transitions=%d alerts=%d\n",
					sum.Frames, sum.WithFace, sum.Transitions, sum.Alerts)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64("threshold", mouth.DefaultThreshold, "Open threshold as a share of face height")
	flags.Float64("delay", mouth.DefaultDelay.Seconds(), "Seconds a new raw state must hold before it is committed")
	flags.Float64("cooldown", mouth.DefaultCooldown.Seconds(), "Minimum seconds between alerts")
	flags.BoolVar(&opts.changesOnly, "changes-only", false, "Only print frames that changed state or alerted")
	flags.BoolVar(&opts.json, "json", false, "Print one JSON object per frame and no summary")

	bindFlags(ctx.v, flags, map[string]string{
		"mouth.threshold":        "threshold",
		"mouth.delay_seconds":    "delay",
		"mouth.cooldown_seconds": "cooldown",
	})

	return cmd
}

// replay feeds frames through a fresh pipeline and writes one line per frame.
func replay(w io.Writer, frames []detector.RecordedFrame, cfg mouth.Config, opts replayOptions) (replaySummary, error) {
	var sum replaySummary
	pipeline := mouth.NewPipeline()
	enc := json.NewEncoder(w)

	for _, frame := range frames {
		res := pipeline.Update(frame.Face, cfg, replayEpoch.Add(frame.Offset))

		sum.Frames++
		if res.FaceFound {
			sum.WithFace++
		}
		if res.Changed {
			sum.Transitions++
		}
		if res.Fired {
			sum.Alerts++
		}

		if opts.changesOnly && !res.Changed && !res.Fired {
			continue
		}

		var err error
		if opts.json {
			err = enc.Encode(replayLine{Offset: frame.Offset.Seconds(), Result: res})
		} else {
			_, err = fmt.Fprintln(w, formatResult(frame.Offset, res))
		}
		if err != nil {
			return sum, err
		}
	}

	return sum, nil
}

func formatResult(offset time.Duration, res mouth.Result) string {
	line := fmt.Sprintf("%8.3fs ", offset.Seconds())
	if res.FaceFound {
		line += fmt.Sprintf("ratio=%.4f ", res.Ratio)
	} else {
		line += "no face      "
	}
	line += "raw=" + openClosed(res.Raw) + " state=" + openClosed(res.Committed)
	if res.Changed {
		line += " changed"
	}
	if res.Fired {
		line += " ALERT"
	}
	return line
}

func openClosed(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}
