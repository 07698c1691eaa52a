package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/mouthwatch/internal/chime"
)

func chimeCommand(ctx *cliContext) *cobra.Command {
	var out string
	var play bool

	cmd := &cobra.Command{
		Use:   "chime",
		Short: "Play the alert chime or write it to a WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tone := chime.DefaultTone()
			tone.Volume = ctx.settings.Chime.Volume

			if out != "" {
				if err := chime.SaveWAV(out, tone); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", out, tone.Duration())
			}

			if play || out == "" {
				player, err := chime.NewPlayer(ctx.settings.Chime.Mode, tone, ctx.settings.Chime.Command, ctx.settings.DataDir)
				if err != nil {
					return err
				}
				return player.Play(cmd.Context())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the chime to this WAV file")
	cmd.Flags().BoolVar(&play, "play", false, "Play the chime even when writing a file")

	return cmd
}
