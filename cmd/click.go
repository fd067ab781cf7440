// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"tempo/internal/audio"

	"github.com/spf13/cobra"
)

func newClickCommand(_ *rootOptions) *cobra.Command {
	var (
		bpm        float64
		duration   time.Duration
		output     string
		sampleRate int
	)

	cmd := &cobra.Command{
		Use:   "click",
		Short: "Write a metronome click track to a WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("click-%.0fbpm.wav", bpm)
			}
			if err := audio.WriteClickTrack(output, bpm, duration.Seconds(), sampleRate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%.0f BPM, %s)\n", output, bpm, duration)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&bpm, "bpm", "b", 120, "Tempo of the click track")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 10*time.Second, "Length of the click track")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file name. Default is click-<bpm>bpm.wav")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", 44100, "Sample rate, measured in Hertz (Hz)")
	return cmd
}
