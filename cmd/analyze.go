// SPDX-License-Identifier: MIT
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"tempo/internal/decode"
	applog "tempo/internal/log"
	"tempo/internal/tempo"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// analyzeReport is the --json output of analyze.
type analyzeReport struct {
	File       string          `json:"file"`
	BPM        int             `json:"bpm"`
	Determined bool            `json:"determined"`
	Peaks      int             `json:"peaks"`
	Strategy   string          `json:"strategy"`
	Metadata   decode.Metadata `json:"metadata"`
}

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	var (
		asJSON     bool
		threshold  float64
		refractory time.Duration
		window     int
		strategy   string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Estimate the tempo of an audio file (WAV, MP3 or FLAC)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				cfg.Analysis.PeakThreshold = threshold
			}
			if flags.Changed("refractory") {
				cfg.Analysis.Refractory = refractory
			}
			if flags.Changed("window") {
				cfg.Analysis.Window = window
			}
			if flags.Changed("strategy") {
				cfg.Analysis.Strategy = strategy
			}

			opts, err := cfg.TempoOptions()
			if err != nil {
				return err
			}
			analyzer, err := tempo.NewAnalyzer(opts)
			if err != nil {
				return err
			}

			buf, meta, err := decode.File(args[0])
			if err != nil {
				return err
			}
			applog.Debugf("Analysis: %s decoded, %s %.0f Hz, %d channels, %s",
				args[0], meta.Format, meta.SampleRate, meta.Channels, meta.Duration)

			res, err := analyzer.Analyze(buf)
			if err != nil && !errors.Is(err, tempo.ErrNoEstimate) {
				return errors.Wrapf(err, "analyzing %s", args[0])
			}

			report := analyzeReport{
				File:       args[0],
				BPM:        res.BPM,
				Determined: res.Determined(),
				Peaks:      len(res.Peaks),
				Strategy:   opts.Strategy.String(),
				Metadata:   meta,
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	d := tempo.DefaultOptions()
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", d.Threshold,
		"Amplitude a sample must exceed to count as a peak")
	cmd.Flags().DurationVarP(&refractory, "refractory", "r", d.Refractory,
		"Minimum spacing between peaks")
	cmd.Flags().IntVarP(&window, "window", "w", d.Window,
		"Peaks per interval window")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", d.Strategy.String(),
		"Histogram reduction: dominant, mean or weighted")
	return cmd
}

func printReport(w io.Writer, r analyzeReport) {
	tempoText := "undetermined"
	if r.Determined {
		tempoText = fmt.Sprintf("%d BPM", r.BPM)
	}
	fmt.Fprintf(w, "%s: %s\n", r.File, tempoText)

	m := r.Metadata
	fmt.Fprintf(w, "  %s, %.0f Hz, %d channels, %s, %d peaks (%s)\n",
		m.Format, m.SampleRate, m.Channels, m.Duration.Round(time.Millisecond), r.Peaks, r.Strategy)
	if m.Title != "" || m.Artist != "" {
		fmt.Fprintf(w, "  %s - %s\n", m.Artist, m.Title)
	}
}
