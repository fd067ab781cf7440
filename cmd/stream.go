// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tempo/internal/analysis"
	"tempo/internal/audio"
	"tempo/internal/config"
	"tempo/internal/decode"
	applog "tempo/internal/log"
	"tempo/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// layoutSource is a frame source that knows its bin layout.
type layoutSource interface {
	analysis.FrameSource
	Layout() analysis.BandLayout
}

func newPlayCommand(root *rootOptions) *cobra.Command {
	var realtime, useTUI bool

	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Detect beats while replaying an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("realtime") {
				cfg.Stream.Realtime = realtime
			}

			buf, meta, err := decode.File(args[0])
			if err != nil {
				return err
			}
			specOpts, err := cfg.SpectrumOptions(buf.SampleRate)
			if err != nil {
				return err
			}
			source, err := audio.NewBufferSource(buf, audio.SourceOptions{
				Spectrum:  specOpts,
				FrameRate: cfg.Stream.FrameRate,
				Realtime:  cfg.Stream.Realtime || useTUI,
				QueueSize: cfg.Stream.QueueSize,
			})
			if err != nil {
				return err
			}
			applog.Infof("Source: replaying %s (%s, %s)", args[0], meta.Format, meta.Duration)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStream(ctx, cfg, source, args[0], useTUI, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&realtime, "realtime", false, "Pace frames at the frame rate instead of as fast as possible")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show the beat monitor (implies --realtime)")
	return cmd
}

func newListenCommand(root *rootOptions) *cobra.Command {
	var (
		deviceID   int
		sampleRate float64
		useTUI     bool
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Detect beats on a live input device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("device") {
				cfg.Audio.InputDevice = deviceID
			}
			if cmd.Flags().Changed("sample-rate") {
				cfg.Audio.SampleRate = sampleRate
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := audio.Initialize(); err != nil {
				return err
			}
			defer func() {
				if err := audio.Terminate(); err != nil {
					applog.Warnf("Engine: %v", err)
				}
			}()

			engine, err := audio.NewEngine(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := runStream(ctx, cfg, engine, "Live input", useTUI, cmd.OutOrStdout()); err != nil {
				return err
			}
			if dropped := engine.Dropped(); dropped > 0 {
				applog.Warnf("Engine: %d frames dropped", dropped)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&deviceID, "device", "d", config.MinDeviceID,
		"Specify input device ID. Use the 'devices' command to see available devices")
	cmd.Flags().Float64VarP(&sampleRate, "sample-rate", "s", 44100, "Sample rate, measured in Hertz (Hz)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show the beat monitor")
	return cmd
}

// runStream wires source into a detector and the configured transports and
// blocks until the source ends, ctx is cancelled or the monitor is closed.
func runStream(ctx context.Context, cfg *config.Config, source layoutSource, title string, useTUI bool, out io.Writer) error {
	outputs, err := newTransports(cfg.Transport)
	if err != nil {
		return err
	}
	defer func() {
		if err := outputs.Close(); err != nil {
			applog.Warnf("Transport: %v", err)
		}
	}()

	var program *tea.Program
	if useTUI {
		program = tea.NewProgram(tui.NewMonitorModel(title, 0), tea.WithAltScreen(), tea.WithContext(ctx))
		outputs.Add(tui.NewProgramTransport(program))
	}

	detOpts, err := cfg.DetectorOptions()
	if err != nil {
		return err
	}
	layout := source.Layout()
	detOpts.FrameRate = source.FrameRate()
	detOpts.Layout = &layout
	detOpts.OnBeat = func(b analysis.Beat) {
		if err := outputs.Send(b); err != nil {
			applog.Debugf("Transport: %v", err)
		}
	}

	detector, err := analysis.NewDetector(detOpts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := source.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := source.Stop(); err != nil {
			applog.Warnf("Source: %v", err)
		}
	}()

	if err := detector.Start(ctx, source.Frames()); err != nil {
		return err
	}
	defer detector.Stop()

	if program == nil {
		<-detector.Done()
		fmt.Fprintf(out, "%s: %d beats\n", title, detector.Beats())
		return nil
	}

	go func() {
		<-detector.Done()
		program.Send(tui.DoneMsg{})
	}()
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
