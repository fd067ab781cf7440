// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"tempo/internal/audio"
	applog "tempo/internal/log"
	"tempo/internal/tui"

	"github.com/spf13/cobra"
)

func newDevicesCommand(_ *rootOptions) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"list"},
		Short:   "List available audio devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer func() {
				if err := audio.Terminate(); err != nil {
					applog.Warnf("Engine: %v", err)
				}
			}()

			if !interactive {
				return audio.ListDevices(cmd.OutOrStdout())
			}

			sel, ok, err := tui.RunDeviceList()
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprint(cmd.OutOrStdout(), sel.YAML())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&interactive, "tui", false, "Pick a device interactively and print its config")
	return cmd
}
