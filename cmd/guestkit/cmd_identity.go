package main

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/foodstand/guestkit/internal/identity"
)

func newIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Print the guest id, creating one if none is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			ids := identity.NewStore(st, identity.WithLogger(a.logger))
			fmt.Fprintln(cmd.OutOrStdout(), ids.GetOrCreate())
			return nil
		},
	}
}

// copyToClipboard is swapped out in tests
var copyToClipboard = clipboard.WriteAll

func newRegenerateCmd(a *app) *cobra.Command {
	var copyID bool

	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Replace the stored guest id with a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			id := identity.NewStore(st, identity.WithLogger(a.logger)).Regenerate()
			fmt.Fprintln(cmd.OutOrStdout(), id)

			if copyID {
				if err := copyToClipboard(id); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: could not copy to clipboard:", err)
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "copied to clipboard")
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyID, "copy", false, "copy the new id to the clipboard")
	return cmd
}
