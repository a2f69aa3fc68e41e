package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/trendjack/core/internal/modules/pipeline/history"
)

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <file>",
		Short: "Print a downloaded conversation history as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			h, err := history.Load(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), h.Text())
			return err
		},
	}
}
