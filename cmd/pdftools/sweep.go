package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdftoolkit/internal/scratch"
)

func (c *cli) newSweepCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete scratch files older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("older-than") {
				olderThan = cfg.Retention
			}
			if olderThan <= 0 {
				return errors.New("nothing to sweep: set retention or pass --older-than")
			}

			store, err := scratch.New(cfg.ScratchDir)
			if err != nil {
				return err
			}
			n, err := store.Sweep(olderThan, time.Now())
			if err != nil {
				return err
			}
			slog.Info("Scratch sweep finished.", "removed", n, "olderThan", olderThan.String())
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d file(s) from %s\n", n, store.Dir())
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age threshold (default: configured retention)")
	return cmd
}
