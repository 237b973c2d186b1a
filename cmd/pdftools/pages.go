package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdftoolkit/internal/pagerange"
)

func newPagesCmd() *cobra.Command {
	var total int
	cmd := &cobra.Command{
		Use:   "pages SELECTION",
		Short: "Print the pages a split request would produce",
		Example: `  pdftools pages "1,3-5,9" --total 10
  1,3,4,5,9`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if total <= 0 {
				return fmt.Errorf("--total must be positive")
			}
			pages := pagerange.Parse(args[0], total)
			if len(pages) == 0 {
				return fmt.Errorf("invalid page selection, total pages: %d", total)
			}
			out := make([]string, len(pages))
			for i, p := range pages {
				out[i] = strconv.Itoa(p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, ","))
			return nil
		},
	}
	cmd.Flags().IntVar(&total, "total", 0, "page count of the document")
	return cmd
}
