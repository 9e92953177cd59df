package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/logicossoftware/go-slm"
	"github.com/spf13/cobra"
)

func newFormatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tEXTENSIONS\tDESCRIPTION")
			for _, f := range slm.Formats() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, strings.Join(f.Extensions, " "), f.Description)
			}
			return tw.Flush()
		},
	}
}
