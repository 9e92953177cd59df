package main

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/logicossoftware/go-slm"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "validate <input>",
		Short: "Check that a build file could be written back",
		Long: `Parse input, load every layer and run the checks a writer runs before
writing. Every violation is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, args[0])
			if err != nil {
				return err
			}
			r, err := a.open(f, args[0])
			if err != nil {
				return err
			}
			limits := slm.NewConfig(a.options()...).Limits
			err = slm.Validate(r.Header(), r.Models(), r.Layers(), limits)
			if err == nil {
				fmt.Fprintf(a.stdout, "%s: ok (%d models, %d layers)\n", args[0], len(r.Models()), len(r.Layers()))
				return nil
			}
			var merr *multierror.Error
			if errors.As(err, &merr) {
				for _, v := range merr.Errors {
					fmt.Fprintln(a.stdout, v)
				}
				return fmt.Errorf("%s: %d violations: %w", args[0], len(merr.Errors), slm.ErrValidation)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "input format (default: from the extension)")
	return cmd
}
