// Command slm reads, writes and converts SLM layer geometry files.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/logicossoftware/go-slm"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitFormat     = 3
	exitIO         = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, slm.ErrValidation):
		return exitValidation
	case errors.Is(err, slm.ErrFormat):
		return exitFormat
	case errors.Is(err, slm.ErrIO):
		return exitIO
	default:
		return exitFailure
	}
}
