package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/adamwoolhether/reqflow/errs"
)

// Exit codes for the reqflow CLI.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
	ExitConfigError  = 3
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errs.IsArgumentError(err):
		return ExitInvalidInput
	case errors.Is(err, errs.ErrConfiguration):
		return ExitConfigError
	default:
		return ExitFailure
	}
}

// reportError writes err to w, naming the offending argument when
// there is one.
func reportError(w io.Writer, err error) {
	paint := color.New(color.FgRed).SprintFunc()

	if ae := errs.GetArgumentError(err); ae != nil {
		fmt.Fprintln(w, paint(fmt.Sprintf("Error: invalid %s: %s", ae.Param, ae.Reason)))
		return
	}

	fmt.Fprintln(w, paint("Error: "+err.Error()))
}
