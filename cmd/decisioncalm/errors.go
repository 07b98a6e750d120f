package main

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rahul/decisioncalm/internal/inference"
	"github.com/rahul/decisioncalm/internal/pipeline"
)

const (
	exitSuccess   = 0
	exitError     = 1
	exitBlocked   = 2
	exitConfig    = 3
	exitCancelled = 130
)

// cliError carries an exit code and a message meant for the user.
type cliError struct {
	Code    int
	Message string
	Cause   error
}

func (e *cliError) Error() string { return e.Message }
func (e *cliError) Unwrap() error { return e.Cause }

func newCLIError(code int, message string, cause error) *cliError {
	return &cliError{Code: code, Message: message, Cause: cause}
}

// handleError prints err for the user and maps it to an exit code. A safety
// block shows only the user message, never the internal reason.
func handleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return exitSuccess
	}

	if blocked, ok := pipeline.IsBlocked(err); ok {
		color.New(color.FgYellow, color.Bold).Fprintln(cmd.ErrOrStderr(), blocked.UserMessage)
		return exitBlocked
	}

	red := color.New(color.FgRed)
	switch {
	case errors.Is(err, context.Canceled):
		red.Fprintln(cmd.ErrOrStderr(), "Operation cancelled")
		return exitCancelled
	case errors.Is(err, context.DeadlineExceeded):
		red.Fprintln(cmd.ErrOrStderr(), "Operation timed out")
		return exitError
	case errors.Is(err, inference.ErrInferenceUnavailable):
		red.Fprintln(cmd.ErrOrStderr(), "The language model is unavailable right now. Please try again later.")
		if verbose {
			cmd.PrintErrln("Cause:", err)
		}
		return exitError
	}

	var cliErr *cliError
	if errors.As(err, &cliErr) {
		red.Fprintln(cmd.ErrOrStderr(), "Error:", cliErr.Message)
		if cliErr.Cause != nil && verbose {
			cmd.PrintErrln("Cause:", cliErr.Cause)
		}
		return cliErr.Code
	}

	red.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	return exitError
}
