package common

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
)

// NewPresenter returns the presenter for the selected --format
func NewPresenter(w io.Writer) output.Presenter {
	if globalOptions.Format == FormatJSON {
		return presenter.NewJSONPresenter(w)
	}
	return presenter.NewCLIRehearsalPresenter(w)
}

// Present renders data on the command's stdout, or err on the same stream when it is non-nil.
// The command error is returned either way so the process exits non-zero.
func Present(cmd *cobra.Command, message string, data interface{}, err error) error {
	p := NewPresenter(cmd.OutOrStdout())
	if err != nil {
		p.PresentError(err)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return err
	}
	return p.PresentSuccess(message, data)
}
