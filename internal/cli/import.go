package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ImportResult is the JSON payload of the import command.
type ImportResult struct {
	IDs     []int32 `json:"ids"`
	Version int64   `json:"version"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.ics|->",
		Short: "Import a vCalendar stream",
		Long: `Import the events, todos and timezones of a vCalendar stream into the
default book. Use "-" to read from stdin.

Example:
  calstored import holidays.ics
  cat work.ics | calstored import - --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	text, err := readInput(cmd, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	ctx := commandContext(cmd)
	h, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer h.Close()

	f := opts.formatter(cmd)
	ids, err := h.InsertVCalendars(ctx, text)
	if err != nil {
		return f.Failure("import failed", err)
	}
	f.VerboseLog("imported %d records at version %d", len(ids), h.LastChangeVersion())

	if opts.Format == "json" {
		return f.Success(ImportResult{IDs: ids, Version: h.LastChangeVersion()})
	}
	return f.Success(fmt.Sprintf("Imported %d records (ids %s)", len(ids), joinIDs(ids)))
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
