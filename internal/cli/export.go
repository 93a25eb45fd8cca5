package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/calstore/internal/client"
	"github.com/roach88/calstore/internal/query"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/vcal"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Views  []string
	Book   int32
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events and todos as vCalendar",
		Long: `Export stored events and todos as one vCalendar stream.

Example:
  calstored export > all.ics
  calstored export --view event --book 2 -o work.ics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Views, "view", []string{"event", "todo"}, "views to export (event, todo)")
	cmd.Flags().Int32Var(&opts.Book, "book", 0, "export only this book (0 for every book)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	views := make([]string, 0, len(opts.Views))
	for _, name := range opts.Views {
		v, err := parseView(name)
		if err != nil {
			return err
		}
		if v != record.ViewEvent && v != record.ViewTodo {
			return NewExitError(ExitCommandError, "only event and todo views can be exported")
		}
		views = append(views, v)
	}

	ctx := commandContext(cmd)
	h, err := connect(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer h.Close()

	var all []record.Record
	for _, v := range views {
		rs, err := fetchBook(ctx, h, v, opts.Book)
		if err != nil {
			return opts.formatter(cmd).Failure("export failed", err)
		}
		all = append(all, rs...)
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output", err)
		}
		defer f.Close()
		w = f
	}
	if err := vcal.Encode(w, all, time.Now()); err != nil {
		return WrapExitError(ExitFailure, "failed to encode vCalendar", err)
	}
	opts.formatter(cmd).VerboseLog("exported %d records", len(all))
	return nil
}

// fetchBook lists every record of view, restricted to book unless it is 0.
func fetchBook(ctx context.Context, h *client.Handle, view string, book int32) ([]record.Record, error) {
	if book == 0 {
		l, err := h.GetAllRecords(ctx, view, 0, 0)
		if err != nil {
			return nil, err
		}
		return l.Records(), nil
	}
	prop := record.EventBookID
	if view == record.ViewTodo {
		prop = record.TodoBookID
	}
	q := query.New(view).SetFilter(query.Where(view, query.MatchInt(prop, query.MatchEqual, book)))
	l, err := h.GetRecordsWithQuery(ctx, q, 0, 0)
	if err != nil {
		return nil, err
	}
	return l.Records(), nil
}
