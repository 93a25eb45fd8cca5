package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/calstore/internal/notify"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/reminder"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Views     []string
	Reminders bool
	Count     int
}

// WatchEvent is one line of watch output.
type WatchEvent struct {
	Kind     string             `json:"kind"` // "changed" | "reminder"
	View     string             `json:"view,omitempty"`
	Reminder *reminder.Reminder `json:"reminder,omitempty"`
	At       time.Time          `json:"at"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print change notifications and reminders",
		Long: `Print a line each time the daemon announces a change of a watched view
and, with --reminders, each time a reminder fires. Runs until interrupted
or until --count events were printed.

Example:
  calstored watch --view event,todo
  calstored watch --reminders --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Views, "view", []string{"book", "event", "todo"}, "views to watch")
	cmd.Flags().BoolVar(&opts.Reminders, "reminders", false, "also print reminders")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "exit after this many events (0 for no limit)")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	views := make([]string, 0, len(opts.Views))
	for _, name := range opts.Views {
		v, err := parseView(name)
		if err != nil {
			return err
		}
		if notify.Group(v) == "" {
			return NewExitError(ExitCommandError, fmt.Sprintf("changes of %s are not announced", name))
		}
		views = append(views, v)
	}

	events := make(chan WatchEvent, 64)
	emit := func(e WatchEvent) {
		select {
		case events <- e:
		default:
		}
	}

	w, err := notify.NewWatcher(cfg.NotifyDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to watch notify directory", err)
	}
	defer w.Close()

	onChange := func(view string, _ any) {
		emit(WatchEvent{Kind: "changed", View: shortView(view), At: time.Now()})
	}
	for _, v := range views {
		if err := w.Add(v, onChange, nil); err != nil {
			return WrapExitError(ExitCommandError, "failed to watch "+v, err)
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Reminders {
		sub := reminder.NewSubscriber(cfg.ReminderSocket)
		onReminder := func(r reminder.Reminder, _ any) {
			emit(WatchEvent{Kind: "reminder", Reminder: &r, At: time.Now()})
		}
		if err := sub.Add(ctx, onReminder, nil); err != nil {
			return wrapCallError("failed to subscribe to reminders", err)
		}
		defer sub.Remove(onReminder, nil)
	}

	f := opts.formatter(cmd)
	f.VerboseLog("watching %v in %s", opts.Views, cfg.NotifyDir)

	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			if err := printWatchEvent(cmd, opts.Format, e); err != nil {
				return err
			}
			printed++
			if opts.Count > 0 && printed >= opts.Count {
				return nil
			}
		}
	}
}

func printWatchEvent(cmd *cobra.Command, format string, e WatchEvent) error {
	w := cmd.OutOrStdout()
	if format == "json" {
		return json.NewEncoder(w).Encode(e)
	}
	if e.Kind == "reminder" {
		r := e.Reminder
		_, err := fmt.Fprintf(w, "reminder alarm=%d fires=%s parent=%s\n",
			r.ID, time.Unix(r.Time, 0).UTC().Format(time.RFC3339), record.Type(r.Type))
		return err
	}
	_, err := fmt.Fprintf(w, "changed %s\n", e.View)
	return err
}
