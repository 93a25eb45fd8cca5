package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/calstore/internal/client"
	"github.com/roach88/calstore/internal/record"
)

// parseView accepts a short view name ("event") or a full view URI.
func parseView(name string) (string, error) {
	if v, ok := record.ViewByName(name); ok {
		return v, nil
	}
	return "", NewExitError(ExitCommandError, fmt.Sprintf("unknown view %q", name))
}

func shortView(view string) string { return record.ShortViewName(view) }

func changeName(kind int32) string {
	switch kind {
	case record.ChangeInserted:
		return "inserted"
	case record.ChangeUpdated:
		return "updated"
	case record.ChangeDeleted:
		return "deleted"
	}
	return fmt.Sprintf("change(%d)", kind)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// connect opens a shared handle to the configured daemon.
func connect(ctx context.Context, opts *RootOptions) (*client.Handle, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	h, err := client.NewDialer(cfg.Socket).Connect(ctx)
	if err != nil {
		return nil, wrapCallError(fmt.Sprintf("failed to connect to %s", cfg.Socket), err)
	}
	return h, nil
}

func joinIDs(ids []int32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
