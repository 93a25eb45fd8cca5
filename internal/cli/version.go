package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the store's current change version",
		Long: `Print the daemon's durable change version. Sync peers pass it to
"changes --since" on their next run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			h, err := connect(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer h.Close()

			f := rootOpts.formatter(cmd)
			v, err := h.GetCurrentVersion(ctx)
			if err != nil {
				return f.Failure("version failed", err)
			}
			if rootOpts.Format == "json" {
				return f.Success(map[string]int64{"version": v})
			}
			return f.Success(fmt.Sprint(v))
		},
	}
}
