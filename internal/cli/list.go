package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dejobratic/orderflow/internal/orders/app"
)

// ValidListFormats defines the allowed list output formats.
var ValidListFormats = []string{"json", "lines"}

// NewListCommand creates the list command.
func NewListCommand(root *RootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List outstanding orders grouped by mobile",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidListFormats, format) {
				return NewExitError(ExitValidation,
					fmt.Sprintf("invalid format %q: must be one of %v", format, ValidListFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.runWithService(cmd, func(ctx context.Context, svc *app.Service) error {
				resp := svc.ListOutstanding(ctx)
				if format == "lines" && resp.OK {
					return writeListLines(cmd.OutOrStdout(), resp.Data.(app.OutstandingPayload))
				}
				return respond(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format (json|lines)")

	return cmd
}
