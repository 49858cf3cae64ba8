package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dejobratic/orderflow/internal/orders/app"
)

// NewShowCommand creates the show command.
func NewShowCommand(root *RootOptions) *cobra.Command {
	var orderID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a single order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.runWithService(cmd, func(ctx context.Context, svc *app.Service) error {
				return respond(cmd.OutOrStdout(), svc.Show(ctx, orderID))
			})
		},
	}

	cmd.Flags().StringVar(&orderID, "order-id", "", "order identifier (ORD-XXXXXXXX)")
	_ = cmd.MarkFlagRequired("order-id")

	return cmd
}
