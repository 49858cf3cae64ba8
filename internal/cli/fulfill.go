package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dejobratic/orderflow/internal/orders/app"
)

// NewFulfillCommand creates the fulfill command.
func NewFulfillCommand(root *RootOptions) *cobra.Command {
	var orderID, authCode string

	cmd := &cobra.Command{
		Use:   "fulfill",
		Short: "Mark a pending order fulfilled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.runWithService(cmd, func(ctx context.Context, svc *app.Service) error {
				return respond(cmd.OutOrStdout(), svc.Fulfill(ctx, orderID, authCode))
			})
		},
	}

	cmd.Flags().StringVar(&orderID, "order-id", "", "order identifier (ORD-XXXXXXXX)")
	cmd.Flags().StringVar(&authCode, "auth-code", "", "six digit fulfillment code")
	_ = cmd.MarkFlagRequired("order-id")
	_ = cmd.MarkFlagRequired("auth-code")

	return cmd
}
