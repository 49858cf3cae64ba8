package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dejobratic/orderflow/internal/orders/app"
)

// NewPlaceCommand creates the place command.
func NewPlaceCommand(root *RootOptions) *cobra.Command {
	var mobile, message string

	cmd := &cobra.Command{
		Use:     "place",
		Short:   "Place an order from a text message",
		Example: `  orderflow place --mobile +15551234567 --message "ORDER COFFEE=2 MUFFIN"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.runWithService(cmd, func(ctx context.Context, svc *app.Service) error {
				return respond(cmd.OutOrStdout(), svc.Place(ctx, mobile, message))
			})
		},
	}

	cmd.Flags().StringVar(&mobile, "mobile", "", "sender mobile number in E.164 format")
	cmd.Flags().StringVar(&message, "message", "", "raw order message")
	_ = cmd.MarkFlagRequired("mobile")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
