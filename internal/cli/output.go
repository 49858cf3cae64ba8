package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dejobratic/orderflow/internal/orders/app"
)

// writeJSON prints v as a single line of JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return WrapExitError(ExitFailure, "write output", err)
	}
	return nil
}

// respond prints the response and turns a failure into a silent exit code.
func respond(w io.Writer, resp app.Response) error {
	if err := writeJSON(w, resp); err != nil {
		return err
	}
	if code := ExitCodeFor(resp); code != ExitSuccess {
		return &ExitError{Code: code}
	}
	return nil
}

// writeListLines renders one line per mobile:
// <mobile> | <id>:<SKU>=<qty>,... ; <id>:...
func writeListLines(w io.Writer, payload app.OutstandingPayload) error {
	for _, group := range payload.Outstanding {
		orders := make([]string, 0, len(group.Orders))
		for _, order := range group.Orders {
			items := make([]string, 0, len(order.Items))
			for _, item := range order.Items {
				items = append(items, fmt.Sprintf("%s=%d", item.SKU, item.Qty))
			}
			orders = append(orders, order.OrderID+":"+strings.Join(items, ","))
		}
		if _, err := fmt.Fprintf(w, "%s | %s\n", group.Mobile, strings.Join(orders, " ; ")); err != nil {
			return WrapExitError(ExitFailure, "write output", err)
		}
	}
	return nil
}
