package ports

import (
	"context"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// Catalogue resolves SKUs to priced items.
type Catalogue interface {
	Get(sku string) (domain.CatalogueItem, bool)
	Has(sku string) bool
}

// Clock supplies the current UTC time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces candidate order identifiers of the form ORD-XXXXXXXX.
type IDGenerator interface {
	NewID() string
}

// Authorizer checks the shared fulfillment code.
type Authorizer interface {
	Check(code string) bool
}

// DiagnosticsSink receives structured trace events from the order pipeline.
// Implementations must not fail the calling operation.
type DiagnosticsSink interface {
	Record(ctx context.Context, event string, payload map[string]any)
}
