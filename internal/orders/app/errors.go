package app

import (
	"errors"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// toFailure maps any error reaching the service boundary onto the public taxonomy.
func toFailure(err error) *domain.Failure {
	if failure, ok := domain.AsFailure(err); ok {
		return failure
	}

	switch {
	case errors.Is(err, ports.ErrNotFound):
		return domain.NewFailure(domain.CodeOrderNotFound, "Order not found.", nil)
	case errors.Is(err, ports.ErrAlreadyFulfilled):
		return domain.NewFailure(domain.CodeOrderAlreadyFulfilled, "Order already fulfilled.", nil)
	case errors.Is(err, ports.ErrDatabase):
		return domain.NewFailure(domain.CodeDatabaseError, "Database error.", nil)
	default:
		return domain.NewFailure(domain.CodeInternalError, "Internal error.", nil)
	}
}

func isServerFault(code domain.Code) bool {
	return code == domain.CodeDatabaseError || code == domain.CodeInternalError
}
