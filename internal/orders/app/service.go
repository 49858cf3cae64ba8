package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/dejobratic/orderflow/internal/diagnostics"
	"github.com/dejobratic/orderflow/internal/orders/app/commands"
	"github.com/dejobratic/orderflow/internal/orders/app/queries"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/telemetry"
)

// Limits bounds the size of an order message.
type Limits = commands.Limits

// Dependencies are injected into the service. Repository, Catalogue, Clock,
// IDs and Authorizer are required; the rest have quiet defaults.
type Dependencies struct {
	Repository  ports.OrderRepository
	Catalogue   ports.Catalogue
	Clock       ports.Clock
	IDs         ports.IDGenerator
	Authorizer  ports.Authorizer
	Diagnostics ports.DiagnosticsSink
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Limits      Limits
}

// Service bundles the order use cases. Every operation returns a Response
// and never an error.
type Service struct {
	place           commands.CommandHandler[commands.PlaceOrderCommand, *domain.Order]
	fulfill         commands.CommandHandler[commands.FulfillOrderCommand, *domain.Order]
	getOrder        *queries.GetOrderQueryHandler
	listOutstanding *queries.ListOutstandingQueryHandler
	diagnostics     ports.DiagnosticsSink
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

// NewService wires required dependencies.
func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Repository == nil:
		return nil, errors.New("order service: repository is required")
	case deps.Catalogue == nil:
		return nil, errors.New("order service: catalogue is required")
	case deps.Clock == nil:
		return nil, errors.New("order service: clock is required")
	case deps.IDs == nil:
		return nil, errors.New("order service: id generator is required")
	case deps.Authorizer == nil:
		return nil, errors.New("order service: authorizer is required")
	}

	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Diagnostics == nil {
		deps.Diagnostics = diagnostics.NewNoop(deps.Logger)
	}
	if deps.Metrics == nil {
		m, err := metrics.NewMetrics(noop.NewMeterProvider().Meter("orderflow"))
		if err != nil {
			return nil, fmt.Errorf("order service: %w", err)
		}
		deps.Metrics = m
	}

	placeHandler := commands.NewPlaceOrderCommandHandler(commands.PlaceOrderDeps{
		Repository:  deps.Repository,
		Catalogue:   deps.Catalogue,
		Clock:       deps.Clock,
		IDs:         deps.IDs,
		Diagnostics: deps.Diagnostics,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
		Limits:      deps.Limits,
	})
	fulfillHandler := commands.NewFulfillOrderCommandHandler(deps.Repository, deps.Authorizer, deps.Clock)

	return &Service{
		place: commands.NewObservableCommandHandler[commands.PlaceOrderCommand, *domain.Order](
			"PlaceOrder", placeHandler, deps.Logger),
		fulfill: commands.NewObservableCommandHandler[commands.FulfillOrderCommand, *domain.Order](
			"FulfillOrder", fulfillHandler, deps.Logger),
		getOrder:        queries.NewGetOrderQueryHandler(deps.Repository),
		listOutstanding: queries.NewListOutstandingQueryHandler(deps.Repository),
		diagnostics:     deps.Diagnostics,
		logger:          deps.Logger,
		metrics:         deps.Metrics,
	}, nil
}

// Place validates, prices and stores a new order message.
func (s *Service) Place(ctx context.Context, mobile, message string) Response {
	return s.run(ctx, CommandPlace, func(ctx context.Context) (any, error) {
		s.metrics.RecordMessageProcessed(ctx)

		order, err := s.place.Handle(ctx, commands.PlaceOrderCommand{Mobile: mobile, Message: message})
		if err != nil {
			return nil, err
		}

		s.metrics.RecordOrderCreated(ctx)
		return newOrderPayload(order), nil
	})
}

// Show returns a single order, including its fulfillment timestamp.
func (s *Service) Show(ctx context.Context, orderID string) Response {
	return s.run(ctx, CommandShow, func(ctx context.Context) (any, error) {
		order, err := s.getOrder.Handle(ctx, queries.GetOrderQuery{OrderID: orderID})
		if err != nil {
			return nil, err
		}
		return newOrderDetailPayload(order), nil
	})
}

// ListOutstanding returns pending orders grouped by mobile.
func (s *Service) ListOutstanding(ctx context.Context) Response {
	return s.run(ctx, CommandList, func(ctx context.Context) (any, error) {
		groups, err := s.listOutstanding.Handle(ctx, queries.ListOutstandingQuery{})
		if err != nil {
			return nil, err
		}
		return newOutstandingPayload(groups), nil
	})
}

// Fulfill marks a pending order FULFILLED when authCode matches the shared secret.
func (s *Service) Fulfill(ctx context.Context, orderID, authCode string) Response {
	return s.run(ctx, CommandFulfill, func(ctx context.Context) (any, error) {
		order, err := s.fulfill.Handle(ctx, commands.FulfillOrderCommand{OrderID: orderID, AuthCode: authCode})
		if err != nil {
			return nil, err
		}

		s.metrics.RecordOrderFulfilled(ctx)
		return newFulfillPayload(order), nil
	})
}

func (s *Service) run(ctx context.Context, command string, op func(context.Context) (any, error)) (resp Response) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "OrderService."+command, attribute.String("command", command))

	defer func() {
		if rec := recover(); rec != nil {
			resp = s.fail(ctx, command, fmt.Errorf("panic recovered: %v", rec))
		}

		s.metrics.RecordOperationDuration(ctx, command, time.Since(start).Seconds())

		var spanErr error
		if resp.Error != nil {
			spanErr = errors.New(string(resp.Error.Code))
		}
		telemetry.EndSpan(span, spanErr)
	}()

	data, err := op(ctx)
	if err != nil {
		return s.fail(ctx, command, err)
	}
	return Response{OK: true, Command: command, Data: data}
}

func (s *Service) fail(ctx context.Context, command string, err error) Response {
	failure := toFailure(err)

	s.metrics.RecordError(ctx, command, string(failure.Code))

	details := failure.Details
	if details == nil {
		details = map[string]any{}
	}
	s.diagnostics.Record(ctx, "error", map[string]any{
		"command": command,
		"code":    string(failure.Code),
		"message": failure.Message,
		"details": details,
	})

	if isServerFault(failure.Code) {
		s.logger.ErrorContext(ctx, "order operation failed",
			"command", command, "code", failure.Code, "error", err)
	} else {
		s.logger.InfoContext(ctx, "order operation rejected",
			"command", command, "code", failure.Code, "message", failure.Message)
	}

	return Response{
		OK:      false,
		Command: command,
		Error: &ErrorBody{
			Code:    failure.Code,
			Message: failure.Message,
			Details: failure.Details,
		},
	}
}
