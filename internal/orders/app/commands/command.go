package commands

import (
	"context"

	"github.com/dejobratic/orderflow/internal/orders/parser"
	"github.com/dejobratic/orderflow/internal/orders/validation"
)

// CommandHandler executes a command of type C and produces R.
type CommandHandler[C any, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// Limits bounds what a single order message may contain.
type Limits struct {
	MaxMessageLen int
	MaxItems      int
	MaxQty        int
}

// DefaultLimits returns the standard message limits.
func DefaultLimits() Limits {
	return Limits{
		MaxMessageLen: validation.DefaultMaxMessageLen,
		MaxItems:      parser.DefaultMaxItems,
		MaxQty:        parser.DefaultMaxQty,
	}
}

// WithDefaults fills zero fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxMessageLen <= 0 {
		l.MaxMessageLen = d.MaxMessageLen
	}
	if l.MaxItems <= 0 {
		l.MaxItems = d.MaxItems
	}
	if l.MaxQty <= 0 {
		l.MaxQty = d.MaxQty
	}
	return l
}
