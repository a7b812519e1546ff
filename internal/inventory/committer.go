// Package inventory implements the all-or-nothing stock commit. Every item
// is attempted even after a failure, so the caller gets the complete list of
// problems in one pass instead of discovering them one checkout at a time.
package inventory

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
)

// Ledger is the authoritative stock store. Reserve decrements stock only if
// enough is available; Release gives it back. Both are idempotent per key.
type Ledger interface {
	Reserve(ctx context.Context, productID string, quantity int32, idemKey string) error
	Release(ctx context.Context, productID string, quantity int32, idemKey string) error
}

type Item struct {
	ProductID string
	Quantity  int32
}

type FailureReason string

const (
	ReasonNotFound          FailureReason = "NOT_FOUND"
	ReasonInsufficientStock FailureReason = "INSUFFICIENT_STOCK"
	ReasonError             FailureReason = "ERROR"
)

type Failure struct {
	ProductID         string
	Reason            FailureReason
	AvailableQuantity int32
}

type Result struct {
	AllSucceeded bool
	Failures     []Failure
}

type Committer struct {
	ledger Ledger
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCommitter(ledger Ledger, logger *zap.Logger) *Committer {
	return &Committer{
		ledger: ledger,
		logger: logger,
		tracer: otel.Tracer("inventory_committer"),
	}
}

// IdempotencyKey is stable for a given (order, product) pair so a retried
// commit after a crash cannot double-decrement stock.
func IdempotencyKey(orderID int64, productID string) string {
	return fmt.Sprintf("%d:%s", orderID, productID)
}

// Commit reserves stock for every item. If any item fails, every decrement
// that did succeed is released in reverse order and the result lists all
// failures. Release errors are logged and swallowed: the catalog reconciles
// leaked holds against RELEASED reservations out of band.
func (c *Committer) Commit(ctx context.Context, orderID int64, items []Item) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "Committer.Commit")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int("items_count", len(items)),
	)

	var succeeded []Item
	var failures []Failure

	for _, item := range items {
		err := c.ledger.Reserve(ctx, item.ProductID, item.Quantity, IdempotencyKey(orderID, item.ProductID))
		if err == nil {
			succeeded = append(succeeded, item)
			continue
		}

		failure := Failure{ProductID: item.ProductID, Reason: ReasonError}
		switch apperr.CodeOf(err) {
		case apperr.CodeNotFound:
			failure.Reason = ReasonNotFound
		case apperr.CodeFailedPrecondition:
			failure.Reason = ReasonInsufficientStock
			if avail, ok := apperr.DetailOf(err, "available"); ok {
				if v, ok := avail.(int32); ok {
					failure.AvailableQuantity = v
				}
			}
		}
		failures = append(failures, failure)

		mylogger.Warn(
			ctx,
			c.logger,
			"Stock reserve failed",
			zap.Int64("order_id", orderID),
			zap.String("product_id", item.ProductID),
			zap.String("reason", string(failure.Reason)),
			zap.Error(err),
		)
	}

	if len(failures) == 0 {
		return &Result{AllSucceeded: true}, nil
	}

	span.SetAttributes(
		attribute.Int("failures_count", len(failures)),
	)

	for i := len(succeeded) - 1; i >= 0; i-- {
		item := succeeded[i]
		if err := c.ledger.Release(ctx, item.ProductID, item.Quantity, IdempotencyKey(orderID, item.ProductID)); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				c.logger,
				"Failed to release reserved stock",
				zap.Int64("order_id", orderID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}

	return &Result{AllSucceeded: false, Failures: failures}, nil
}

// Release gives back stock for every item, best effort. Used when a paid
// order cannot stand or when pending reservations expire.
func (c *Committer) Release(ctx context.Context, orderID int64, items []Item) {
	ctx, span := c.tracer.Start(ctx, "Committer.Release")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int("items_count", len(items)),
	)

	for _, item := range items {
		if err := c.ledger.Release(ctx, item.ProductID, item.Quantity, IdempotencyKey(orderID, item.ProductID)); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				c.logger,
				"Failed to release reserved stock",
				zap.Int64("order_id", orderID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}
}
