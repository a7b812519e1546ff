// Package client holds thin HTTP clients for the catalog and user services.
// Calls carry trace context, run behind a circuit breaker, and translate
// remote failures into the shared error taxonomy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
	"github.com/The-Hawkeye/go-ecommerce/pkg/utils"
)

// CatalogClient talks to the product catalog service. Reserve and Release
// are the authoritative stock mutations; both are idempotent per key on the
// catalog side, so redelivery of the same key is safe.
type CatalogClient interface {
	GetMany(ctx context.Context, productIDs []string) (map[string]domain.ProductSnapshot, error)
	Reserve(ctx context.Context, productID string, quantity int32, idemKey string) error
	Release(ctx context.Context, productID string, quantity int32, idemKey string) error
}

type catalogClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	cb         *gobreaker.CircuitBreaker
	tracer     trace.Tracer
}

func NewCatalogClient(baseURL string, timeout time.Duration, logger *zap.Logger) CatalogClient {
	settings := gobreaker.Settings{
		Name:        "CatalogService",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &catalogClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		cb:         gobreaker.NewCircuitBreaker(settings),
		tracer:     otel.Tracer("catalog_client"),
	}
}

func (c *catalogClient) GetMany(ctx context.Context, productIDs []string) (map[string]domain.ProductSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, "CatalogClient.GetMany")
	defer span.End()

	span.SetAttributes(
		attribute.Int("products_count", len(productIDs)),
	)

	body, err := json.Marshal(map[string]any{"product_ids": productIDs})
	if err != nil {
		return nil, err
	}

	// Reads are safe to retry once on transient failure.
	var snapshots []domain.ProductSnapshot
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		snapshots, lastErr = utils.ExecuteWithBreaker(c.cb, func() ([]domain.ProductSnapshot, error) {
			return c.fetchMany(ctx, body)
		})
		if lastErr == nil {
			break
		}
		if !apperr.IsCode(lastErr, apperr.CodeUnavailable) {
			break
		}
	}
	if lastErr != nil {
		if errors.Is(lastErr, gobreaker.ErrOpenState) {
			mylogger.Warn(ctx, c.logger, "Circuit breaker open")
			return nil, apperr.Wrap(lastErr, apperr.CodeUnavailable, "catalog service unavailable")
		}

		span.RecordError(lastErr)
		return nil, lastErr
	}

	result := make(map[string]domain.ProductSnapshot, len(snapshots))
	for _, p := range snapshots {
		result[p.ID] = p
	}

	return result, nil
}

func (c *catalogClient) fetchMany(ctx context.Context, body []byte) ([]domain.ProductSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/products/batch", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnavailable, "catalog request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, apperr.Newf(apperr.CodeUnavailable, "catalog returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Newf(apperr.CodeInternal, "catalog returned %d", resp.StatusCode)
	}

	var payload struct {
		Products []domain.ProductSnapshot `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to decode catalog response")
	}

	return payload.Products, nil
}

type stockRequest struct {
	Quantity       int32  `json:"quantity"`
	IdempotencyKey string `json:"idempotency_key"`
}

type stockError struct {
	Code      string `json:"code"`
	Available int32  `json:"available"`
}

func (c *catalogClient) Reserve(ctx context.Context, productID string, quantity int32, idemKey string) error {
	ctx, span := c.tracer.Start(ctx, "CatalogClient.Reserve")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	return c.mutateStock(ctx, span, fmt.Sprintf("/internal/products/%s/reserve", productID), productID, quantity, idemKey)
}

func (c *catalogClient) Release(ctx context.Context, productID string, quantity int32, idemKey string) error {
	ctx, span := c.tracer.Start(ctx, "CatalogClient.Release")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	return c.mutateStock(ctx, span, fmt.Sprintf("/internal/products/%s/release", productID), productID, quantity, idemKey)
}

// mutateStock is never retried here: the committer owns retry and
// compensation policy, and the idempotency key makes its retries safe.
func (c *catalogClient) mutateStock(ctx context.Context, span trace.Span, path, productID string, quantity int32, idemKey string) error {
	_, err := utils.ExecuteWithBreaker(c.cb, func() (struct{}, error) {
		return struct{}{}, c.doMutateStock(ctx, path, productID, quantity, idemKey)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			mylogger.Warn(ctx, c.logger, "Circuit breaker open")
			return apperr.Wrap(err, apperr.CodeUnavailable, "catalog service unavailable")
		}

		span.RecordError(err)
		return err
	}

	return nil
}

func (c *catalogClient) doMutateStock(ctx context.Context, path, productID string, quantity int32, idemKey string) error {
	body, err := json.Marshal(stockRequest{Quantity: quantity, IdempotencyKey: idemKey})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeUnavailable, "catalog request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return apperr.Newf(apperr.CodeNotFound, "product %s not found", productID).
			WithDetail("product_id", productID)
	case resp.StatusCode == http.StatusPreconditionFailed || resp.StatusCode == http.StatusConflict:
		var detail stockError
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &detail)

		return apperr.Newf(apperr.CodeFailedPrecondition, "insufficient stock for product %s", productID).
			WithDetail("product_id", productID).
			WithDetail("available", detail.Available)
	case resp.StatusCode >= 500:
		return apperr.Newf(apperr.CodeUnavailable, "catalog returned %d", resp.StatusCode)
	default:
		return apperr.Newf(apperr.CodeInternal, "catalog returned %d", resp.StatusCode)
	}
}
