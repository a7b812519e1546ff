package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
)

// AddressClient fetches a user's saved address from the user service so
// checkout can snapshot it onto the order.
type AddressClient interface {
	GetAddress(ctx context.Context, userID, addressID int64) (*domain.AddressSnapshot, error)
}

type addressClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewAddressClient(baseURL string, timeout time.Duration, logger *zap.Logger) AddressClient {
	return &addressClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		tracer:     otel.Tracer("address_client"),
	}
}

func (c *addressClient) GetAddress(ctx context.Context, userID, addressID int64) (*domain.AddressSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, "AddressClient.GetAddress")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("address_id", addressID),
	)

	// Reads are safe to retry once on transient failure.
	var addr *domain.AddressSnapshot
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		addr, lastErr = c.fetch(ctx, userID, addressID)
		if lastErr == nil || !apperr.IsCode(lastErr, apperr.CodeUnavailable) {
			break
		}
	}
	if lastErr != nil {
		span.RecordError(lastErr)
		return nil, lastErr
	}
	return addr, nil
}

func (c *addressClient) fetch(ctx context.Context, userID, addressID int64) (*domain.AddressSnapshot, error) {
	url := fmt.Sprintf("%s/internal/users/%d/addresses/%d", c.baseURL, userID, addressID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		mylogger.Error(
			ctx,
			c.logger,
			"Address request failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, apperr.Wrap(err, apperr.CodeUnavailable, "user service unavailable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.Newf(apperr.CodeNotFound, "address %d not found", addressID).
			WithDetail("address_id", addressID)
	case resp.StatusCode >= 500:
		return nil, apperr.Newf(apperr.CodeUnavailable, "user service returned %d", resp.StatusCode)
	default:
		return nil, apperr.Newf(apperr.CodeInternal, "user service returned %d", resp.StatusCode)
	}

	var addr domain.AddressSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&addr); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to decode address response")
	}

	return &addr, nil
}
