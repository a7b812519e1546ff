package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
)

// PaymentGateway is the thin edge to the external payment provider. The
// order's payment_status column stays the source of truth; the gateway only
// hands out references and accepts refund instructions.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, receipt string) (string, error)
	Refund(ctx context.Context, gatewayPaymentID string, amount int64) error
}

type sandboxGateway struct {
	logger *zap.Logger
}

// NewSandboxGateway returns an in-process gateway for local and test
// environments. It accepts everything and fabricates references.
func NewSandboxGateway(logger *zap.Logger) PaymentGateway {
	return &sandboxGateway{logger: logger}
}

func (g *sandboxGateway) CreateOrder(ctx context.Context, amount int64, receipt string) (string, error) {
	id := fmt.Sprintf("sbx_order_%s", uuid.NewString()[:12])

	mylogger.Info(
		ctx,
		g.logger,
		"Sandbox gateway order created",
		zap.String("gateway_order_id", id),
		zap.String("receipt", receipt),
		zap.Int64("amount", amount),
	)

	return id, nil
}

func (g *sandboxGateway) Refund(ctx context.Context, gatewayPaymentID string, amount int64) error {
	mylogger.Info(
		ctx,
		g.logger,
		"Sandbox gateway refund accepted",
		zap.String("gateway_payment_id", gatewayPaymentID),
		zap.Int64("amount", amount),
	)

	return nil
}
