package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/service"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
)

type PaymentHandler struct {
	payments service.PaymentService
	logger   *zap.Logger
}

func NewPaymentHandler(payments service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger,
	}
}

// Initiate opens the payment for an order. Repeated calls return the same
// payment, so a client retry cannot open two.
func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	userID := c.Locals("userId").(int64)

	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	payment, err := h.payments.Initiate(c.UserContext(), userID, orderID)
	if err != nil {
		mylogger.Warn(
			c.UserContext(),
			h.logger,
			"Initiate payment failed",
			zap.Int64("user_id", userID),
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(paymentFromDomain(payment))
}
