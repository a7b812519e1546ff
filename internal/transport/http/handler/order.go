package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/service"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
	"github.com/The-Hawkeye/go-ecommerce/pkg/utils"
)

type OrderHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewOrderHandler(checkout service.CheckoutService, orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		validate: validator.New(),
		logger:   logger,
	}
}

type CheckoutInput struct {
	AddressID   int64  `json:"address_id" validate:"required,gt=0"`
	PaymentMode string `json:"payment_mode" validate:"required,oneof=UPI CARD COD"`
}

func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	userID := c.Locals("userId").(int64)

	var input CheckoutInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	order, err := h.checkout.Checkout(c.UserContext(), userID, input.AddressID, domain.PaymentMode(input.PaymentMode))
	if err != nil {
		mylogger.Warn(
			c.UserContext(),
			h.logger,
			"Checkout failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return writeError(c, err)
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"Checkout succeeded",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
	)

	return c.Status(fiber.StatusCreated).JSON(orderFromDomain(order))
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID := c.Locals("userId").(int64)

	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	order, err := h.orders.GetOrder(c.UserContext(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(orderFromDomain(order))
}

func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID := c.Locals("userId").(int64)

	limit := int32(c.QueryInt("limit", 20))
	offset := int32(c.QueryInt("offset", 0))

	orders, err := h.orders.ListOrders(c.UserContext(), userID, limit, offset)
	if err != nil {
		return writeError(c, err)
	}

	result := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, orderFromDomain(&orders[i]))
	}

	return c.JSON(fiber.Map{"orders": result})
}
