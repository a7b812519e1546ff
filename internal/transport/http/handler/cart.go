package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/service"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
	"github.com/The-Hawkeye/go-ecommerce/pkg/utils"
)

type CartHandler struct {
	carts    service.CartService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewCartHandler(carts service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		validate: validator.New(),
		logger:   logger,
	}
}

type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int32  `json:"quantity" validate:"required,gt=0"`
}

type UpdateItemInput struct {
	Quantity int32 `json:"quantity" validate:"gte=0"`
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID := c.Locals("userId").(int64)

	cart, err := h.carts.GetCurrent(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(cartFromDomain(cart))
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID := c.Locals("userId").(int64)

	var input AddItemInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	cart, err := h.carts.AddItem(c.UserContext(), userID, input.ProductID, input.Quantity)
	if err != nil {
		mylogger.Warn(
			c.UserContext(),
			h.logger,
			"Add cart item failed",
			zap.Int64("user_id", userID),
			zap.String("product_id", input.ProductID),
			zap.Error(err),
		)

		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(cartFromDomain(cart))
}

func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	userID := c.Locals("userId").(int64)
	productID := c.Params("productId")

	var input UpdateItemInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	cart, err := h.carts.UpdateItem(c.UserContext(), userID, productID, input.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(cartFromDomain(cart))
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID := c.Locals("userId").(int64)
	productID := c.Params("productId")

	cart, err := h.carts.RemoveItem(c.UserContext(), userID, productID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(cartFromDomain(cart))
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	userID := c.Locals("userId").(int64)

	if err := h.carts.Clear(c.UserContext(), userID); err != nil {
		return writeError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
