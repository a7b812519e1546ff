package http

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"

	"github.com/The-Hawkeye/go-ecommerce/internal/transport/http/handler"
)

type Handlers struct {
	Cart    *handler.CartHandler
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	app.Use(otelfiber.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", NewIdentityMiddleware())

	cart := api.Group("/cart")
	cart.Get("", h.Cart.GetCart)
	cart.Post("/items", h.Cart.AddItem)
	cart.Put("/items/:productId", h.Cart.UpdateItem)
	cart.Delete("/items/:productId", h.Cart.RemoveItem)
	cart.Delete("", h.Cart.Clear)

	order := api.Group("/orders")
	order.Post("/checkout", h.Order.Checkout)
	order.Get("", h.Order.ListOrders)
	order.Get("/:id", h.Order.GetOrder)
	order.Post("/:id/payment", h.Payment.Initiate)
}
