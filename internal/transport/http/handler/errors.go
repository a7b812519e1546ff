package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
)

// writeError renders an error as {"error": ..., "code": ..., "details": ...}
// with the HTTP status its code maps to.
func writeError(c *fiber.Ctx, err error) error {
	code := apperr.CodeOf(err)

	body := fiber.Map{
		"error": err.Error(),
		"code":  string(code),
	}
	if details := apperr.DetailsOf(err); len(details) > 0 {
		body["details"] = details
	}

	return c.Status(httpStatus(code)).JSON(body)
}

func httpStatus(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument:
		return fiber.StatusBadRequest
	case apperr.CodeNotFound:
		return fiber.StatusNotFound
	case apperr.CodeFailedPrecondition:
		return fiber.StatusPreconditionFailed
	case apperr.CodeUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
