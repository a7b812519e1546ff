package handler

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code apperr.Code
		want int
	}{
		{apperr.CodeInvalidArgument, fiber.StatusBadRequest},
		{apperr.CodeNotFound, fiber.StatusNotFound},
		{apperr.CodeFailedPrecondition, fiber.StatusPreconditionFailed},
		{apperr.CodeUnavailable, fiber.StatusServiceUnavailable},
		{apperr.CodeInternal, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, httpStatus(tc.code), string(tc.code))
	}
}

func TestHTTPStatusUncodedError(t *testing.T) {
	assert.Equal(t, fiber.StatusInternalServerError, httpStatus(apperr.CodeOf(errors.New("boom"))))
}
