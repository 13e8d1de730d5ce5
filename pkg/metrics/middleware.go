package metrics

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Middleware records minimax_worker_requests_total for every request, labelled
// by route path and status class ("2xx", "4xx", ...).
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		RequestsTotal.WithLabelValues(route, strconv.Itoa(status/100)+"xx").Inc()
		return err
	}
}
