package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ProcessTime reports server-side processing duration in seconds on every
// response via the X-Process-Time header.
func ProcessTime() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		c.Set("X-Process-Time", fmt.Sprintf("%.3f", time.Since(start).Seconds()))
		return err
	}
}
