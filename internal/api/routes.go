package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/trade-recon/internal/store"
)

// RegisterRoutes mounts the service endpoints on app.
func RegisterRoutes(app *fiber.App, h *Handler, st store.Store, nc *nats.Conn) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if st != nil {
			if err := st.HealthCheck(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "unhealthy",
					"reason": err.Error(),
				})
			}
		}
		if nc != nil && !nc.IsConnected() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"reason": "nats disconnected",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	trades := app.Group("/trades")
	trades.Post("/systemA", h.SubmitSystemATrade)
	trades.Post("/systemB", h.SubmitSystemBTrade)

	recons := app.Group("/reconciliations")
	recons.Get("/", h.ListReconciliations)
	recons.Get("/:tradeId", h.GetReconciliationStatus)
	recons.Post("/:tradeId/trigger", h.TriggerReconciliation)
}
