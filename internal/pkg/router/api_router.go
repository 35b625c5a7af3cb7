package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ardikapras/netbill/app/controllers"
	"github.com/ardikapras/netbill/internal/pkg/env"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		// The payment gateway retries webhook deliveries; never throttle them.
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/v1/payments/callback"
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "netbill api",
		})
	})

	v1 := api.Group("/v1")

	// Payment gateway webhook. Authentication happens inside the handler via
	// the callback token header.
	v1.Post("/payments/callback", controllers.HandlePaymentCallback)

	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Post("/auth/login", controllers.HandleLogin)

	v1.Get("/packages", controllers.HandleListPackages)
	v1.Get("/packages/:id", controllers.HandleGetPackage)

	v1.Post("/subscriptions", controllers.HandleCreateSubscription)
	v1.Get("/subscriptions/:id", controllers.HandleGetSubscription)
	v1.Get("/users/:id/subscriptions", controllers.HandleListUserSubscriptions)
	v1.Get("/users/:id/transactions", controllers.HandleListUserTransactions)

	h.installAdminRoutes(v1)
}

func (h ApiRouter) installAdminRoutes(v1 fiber.Router) {
	admin := v1.Group("/admin", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", "admin"),
		},
	}))

	admin.Get("/dashboard", controllers.HandleAdminDashboard)

	admin.Get("/packages", controllers.HandleAdminListPackages)
	admin.Post("/packages", controllers.HandleAdminCreatePackage)
	admin.Put("/packages/:id", controllers.HandleAdminUpdatePackage)
	admin.Delete("/packages/:id", controllers.HandleAdminDeactivatePackage)

	admin.Get("/subscriptions", controllers.HandleAdminListSubscriptions)
	admin.Post("/subscriptions/:id/reprovision", controllers.HandleAdminReprovisionSubscription)

	admin.Get("/gateway/balance", controllers.HandleAdminGatewayBalance)
	admin.Get("/transactions/:id/invoice", controllers.HandleAdminTransactionInvoice)

	admin.Get("/router-configs", controllers.HandleAdminListRouterConfigs)
	admin.Post("/router-configs", controllers.HandleAdminCreateRouterConfig)
	admin.Put("/router-configs/:id", controllers.HandleAdminUpdateRouterConfig)
	admin.Post("/router-configs/:id/activate", controllers.HandleAdminActivateRouterConfig)
	admin.Post("/router-configs/:id/test", controllers.HandleAdminTestRouterConnection)
	admin.Delete("/router-configs/:id", controllers.HandleAdminDeleteRouterConfig)

	admin.Get("/router/status", controllers.HandleAdminRouterStatus)
	admin.Get("/router/sessions", controllers.HandleAdminActiveSessions)
	admin.Delete("/router/sessions/:sessionID", controllers.HandleAdminDisconnectSession)
	admin.Get("/router/users", controllers.HandleAdminNetworkUsers)
	admin.Get("/router/logs", controllers.HandleAdminRouterLogs)
	admin.Get("/router/traffic", controllers.HandleAdminInterfaceTraffic)
	admin.Get("/router/profiles", controllers.HandleAdminListProfiles)

	admin.Get("/router/queues", controllers.HandleAdminListQueues)
	admin.Post("/router/queues", controllers.HandleAdminCreateQueue)
	admin.Patch("/router/queues/:queueID", controllers.HandleAdminUpdateQueue)
	admin.Delete("/router/queues/:queueID", controllers.HandleAdminDeleteQueue)
}
