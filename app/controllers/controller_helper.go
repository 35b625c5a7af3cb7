package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ardikapras/netbill/internal/pkg/billing"
	"github.com/ardikapras/netbill/internal/pkg/routeros"
	"github.com/ardikapras/netbill/internal/pkg/xendit"
)

var (
	billingService *billing.Service
	deviceResolver *routeros.Resolver
	gatewayClient  *xendit.Client
)

// Initialize wires the shared service dependencies into the controller
// package. Called once from router setup.
func Initialize(svc *billing.Service, resolver *routeros.Resolver, gateway *xendit.Client) {
	billingService = svc
	deviceResolver = resolver
	gatewayClient = gateway
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// parsePagination reads page/per_page query params and returns offset, limit.
func parsePagination(c *fiber.Ctx) (int, int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.Query("per_page", "25"))
	if err != nil || perPage < 1 {
		perPage = 25
	}
	if perPage > 100 {
		perPage = 100
	}
	return (page - 1) * perPage, perPage
}

// parseIDParam reads a positive uint path parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
