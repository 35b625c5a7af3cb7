package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ardikapras/netbill/app/models"
	"github.com/ardikapras/netbill/app/repository"
	"github.com/ardikapras/netbill/internal/pkg/jobqueue"
	"github.com/ardikapras/netbill/internal/pkg/routeros"
)

func resolveError(c *fiber.Ctx, err error) error {
	if errors.Is(err, routeros.ErrNoActiveConfig) {
		return jsonError(c, fiber.StatusConflict, "no_active_router", "No active router configuration")
	}
	return jsonError(c, fiber.StatusBadGateway, "router_unavailable", err.Error())
}

func deviceError(c *fiber.Ctx, err error) error {
	if routeros.IsConnectivity(err) {
		deviceResolver.Invalidate()
		return jsonError(c, fiber.StatusBadGateway, "router_unreachable", err.Error())
	}
	if routeros.IsAuthentication(err) {
		return jsonError(c, fiber.StatusBadGateway, "router_authentication_failed", err.Error())
	}
	return jsonError(c, fiber.StatusBadGateway, "router_error", err.Error())
}

// serviceKindQuery maps the ?service= query param to a device service kind.
func serviceKindQuery(c *fiber.Ctx) (routeros.ServiceKind, bool) {
	switch c.Query("service", models.ServiceTypePPPoE) {
	case models.ServiceTypePPPoE:
		return routeros.ServicePPPoE, true
	case models.ServiceTypeHotspot:
		return routeros.ServiceHotspot, true
	default:
		return "", false
	}
}

// HandleAdminRouterStatus returns the device's system resource snapshot.
func HandleAdminRouterStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	resource, err := client.GetSystemResource(ctx)
	if err != nil {
		return deviceError(c, err)
	}
	return c.JSON(resource)
}

// HandleAdminActiveSessions lists live PPPoE or hotspot sessions.
func HandleAdminActiveSessions(c *fiber.Ctx) error {
	kind, ok := serviceKindQuery(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_service", "Service must be pppoe or hotspot")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	sessions, err := client.ListActiveSessions(ctx, kind)
	if err != nil {
		return deviceError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

// HandleAdminDisconnectSession drops one live session by its device id.
func HandleAdminDisconnectSession(c *fiber.Ctx) error {
	kind, ok := serviceKindQuery(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_service", "Service must be pppoe or hotspot")
	}
	sessionID := strings.TrimSpace(c.Params("sessionID"))
	if sessionID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Session id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	if err := client.DisconnectSession(ctx, kind, sessionID); err != nil {
		return deviceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminNetworkUsers lists the accounts present on the device next to
// what billing believes exists, so drift is visible.
func HandleAdminNetworkUsers(c *fiber.Ctx) error {
	kind, ok := serviceKindQuery(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_service", "Service must be pppoe or hotspot")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	secrets, err := client.ListSecrets(ctx, kind)
	if err != nil {
		return deviceError(c, err)
	}

	active, err := repository.GetGlobalFactory().GetSubscriptionRepository().ListByStatus(models.SubscriptionStatusActive, 0, 1000)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscriptions")
	}

	known := make(map[string]bool, len(active))
	for _, sub := range active {
		known[sub.RouterUsername] = true
	}
	type networkUser struct {
		routeros.Secret
		Billed bool `json:"billed"`
	}
	users := make([]networkUser, 0, len(secrets))
	for _, s := range secrets {
		users = append(users, networkUser{Secret: s, Billed: known[s.Name]})
	}
	return c.JSON(fiber.Map{"service": string(kind), "users": users})
}

// HandleAdminRouterLogs returns recent device log entries, optionally
// filtered by topics.
func HandleAdminRouterLogs(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	var topics []string
	if raw := strings.TrimSpace(c.Query("topics")); raw != "" {
		topics = strings.Split(raw, ",")
	}

	logs, err := client.GetLogs(ctx, topics)
	if err != nil {
		return deviceError(c, err)
	}
	return c.JSON(fiber.Map{"logs": logs})
}

// HandleAdminInterfaceTraffic returns per-interface byte counters.
func HandleAdminInterfaceTraffic(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	traffic, err := client.GetInterfaceTraffic(ctx)
	if err != nil {
		return deviceError(c, err)
	}
	return c.JSON(fiber.Map{"interfaces": traffic})
}

// HandleAdminDashboard aggregates the operator overview: subscription
// counts, revenue and retry queue depth.
func HandleAdminDashboard(c *fiber.Ctx) error {
	repos := repository.GetGlobalFactory().GetRepositories()

	userCount, err := repos.User.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load counts")
	}
	activeSubs, _ := repos.Subscription.CountByStatus(models.SubscriptionStatusActive)
	pendingSubs, _ := repos.Subscription.CountByStatus(models.SubscriptionStatusPending)
	monthStart := time.Now().AddDate(0, 0, -30)
	revenue, _ := repos.Transaction.SumByStatusSince(models.TransactionStatusSuccess, monthStart)

	response := fiber.Map{
		"users":                 userCount,
		"active_subscriptions":  activeSubs,
		"pending_subscriptions": pendingSubs,
		"revenue_30d":           revenue,
	}

	if manager := jobqueue.GetManager(); manager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		queue := manager.GetQueue()
		if pending, err := queue.GetQueueSize(ctx); err == nil {
			response["retry_queue_pending"] = pending
		}
		if processing, err := queue.GetProcessingSize(ctx); err == nil {
			response["retry_queue_processing"] = processing
		}
	}

	return c.JSON(response)
}
