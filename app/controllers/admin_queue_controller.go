package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ardikapras/netbill/internal/pkg/routeros"
)

// HandleAdminListProfiles lists the PPP or hotspot profiles configured on the
// device, so package router_profile values can be checked against reality.
func HandleAdminListProfiles(c *fiber.Ctx) error {
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

	profiles, err := client.ListProfiles(ctx, kind)
	if err != nil {
		return deviceError(c, err)
	}
	return c.JSON(fiber.Map{"service": string(kind), "profiles": profiles})
}

// HandleAdminListQueues lists the device's simple queues.
func HandleAdminListQueues(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	queues, err := client.ListQueues(ctx)
	if err != nil {
		return deviceError(c, err)
	}
	return c.JSON(fiber.Map{"queues": queues})
}

type queueRequest struct {
	Name     string `json:"name"`
	Target   string `json:"target"`
	MaxLimit string `json:"max_limit"`
	Comment  string `json:"comment"`
}

func (r *queueRequest) toQueue() routeros.SimpleQueue {
	return routeros.SimpleQueue{
		Name:     strings.TrimSpace(r.Name),
		Target:   strings.TrimSpace(r.Target),
		MaxLimit: strings.TrimSpace(r.MaxLimit),
		Comment:  strings.TrimSpace(r.Comment),
	}
}

// HandleAdminCreateQueue adds a simple queue for manual bandwidth control.
func HandleAdminCreateQueue(c *fiber.Ctx) error {
	var req queueRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Malformed request body")
	}
	queue := req.toQueue()
	if queue.Name == "" || queue.Target == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Name and target are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	created, err := client.CreateQueue(ctx, queue)
	if err != nil {
		return deviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleAdminUpdateQueue patches an existing simple queue by its device id.
func HandleAdminUpdateQueue(c *fiber.Ctx) error {
	queueID := strings.TrimSpace(c.Params("queueID"))
	if queueID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Queue id is required")
	}
	var req queueRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Malformed request body")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	updated, err := client.UpdateQueue(ctx, queueID, req.toQueue())
	if err != nil {
		return deviceError(c, err)
	}
	return c.JSON(updated)
}

// HandleAdminDeleteQueue removes a simple queue by its device id.
func HandleAdminDeleteQueue(c *fiber.Ctx) error {
	queueID := strings.TrimSpace(c.Params("queueID"))
	if queueID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Queue id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := deviceResolver.Resolve(ctx)
	if err != nil {
		return resolveError(c, err)
	}

	if err := client.DeleteQueue(ctx, queueID); err != nil {
		return deviceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
