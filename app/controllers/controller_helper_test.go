package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantOffset int
		wantLimit  int
	}{
		{"defaults", "", 0, 25},
		{"second page", "page=2&per_page=10", 10, 10},
		{"capped per page", "per_page=500", 0, 100},
		{"garbage falls back", "page=abc&per_page=-1", 0, 25},
	}

	app := fiber.New()
	var gotOffset, gotLimit int
	app.Get("/", func(c *fiber.Ctx) error {
		gotOffset, gotLimit = parsePagination(c)
		return c.SendStatus(fiber.StatusOK)
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/?"+tt.query, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantOffset, gotOffset)
			assert.Equal(t, tt.wantLimit, gotLimit)
		})
	}
}

func TestParseIDParam(t *testing.T) {
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.JSON(fiber.Map{"id": id})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/items/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	for _, bad := range []string{"0", "-1", "abc"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/items/"+bad, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "id %q", bad)
	}
}
