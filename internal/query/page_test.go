package query

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageFor(t *testing.T, rawQuery string) Page {
	t.Helper()
	app := fiber.New()
	var got Page
	app.Get("/", func(c *fiber.Ctx) error {
		got = PageFromCtx(c, 20)
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/?"+rawQuery, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return got
}

func TestPageFromCtx(t *testing.T) {
	p := pageFor(t, "")
	assert.Equal(t, Page{Page: 1, Limit: 20}, p)

	p = pageFor(t, "page=3&limit=10&sort=price&order=DESC")
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, "price", p.Sort)
	assert.True(t, p.Desc)
	assert.Equal(t, 20, p.Offset())

	p = pageFor(t, "page=-4&limit=5000")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)

	p = pageFor(t, "limit=0")
	assert.Equal(t, 20, p.Limit)
}

func TestNewPageResponseNeverNullData(t *testing.T) {
	resp := NewPageResponse[int](nil, 0, Page{Page: 1, Limit: 20})
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"total":0,"page":1,"limit":20}`, string(raw))
}
