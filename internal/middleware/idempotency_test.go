package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/txengine/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *int32, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	var calls int32
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/batches", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"call": n})
	})
	app.Post("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "bad batch")
	})
	app.Get("/batches", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	return app, &calls, mr
}

func post(t *testing.T, app *fiber.App, path, key, body string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, "text/csv")
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(payload), resp.Header.Get("Idempotent-Replayed")
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, calls, _ := setupTestApp(t)

	status, _, _ := post(t, app, "/batches", "", "type,client,tx,amount\n")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestIdempotencySkipsSafeMethods(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/batches", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, _ := setupTestApp(t)
	body := "type,client,tx,amount\ndeposit,1,1,1.0\n"

	status, first, replayed := post(t, app, "/batches", "abc123", body)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, replayed)

	status, second, replayed := post(t, app, "/batches", "abc123", body)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "true", replayed)
	assert.JSONEq(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	app, calls, _ := setupTestApp(t)

	status, _, _ := post(t, app, "/batches", "k1", "type,client,tx,amount\ndeposit,1,1,1.0\n")
	require.Equal(t, fiber.StatusOK, status)

	status, _, _ = post(t, app, "/batches", "k1", "type,client,tx,amount\ndeposit,1,1,9.0\n")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestIdempotencyInProgress(t *testing.T) {
	app, calls, mr := setupTestApp(t)
	require.NoError(t, mr.Set(idempotencyPrefix+"/batches:busy", inProgressMarker))

	status, _, _ := post(t, app, "/batches", "busy", "x")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestIdempotencyReleasesKeyOnHandlerError(t *testing.T) {
	app, _, mr := setupTestApp(t)

	status, _, _ := post(t, app, "/fail", "retry-me", "x")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.False(t, mr.Exists(idempotencyPrefix+"/fail:retry-me"))
}

func TestIdempotencyStoreFailure(t *testing.T) {
	app, _, mr := setupTestApp(t)
	mr.SetError("boom")

	status, _, _ := post(t, app, "/batches", "k", "x")
	assert.Equal(t, fiber.StatusInternalServerError, status)
}
