// Package testutil wires handler tests to a sqlmock-backed gorm connection and a fiber app
// that renders errors the way the server does.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"motorent/internal/apperr"
	"motorent/internal/auth"
	"motorent/internal/database"
	"motorent/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockDB swaps database.DB for a sqlmock connection for the duration of the test.
func MockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return mock
}

// NewApp returns a fiber app with the production error handler. A non-nil user is attached
// to every request as if JWTMiddleware had resolved it.
func NewApp(user *models.User) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
	if user != nil {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals(auth.CtxUserKey, user)
			return c.Next()
		})
	}
	return app
}

func Admin() *models.User {
	return &models.User{ID: 1, Name: "Admin", Email: "admin@motorent.vn", Role: models.RoleAdmin}
}

// Dealer has id 7; fixtures owned by it use dealer_id 7.
func Dealer() *models.User {
	return &models.User{ID: 7, Name: "Dealer", Email: "dealer@motorent.vn", Role: models.RoleDealer}
}

func Customer() *models.User {
	return &models.User{ID: 9, Name: "Customer", Email: "customer@motorent.vn", Role: models.RoleUser}
}

// Do sends a JSON request (body may be nil) and returns the response.
func Do(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// DecodeJSON reads the response body into a value of type T.
func DecodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// ErrorBody is the shape apperr.Handler renders.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
	Code   string            `json:"code"`
}
