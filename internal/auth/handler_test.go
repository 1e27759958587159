package auth_test

import (
	"net/http"
	"testing"

	"motorent/internal/auth"
	"motorent/internal/config"
	"motorent/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var cfg = &config.Config{JWTSecret: "0123456789abcdef0123456789abcdef"}

type tokenResponse struct {
	Token string            `json:"token"`
	User  auth.UserResponse `json:"user"`
}

func TestRegisterIssuesTokenAndCookie(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(nil)
	app.Post("/auth/register", auth.RegisterHandler(cfg))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(31))

	resp := testutil.Do(t, app, http.MethodPost, "/auth/register", fiber.Map{
		"name": "Lan", "email": "Lan@Example.com", "password": "secret1",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == auth.AccessTokenCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	body := testutil.DecodeJSON[tokenResponse](t, resp)
	assert.Equal(t, cookie.Value, body.Token)
	assert.Equal(t, "lan@example.com", body.User.Email)
	assert.Equal(t, "user", string(body.User.Role))

	claims, err := auth.ParseToken(cfg.JWTSecret, body.Token)
	require.NoError(t, err)
	assert.Equal(t, "lan@example.com", claims.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(nil)
	app.Post("/auth/register", auth.RegisterHandler(cfg))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	resp := testutil.Do(t, app, http.MethodPost, "/auth/register", fiber.Map{
		"name": "Lan", "email": "lan@example.com", "password": "secret1",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	cases := []struct {
		name     string
		password string
		want     int
	}{
		{"correct password", "secret1", fiber.StatusOK},
		{"wrong password", "secret2", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := testutil.MockDB(t)
			app := testutil.NewApp(nil)
			app.Post("/auth/login", auth.LoginHandler(cfg))

			mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = `).
				WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role"}).
					AddRow(7, "Dealer", "dealer@motorent.vn", string(hash), "dealer"))

			resp := testutil.Do(t, app, http.MethodPost, "/auth/login", fiber.Map{
				"email": "dealer@motorent.vn", "password": tc.password,
			})
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(nil)
	app.Post("/auth/login", auth.LoginHandler(cfg))

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resp := testutil.Do(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"email": "nobody@motorent.vn", "password": "secret1",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMeAndLogout(t *testing.T) {
	app := testutil.NewApp(testutil.Dealer())
	app.Get("/auth/me", auth.MeHandler())
	app.Post("/auth/logout", auth.LogoutHandler())

	resp := testutil.Do(t, app, http.MethodGet, "/auth/me", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	me := testutil.DecodeJSON[auth.UserResponse](t, resp)
	assert.Equal(t, uint(7), me.ID)

	resp = testutil.Do(t, app, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.NotEmpty(t, resp.Cookies())
	assert.Empty(t, resp.Cookies()[0].Value)
}
