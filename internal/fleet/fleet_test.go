package fleet

import (
	"net/http"
	"strings"
	"testing"

	"motorent/internal/config"
	"motorent/internal/models"
	"motorent/internal/query"
	"motorent/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parkColumns = []string{"id", "name", "location", "image", "dealer_id"}

func expectAudit(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
}

func TestDealerCannotUpdateForeignPark(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Put("/parks/:id", UpdateParkHandler())

	mock.ExpectQuery(`SELECT \* FROM "parks"`).
		WillReturnRows(sqlmock.NewRows(parkColumns).AddRow(3, "Old Quarter", "Hanoi", "", 99))

	resp := testutil.Do(t, app, http.MethodPut, "/parks/3", fiber.Map{"name": "Mine now"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingParkHidesExistenceFromDealers(t *testing.T) {
	cases := []struct {
		name string
		user *models.User
		want int
	}{
		{"dealer", testutil.Dealer(), fiber.StatusForbidden},
		{"admin", testutil.Admin(), fiber.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := testutil.MockDB(t)
			app := testutil.NewApp(tc.user)
			app.Delete("/parks/:id", DeleteParkHandler())

			mock.ExpectQuery(`SELECT \* FROM "parks"`).WillReturnRows(sqlmock.NewRows(parkColumns))

			resp := testutil.Do(t, app, http.MethodDelete, "/parks/404", nil)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestDealerDeletesOwnPark(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Delete("/parks/:id", DeleteParkHandler())

	mock.ExpectQuery(`SELECT \* FROM "parks"`).
		WillReturnRows(sqlmock.NewRows(parkColumns).AddRow(3, "Old Quarter", "Hanoi", "", 7))
	mock.ExpectExec(`DELETE FROM "parks"`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectAudit(mock)

	resp := testutil.Do(t, app, http.MethodDelete, "/parks/3", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminMovesParkAndItsBikes(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Admin())
	app.Put("/parks/:id", UpdateParkHandler())

	mock.ExpectQuery(`SELECT \* FROM "parks"`).
		WillReturnRows(sqlmock.NewRows(parkColumns).AddRow(3, "Old Quarter", "Hanoi", "", 7))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).AddRow(8, "Other", "o@x.vn", "dealer"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "parks"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bikes" SET "dealer_id"`).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()
	expectAudit(mock)

	resp := testutil.Do(t, app, http.MethodPut, "/parks/3", fiber.Map{"dealer_id": 8})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	park := testutil.DecodeJSON[models.Park](t, resp)
	assert.Equal(t, uint(8), park.DealerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDealerCannotReassignPark(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Put("/parks/:id", UpdateParkHandler())

	mock.ExpectQuery(`SELECT \* FROM "parks"`).
		WillReturnRows(sqlmock.NewRows(parkColumns).AddRow(3, "Old Quarter", "Hanoi", "", 7))

	resp := testutil.Do(t, app, http.MethodPut, "/parks/3", fiber.Map{"dealer_id": 8})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCreateBikeCopiesDealerFromPark(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Post("/bikes", CreateBikeHandler())

	mock.ExpectQuery(`SELECT \* FROM "parks"`).
		WillReturnRows(sqlmock.NewRows(parkColumns).AddRow(3, "Old Quarter", "Hanoi", "", 7))
	mock.ExpectQuery(`INSERT INTO "bikes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	expectAudit(mock)

	resp := testutil.Do(t, app, http.MethodPost, "/bikes", fiber.Map{
		"model": "Honda Vision", "price": 150000, "park_id": 3,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	bike := testutil.DecodeJSON[models.Bike](t, resp)
	assert.Equal(t, uint(11), bike.ID)
	assert.Equal(t, uint(7), bike.DealerID)
	assert.Equal(t, models.BikeAvailable, bike.Status)
	assert.Equal(t, "Hanoi", bike.Location)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBikeValidation(t *testing.T) {
	testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Post("/bikes", CreateBikeHandler())

	resp := testutil.Do(t, app, http.MethodPost, "/bikes", fiber.Map{"model": "Honda Vision", "price": 0})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := testutil.DecodeJSON[testutil.ErrorBody](t, resp)
	assert.Contains(t, body.Fields, "price")
	assert.Contains(t, body.Fields, "park_id")
}

func TestCreateBikeRejectsOversizedPrice(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Post("/bikes", CreateBikeHandler())

	resp := testutil.Do(t, app, http.MethodPost, "/bikes",
		fiber.Map{"model": "Honda Vision", "price": int64(9_000_000_000_000_000_000), "park_id": 3})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := testutil.DecodeJSON[testutil.ErrorBody](t, resp)
	assert.Contains(t, body.Fields, "price")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBikesRejectsUnknownStatus(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(nil)
	app.Get("/bikes", ListBikesHandler())

	resp := testutil.Do(t, app, http.MethodGet, "/bikes?status=stolen", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBikesPaginates(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(nil)
	app.Get("/bikes", ListBikesHandler())

	mock.ExpectQuery(`SELECT count\(\*\) FROM "bikes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT \* FROM "bikes" WHERE status = .+ ORDER BY "price" DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "model", "status", "price"}).
			AddRow(2, "Yamaha Exciter", "available", 200000))

	resp := testutil.Do(t, app, http.MethodGet, "/bikes?status=available&page=2&limit=2&sort=price&order=desc", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	page := testutil.DecodeJSON[query.PageResponse[models.Bike]](t, resp)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Yamaha Exciter", page.Data[0].Model)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBikeThroughParkOwnership(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Put("/bikes/:id", UpdateBikeHandler())

	// the bike row's own dealer_id is stale; the park decides
	mock.ExpectQuery(`SELECT \* FROM "bikes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "model", "status", "price", "park_id", "dealer_id"}).
			AddRow(5, "Honda Wave", "available", 120000, 3, 7))
	mock.ExpectQuery(`SELECT \* FROM "parks"`).
		WillReturnRows(sqlmock.NewRows(parkColumns).AddRow(3, "Old Quarter", "Hanoi", "", 99))

	resp := testutil.Do(t, app, http.MethodPut, "/bikes/5", fiber.Map{"lock": true})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteHandler(t *testing.T) {
	mock := testutil.MockDB(t)
	cfg := &config.Config{Timezone: "UTC"}
	app := testutil.NewApp(nil)
	app.Get("/bikes/bike/:id/quote", QuoteHandler(cfg))

	mock.ExpectQuery(`SELECT \* FROM "bikes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "model", "status", "price"}).
			AddRow(5, "Honda Wave", "available", 480000))

	resp := testutil.Do(t, app, http.MethodGet,
		"/bikes/bike/5/quote?start=2024-05-01T09:00:00Z&end=2024-05-01T11:00:00Z", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := testutil.DecodeJSON[struct {
		Bookable  bool   `json:"bookable"`
		Formatted string `json:"formatted"`
		Quote     struct {
			Hours int64 `json:"hours"`
			Total int64 `json:"total"`
		} `json:"quote"`
	}](t, resp)
	assert.True(t, body.Bookable)
	assert.Equal(t, int64(2), body.Quote.Hours)
	assert.Equal(t, int64(120000), body.Quote.Total)
	assert.Equal(t, "120.000 VNĐ", body.Formatted)
}

func TestQuoteHandlerRejectsEmptyInterval(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(nil)
	app.Get("/bikes/bike/:id/quote", QuoteHandler(&config.Config{Timezone: "UTC"}))

	mock.ExpectQuery(`SELECT \* FROM "bikes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price"}).AddRow(5, 480000))

	resp := testutil.Do(t, app, http.MethodGet, "/bikes/bike/5/quote?start=2024-05-01&end=2024-05-01", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestQuoteHandlerRejectsOverlongRental(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(nil)
	app.Get("/bikes/bike/:id/quote", QuoteHandler(&config.Config{Timezone: "UTC"}))

	mock.ExpectQuery(`SELECT \* FROM "bikes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price"}).AddRow(5, 480000))

	resp := testutil.Do(t, app, http.MethodGet, "/bikes/bike/5/quote?start=2024-05-01&end=2290-05-01", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func foreignBikeRows(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT \* FROM "bikes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "model", "status", "price", "park_id", "dealer_id"}).
			AddRow(5, "Honda Wave", "available", 120000, 3, 99))
	mock.ExpectQuery(`SELECT \* FROM "parks"`).
		WillReturnRows(sqlmock.NewRows(parkColumns).AddRow(3, "Old Quarter", "Hanoi", "", 99))
}

func TestDealerCannotDeleteForeignBike(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Delete("/bikes/:id", DeleteBikeHandler())

	foreignBikeRows(mock)

	resp := testutil.Do(t, app, http.MethodDelete, "/bikes/5", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForeignOwnerIsRejectedBeforeBodyValidation(t *testing.T) {
	cases := []struct {
		name   string
		route  string
		target string
		h      fiber.Handler
		expect func(sqlmock.Sqlmock)
		body   any
	}{
		{
			name: "park with oversized name", route: "/parks/:id", target: "/parks/3", h: UpdateParkHandler(),
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT \* FROM "parks"`).
					WillReturnRows(sqlmock.NewRows(parkColumns).AddRow(3, "Old Quarter", "Hanoi", "", 99))
			},
			body: fiber.Map{"name": strings.Repeat("x", 200)},
		},
		{
			name: "bike with negative price", route: "/bikes/:id", target: "/bikes/5", h: UpdateBikeHandler(),
			expect: foreignBikeRows,
			body:   fiber.Map{"price": -5, "status": "flying"},
		},
		{
			name: "bike with malformed body", route: "/bikes/:id", target: "/bikes/5", h: UpdateBikeHandler(),
			expect: foreignBikeRows,
			body:   "{not json",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := testutil.MockDB(t)
			app := testutil.NewApp(testutil.Dealer())
			app.Put(tc.route, tc.h)

			tc.expect(mock)

			resp := testutil.Do(t, app, http.MethodPut, tc.target, tc.body)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
