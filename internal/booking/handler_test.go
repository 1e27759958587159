package booking

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"motorent/internal/models"
	"motorent/internal/notify"
	"motorent/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

var bookingColumns = []string{"id", "name", "email", "contact_details", "status", "admin_notes", "dealer_id"}

func expectAudit(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
}

func TestCreateStoresPendingAndNotifies(t *testing.T) {
	mock := testutil.MockDB(t)
	d := &recordingDispatcher{}
	app := testutil.NewApp(nil)
	app.Post("/booking-requests", CreateHandler(d))

	mock.ExpectQuery(`INSERT INTO "booking_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	expectAudit(mock)

	resp := testutil.Do(t, app, http.MethodPost, "/booking-requests", fiber.Map{
		"name":            "Lan",
		"email":           " Lan@Example.com ",
		"contact_method":  "zalo",
		"contact_details": "0901234567",
		"pickup_location": "District 1",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := testutil.DecodeJSON[Response](t, resp)
	assert.Equal(t, "BK000042", body.BookingCode)
	assert.Equal(t, models.BookingPending, body.Status)
	assert.Equal(t, "lan@example.com", body.Email)

	require.Len(t, d.events, 1)
	assert.Equal(t, notify.KindBookingRequested, d.events[0].Kind)
	assert.Equal(t, "BK000042", d.events[0].Data["booking_code"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAttachesOptionalUser(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Customer())
	app.Post("/booking-requests", CreateHandler(&recordingDispatcher{}))

	mock.ExpectQuery(`INSERT INTO "booking_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	expectAudit(mock)

	resp := testutil.Do(t, app, http.MethodPost, "/booking-requests", fiber.Map{
		"name": "Customer", "contact_details": "0901234567",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := testutil.DecodeJSON[Response](t, resp)
	require.NotNil(t, body.UserID)
	assert.Equal(t, uint(9), *body.UserID)
	assert.Equal(t, "customer@motorent.vn", body.Email)
}

func TestCreateValidation(t *testing.T) {
	testutil.MockDB(t)
	d := &recordingDispatcher{}
	app := testutil.NewApp(nil)
	app.Post("/booking-requests", CreateHandler(d))

	resp := testutil.Do(t, app, http.MethodPost, "/booking-requests", fiber.Map{"email": "not-an-email"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := testutil.DecodeJSON[testutil.ErrorBody](t, resp)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "email")
	assert.Empty(t, d.events)
}

func TestSearchByBookingCode(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(nil)
	app.Get("/search", SearchHandler())

	mock.ExpectQuery(`SELECT \* FROM "booking_requests" WHERE id = \$1 ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(42, "Lan", "lan@example.com", "0901", "PENDING", "", nil))

	resp := testutil.Do(t, app, http.MethodGet, "/search?booking_id=bk000042", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	rows := testutil.DecodeJSON[[]Response](t, resp)
	require.Len(t, rows, 1)
	assert.Equal(t, "BK000042", rows[0].BookingCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRequiresACriterion(t *testing.T) {
	testutil.MockDB(t)
	app := testutil.NewApp(nil)
	app.Get("/search", SearchHandler())

	resp := testutil.Do(t, app, http.MethodGet, "/search", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = testutil.Do(t, app, http.MethodGet, "/search?booking_id=XYZ", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDealerListIsScopedToOwnRequests(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Get("/booking-requests", ListHandler())

	// the dealer_id query parameter is ignored for dealers
	mock.ExpectQuery(`SELECT count\(\*\) FROM "booking_requests" WHERE dealer_id = \$1$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "booking_requests" WHERE dealer_id = \$1`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(3, "Minh", "", "0902", "APPROVED", "", 7))

	resp := testutil.Do(t, app, http.MethodGet, "/booking-requests?dealer_id=99", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDealerCannotOpenUnassignedRequest(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Get("/booking-requests/:id", GetHandler())

	mock.ExpectQuery(`SELECT \* FROM "booking_requests"`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(3, "Minh", "", "0902", "PENDING", "", nil))

	resp := testutil.Do(t, app, http.MethodGet, "/booking-requests/3", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestUpdateStatusNotifiesOnChange(t *testing.T) {
	mock := testutil.MockDB(t)
	d := &recordingDispatcher{}
	app := testutil.NewApp(testutil.Dealer())
	app.Put("/booking-requests/:id", UpdateHandler(d))

	mock.ExpectQuery(`SELECT \* FROM "booking_requests"`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(3, "Minh", "minh@example.com", "0902", "PENDING", "", 7))
	mock.ExpectExec(`UPDATE "booking_requests"`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectAudit(mock)

	resp := testutil.Do(t, app, http.MethodPut, "/booking-requests/3", fiber.Map{
		"status": "approved", "admin_notes": "see you at 9",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := testutil.DecodeJSON[Response](t, resp)
	assert.Equal(t, models.BookingApproved, body.Status)

	require.Len(t, d.events, 1)
	ev := d.events[0]
	assert.Equal(t, notify.KindBookingStatusChange, ev.Kind)
	assert.Equal(t, "minh@example.com", ev.To)
	assert.Equal(t, "APPROVED", ev.Data["status"])
	assert.Equal(t, "see you at 9", ev.Data["admin_notes"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Admin())
	app.Put("/booking-requests/:id", UpdateHandler(&recordingDispatcher{}))

	mock.ExpectQuery(`SELECT \* FROM "booking_requests"`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(3, "Minh", "", "0902", "PENDING", "", nil))

	resp := testutil.Do(t, app, http.MethodPut, "/booking-requests/3", fiber.Map{"status": "LOST"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDealerCannotAssignDealer(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Dealer())
	app.Put("/booking-requests/:id", UpdateHandler(&recordingDispatcher{}))

	mock.ExpectQuery(`SELECT \* FROM "booking_requests"`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(3, "Minh", "", "0902", "PENDING", "", 7))

	resp := testutil.Do(t, app, http.MethodPut, "/booking-requests/3", fiber.Map{"dealer_id": 8})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDeleteDetachesRentals(t *testing.T) {
	mock := testutil.MockDB(t)
	app := testutil.NewApp(testutil.Admin())
	app.Delete("/booking-requests/:id", DeleteHandler())

	mock.ExpectQuery(`SELECT \* FROM "booking_requests"`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(3, "Minh", "", "0902", "PENDING", "", nil))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "rentals" SET "booking_request_id"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "booking_requests"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectAudit(mock)

	resp := testutil.Do(t, app, http.MethodDelete, "/booking-requests/3", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDealerCannotTouchAnotherDealersRequest(t *testing.T) {
	cases := []struct {
		name   string
		method string
		body   any
	}{
		{"valid update", http.MethodPut, fiber.Map{"status": "APPROVED"}},
		{"invalid status", http.MethodPut, fiber.Map{"status": "LOST"}},
		{"malformed body", http.MethodPut, "{not json"},
		{"delete", http.MethodDelete, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := testutil.MockDB(t)
			d := &recordingDispatcher{}
			app := testutil.NewApp(testutil.Dealer())
			app.Put("/booking-requests/:id", UpdateHandler(d))
			app.Delete("/booking-requests/:id", DeleteHandler())

			// assigned to dealer 8, caller is dealer 7
			mock.ExpectQuery(`SELECT \* FROM "booking_requests"`).
				WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(3, "Minh", "minh@example.com", "0902", "PENDING", "", 8))

			resp := testutil.Do(t, app, tc.method, "/booking-requests/3", tc.body)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
			assert.Empty(t, d.events)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
