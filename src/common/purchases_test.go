package common

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signup/src/db"
	"signup/src/lib"
	"signup/src/models"
	"signup/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDb(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqldb}), &gorm.Config{
		TranslateError: true,
	})
	assert.NoError(t, err)

	db.NewDB(gormDB)
	return mock
}

// stubStripeServer points the client singleton at a local server that
// answers every call with one canned checkout session.
func stubStripeServer(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_race","url":"https://checkout.stripe.com/c/pay/cs_test_race"}`)
	}))
	t.Cleanup(srv.Close)
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(srv.URL),
	})
	lib.NewStripeClient(stripe.NewClient("sk_test_stub", stripe.WithBackends(&stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})))
}

func TestInitiateCheckoutDuplicatePendingConflict(t *testing.T) {
	stubStripeServer(t)
	mock := newMockDb(t)

	mock.ExpectQuery(`SELECT (.+) FROM "programs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "currency", "full_price", "class_rep_discount", "early_bird_discount", "class_rep_limit", "is_free"}).
			AddRow(1, "Fall Cohort", "usd", 1900, 500, 400, 10, false))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT (.+) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	// the pending row is re-read under lock inside the commit unit
	mock.ExpectQuery(`SELECT (.+) FROM "purchases" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	// a concurrent attempt inserted first; the partial unique index rejects ours
	mock.ExpectQuery(`INSERT INTO "purchases"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_purchases_pending_program"})
	mock.ExpectRollback()

	pid := uint(1)
	_, err := InitiateCheckout(context.Background(), 3, &types.CheckoutRequestBody{ProgramID: &pid})
	assert.ErrorIs(t, err, types.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletePurchaseTransitionsOnce(t *testing.T) {
	mock := newMockDb(t)
	pid := uint(1)
	purchase := &models.Purchase{ID: 7, OrderNumber: "ORD-20260830-AAAAAA", UserID: 3, ProgramID: &pid, Status: types.PURCHASE_PENDING}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "purchases" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	transitioned, attached, err := CompletePurchase(purchase, "pi_100")
	assert.NoError(t, err)
	assert.True(t, transitioned)
	assert.False(t, attached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletePurchaseDuplicateDeliveryNoOp(t *testing.T) {
	mock := newMockDb(t)
	pid := uint(1)
	purchase := &models.Purchase{ID: 7, OrderNumber: "ORD-20260830-AAAAAA", UserID: 3, ProgramID: &pid, Status: types.PURCHASE_PENDING}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "purchases" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "status", "stripe_payment_intent_id"}).
			AddRow(7, "ORD-20260830-AAAAAA", "completed", "pi_100"))
	mock.ExpectCommit()

	transitioned, attached, err := CompletePurchase(purchase, "pi_100")
	assert.NoError(t, err)
	assert.False(t, transitioned)
	assert.False(t, attached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletePurchaseAttachesLateIntent(t *testing.T) {
	mock := newMockDb(t)
	pid := uint(1)
	purchase := &models.Purchase{ID: 7, OrderNumber: "ORD-20260830-AAAAAA", UserID: 3, ProgramID: &pid, Status: types.PURCHASE_PENDING}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "purchases" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "status", "stripe_payment_intent_id"}).
			AddRow(7, "ORD-20260830-AAAAAA", "completed", nil))
	mock.ExpectExec(`UPDATE "purchases" SET "stripe_payment_intent_id"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	transitioned, attached, err := CompletePurchase(purchase, "pi_100")
	assert.NoError(t, err)
	assert.False(t, transitioned)
	assert.True(t, attached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrichBillingSnapshotWritesOnce(t *testing.T) {
	mock := newMockDb(t)
	details := &lib.PaymentMethodDetails{CardBrand: "visa", CardLast4: "4242", BillingName: "Sam Rivera"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "purchases" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	assert.NoError(t, EnrichBillingSnapshot(7, details))

	// the guarded update matches nothing once the snapshot is populated
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "purchases" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	assert.NoError(t, EnrichBillingSnapshot(7, details))

	assert.NoError(t, mock.ExpectationsWereMet())
}

var pendingCols = []string{"id", "order_number", "user_id", "program_id", "status", "is_class_rep", "updated_at"}

func TestCleanupDeletesStalePending(t *testing.T) {
	mock := newMockDb(t)
	stale := time.Now().Add(-36 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows(pendingCols).
			AddRow(7, "ORD-20260829-BBBBBB", 3, 1, "pending", false, stale))
	mock.ExpectExec(`DELETE FROM "purchases"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, CleanupPendingPurchases(3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupKeepsFreshPending(t *testing.T) {
	mock := newMockDb(t)
	fresh := time.Now().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows(pendingCols).
			AddRow(7, "ORD-20260830-CCCCCC", 3, 1, "pending", false, fresh))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectCommit()

	assert.NoError(t, CleanupPendingPurchases(3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupRemovesPendingWithCompletedSibling(t *testing.T) {
	mock := newMockDb(t)
	fresh := time.Now().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows(pendingCols).
			AddRow(7, "ORD-20260830-DDDDDD", 3, 1, "pending", true, fresh))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	// the delete comes first; the slot is released only for a removed row
	mock.ExpectExec(`DELETE FROM "purchases"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "programs" SET "class_rep_count"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, CleanupPendingPurchases(3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupKeepsSlotWhenDeleteMisses(t *testing.T) {
	mock := newMockDb(t)
	stale := time.Now().Add(-36 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "purchases"`).
		WillReturnRows(sqlmock.NewRows(pendingCols).
			AddRow(7, "ORD-20260829-EEEEEE", 3, 1, "pending", true, stale))
	// the reconciler completed the record first; no counter update may follow
	mock.ExpectExec(`DELETE FROM "purchases"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.NoError(t, CleanupPendingPurchases(3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
