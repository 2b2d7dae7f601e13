package common

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRecordDonationPaymentDeduplicates(t *testing.T) {
	mock := newMockDb(t)
	paidAt := time.Now()
	donationCols := []string{"id", "user_id", "status", "stripe_subscription_id"}

	mock.ExpectQuery(`SELECT (.+) FROM "donations"`).
		WillReturnRows(sqlmock.NewRows(donationCols).AddRow(5, 3, "active", "sub_100"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "donation_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectCommit()

	assert.NoError(t, RecordDonationPayment("sub_100", "in_100", 500, "usd", paidAt))

	// replayed invoice event conflicts on (donation_id, invoice_id) and
	// inserts nothing
	mock.ExpectQuery(`SELECT (.+) FROM "donations"`).
		WillReturnRows(sqlmock.NewRows(donationCols).AddRow(5, 3, "active", "sub_100"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "donation_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	assert.NoError(t, RecordDonationPayment("sub_100", "in_100", 500, "usd", paidAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
