package service

import (
	"context"
	"crypto/sha512"
	"encoding/csv"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tutorhub_backend/internals/databases/dbtest"
	dto "tutorhub_backend/internals/features/payments/transactions/dto"
	model "tutorhub_backend/internals/features/payments/transactions/model"
	helperOSS "tutorhub_backend/internals/helpers/oss"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "IDR 1.250.000", FormatMoney("IDR", 1250000))
	assert.Equal(t, "IDR 350.000", FormatMoney("IDR", 350000))
	assert.Equal(t, "IDR 0", FormatMoney("IDR", 0))
	assert.Equal(t, "-1.000", FormatMoney("", -1000))
	assert.Equal(t, "999", FormatMoney("", 999))
}

func TestVerifySignature(t *testing.T) {
	sum := sha512.Sum512([]byte("PAY-20261001-abcd1234" + "200" + "25000.00" + "server-key"))
	sig := hex.EncodeToString(sum[:])

	assert.True(t, VerifySignature("PAY-20261001-abcd1234", "200", "25000.00", "server-key", sig))
	assert.True(t, VerifySignature("PAY-20261001-abcd1234", "200", "25000.00", "server-key", strings.ToUpper(sig)))
	assert.False(t, VerifySignature("PAY-20261001-abcd1234", "200", "25001.00", "server-key", sig))
	assert.False(t, VerifySignature("PAY-20261001-abcd1234", "200", "25000.00", "other-key", sig))
}

func TestSplitName(t *testing.T) {
	first, last := splitName(" Citra Dewi Lestari ")
	assert.Equal(t, "Citra Dewi", first)
	assert.Equal(t, "Lestari", last)

	first, last = splitName("Eko")
	assert.Equal(t, "Eko", first)
	assert.Empty(t, last)
}

func TestTruncateKeepsWholeCharacters(t *testing.T) {
	assert.Equal(t, "Term 1", truncate("Term 1", 50))
	assert.Equal(t, "Biaya Ujian", truncate("Biaya Ujian Akhir", 11))

	got := truncate("Études 数学 Olympiad", 9)
	assert.Equal(t, "Études 数学", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "数学", truncate("数学", 2))
	assert.Equal(t, "数", truncate("数学", 1))
}

func seedTx(t *testing.T, db *gorm.DB, name, email string, status model.TransactionStatus, amount int64, at time.Time) model.Transaction {
	t.Helper()
	tx := model.Transaction{
		TransactionLinkID:      uuid.New(),
		TransactionLinkTitle:   "Term 1 Tuition Fee",
		TransactionStudentName: name,
		TransactionEmail:       email,
		TransactionAmount:      amount,
		TransactionStatus:      status,
		TransactionDate:        at,
		TransactionMethod:      "bank_transfer",
		TransactionReference:   model.NewReference(at),
	}
	if status == model.TxPartial {
		tx.TransactionIsPartial = true
		tx.TransactionRemaining = amount
	}
	require.NoError(t, db.Create(&tx).Error)
	return tx
}

func seedHistory(t *testing.T) *gorm.DB {
	db := dbtest.Open(t)
	// filters parse calendar days in the local zone
	day := func(d int) time.Time { return time.Date(2026, 10, d, 14, 30, 0, 0, time.Local) }
	seedTx(t, db, "Ayu Pratiwi", "ayu@mail.test", model.TxCompleted, 2500000, day(1))
	seedTx(t, db, "Bima Santoso", "bima@mail.test", model.TxPartial, 1250000, day(3))
	seedTx(t, db, "Citra Dewi", "citra@mail.test", model.TxPartial, 1000000, day(5))
	seedTx(t, db, "Dimas Putra", "dimas@mail.test", model.TxFailed, 350000, day(5))
	return db
}

func TestListFilters(t *testing.T) {
	db := seedHistory(t)
	ctx := context.Background()

	rows, page, err := List(ctx, db, dto.ListQuery{Filters: dto.Filters{Status: "Partial"}})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, "Citra Dewi", rows[0].TransactionStudentName, "newest first")

	rows, _, err = List(ctx, db, dto.ListQuery{Filters: dto.Filters{Search: "BIMA@"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bima Santoso", rows[0].TransactionStudentName)

	rows, _, err = List(ctx, db, dto.ListQuery{Filters: dto.Filters{DateFrom: "2026-10-03", DateTo: "2026-10-05"}})
	require.NoError(t, err)
	assert.Len(t, rows, 3, "dateTo is inclusive")

	rows, _, err = List(ctx, db, dto.ListQuery{Filters: dto.Filters{Status: "Partial", DateTo: "2026-10-04"}})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, _, err = List(ctx, db, dto.ListQuery{Filters: dto.Filters{DateFrom: "2026-10-05", DateTo: "2026-10-01"}})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	rows, page, err = List(ctx, db, dto.ListQuery{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)
}

func TestExportWritesFileWithoutMutating(t *testing.T) {
	db := seedHistory(t)
	dir := t.TempDir()
	store, err := helperOSS.NewLocalStore(dir, "https://api.tutorhub.test/api/payments/exports/")
	require.NoError(t, err)

	var before []model.Transaction
	require.NoError(t, db.Order("transaction_reference").Find(&before).Error)

	exp := NewExporter(db, store)
	url, err := exp.Export(context.Background(), "csv", dto.Filters{Status: "Partial"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://api.tutorhub.test/api/payments/exports/transactions_"))
	assert.True(t, strings.HasSuffix(url, ".csv"))

	raw, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, "Yes", records[1][11])

	var after []model.Transaction
	require.NoError(t, db.Order("transaction_reference").Find(&after).Error)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].TransactionStatus, after[i].TransactionStatus)
		assert.Equal(t, before[i].TransactionUpdatedAt.Unix(), after[i].TransactionUpdatedAt.Unix())
	}

	url, err = exp.Export(context.Background(), "xlsx", dto.Filters{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".xlsx"))

	_, err = exp.Export(context.Background(), "pdf", dto.Filters{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
