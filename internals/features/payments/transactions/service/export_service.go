// file: internals/features/payments/transactions/service/export_service.go
package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	dto "tutorhub_backend/internals/features/payments/transactions/dto"
	model "tutorhub_backend/internals/features/payments/transactions/model"
	helperOSS "tutorhub_backend/internals/helpers/oss"
)

const (
	exportMaxRows = 50000
	sheetName     = "Transactions"

	mimeCSV  = "text/csv; charset=utf-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrUnsupportedFormat = fiber.NewError(fiber.StatusBadRequest, "format must be csv or xlsx")

var exportHeader = []string{
	"Reference", "Date", "Student", "Email", "Student ID", "Class",
	"Payment Link", "Method", "Status", "Amount", "Remaining", "Partial",
}

type Exporter struct {
	DB    *gorm.DB
	Store helperOSS.ExportStore
	Now   func() time.Time
}

func NewExporter(db *gorm.DB, store helperOSS.ExportStore) *Exporter {
	return &Exporter{DB: db, Store: store, Now: time.Now}
}

// Export writes the filtered transactions to a file and returns its URL.
// It only reads entities.
func (e *Exporter) Export(ctx context.Context, format string, f dto.Filters) (string, error) {
	rows, err := All(ctx, e.DB, f, exportMaxRows)
	if err != nil {
		return "", err
	}

	var (
		data []byte
		mime string
	)
	switch format {
	case "csv":
		data, err = buildCSV(rows)
		mime = mimeCSV
	case "xlsx":
		data, err = buildXLSX(rows)
		mime = mimeXLSX
	default:
		return "", ErrUnsupportedFormat
	}
	if err != nil {
		return "", errors.Wrapf(err, "build %s", format)
	}

	name := helperOSS.ExportName("transactions", format, e.Now())
	url, err := e.Store.Put(ctx, name, mime, data)
	if err != nil {
		return "", errors.Wrap(err, "store export")
	}
	log.Printf("[EXPORT] %s (%d rows, %d bytes)", name, len(rows), len(data))
	return url, nil
}

func exportRow(t *model.Transaction) []string {
	partial := "No"
	if t.TransactionIsPartial {
		partial = "Yes"
	}
	return []string{
		t.TransactionReference,
		t.TransactionDate.Format("2006-01-02 15:04"),
		t.TransactionStudentName,
		t.TransactionEmail,
		t.TransactionStudentID,
		t.TransactionClass,
		t.TransactionLinkTitle,
		t.TransactionMethod,
		string(t.TransactionStatus),
		strconv.FormatInt(t.TransactionAmount, 10),
		strconv.FormatInt(t.TransactionRemaining, 10),
		partial,
	}
}

func buildCSV(rows []model.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for i := range rows {
		if err := w.Write(exportRow(&rows[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func buildXLSX(rows []model.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	for i, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}
	for i := range rows {
		t := &rows[i]
		r := i + 2
		vals := []interface{}{
			t.TransactionReference,
			t.TransactionDate.Format("2006-01-02 15:04"),
			t.TransactionStudentName,
			t.TransactionEmail,
			t.TransactionStudentID,
			t.TransactionClass,
			t.TransactionLinkTitle,
			t.TransactionMethod,
			string(t.TransactionStatus),
			t.TransactionAmount,
			t.TransactionRemaining,
			t.TransactionIsPartial,
		}
		cell, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(sheetName, cell, &vals); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
