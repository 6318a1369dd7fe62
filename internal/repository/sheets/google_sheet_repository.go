package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/agrimarket/internal/config"
	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

const (
	summaryRange     = "Summary!A:I"
	summaryDateRange = "Summary!A:A"
	dateLayout       = "2006-01-02"
)

// Sheet is the subset of the Sheets API the exporter needs.
type Sheet interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// GoogleSheet implements Sheet using the official Google Sheets API.
type GoogleSheet struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheet builds a Google Sheets client for the configured spreadsheet.
func NewGoogleSheet(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheet{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRow appends the provided values to the supplied sheet range.
func (r *GoogleSheet) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// ReadRange fetches a rectangular data range from the spreadsheet.
func (r *GoogleSheet) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}

// ReportExporter appends daily reports to the Summary tab, one row per day.
type ReportExporter struct {
	sheet  Sheet
	logger *zap.Logger
}

// NewReportExporter wraps sheet.
func NewReportExporter(sheet Sheet, logger *zap.Logger) *ReportExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportExporter{sheet: sheet, logger: logger}
}

// SaveDailyReport appends report unless a row for its date already exists.
func (e *ReportExporter) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	day := report.Date.Format(dateLayout)

	rows, err := e.sheet.ReadRange(ctx, summaryDateRange)
	if err != nil {
		return fmt.Errorf("load summary dates: %w", err)
	}
	for _, row := range rows {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == day {
			e.logger.Debug("summary row already exported", zap.String("date", day))
			return nil
		}
	}

	return e.sheet.WriteRow(ctx, summaryRange, SummaryRow(report))
}

// SummaryRow lays a report out as Date, Created, Pending, Confirmed,
// InProgress, Delivered, Completed revenue, Cancelled, Created value.
func SummaryRow(r models.DailyReport) []interface{} {
	return []interface{}{
		r.Date.Format(dateLayout),
		r.TransactionsCreated,
		r.StatusCounts[string(models.StatusPending)],
		r.StatusCounts[string(models.StatusConfirmed)],
		r.StatusCounts[string(models.StatusInProgress)],
		r.StatusCounts[string(models.StatusDelivered)],
		r.CompletedRevenue,
		r.Cancelled,
		r.CreatedValue,
	}
}
