package sheets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

type memorySheet struct {
	rows map[string][][]interface{}
}

func (m *memorySheet) WriteRow(_ context.Context, sheetRange string, values []interface{}) error {
	if m.rows == nil {
		m.rows = map[string][][]interface{}{}
	}
	m.rows[sheetRange] = append(m.rows[sheetRange], values)
	return nil
}

func (m *memorySheet) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == summaryDateRange {
		var out [][]interface{}
		for _, row := range m.rows[summaryRange] {
			out = append(out, row[:1])
		}
		return out, nil
	}
	return m.rows[sheetRange], nil
}

func TestReportExporterAppendsOncePerDay(t *testing.T) {
	sheet := &memorySheet{}
	e := NewReportExporter(sheet, nil)
	report := models.DailyReport{
		Date:                time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		TransactionsCreated: 4,
		StatusCounts:        map[string]int{"pending": 2, "delivered": 1},
		CompletedRevenue:    1250.5,
		Cancelled:           1,
		CreatedValue:        9000,
	}

	require.NoError(t, e.SaveDailyReport(context.Background(), report))
	require.NoError(t, e.SaveDailyReport(context.Background(), report))

	rows := sheet.rows[summaryRange]
	require.Len(t, rows, 1)
	assert.Equal(t, []interface{}{"2024-03-15", 4, 2, 0, 0, 1, 1250.5, 1, 9000.0}, rows[0])
}
