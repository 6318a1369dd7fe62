package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/repository/memory"
)

type failingSink struct{}

func (failingSink) SaveDailyReport(context.Context, models.DailyReport) error {
	return errors.New("sheets quota exceeded")
}

func seed(t *testing.T, store *memory.Store, txs ...models.Transaction) {
	t.Helper()
	for _, tx := range txs {
		_, err := store.Insert(context.Background(), tx)
		require.NoError(t, err)
	}
}

func TestGenerateAggregatesDay(t *testing.T) {
	store := memory.NewStore()
	day := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	yesterday := day.AddDate(0, 0, -1)

	seed(t, store,
		models.Transaction{Status: models.StatusPending, Quantity: 10, PricePerUnit: 0.1, CreatedAt: day, UpdatedAt: day},
		models.Transaction{Status: models.StatusPending, Quantity: 20, PricePerUnit: 0.2, CreatedAt: day, UpdatedAt: day},
		models.Transaction{Status: models.StatusCancelled, Quantity: 5, PricePerUnit: 10, CreatedAt: day, UpdatedAt: day},
		models.Transaction{Status: models.StatusCompleted, Quantity: 100, PricePerUnit: 25, CreatedAt: yesterday, UpdatedAt: day},
		models.Transaction{Status: models.StatusCompleted, Quantity: 1, PricePerUnit: 1, CreatedAt: yesterday, UpdatedAt: yesterday},
	)

	svc := NewService(store, time.UTC, nil)
	report, err := svc.Generate(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), report.Date)
	assert.Equal(t, 3, report.TransactionsCreated)
	assert.Equal(t, 2, report.StatusCounts["pending"])
	assert.Equal(t, 1, report.StatusCounts["cancelled"])
	assert.Equal(t, 0, report.StatusCounts["completed"])
	assert.Equal(t, 35.0, report.CreatedVolume)
	assert.Equal(t, 55.0, report.CreatedValue)
	assert.Equal(t, 2500.0, report.CompletedRevenue)
	assert.Equal(t, 1, report.Cancelled)
}

func TestRunDailySavesToEverySink(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)
	seed(t, store, models.Transaction{Status: models.StatusPending, Quantity: 1, PricePerUnit: 2, CreatedAt: now})

	svc := NewService(store, time.UTC, nil, failingSink{}, store)
	svc.now = func() time.Time { return now }

	report, err := svc.RunDaily(context.Background())
	assert.ErrorContains(t, err, "sheets quota exceeded")
	assert.Equal(t, 1, report.TransactionsCreated)

	saved := store.Reports()
	require.Len(t, saved, 1)
	assert.Equal(t, report.Date, saved[0].Date)
}

func TestDayBoundsUsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	start, end := DayBounds(time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC), kolkata)

	assert.Equal(t, 16, start.Day())
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestSummary(t *testing.T) {
	s := Summary(models.DailyReport{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), TransactionsCreated: 2, CompletedRevenue: 10})
	assert.Contains(t, s, "2024-03-15: 2 new transactions")
}

type recordingLister struct {
	filters []models.TransactionFilter
}

func (r *recordingLister) List(_ context.Context, f models.TransactionFilter) ([]models.Transaction, error) {
	r.filters = append(r.filters, f)
	return nil, nil
}

func TestGenerateBoundsTerminalQueriesToTheDay(t *testing.T) {
	lister := &recordingLister{}
	svc := NewService(lister, time.UTC, nil)

	_, err := svc.Generate(context.Background(), time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	require.Len(t, lister.filters, 3)
	for _, f := range lister.filters[1:] {
		assert.Equal(t, start, f.UpdatedFrom)
		assert.Equal(t, end, f.UpdatedTo)
	}
	assert.Equal(t, models.StatusCompleted, lister.filters[1].Status)
	assert.Equal(t, models.StatusCancelled, lister.filters[2].Status)
}
