package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/repository"
)

const dateLayout = "2006-01-02"

// TransactionLister is the read side the report needs.
type TransactionLister interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
}

// Service builds daily marketplace reports and hands them to every sink.
type Service struct {
	transactions TransactionLister
	sinks        []repository.ReportRepository
	location     *time.Location
	logger       *zap.Logger
	now          func() time.Time
}

// NewService wires a new reporting service instance. Reports are cut on
// calendar days in loc.
func NewService(transactions TransactionLister, loc *time.Location, logger *zap.Logger, sinks ...repository.ReportRepository) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		transactions: transactions,
		sinks:        sinks,
		location:     loc,
		logger:       logger,
		now:          time.Now,
	}
}

// DayBounds returns the start of day and the start of the next day around t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Generate aggregates the activity of the day containing day.
func (s *Service) Generate(ctx context.Context, day time.Time) (models.DailyReport, error) {
	start, end := DayBounds(day, s.location)

	created, err := s.transactions.List(ctx, models.TransactionFilter{CreatedFrom: start, CreatedTo: end})
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("load created transactions: %w", err)
	}
	// Completed and cancelled are counted by the day their status last changed.
	completed, err := s.transactions.List(ctx, models.TransactionFilter{Status: models.StatusCompleted, UpdatedFrom: start, UpdatedTo: end})
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("load completed transactions: %w", err)
	}
	cancelled, err := s.transactions.List(ctx, models.TransactionFilter{Status: models.StatusCancelled, UpdatedFrom: start, UpdatedTo: end})
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("load cancelled transactions: %w", err)
	}

	report := models.DailyReport{
		Date:                start,
		TransactionsCreated: len(created),
		StatusCounts:        make(map[string]int, len(models.AllTransactionStatuses)),
		CreatedAt:           s.now().UTC(),
	}
	for _, status := range models.AllTransactionStatuses {
		report.StatusCounts[string(status)] = 0
	}

	volume := decimal.Zero
	value := decimal.Zero
	for _, tx := range created {
		report.StatusCounts[string(tx.Status)]++
		volume = volume.Add(decimal.NewFromFloat(tx.Quantity))
		value = value.Add(decimal.NewFromFloat(tx.TotalAmount))
	}

	revenue := decimal.Zero
	for _, tx := range completed {
		revenue = revenue.Add(decimal.NewFromFloat(tx.TotalAmount))
	}
	report.Cancelled = len(cancelled)

	report.CreatedVolume = volume.Round(2).InexactFloat64()
	report.CreatedValue = value.Round(2).InexactFloat64()
	report.CompletedRevenue = revenue.Round(2).InexactFloat64()

	return report, nil
}

// RunDaily generates today's report and stores it in every sink. A failing
// sink does not stop the others.
func (s *Service) RunDaily(ctx context.Context) (models.DailyReport, error) {
	report, err := s.Generate(ctx, s.now())
	if err != nil {
		return models.DailyReport{}, err
	}

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.SaveDailyReport(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("daily marketplace report generated",
		zap.String("date", report.Date.Format(dateLayout)),
		zap.Int("created", report.TransactionsCreated),
		zap.Float64("completed_revenue", report.CompletedRevenue),
		zap.Int("cancelled", report.Cancelled),
		zap.Int("sink_failures", len(errs)))

	return report, errors.Join(errs...)
}

// Summary renders a report as a short human-readable line.
func Summary(r models.DailyReport) string {
	return fmt.Sprintf("Marketplace %s: %d new transactions (%.2f units, value %.2f), revenue completed %.2f, %d cancelled.",
		r.Date.Format(dateLayout), r.TransactionsCreated, r.CreatedVolume, r.CreatedValue, r.CompletedRevenue, r.Cancelled)
}
