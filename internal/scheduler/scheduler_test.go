package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agrimarket/internal/config"
	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

type countingJobs struct {
	reports   int32
	backfills int32
}

func (c *countingJobs) RunDaily(context.Context) (models.DailyReport, error) {
	atomic.AddInt32(&c.reports, 1)
	return models.DailyReport{}, nil
}

func (c *countingJobs) BackfillCoordinates(context.Context) (int, error) {
	atomic.AddInt32(&c.backfills, 1)
	return 0, nil
}

func TestNewSchedulerRejectsUnknownTimezone(t *testing.T) {
	_, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "Mars/Olympus"}, nil, nil, nil)
	assert.Error(t, err)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	jobs := &countingJobs{}
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "every evening", Timezone: "UTC"}, jobs, jobs, nil)
	require.NoError(t, err)

	assert.Error(t, s.Start())
}

func TestStartRegistersJobs(t *testing.T) {
	jobs := &countingJobs{}
	s, err := NewScheduler(config.ReportingConfig{
		CronSchedule:         "0 20 * * *",
		BackfillCronSchedule: "*/30 * * * *",
		Timezone:             "UTC",
	}, jobs, jobs, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()

	s.runDailyReport()
	s.runBackfill()
	assert.Equal(t, int32(1), atomic.LoadInt32(&jobs.reports))
	assert.Equal(t, int32(1), atomic.LoadInt32(&jobs.backfills))
}
