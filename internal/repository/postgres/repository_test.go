package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

func TestTransactionWhere(t *testing.T) {
	from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	where, args := transactionWhere(models.TransactionFilter{
		FarmerID:    "farmer-1",
		Status:      models.StatusDelivered,
		CreatedFrom: from,
	})

	assert.Equal(t, " WHERE farmer_id=$1 AND status=$2 AND created_at>=$3", where)
	assert.Equal(t, []any{"farmer-1", "delivered", from}, args)

	to := from.AddDate(0, 0, 1)
	where, args = transactionWhere(models.TransactionFilter{Status: models.StatusCancelled, UpdatedFrom: from, UpdatedTo: to})
	assert.Equal(t, " WHERE status=$1 AND updated_at>=$2 AND updated_at<$3", where)
	assert.Equal(t, []any{"cancelled", from, to}, args)

	where, args = transactionWhere(models.TransactionFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, stringPtr[models.TransactionStatus](nil))

	s := models.StatusCompleted
	got := stringPtr(&s)
	if assert.NotNil(t, got) {
		assert.Equal(t, "completed", *got)
	}
}
