package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/repository"
)

func TestInsertComputesTotalAndAssignsID(t *testing.T) {
	s := NewStore()

	tx, err := s.Insert(context.Background(), models.Transaction{
		FarmerID:     "farmer-1",
		Quantity:     100,
		PricePerUnit: 25,
		Status:       models.StatusPending,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, 2500.0, tx.TotalAmount)

	stored, err := s.FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx, stored)
}

func TestFindByIDMissing(t *testing.T) {
	_, err := NewStore().FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateIfStatusRejectsStaleExpectation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	tx, err := s.Insert(ctx, models.Transaction{Status: models.StatusPending})
	require.NoError(t, err)

	confirmed := models.StatusConfirmed
	_, err = s.UpdateIfStatus(ctx, tx.ID, models.StatusPending, models.TransactionPatch{Status: &confirmed})
	require.NoError(t, err)

	cancelled := models.StatusCancelled
	_, err = s.UpdateIfStatus(ctx, tx.ID, models.StatusPending, models.TransactionPatch{Status: &cancelled})
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	_, err = s.UpdateIfStatus(ctx, "missing", models.StatusPending, models.TransactionPatch{Status: &cancelled})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateIfStatusSingleWinner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	tx, err := s.Insert(ctx, models.Transaction{Status: models.StatusPending})
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := models.StatusConfirmed
			if _, err := s.UpdateIfStatus(ctx, tx.ID, models.StatusPending, models.TransactionPatch{Status: &next}); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestListFiltersNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, farmer := range []string{"f1", "f2", "f1"} {
		_, err := s.Insert(ctx, models.Transaction{
			FarmerID:        farmer,
			BuyerID:         "b1",
			Status:          models.StatusPending,
			TransactionDate: base.Add(time.Duration(i) * time.Hour),
			CreatedAt:       base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	got, err := s.List(ctx, models.TransactionFilter{FarmerID: "f1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].TransactionDate.After(got[1].TransactionDate))

	got, err = s.List(ctx, models.TransactionFilter{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListOrdersByTransactionDate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	recorded := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	// Backdated sale recorded after a newer one.
	_, err := s.Insert(ctx, models.Transaction{Notes: "newer sale", TransactionDate: recorded, CreatedAt: recorded})
	require.NoError(t, err)
	_, err = s.Insert(ctx, models.Transaction{Notes: "backdated", TransactionDate: recorded.AddDate(0, 0, -7), CreatedAt: recorded.Add(time.Hour)})
	require.NoError(t, err)

	got, err := s.List(ctx, models.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer sale", got[0].Notes)
	assert.Equal(t, "backdated", got[1].Notes)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	buyer, err := s.InsertBuyer(ctx, models.Buyer{
		Name:            "Buyer",
		InterestedCrops: []string{"Rice"},
		OfferPrice:      map[string]float64{"Rice": 20},
		Status:          models.BuyerActive,
	})
	require.NoError(t, err)

	buyer.OfferPrice["Rice"] = 1
	stored, err := s.FindBuyerByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, stored.OfferPrice["Rice"])
}

func TestBuyerQueries(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.InsertBuyer(ctx, models.Buyer{ID: "a", InterestedCrops: []string{"Rice"}, Status: models.BuyerActive})
	require.NoError(t, err)
	_, err = s.InsertBuyer(ctx, models.Buyer{ID: "b", InterestedCrops: []string{"Wheat"}, Status: models.BuyerActive,
		Coordinates: &models.Coordinates{Latitude: 1, Longitude: 2}})
	require.NoError(t, err)
	_, err = s.InsertBuyer(ctx, models.Buyer{ID: "c", InterestedCrops: []string{"Rice"}, Status: models.BuyerInactive})
	require.NoError(t, err)

	rice, err := s.ListActiveBuyers(ctx, "Rice")
	require.NoError(t, err)
	require.Len(t, rice, 1)
	assert.Equal(t, "a", rice[0].ID)

	all, err := s.ListActiveBuyers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missing, err := s.ListBuyersWithoutCoordinates(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	require.NoError(t, s.SetBuyerCoordinates(ctx, "a", models.Coordinates{Latitude: 3, Longitude: 4}))
	missing, err = s.ListBuyersWithoutCoordinates(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "c", missing[0].ID)

	n, err := s.CountBuyers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
