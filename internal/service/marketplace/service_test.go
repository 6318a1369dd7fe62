package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agrimarket/internal/domain/apperr"
	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/repository"
	"github.com/mamadbah2/agrimarket/internal/repository/memory"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type publishedEvent struct {
	eventType string
	key       string
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType, key, payload})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.eventType
	}
	return out
}

type recordingNotifier struct {
	mu      sync.Mutex
	buyers  []string
	err     error
	release chan struct{}
}

func (n *recordingNotifier) NotifyTransactionCreated(ctx context.Context, buyer models.Buyer, _ models.Transaction) error {
	if n.release != nil {
		select {
		case <-n.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.buyers = append(n.buyers, buyer.ID)
	return n.err
}

func (n *recordingNotifier) notified() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.buyers...)
}

type fixture struct {
	svc       *Service
	store     *memory.Store
	publisher *recordingPublisher
	notifier  *recordingNotifier
	farmer    models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.InsertBuyer(ctx, models.Buyer{ID: "buyer-1", Name: "Organic Foods Co.", Status: models.BuyerActive})
	require.NoError(t, err)
	_, err = store.InsertField(ctx, models.Field{ID: "field-1", UserID: "farmer-1", Name: "North plot"})
	require.NoError(t, err)
	_, err = store.InsertField(ctx, models.Field{ID: "field-2", UserID: "farmer-2", Name: "Other plot"})
	require.NoError(t, err)

	f := &fixture{
		store:     store,
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		farmer:    models.Actor{UserID: "farmer-1", Role: "farmer"},
	}
	f.svc = NewService(Deps{
		Transactions: store,
		Buyers:       store,
		Fields:       store,
		Publisher:    f.publisher,
		Notifier:     f.notifier,
		Clock:        func() time.Time { return fixedNow },
	})
	return f
}

func validInput() CreateInput {
	return CreateInput{
		FarmerID:     "farmer-1",
		BuyerID:      "buyer-1",
		FieldID:      "field-1",
		CropType:     "Rice",
		Quantity:     100,
		PricePerUnit: 25,
	}
}

func (f *fixture) create(t *testing.T) models.Transaction {
	t.Helper()
	tx, err := f.svc.Create(context.Background(), f.farmer, validInput())
	require.NoError(t, err)
	return tx
}

func statusPtr(s models.TransactionStatus) *models.TransactionStatus { return &s }

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)

	tx := f.create(t)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Equal(t, models.PaymentPending, tx.PaymentStatus)
	assert.Equal(t, models.PaymentCash, tx.PaymentMethod)
	assert.Equal(t, models.UnitKg, tx.UnitOfMeasure)
	assert.Equal(t, 2500.0, tx.TotalAmount)
	assert.Equal(t, fixedNow, tx.CreatedAt)
	assert.Equal(t, fixedNow, tx.TransactionDate)

	assert.Equal(t, []string{"TransactionCreated"}, f.publisher.types())
	require.NoError(t, f.svc.Wait(context.Background()))
	assert.Equal(t, []string{"buyer-1"}, f.notifier.notified())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(in *CreateInput){
		"missing buyer":  func(in *CreateInput) { in.BuyerID = "" },
		"missing crop":   func(in *CreateInput) { in.CropType = " " },
		"zero quantity":  func(in *CreateInput) { in.Quantity = 0 },
		"negative price": func(in *CreateInput) { in.PricePerUnit = -1 },
		"bad unit":       func(in *CreateInput) { in.UnitOfMeasure = "bushel" },
		"bad method":     func(in *CreateInput) { in.PaymentMethod = "barter" },
	}

	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := f.svc.Create(ctx, f.farmer, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}

	txs, err := f.store.List(ctx, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestCreateRequiresExistingBuyerAndOwnedField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.BuyerID = "ghost"
	_, err := f.svc.Create(ctx, f.farmer, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.EqualError(t, err, "buyer not found")

	in = validInput()
	in.FieldID = "field-2"
	_, err = f.svc.Create(ctx, f.farmer, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.EqualError(t, err, "field not found or not owned by user")

	in = validInput()
	in.FieldID = ""
	_, err = f.svc.Create(ctx, f.farmer, in)
	assert.NoError(t, err)
}

func TestCreateForAnotherFarmer(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.FarmerID = "farmer-2"
	in.FieldID = "field-2"

	_, err := f.svc.Create(context.Background(), f.farmer, in)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.Create(context.Background(), models.Actor{UserID: "ops", Role: models.RoleAdmin}, in)
	assert.NoError(t, err)
}

func TestCreateIgnoresNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("whatsapp down")

	tx, err := f.svc.Create(context.Background(), f.farmer, validInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tx.Status)
	require.NoError(t, f.svc.Wait(context.Background()))
}

func TestCreateDoesNotWaitForSlowNotifier(t *testing.T) {
	f := newFixture(t)
	f.notifier.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	tx, err := f.svc.Create(ctx, f.farmer, validInput())
	require.NoError(t, err)
	cancel()
	assert.NotEmpty(t, tx.ID)
	assert.Empty(t, f.notifier.notified())

	short, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer stop()
	assert.ErrorIs(t, f.svc.Wait(short), context.DeadlineExceeded)

	close(f.notifier.release)
	require.NoError(t, f.svc.Wait(context.Background()))
	assert.Equal(t, []string{"buyer-1"}, f.notifier.notified())
}

func TestUpdateStatusTreatsEmptyStatusAsUnchanged(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)
	notes := "call before loading"

	updated, err := f.svc.UpdateStatus(context.Background(), f.farmer, tx.ID, StatusUpdate{
		Status: statusPtr(""),
		Notes:  &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Equal(t, notes, updated.Notes)
}

func TestUpdateStatusHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.create(t)

	for _, next := range []models.TransactionStatus{
		models.StatusConfirmed, models.StatusInProgress, models.StatusDelivered, models.StatusCompleted,
	} {
		updated, err := f.svc.UpdateStatus(ctx, f.farmer, tx.ID, StatusUpdate{Status: statusPtr(next)})
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	assert.Equal(t, []string{
		"TransactionCreated",
		"TransactionStatusChanged",
		"TransactionStatusChanged",
		"TransactionStatusChanged",
		"TransactionStatusChanged",
	}, f.publisher.types())
}

func TestUpdateStatusRejectsSkippedStep(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)

	_, err := f.svc.UpdateStatus(context.Background(), f.farmer, tx.ID, StatusUpdate{Status: statusPtr(models.StatusDelivered)})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	stored, err := f.store.FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestUpdateStatusRejectsSelfTransitionAndUnknownStatus(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, f.farmer, tx.ID, StatusUpdate{Status: statusPtr(models.StatusPending)})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, f.farmer, tx.ID, StatusUpdate{Status: statusPtr("shipped")})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestUpdateStatusOnlyOwner(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)

	_, err := f.svc.UpdateStatus(context.Background(), models.Actor{UserID: "farmer-2"}, tx.ID,
		StatusUpdate{Status: statusPtr(models.StatusConfirmed)})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.UpdateStatus(context.Background(), f.farmer, "missing", StatusUpdate{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateStatusAppliesAllowListedFields(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)

	paid := models.PaymentCompleted
	method := models.PaymentBankTransfer
	notes := "paid in full"
	rating := 4
	delivery := fixedNow.Add(48 * time.Hour)

	updated, err := f.svc.UpdateStatus(context.Background(), f.farmer, tx.ID, StatusUpdate{
		Status:        statusPtr(models.StatusConfirmed),
		PaymentStatus: &paid,
		PaymentMethod: &method,
		Notes:         &notes,
		DeliveryDate:  &delivery,
		QualityRating: &rating,
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentCompleted, updated.PaymentStatus)
	assert.Equal(t, models.PaymentBankTransfer, updated.PaymentMethod)
	assert.Equal(t, "paid in full", updated.Notes)
	require.NotNil(t, updated.DeliveryDate)
	assert.True(t, delivery.Equal(*updated.DeliveryDate))
	require.NotNil(t, updated.QualityRating)
	assert.Equal(t, 4, *updated.QualityRating)
	assert.Equal(t, tx.TotalAmount, updated.TotalAmount)
	assert.Equal(t, tx.FarmerID, updated.FarmerID)
}

func TestUpdateStatusValidatesFields(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)
	ctx := context.Background()

	rating := 6
	_, err := f.svc.UpdateStatus(ctx, f.farmer, tx.ID, StatusUpdate{QualityRating: &rating})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	ps := models.PaymentStatus("refunded")
	_, err = f.svc.UpdateStatus(ctx, f.farmer, tx.ID, StatusUpdate{PaymentStatus: &ps})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx := f.create(t)
	cancelled, err := f.svc.Cancel(ctx, f.farmer, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "Cancelled by user on 2024-03-15", cancelled.Notes)

	in := validInput()
	in.Notes = "first lot"
	tx, err = f.svc.Create(ctx, f.farmer, in)
	require.NoError(t, err)
	cancelled, err = f.svc.Cancel(ctx, f.farmer, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "first lot - Cancelled by user on 2024-03-15", cancelled.Notes)

	assert.Contains(t, f.publisher.types(), "TransactionCancelled")
}

func TestCancelTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.create(t)

	_, err := f.svc.Cancel(ctx, f.farmer, tx.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.farmer, tx.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.EqualError(t, err, "cannot cancel a transaction with status cancelled")

	_, err = f.svc.UpdateStatus(ctx, f.farmer, tx.ID, StatusUpdate{Status: statusPtr(models.StatusConfirmed)})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

// racingRepo changes the stored status right before the first conditional write.
type racingRepo struct {
	repository.TransactionRepository
	once     sync.Once
	raceTo   models.TransactionStatus
	alwaysUp bool
}

func (r *racingRepo) UpdateIfStatus(ctx context.Context, id string, expected models.TransactionStatus, patch models.TransactionPatch) (models.Transaction, error) {
	if r.alwaysUp {
		return models.Transaction{}, repository.ErrStatusConflict
	}
	r.once.Do(func() {
		to := r.raceTo
		_, _ = r.TransactionRepository.UpdateIfStatus(ctx, id, expected, models.TransactionPatch{Status: &to})
	})
	return r.TransactionRepository.UpdateIfStatus(ctx, id, expected, patch)
}

func TestConcurrentChangeIsRevalidated(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)

	repo := &racingRepo{TransactionRepository: f.store, raceTo: models.StatusCancelled}
	svc := NewService(Deps{Transactions: repo, Buyers: f.store, Fields: f.store, Clock: f.svc.now})

	_, err := svc.UpdateStatus(context.Background(), f.farmer, tx.ID, StatusUpdate{Status: statusPtr(models.StatusConfirmed)})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	stored, err := f.store.FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
}

func TestConcurrentChangeToStillValidStateRetries(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)

	repo := &racingRepo{TransactionRepository: f.store, raceTo: models.StatusConfirmed}
	svc := NewService(Deps{Transactions: repo, Buyers: f.store, Fields: f.store, Clock: f.svc.now})

	updated, err := svc.Cancel(context.Background(), f.farmer, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
}

func TestPersistentConflictGivesUp(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)

	repo := &racingRepo{TransactionRepository: f.store, alwaysUp: true}
	svc := NewService(Deps{Transactions: repo, Buyers: f.store, Fields: f.store})

	_, err := svc.Cancel(context.Background(), f.farmer, tx.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestConcurrentCancelAndConfirmSingleOutcome(t *testing.T) {
	f := newFixture(t)
	tx := f.create(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = f.svc.Cancel(ctx, f.farmer, tx.ID)
	}()
	go func() {
		defer wg.Done()
		_, _ = f.svc.UpdateStatus(ctx, f.farmer, tx.ID, StatusUpdate{Status: statusPtr(models.StatusConfirmed)})
	}()
	wg.Wait()

	stored, err := f.store.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Contains(t, []models.TransactionStatus{models.StatusCancelled, models.StatusConfirmed}, stored.Status)
}

func TestGetAndListVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.create(t)

	got, err := f.svc.Get(ctx, f.farmer, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	_, err = f.svc.Get(ctx, models.Actor{UserID: "farmer-2"}, tx.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.Get(ctx, models.Actor{UserID: "ops", Role: models.RoleAdmin}, tx.ID)
	assert.NoError(t, err)

	list, err := f.svc.List(ctx, f.farmer, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.List(ctx, f.farmer, ListFilter{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.List(ctx, models.Actor{UserID: "farmer-2"}, ListFilter{UserID: "farmer-1"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.List(ctx, f.farmer, ListFilter{Status: "shipped"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	list, err = f.svc.List(ctx, models.Actor{UserID: "ops", Role: models.RoleAdmin}, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
