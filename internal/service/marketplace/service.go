// Package marketplace implements the transaction lifecycle between farmers and buyers.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/domain/apperr"
	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/events"
	"github.com/mamadbah2/agrimarket/internal/metrics"
	"github.com/mamadbah2/agrimarket/internal/repository"
)

const (
	// maxWriteAttempts bounds re-reads after a concurrent status change.
	maxWriteAttempts = 3
	// maxPendingNotices bounds buyer notifications running in the background.
	maxPendingNotices = 16
	notifyTimeout     = 15 * time.Second
)

// BuyerLookup finds buyers by id.
type BuyerLookup interface {
	FindBuyerByID(ctx context.Context, id string) (models.Buyer, error)
}

// FieldLookup finds fields by id.
type FieldLookup interface {
	FindFieldByID(ctx context.Context, id string) (models.Field, error)
}

// BuyerNotifier tells a buyer about a new transaction.
type BuyerNotifier interface {
	NotifyTransactionCreated(ctx context.Context, buyer models.Buyer, tx models.Transaction) error
}

// Deps are the collaborators of a Service. Transactions, Buyers and Fields are required.
type Deps struct {
	Transactions repository.TransactionRepository
	Buyers       BuyerLookup
	Fields       FieldLookup
	Publisher    events.Publisher
	Notifier     BuyerNotifier
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// Service owns transaction creation and status changes.
type Service struct {
	transactions repository.TransactionRepository
	buyers       BuyerLookup
	fields       FieldLookup
	publisher    events.Publisher
	notifier     BuyerNotifier
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time

	noticeSlots chan struct{}
	notices     sync.WaitGroup
}

// NewService creates a new marketplace service.
func NewService(deps Deps) *Service {
	s := &Service{
		transactions: deps.Transactions,
		buyers:       deps.Buyers,
		fields:       deps.Fields,
		publisher:    deps.Publisher,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		now:          deps.Clock,
		noticeSlots:  make(chan struct{}, maxPendingNotices),
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// CreateInput is the payload of a new transaction.
type CreateInput struct {
	FarmerID        string
	BuyerID         string
	FieldID         string
	CropType        string
	Quantity        float64
	UnitOfMeasure   models.UnitOfMeasure
	PricePerUnit    float64
	PaymentMethod   models.PaymentMethod
	TransactionDate *time.Time
	DeliveryDate    *time.Time
	Notes           string
}

// StatusUpdate lists the fields a status update may change. Nil means unchanged.
type StatusUpdate struct {
	Status        *models.TransactionStatus
	PaymentStatus *models.PaymentStatus
	PaymentMethod *models.PaymentMethod
	Notes         *string
	DeliveryDate  *time.Time
	QualityRating *int
}

// ListFilter narrows List. An empty UserID means the actor's own transactions,
// or every transaction for admins.
type ListFilter struct {
	UserID  string
	Status  models.TransactionStatus
	BuyerID string
	FieldID string
}

// Create validates in and stores a pending transaction.
func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (models.Transaction, error) {
	if in.FarmerID == "" {
		in.FarmerID = actor.UserID
	}
	if err := validateCreate(in); err != nil {
		return models.Transaction{}, s.reject("create", err)
	}
	if in.FarmerID != actor.UserID && !actor.IsAdmin() {
		return models.Transaction{}, s.reject("create", apperr.New(apperr.ErrUnauthorized, "cannot create a transaction for another user"))
	}

	buyer, err := s.buyers.FindBuyerByID(ctx, in.BuyerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Transaction{}, s.reject("create", apperr.New(apperr.ErrNotFound, "buyer not found"))
		}
		return models.Transaction{}, s.internal("create", fmt.Errorf("find buyer %s: %w", in.BuyerID, err))
	}

	if in.FieldID != "" {
		field, err := s.fields.FindFieldByID(ctx, in.FieldID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return models.Transaction{}, s.internal("create", fmt.Errorf("find field %s: %w", in.FieldID, err))
		}
		if err != nil || field.UserID != in.FarmerID {
			return models.Transaction{}, s.reject("create", apperr.New(apperr.ErrNotFound, "field not found or not owned by user"))
		}
	}

	now := s.now()
	tx := models.Transaction{
		FarmerID:        in.FarmerID,
		BuyerID:         in.BuyerID,
		FieldID:         in.FieldID,
		CropType:        in.CropType,
		Quantity:        in.Quantity,
		UnitOfMeasure:   in.UnitOfMeasure,
		PricePerUnit:    in.PricePerUnit,
		TransactionDate: now,
		DeliveryDate:    in.DeliveryDate,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		PaymentMethod:   in.PaymentMethod,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if tx.UnitOfMeasure == "" {
		tx.UnitOfMeasure = models.UnitKg
	}
	if tx.PaymentMethod == "" {
		tx.PaymentMethod = models.PaymentCash
	}
	if in.TransactionDate != nil {
		tx.TransactionDate = *in.TransactionDate
	}
	tx.ComputeTotal()

	created, err := s.transactions.Insert(ctx, tx)
	if err != nil {
		return models.Transaction{}, s.internal("create", fmt.Errorf("insert transaction: %w", err))
	}

	s.logger.Info("transaction created",
		zap.String("transaction_id", created.ID),
		zap.String("user_id", created.FarmerID),
		zap.String("buyer_id", created.BuyerID),
		zap.Float64("total_amount", created.TotalAmount))

	s.publish(ctx, events.TransactionCreated, created, "")
	s.notifyBuyer(ctx, buyer, created)

	return created, nil
}

// notifyBuyer sends the buyer notice in the background. Notices are dropped
// when maxPendingNotices are already in flight.
func (s *Service) notifyBuyer(ctx context.Context, buyer models.Buyer, tx models.Transaction) {
	if s.notifier == nil {
		return
	}
	select {
	case s.noticeSlots <- struct{}{}:
	default:
		s.logger.Warn("too many pending buyer notices, skipping",
			zap.String("transaction_id", tx.ID),
			zap.String("buyer_id", buyer.ID))
		return
	}

	s.notices.Add(1)
	go func() {
		defer s.notices.Done()
		defer func() { <-s.noticeSlots }()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyTransactionCreated(nctx, buyer, tx); err != nil {
			s.logger.Warn("failed to notify buyer",
				zap.String("transaction_id", tx.ID),
				zap.String("buyer_id", buyer.ID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until background buyer notices finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notices.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func validateCreate(in CreateInput) error {
	var missing []string
	if in.FarmerID == "" {
		missing = append(missing, "farmerId")
	}
	if in.BuyerID == "" {
		missing = append(missing, "buyerId")
	}
	if strings.TrimSpace(in.CropType) == "" {
		missing = append(missing, "cropType")
	}
	if len(missing) > 0 {
		return apperr.New(apperr.ErrValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}
	if in.Quantity <= 0 {
		return apperr.New(apperr.ErrValidation, "quantity must be greater than zero")
	}
	if in.PricePerUnit <= 0 {
		return apperr.New(apperr.ErrValidation, "pricePerUnit must be greater than zero")
	}
	if in.UnitOfMeasure != "" && !in.UnitOfMeasure.Valid() {
		return apperr.New(apperr.ErrValidation, "invalid unitOfMeasure %q", in.UnitOfMeasure)
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return apperr.New(apperr.ErrValidation, "invalid paymentMethod %q", in.PaymentMethod)
	}
	return nil
}

// UpdateStatus applies upd on behalf of the owning farmer.
// An empty status is treated as no status change.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id string, upd StatusUpdate) (models.Transaction, error) {
	if upd.Status != nil && *upd.Status == "" {
		upd.Status = nil
	}
	if err := validateUpdate(upd); err != nil {
		return models.Transaction{}, s.reject("update_status", err)
	}

	return s.mutate(ctx, "update_status", actor, id, func(current models.Transaction) (models.TransactionPatch, error) {
		if upd.Status != nil && !CanTransition(current.Status, *upd.Status) {
			return models.TransactionPatch{}, apperr.New(apperr.ErrInvalidTransition,
				"invalid status transition from %s to %s", current.Status, *upd.Status)
		}
		return models.TransactionPatch{
			Status:        upd.Status,
			PaymentStatus: upd.PaymentStatus,
			PaymentMethod: upd.PaymentMethod,
			Notes:         upd.Notes,
			DeliveryDate:  upd.DeliveryDate,
			QualityRating: upd.QualityRating,
		}, nil
	})
}

func validateUpdate(upd StatusUpdate) error {
	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		return apperr.New(apperr.ErrValidation, "invalid paymentStatus %q", *upd.PaymentStatus)
	}
	if upd.PaymentMethod != nil && !upd.PaymentMethod.Valid() {
		return apperr.New(apperr.ErrValidation, "invalid paymentMethod %q", *upd.PaymentMethod)
	}
	if upd.QualityRating != nil && (*upd.QualityRating < 1 || *upd.QualityRating > 5) {
		return apperr.New(apperr.ErrValidation, "qualityRating must be between 1 and 5")
	}
	return nil
}

// Cancel moves a non-terminal transaction to cancelled and stamps the notes.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, id string) (models.Transaction, error) {
	return s.mutate(ctx, "cancel", actor, id, func(current models.Transaction) (models.TransactionPatch, error) {
		if !CanTransition(current.Status, models.StatusCancelled) {
			return models.TransactionPatch{}, apperr.New(apperr.ErrInvalidTransition,
				"cannot cancel a transaction with status %s", current.Status)
		}

		note := "Cancelled by user on " + s.now().Format("2006-01-02")
		if current.Notes != "" {
			note = current.Notes + " - " + note
		}
		cancelled := models.StatusCancelled
		return models.TransactionPatch{Status: &cancelled, Notes: &note}, nil
	})
}

// mutate reads the transaction, lets build derive a patch from it and writes
// the patch only if the status is still the one build saw.
func (s *Service) mutate(
	ctx context.Context,
	op string,
	actor models.Actor,
	id string,
	build func(current models.Transaction) (models.TransactionPatch, error),
) (models.Transaction, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		current, err := s.transactions.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return models.Transaction{}, s.reject(op, apperr.New(apperr.ErrNotFound, "transaction not found"))
			}
			return models.Transaction{}, s.internal(op, fmt.Errorf("find transaction %s: %w", id, err))
		}
		if current.FarmerID != actor.UserID {
			return models.Transaction{}, s.reject(op, apperr.New(apperr.ErrUnauthorized, "not authorized to modify this transaction"))
		}

		patch, err := build(current)
		if err != nil {
			return models.Transaction{}, s.reject(op, err)
		}
		patch.UpdatedAt = s.now()

		updated, err := s.transactions.UpdateIfStatus(ctx, id, current.Status, patch)
		if errors.Is(err, repository.ErrStatusConflict) {
			s.logger.Debug("status changed concurrently, retrying",
				zap.String("op", op),
				zap.String("transaction_id", id),
				zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return models.Transaction{}, s.reject(op, apperr.New(apperr.ErrNotFound, "transaction not found"))
		}
		if err != nil {
			return models.Transaction{}, s.internal(op, fmt.Errorf("update transaction %s: %w", id, err))
		}

		s.afterWrite(ctx, op, current, updated)
		return updated, nil
	}

	return models.Transaction{}, s.reject(op, apperr.New(apperr.ErrConflict,
		"transaction %s was modified concurrently, retry the request", id))
}

func (s *Service) afterWrite(ctx context.Context, op string, before, after models.Transaction) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("transaction_id", after.ID),
		zap.String("user_id", after.FarmerID),
	}
	if before.Status == after.Status {
		s.logger.Info("transaction updated", fields...)
		return
	}

	s.metrics.TransactionTransitions.WithLabelValues(string(before.Status), string(after.Status)).Inc()
	s.logger.Info("transaction status changed", append(fields,
		zap.String("from", string(before.Status)),
		zap.String("to", string(after.Status)))...)

	eventType := events.TransactionStatusChanged
	if after.Status == models.StatusCancelled {
		eventType = events.TransactionCancelled
	}
	s.publish(ctx, eventType, after, before.Status)
}

// Get returns a transaction visible to actor.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (models.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Transaction{}, s.reject("get", apperr.New(apperr.ErrNotFound, "transaction not found"))
		}
		return models.Transaction{}, s.internal("get", fmt.Errorf("find transaction %s: %w", id, err))
	}
	if tx.FarmerID != actor.UserID && !actor.IsAdmin() {
		return models.Transaction{}, s.reject("get", apperr.New(apperr.ErrUnauthorized, "not authorized to view this transaction"))
	}
	return tx, nil
}

// List returns the transactions matching f, newest first.
func (s *Service) List(ctx context.Context, actor models.Actor, f ListFilter) ([]models.Transaction, error) {
	if f.UserID == "" && !actor.IsAdmin() {
		f.UserID = actor.UserID
	}
	if f.UserID != "" && f.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, s.reject("list", apperr.New(apperr.ErrUnauthorized, "not authorized to view these transactions"))
	}
	if f.Status != "" && !isKnownStatus(f.Status) {
		return nil, s.reject("list", apperr.New(apperr.ErrValidation, "invalid status %q", f.Status))
	}

	txs, err := s.transactions.List(ctx, models.TransactionFilter{
		FarmerID: f.UserID,
		Status:   f.Status,
		BuyerID:  f.BuyerID,
		FieldID:  f.FieldID,
	})
	if err != nil {
		return nil, s.internal("list", fmt.Errorf("list transactions: %w", err))
	}
	return txs, nil
}

func isKnownStatus(status models.TransactionStatus) bool {
	for _, s := range models.AllTransactionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *Service) publish(ctx context.Context, eventType string, tx models.Transaction, from models.TransactionStatus) {
	payload := events.TransactionPayload{
		TransactionID: tx.ID,
		FarmerID:      tx.FarmerID,
		BuyerID:       tx.BuyerID,
		CropType:      tx.CropType,
		Quantity:      tx.Quantity,
		UnitOfMeasure: string(tx.UnitOfMeasure),
		TotalAmount:   tx.TotalAmount,
		FromStatus:    string(from),
		Status:        string(tx.Status),
	}
	if err := s.publisher.Publish(ctx, eventType, tx.ID, payload); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
	}
}

func (s *Service) reject(op string, err error) error {
	s.metrics.TransactionRejections.WithLabelValues(apperr.Code(err)).Inc()
	s.logger.Debug("transaction operation rejected", zap.String("op", op), zap.Error(err))
	return err
}

func (s *Service) internal(op string, err error) error {
	s.metrics.TransactionRejections.WithLabelValues(apperr.Code(apperr.ErrInternal)).Inc()
	s.logger.Error("transaction operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %v", apperr.ErrInternal, err)
}
