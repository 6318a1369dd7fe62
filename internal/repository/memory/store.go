// Package memory is an in-process implementation of the repository contracts,
// used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/repository"
)

// Store keeps every collection in maps guarded by one RWMutex.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]models.Transaction
	buyers       map[string]models.Buyer
	fields       map[string]models.Field
	reports      []models.DailyReport
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string]models.Transaction),
		buyers:       make(map[string]models.Buyer),
		fields:       make(map[string]models.Field),
	}
}

var _ repository.Store = (*Store)(nil)

// Insert stores tx under a fresh id unless it already carries one.
func (s *Store) Insert(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if _, exists := s.transactions[tx.ID]; exists {
		return models.Transaction{}, fmt.Errorf("transaction %s already exists", tx.ID)
	}
	tx.ComputeTotal()
	s.transactions[tx.ID] = tx.Clone()
	return tx.Clone(), nil
}

func (s *Store) FindByID(_ context.Context, id string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return models.Transaction{}, repository.ErrNotFound
	}
	return tx.Clone(), nil
}

// List returns matching transactions ordered by TransactionDate, newest first.
func (s *Store) List(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0)
	for _, tx := range s.transactions {
		if filter.Matches(tx) {
			out = append(out, tx.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].TransactionDate.After(out[j].TransactionDate)
	})
	return out, nil
}

func (s *Store) UpdateIfStatus(_ context.Context, id string, expected models.TransactionStatus, patch models.TransactionPatch) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return models.Transaction{}, repository.ErrNotFound
	}
	if tx.Status != expected {
		return models.Transaction{}, repository.ErrStatusConflict
	}

	patch.Apply(&tx)
	s.transactions[id] = tx.Clone()
	return tx.Clone(), nil
}

func (s *Store) InsertBuyer(_ context.Context, buyer models.Buyer) (models.Buyer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if buyer.ID == "" {
		buyer.ID = uuid.NewString()
	}
	if _, exists := s.buyers[buyer.ID]; exists {
		return models.Buyer{}, fmt.Errorf("buyer %s already exists", buyer.ID)
	}
	s.buyers[buyer.ID] = buyer.Clone()
	return buyer.Clone(), nil
}

func (s *Store) FindBuyerByID(_ context.Context, id string) (models.Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buyer, ok := s.buyers[id]
	if !ok {
		return models.Buyer{}, repository.ErrNotFound
	}
	return buyer.Clone(), nil
}

func (s *Store) ListActiveBuyers(_ context.Context, crop string) ([]models.Buyer, error) {
	return s.listBuyers(func(b models.Buyer) bool {
		return b.IsActive() && (crop == "" || b.InterestedIn(crop))
	}), nil
}

func (s *Store) ListBuyersWithoutCoordinates(_ context.Context) ([]models.Buyer, error) {
	return s.listBuyers(func(b models.Buyer) bool {
		return b.Coordinates == nil
	}), nil
}

func (s *Store) listBuyers(keep func(models.Buyer) bool) []models.Buyer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Buyer, 0)
	for _, b := range s.buyers {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) SetBuyerCoordinates(_ context.Context, id string, coords models.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buyer, ok := s.buyers[id]
	if !ok {
		return repository.ErrNotFound
	}
	buyer.Coordinates = &coords
	s.buyers[id] = buyer
	return nil
}

func (s *Store) CountBuyers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.buyers)), nil
}

func (s *Store) InsertField(_ context.Context, field models.Field) (models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	s.fields[field.ID] = field
	return field, nil
}

func (s *Store) FindFieldByID(_ context.Context, id string) (models.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	field, ok := s.fields[id]
	if !ok {
		return models.Field{}, repository.ErrNotFound
	}
	return field, nil
}

func (s *Store) ListFieldsByUser(_ context.Context, userID string) ([]models.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Field, 0)
	for _, f := range s.fields {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveDailyReport(_ context.Context, report models.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

// Reports returns the saved daily reports in insertion order.
func (s *Store) Reports() []models.DailyReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.DailyReport(nil), s.reports...)
}

func (s *Store) Close(context.Context) error { return nil }
