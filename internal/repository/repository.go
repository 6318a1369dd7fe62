// Package repository declares the storage contracts of the marketplace.
package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned by UpdateIfStatus when the stored status
	// no longer equals the expected one.
	ErrStatusConflict = errors.New("status changed concurrently")
)

// TransactionRepository stores transactions.
type TransactionRepository interface {
	Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	FindByID(ctx context.Context, id string) (models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	// UpdateIfStatus applies patch only while the stored status equals expected.
	UpdateIfStatus(ctx context.Context, id string, expected models.TransactionStatus, patch models.TransactionPatch) (models.Transaction, error)
}

// BuyerRepository stores the buyer directory.
type BuyerRepository interface {
	InsertBuyer(ctx context.Context, buyer models.Buyer) (models.Buyer, error)
	FindBuyerByID(ctx context.Context, id string) (models.Buyer, error)
	// ListActiveBuyers returns active buyers, restricted to those interested
	// in crop when crop is not empty.
	ListActiveBuyers(ctx context.Context, crop string) ([]models.Buyer, error)
	ListBuyersWithoutCoordinates(ctx context.Context) ([]models.Buyer, error)
	SetBuyerCoordinates(ctx context.Context, id string, coords models.Coordinates) error
	CountBuyers(ctx context.Context) (int64, error)
}

// FieldRepository stores farm fields.
type FieldRepository interface {
	InsertField(ctx context.Context, field models.Field) (models.Field, error)
	FindFieldByID(ctx context.Context, id string) (models.Field, error)
	ListFieldsByUser(ctx context.Context, userID string) ([]models.Field, error)
}

// ReportRepository stores daily marketplace reports.
type ReportRepository interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Store bundles the repositories one backend provides.
type Store interface {
	TransactionRepository
	BuyerRepository
	FieldRepository
	ReportRepository
	Close(ctx context.Context) error
}
