// Package buyers manages the buyer directory.
package buyers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/domain/apperr"
	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/repository"
	"github.com/mamadbah2/agrimarket/internal/service/geocoding"
)

// Service adds, seeds and geocodes buyers.
type Service struct {
	repo      repository.BuyerRepository
	resolver  geocoding.LocationResolver
	reference func() []models.Buyer
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a buyer directory service. reference supplies the
// dataset Seed inserts.
func NewService(repo repository.BuyerRepository, resolver geocoding.LocationResolver, reference func() []models.Buyer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = geocoding.NewStaticResolver()
	}
	return &Service{
		repo:      repo,
		resolver:  resolver,
		reference: reference,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddInput is the payload for a new buyer.
type AddInput struct {
	Name              string
	Location          string
	ContactInfo       models.ContactInfo
	InterestedCrops   []string
	OfferPrice        map[string]float64
	AdditionalInfo    string
	ProfileImage      string
	BuyingPreferences models.BuyingPreferences
}

// Add registers an active buyer. Only admins may add buyers.
func (s *Service) Add(ctx context.Context, actor models.Actor, in AddInput) (models.Buyer, error) {
	if !actor.IsAdmin() {
		return models.Buyer{}, apperr.New(apperr.ErrUnauthorized, "only admins can add buyers")
	}
	if err := validateAdd(in); err != nil {
		return models.Buyer{}, err
	}

	now := s.now()
	buyer := models.Buyer{
		Name:              strings.TrimSpace(in.Name),
		Location:          strings.TrimSpace(in.Location),
		ContactInfo:       in.ContactInfo,
		InterestedCrops:   in.InterestedCrops,
		OfferPrice:        in.OfferPrice,
		AdditionalInfo:    in.AdditionalInfo,
		ProfileImage:      in.ProfileImage,
		BuyingPreferences: in.BuyingPreferences,
		Status:            models.BuyerActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if buyer.BuyingPreferences.PaymentTerms == "" {
		buyer.BuyingPreferences.PaymentTerms = models.PaymentTermsImmediate
	}

	coords, err := s.resolver.Resolve(ctx, buyer.Location)
	if err != nil {
		s.logger.Warn("could not geocode buyer, coordinates left for backfill",
			zap.String("location", buyer.Location), zap.Error(err))
	} else {
		buyer.Coordinates = &coords
	}

	created, err := s.repo.InsertBuyer(ctx, buyer)
	if err != nil {
		s.logger.Error("failed to insert buyer", zap.String("name", buyer.Name), zap.Error(err))
		return models.Buyer{}, fmt.Errorf("%w: insert buyer: %v", apperr.ErrInternal, err)
	}

	s.logger.Info("buyer added", zap.String("buyer_id", created.ID), zap.String("user_id", actor.UserID))
	return created, nil
}

func validateAdd(in AddInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Location) == "" {
		return apperr.New(apperr.ErrValidation, "name and location are required")
	}
	if len(in.InterestedCrops) == 0 {
		return apperr.New(apperr.ErrValidation, "at least one interested crop is required")
	}
	for crop, price := range in.OfferPrice {
		if price < 0 {
			return apperr.New(apperr.ErrValidation, "offer price for %s must not be negative", crop)
		}
	}
	if in.BuyingPreferences.PaymentTerms != "" && !in.BuyingPreferences.PaymentTerms.Valid() {
		return apperr.New(apperr.ErrValidation, "invalid payment terms %q", in.BuyingPreferences.PaymentTerms)
	}
	return nil
}

// Get returns one buyer.
func (s *Service) Get(ctx context.Context, id string) (models.Buyer, error) {
	buyer, err := s.repo.FindBuyerByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Buyer{}, apperr.New(apperr.ErrNotFound, "buyer not found")
	}
	if err != nil {
		s.logger.Error("failed to load buyer", zap.String("buyer_id", id), zap.Error(err))
		return models.Buyer{}, fmt.Errorf("%w: find buyer: %v", apperr.ErrInternal, err)
	}
	return buyer, nil
}

// Seed inserts the reference buyers when the directory is empty and reports
// how many were inserted.
func (s *Service) Seed(ctx context.Context) (int, error) {
	count, err := s.repo.CountBuyers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count buyers: %v", apperr.ErrInternal, err)
	}
	if count > 0 || s.reference == nil {
		s.logger.Debug("buyer directory already populated, skipping seed", zap.Int64("count", count))
		return 0, nil
	}

	now := s.now()
	inserted := 0
	for _, b := range s.reference() {
		b.CreatedAt = now
		b.UpdatedAt = now
		if _, err := s.repo.InsertBuyer(ctx, b); err != nil {
			return inserted, fmt.Errorf("%w: seed buyer %s: %v", apperr.ErrInternal, b.ID, err)
		}
		inserted++
	}

	s.logger.Info("seeded reference buyers", zap.Int("count", inserted))
	return inserted, nil
}

// BackfillCoordinates caches coordinates for buyers that have none.
func (s *Service) BackfillCoordinates(ctx context.Context) (int, error) {
	pending, err := s.repo.ListBuyersWithoutCoordinates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list buyers without coordinates: %w", err)
	}

	updated := 0
	for _, b := range pending {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		coords, err := s.resolver.Resolve(ctx, b.Location)
		if err != nil {
			s.logger.Warn("failed to geocode buyer", zap.String("buyer_id", b.ID), zap.Error(err))
			continue
		}
		if err := s.repo.SetBuyerCoordinates(ctx, b.ID, coords); err != nil {
			s.logger.Warn("failed to store buyer coordinates", zap.String("buyer_id", b.ID), zap.Error(err))
			continue
		}
		updated++
	}

	if updated > 0 {
		s.logger.Info("backfilled buyer coordinates", zap.Int("updated", updated), zap.Int("pending", len(pending)))
	}
	return updated, nil
}
