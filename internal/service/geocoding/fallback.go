package geocoding

import (
	"context"

	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

// FallbackResolver asks Primary first and answers from Fallback when it fails.
type FallbackResolver struct {
	primary  LocationResolver
	fallback LocationResolver
	logger   *zap.Logger
}

// NewFallbackResolver chains two resolvers. A nil fallback means the static table.
func NewFallbackResolver(primary, fallback LocationResolver, logger *zap.Logger) *FallbackResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallback == nil {
		fallback = NewStaticResolver()
	}
	return &FallbackResolver{primary: primary, fallback: fallback, logger: logger}
}

// Resolve implements LocationResolver.
func (r *FallbackResolver) Resolve(ctx context.Context, location string) (models.Coordinates, error) {
	if r.primary != nil {
		coords, err := r.primary.Resolve(ctx, location)
		if err == nil {
			return coords, nil
		}
		r.logger.Warn("primary geocoder failed, using fallback", zap.String("location", location), zap.Error(err))
	}
	return r.fallback.Resolve(ctx, location)
}
