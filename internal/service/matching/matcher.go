package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/domain/apperr"
	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/metrics"
	"github.com/mamadbah2/agrimarket/internal/service/geocoding"
	"github.com/mamadbah2/agrimarket/pkg/geo"
)

// DefaultMaxDistanceKm is the search radius used when a query sets none.
const DefaultMaxDistanceKm = 50.0

// CropFilterAll disables crop filtering.
const CropFilterAll = "all"

// SortOrder selects how matches are ordered.
type SortOrder string

const (
	SortByDistance SortOrder = "distance"
	SortByPrice    SortOrder = "price"
)

// ParseSortOrder maps user input onto a SortOrder, defaulting to distance.
func ParseSortOrder(value string) SortOrder {
	if SortOrder(strings.ToLower(strings.TrimSpace(value))) == SortByPrice {
		return SortByPrice
	}
	return SortByDistance
}

// BuyerSource supplies candidate buyers. crop is empty when no crop filter applies.
type BuyerSource interface {
	ListActiveBuyers(ctx context.Context, crop string) ([]models.Buyer, error)
}

// Query describes one buyer search on behalf of a farmer.
type Query struct {
	Location    string
	FarmerCrops []string
	Crop        string
	// MaxDistance is the search radius in km. Nil means the configured default.
	MaxDistance *float64
	SortBy      SortOrder
	Search      string
}

// BuyerMatch is a buyer augmented with values computed for the query.
type BuyerMatch struct {
	models.Buyer
	Distance   float64 `json:"distance"`
	BestPrice  float64 `json:"bestPrice"`
	MatchCount int     `json:"matchCount"`
}

// Result is the ordered outcome of a match.
// Fallback is set when the reference dataset replaced the buyer store.
type Result struct {
	Buyers   []BuyerMatch `json:"buyers"`
	Fallback bool         `json:"fallback"`
}

// Config tunes a Matcher.
type Config struct {
	DefaultMaxDistance float64
	// Reference replaces ReferenceBuyers() as the fallback dataset when set.
	Reference []models.Buyer
}

// Matcher filters and orders buyers for a farmer. It holds no per-request state.
type Matcher struct {
	source   BuyerSource
	resolver geocoding.LocationResolver
	cfg      Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewMatcher wires a matcher. A nil resolver means the static table.
func NewMatcher(source BuyerSource, resolver geocoding.LocationResolver, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = geocoding.NewStaticResolver()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if cfg.DefaultMaxDistance <= 0 {
		cfg.DefaultMaxDistance = DefaultMaxDistanceKm
	}
	if cfg.Reference == nil {
		cfg.Reference = ReferenceBuyers()
	}
	return &Matcher{source: source, resolver: resolver, cfg: cfg, metrics: m, logger: logger}
}

// Match runs the filter/sort pipeline. Buyer store failures are recovered
// with the reference dataset, so the returned error is always nil today;
// it is kept for callers that wrap Match with request-scoped checks.
func (m *Matcher) Match(ctx context.Context, q Query) (Result, error) {
	crop := strings.TrimSpace(q.Crop)
	if crop == CropFilterAll {
		crop = ""
	}
	maxDistance := m.cfg.DefaultMaxDistance
	if q.MaxDistance != nil && *q.MaxDistance >= 0 {
		maxDistance = *q.MaxDistance
	}
	sortBy := q.SortBy
	if sortBy != SortByPrice {
		sortBy = SortByDistance
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	m.metrics.MatchRequests.WithLabelValues(string(sortBy)).Inc()

	origin := m.resolve(ctx, q.Location)
	candidates, fallback := m.loadBuyers(ctx, crop)

	matches := make([]BuyerMatch, 0, len(candidates))
	for _, buyer := range candidates {
		if !buyer.IsActive() {
			continue
		}
		if crop != "" && !buyer.InterestedIn(crop) {
			continue
		}

		position := m.buyerPosition(ctx, buyer)
		distance := geo.Distance(origin, position)
		if distance > maxDistance {
			continue
		}

		if search != "" && !matchesSearch(buyer, search) {
			continue
		}

		matches = append(matches, BuyerMatch{
			Buyer:      buyer,
			Distance:   distance,
			BestPrice:  buyer.BestPrice(q.FarmerCrops),
			MatchCount: buyer.MatchCount(q.FarmerCrops),
		})
	}

	sortMatches(matches, sortBy)

	m.logger.Debug("buyers matched",
		zap.String("location", q.Location),
		zap.String("crop", crop),
		zap.Float64("max_distance", maxDistance),
		zap.String("sort", string(sortBy)),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)),
		zap.Bool("fallback", fallback))

	return Result{Buyers: matches, Fallback: fallback}, nil
}

func (m *Matcher) loadBuyers(ctx context.Context, crop string) ([]models.Buyer, bool) {
	if m.source == nil {
		m.metrics.MatchFallbacks.Inc()
		return m.reference(), true
	}

	buyers, err := m.source.ListActiveBuyers(ctx, crop)
	if err != nil {
		err = fmt.Errorf("%w: list buyers: %v", apperr.ErrUpstreamUnavailable, err)
		m.logger.Warn("buyer source unavailable, serving reference buyers", zap.String("op", "match"), zap.Error(err))
		m.metrics.MatchFallbacks.Inc()
		return m.reference(), true
	}

	return buyers, false
}

func (m *Matcher) reference() []models.Buyer {
	out := make([]models.Buyer, len(m.cfg.Reference))
	for i, b := range m.cfg.Reference {
		out[i] = b.Clone()
	}
	return out
}

// buyerPosition prefers the buyer's cached coordinates.
func (m *Matcher) buyerPosition(ctx context.Context, buyer models.Buyer) models.Coordinates {
	if buyer.Coordinates != nil {
		return *buyer.Coordinates
	}
	return m.resolve(ctx, buyer.Location)
}

func (m *Matcher) resolve(ctx context.Context, location string) models.Coordinates {
	coords, err := m.resolver.Resolve(ctx, location)
	if err != nil {
		m.logger.Warn("location could not be resolved, using default", zap.String("location", location), zap.Error(err))
		return geocoding.DefaultLocation.Coordinates
	}
	return coords
}

func matchesSearch(buyer models.Buyer, term string) bool {
	if strings.Contains(strings.ToLower(buyer.Name), term) || strings.Contains(strings.ToLower(buyer.Location), term) {
		return true
	}
	for _, crop := range buyer.InterestedCrops {
		if strings.Contains(strings.ToLower(crop), term) {
			return true
		}
	}
	return false
}

// sortMatches orders by ascending distance, or by descending best price with
// buyers lacking any offer (price 0) last and distance breaking ties.
func sortMatches(matches []BuyerMatch, sortBy SortOrder) {
	if sortBy == SortByPrice {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].BestPrice != matches[j].BestPrice {
				return matches[i].BestPrice > matches[j].BestPrice
			}
			return matches[i].Distance < matches[j].Distance
		})
		return
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
}
