package geocoding

import (
	"context"
	"strings"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

// LocationResolver turns a free-text location into approximate coordinates.
type LocationResolver interface {
	Resolve(ctx context.Context, location string) (models.Coordinates, error)
}

// KnownLocation is one entry of the static lookup table.
type KnownLocation struct {
	Name        string
	Aliases     []string
	Coordinates models.Coordinates
}

// knownLocations is ordered; the first entry is the default location.
var knownLocations = []KnownLocation{
	{Name: "Bengaluru, Karnataka", Aliases: []string{"bengaluru", "bangalore"}, Coordinates: models.Coordinates{Latitude: 12.9716, Longitude: 77.5946}},
	{Name: "Mysuru, Karnataka", Aliases: []string{"mysuru", "mysore"}, Coordinates: models.Coordinates{Latitude: 12.2958, Longitude: 76.6394}},
	{Name: "Chennai, Tamil Nadu", Aliases: []string{"chennai"}, Coordinates: models.Coordinates{Latitude: 13.0827, Longitude: 80.2707}},
	{Name: "Hosur, Tamil Nadu", Aliases: []string{"hosur"}, Coordinates: models.Coordinates{Latitude: 12.7409, Longitude: 77.8253}},
	{Name: "Electronic City, Bengaluru", Aliases: []string{"electronic city"}, Coordinates: models.Coordinates{Latitude: 12.8399, Longitude: 77.6770}},
	{Name: "Hyderabad, Telangana", Aliases: []string{"hyderabad"}, Coordinates: models.Coordinates{Latitude: 17.3850, Longitude: 78.4867}},
	{Name: "Mumbai, Maharashtra", Aliases: []string{"mumbai", "bombay"}, Coordinates: models.Coordinates{Latitude: 19.0760, Longitude: 72.8777}},
	{Name: "Delhi, Delhi", Aliases: []string{"delhi"}, Coordinates: models.Coordinates{Latitude: 28.7041, Longitude: 77.1025}},
	{Name: "Kolkata, West Bengal", Aliases: []string{"kolkata", "calcutta"}, Coordinates: models.Coordinates{Latitude: 22.5726, Longitude: 88.3639}},
	{Name: "Pune, Maharashtra", Aliases: []string{"pune"}, Coordinates: models.Coordinates{Latitude: 18.5204, Longitude: 73.8567}},
}

// DefaultLocation is returned for any location the table does not know.
// Unknown input is not an error.
var DefaultLocation = knownLocations[0]

// KnownLocations returns a copy of the lookup table.
func KnownLocations() []KnownLocation {
	out := make([]KnownLocation, len(knownLocations))
	copy(out, knownLocations)
	return out
}

// StaticResolver resolves locations against the fixed table.
type StaticResolver struct{}

// NewStaticResolver returns the table-backed resolver.
func NewStaticResolver() StaticResolver {
	return StaticResolver{}
}

// Resolve never fails. The longest alias contained in location wins,
// so "Electronic City, Bengaluru" does not collapse onto Bengaluru.
func (StaticResolver) Resolve(_ context.Context, location string) (models.Coordinates, error) {
	return Lookup(location), nil
}

// Lookup is the synchronous form of StaticResolver.Resolve.
func Lookup(location string) models.Coordinates {
	needle := strings.ToLower(strings.TrimSpace(location))
	if needle == "" {
		return DefaultLocation.Coordinates
	}

	best := -1
	bestLen := 0
	for i, known := range knownLocations {
		for _, alias := range known.Aliases {
			if len(alias) > bestLen && strings.Contains(needle, alias) {
				best = i
				bestLen = len(alias)
			}
		}
	}

	if best < 0 {
		return DefaultLocation.Coordinates
	}
	return knownLocations[best].Coordinates
}
