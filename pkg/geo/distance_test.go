package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

var (
	bengaluru = models.Coordinates{Latitude: 12.9716, Longitude: 77.5946}
	chennai   = models.Coordinates{Latitude: 13.0827, Longitude: 80.2707}
	mysuru    = models.Coordinates{Latitude: 12.2958, Longitude: 76.6394}
)

func TestDistanceIdentity(t *testing.T) {
	for _, p := range []models.Coordinates{bengaluru, chennai, mysuru, {}, {Latitude: -89.9, Longitude: 179.9}} {
		assert.Equal(t, 0.0, Distance(p, p))
	}
}

func TestDistanceSymmetry(t *testing.T) {
	points := []models.Coordinates{
		bengaluru, chennai, mysuru,
		{Latitude: 0, Longitude: 0},
		{Latitude: 51.5074, Longitude: -0.1278},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 89.9, Longitude: -45},
	}
	for _, a := range points {
		for _, b := range points {
			assert.Equal(t, Distance(a, b), Distance(b, a), "%v <-> %v", a, b)
		}
	}
}

func TestDistanceKnownValues(t *testing.T) {
	d := Distance(bengaluru, chennai)
	assert.GreaterOrEqual(t, d, 290.0)
	assert.LessOrEqual(t, d, 300.0)

	antipodal := DistanceKm(0, 0, 0, 180)
	assert.InDelta(t, 20015.1, antipodal, 0.5)
}

func TestDistanceRoundsToOneDecimal(t *testing.T) {
	d := Distance(bengaluru, mysuru)
	assert.Equal(t, d, float64(int64(d*10+0.5))/10)
}
