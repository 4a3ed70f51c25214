package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// northOf returns the coordinate that lies meters due north of c.
func northOf(c Coordinate, meters float64) Coordinate {
	return Coordinate{Lat: c.Lat + meters/EarthRadiusMeters*180/math.Pi, Lng: c.Lng}
}

func TestDistance_SamePoint(t *testing.T) {
	c := Coordinate{Lat: 17.7231, Lng: 80.4625}
	assert.Equal(t, 0.0, Distance(c, c))
}

func TestDistance_Symmetric(t *testing.T) {
	a := Coordinate{Lat: 48.8566, Lng: 2.3522}
	b := Coordinate{Lat: 51.5074, Lng: -0.1278}

	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-6)
	// Paris - London is roughly 343.5 km.
	assert.InDelta(t, 343_500, Distance(a, b), 1_000)
}

func TestDistance_NorthOffset(t *testing.T) {
	center := Coordinate{Lat: 17.7231, Lng: 80.4625}

	assert.InDelta(t, 150, Distance(center, northOf(center, 150)), 0.01)
	assert.InDelta(t, 250, Distance(center, northOf(center, 250)), 0.01)
}

func TestWithin_Boundary(t *testing.T) {
	center := Coordinate{Lat: 17.7231, Lng: 80.4625}
	p := northOf(center, 200)
	d := Distance(center, p)

	ok, got := Within(center, p, d)
	assert.True(t, ok, "a point exactly on the radius is inside")
	assert.Equal(t, d, got)

	ok, _ = Within(center, p, d-1)
	assert.False(t, ok)
}
