package store

import (
	"math"
	"sort"
)

const earthRadiusMeters = 6371008.8

// haversineMeters returns the great-circle distance between two WGS84
// points. PostGIS geography distance is spheroidal; over the few meters the
// dedup radius covers, the spherical approximation differs by far less than
// GPS accuracy.
func haversineMeters(lng1, lat1, lng2, lat2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLng := (lng2 - lng1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// submissionCellDegrees is the side of the grid used to serialize
// concurrent submissions (~11 m at the equator, comfortably above the 5 m
// dedup radius).
const submissionCellDegrees = 0.0001

// submissionCellKeys returns the advisory-lock keys for every grid cell the
// dedup circle around (lng, lat) can touch. Keys are sorted so concurrent
// submissions acquire locks in the same order and cannot deadlock.
func submissionCellKeys(lng, lat, radiusMeters float64) []int64 {
	// degrees per meter: latitude is constant, longitude shrinks with cos(lat)
	latDeg := radiusMeters / 111320.0
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngDeg := radiusMeters / (111320.0 * cosLat)

	seen := map[int64]struct{}{}
	for _, dy := range []float64{-latDeg, 0, latDeg} {
		for _, dx := range []float64{-lngDeg, 0, lngDeg} {
			cx := int64(math.Floor((lng + dx) / submissionCellDegrees))
			cy := int64(math.Floor((lat + dy) / submissionCellDegrees))
			seen[cellKey(cx, cy)] = struct{}{}
		}
	}

	keys := make([]int64, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func cellKey(cx, cy int64) int64 {
	// pack both cell indices into one 64-bit advisory lock key
	return cx<<32 ^ (cy & 0xffffffff)
}
