// Package deliveryfee maps route distance or neighborhood to a
// delivery fee in centavos. A distance-based fee, when available,
// always overrides the neighborhood fallback.
package deliveryfee

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

type band struct {
	minKm float64
	maxKm float64
	cents int64
}

// Bands are min-inclusive, max-exclusive (the last band keeps its upper
// bound) and contiguous in practice; a distance outside every band
// means the fee is not determinable yet.
var distanceBands = []band{
	{0, 2, 500},
	{2, 4, 750},
	{4, 6, 900},
	{6, 8, 1200},
	{8, 12, 1500},
}

const fallbackNeighborhoodFee = 1000

var neighborhoodFees = map[string]int64{
	"centro":          500,
	"jardim paulista": 700,
	"vila mariana":    700,
	"pinheiros":       900,
	"moema":           900,
	"santana":         1200,
	"tatuape":         1200,
}

// ByDistance returns the fee for a route distance in km. ok is false
// when km is NaN, negative or falls outside every band; callers must
// treat that as "not determinable", never as zero.
func ByDistance(km float64) (int64, bool) {
	if math.IsNaN(km) || km < 0 {
		return 0, false
	}
	for i, b := range distanceBands {
		last := i == len(distanceBands)-1
		if km >= b.minKm && (km < b.maxKm || (last && km == b.maxKm)) {
			return b.cents, true
		}
	}
	return 0, false
}

// ByNeighborhood returns the fixed fee for a neighborhood name, the
// fallback fee for unknown names, and 0 for an empty name.
func ByNeighborhood(name string) int64 {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return 0
	}
	if fee, ok := neighborhoodFees[name]; ok {
		return fee
	}
	return fallbackNeighborhoodFee
}

var distancePattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(km|m)\b`)

// ParseDistanceKm extracts kilometers from a human string such as
// "1,3 km" or "900 m". ok is false when no pattern matches.
func ParseDistanceKm(text string) (float64, bool) {
	m := distancePattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	if m[2] == "m" {
		value /= 1000
	}
	return value, true
}
