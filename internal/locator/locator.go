// Package locator ranks partner barbershops by distance from the user.
package locator

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"barberclub/internal/models"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RankedShop is a barbershop with its computed distance from the origin.
// DistanceKm is negative when no origin was available.
type RankedShop struct {
	models.Barbershop
	DistanceKm float64 `json:"distancia_km"`
}

// Distance computes the great-circle distance between two points in km,
// rounded to one decimal place.
func Distance(a, b Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return math.Round(earthRadiusKm*c*10) / 10
}

// RankByDistance filters shops by search text, computes distance from the
// origin, drops shops beyond radiusKm and sorts ascending by distance.
//
// A nil origin means geolocation was unavailable: distances are not
// computed (reported as -1), radius filtering is skipped and the filtered
// list keeps catalog order. Shops missing either coordinate are always
// excluded from distance ranking.
func RankByDistance(origin *Coordinate, shops []models.Barbershop, radiusKm float64, searchText string) []RankedShop {
	query := strings.ToLower(strings.TrimSpace(searchText))

	matched := make([]models.Barbershop, 0, len(shops))
	for _, s := range shops {
		if query != "" &&
			!strings.Contains(strings.ToLower(s.Name), query) &&
			!strings.Contains(strings.ToLower(s.Address), query) {
			continue
		}
		matched = append(matched, s)
	}

	if origin == nil {
		out := make([]RankedShop, 0, len(matched))
		for _, s := range matched {
			out = append(out, RankedShop{Barbershop: s, DistanceKm: -1})
		}
		return out
	}

	ranked := make([]RankedShop, 0, len(matched))
	for _, s := range matched {
		if !s.HasCoordinates() {
			continue
		}
		d := Distance(*origin, Coordinate{Lat: *s.Latitude, Lng: *s.Longitude})
		if d > radiusKm {
			continue
		}
		ranked = append(ranked, RankedShop{Barbershop: s, DistanceKm: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

// RecenterFunc is called with the coordinate the map should center on.
type RecenterFunc func(Coordinate)

// Selection tracks the single selected shop and keeps the map view in
// sync. Selecting a shop silently replaces any previous selection.
type Selection struct {
	mu       sync.Mutex
	selected *models.Barbershop
	recenter RecenterFunc
}

// NewSelection creates a selection. recenter may be nil.
func NewSelection(recenter RecenterFunc) *Selection {
	return &Selection{recenter: recenter}
}

// Select sets the current shop and re-centers the map on it when the
// shop has coordinates.
func (s *Selection) Select(shop models.Barbershop) {
	s.mu.Lock()
	s.selected = &shop
	recenter := s.recenter
	s.mu.Unlock()

	if recenter != nil && shop.HasCoordinates() {
		recenter(Coordinate{Lat: *shop.Latitude, Lng: *shop.Longitude})
	}
}

// Selected returns the currently selected shop, or nil.
func (s *Selection) Selected() *models.Barbershop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Clear drops the current selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// ResolveOrigin returns the user's coordinate, or the configured
// fallback when geolocation failed. Failure is logged, never fatal.
func ResolveOrigin(user *Coordinate, fallback Coordinate, logger *zerolog.Logger) Coordinate {
	if user != nil {
		return *user
	}
	if logger != nil {
		logger.Debug().
			Float64("lat", fallback.Lat).
			Float64("lng", fallback.Lng).
			Msg("geolocation unavailable, using fallback coordinate")
	}
	return fallback
}
