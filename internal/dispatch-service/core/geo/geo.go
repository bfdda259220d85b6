package geo

import (
	"math"
	"sort"
)

const (
	EarthRadiusKm = 6371.0
	degPerKm      = 1.0 / 111.0

	// minCosLat keeps the longitude-degree conversion finite near the
	// poles, where cos(lat) goes to zero.
	minCosLat = 1e-6
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// BoundingBox is a first-pass filter around a center point. Cheap to test
// against, refined with Haversine afterwards.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// NewBoundingBox builds the box for radiusKm around center. The longitude
// span is widened by 1/cos(lat), clamped so the division never blows up.
func NewBoundingBox(center Point, radiusKm float64) BoundingBox {
	latSpan := radiusKm * degPerKm
	cosLat := math.Cos(center.Latitude * math.Pi / 180)
	if math.Abs(cosLat) < minCosLat {
		cosLat = minCosLat
	}
	lngSpan := latSpan / math.Abs(cosLat)
	return BoundingBox{
		MinLat: center.Latitude - latSpan,
		MaxLat: center.Latitude + latSpan,
		MinLng: center.Longitude - lngSpan,
		MaxLng: center.Longitude + lngSpan,
	}
}

func (b BoundingBox) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLng && p.Longitude <= b.MaxLng
}

// Candidate is one driver eligible for an offer.
type Candidate struct {
	DriverID    string
	VehicleType string
	Position    Point
	DistanceKm  float64
}

// SearchResult reports the candidates found nearest-first, the radius that
// was actually used and whether widening stopped at the maximum.
type SearchResult struct {
	Candidates   []Candidate
	RadiusKm     float64
	MaxReached   bool
	VehicleTypes []string
}

// SearchParams tunes the progressive widening.
type SearchParams struct {
	StartRadiusKm float64
	MaxRadiusKm   float64
	StepKm        float64
	MinCandidates int
}

// Search filters the given drivers around pickup, widening the radius in
// fixed steps until MinCandidates are found or MaxRadiusKm is reached.
func Search(pickup Point, drivers []Candidate, p SearchParams) SearchResult {
	if p.StartRadiusKm <= 0 {
		p.StartRadiusKm = 5
	}
	if p.MaxRadiusKm < p.StartRadiusKm {
		p.MaxRadiusKm = p.StartRadiusKm
	}
	if p.StepKm <= 0 {
		p.StepKm = 5
	}
	if p.MinCandidates <= 0 {
		p.MinCandidates = 1
	}

	radius := p.StartRadiusKm
	for {
		found := within(pickup, drivers, radius)
		if len(found) >= p.MinCandidates || radius >= p.MaxRadiusKm {
			sort.Slice(found, func(i, j int) bool {
				return found[i].DistanceKm < found[j].DistanceKm
			})
			return SearchResult{
				Candidates:   found,
				RadiusKm:     radius,
				MaxReached:   radius >= p.MaxRadiusKm,
				VehicleTypes: vehicleTypes(found),
			}
		}
		radius += p.StepKm
		if radius > p.MaxRadiusKm {
			radius = p.MaxRadiusKm
		}
	}
}

func within(pickup Point, drivers []Candidate, radiusKm float64) []Candidate {
	box := NewBoundingBox(pickup, radiusKm)
	var out []Candidate
	for _, d := range drivers {
		if !box.Contains(d.Position) {
			continue
		}
		dist := Haversine(pickup, d.Position)
		if dist > radiusKm {
			continue
		}
		d.DistanceKm = dist
		out = append(out, d)
	}
	return out
}

func vehicleTypes(cs []Candidate) []string {
	seen := make(map[string]bool)
	var types []string
	for _, c := range cs {
		if c.VehicleType == "" || seen[c.VehicleType] {
			continue
		}
		seen[c.VehicleType] = true
		types = append(types, c.VehicleType)
	}
	sort.Strings(types)
	return types
}
