package pricing

import (
	"time"

	"vtc-platform/internal/config"
	"vtc-platform/internal/dispatch-service/core/domain/model"
	"vtc-platform/internal/mylogger"
)

// Fallbacks for rows missing from the rate tables. Degrading to these is
// deliberate, a missing row must not fail a ride request.
const (
	defaultBasePrice = 500
	defaultRatePerKm = 100
	defaultCityDay   = 100
	defaultCityNight = 200
)

// Calculator computes fare breakdowns from the rate tables loaded at
// startup. It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	cfg *config.Pricingconfig
	log mylogger.Logger
}

func NewCalculator(cfg *config.Pricingconfig, log mylogger.Logger) *Calculator {
	if cfg == nil {
		cfg = config.DefaultPricing()
	}
	return &Calculator{cfg: cfg, log: log}
}

// Quote prices a trip. vipZone may be empty when the pickup is outside any
// VIP zone.
func (c *Calculator) Quote(vehicleType, city, vipZone string, distanceKm float64, isNight bool) model.PriceBreakdown {
	log := c.log.Action("Quote")

	base := c.cfg.BasePrice
	if base <= 0 {
		log.Warn("no base price configured, using default", "default", defaultBasePrice)
		base = defaultBasePrice
	}

	ratePerKm := c.cfg.RatePerKm
	if ratePerKm <= 0 {
		log.Warn("no per-km rate configured, using default", "default", defaultRatePerKm)
		ratePerKm = defaultRatePerKm
	}

	b := model.PriceBreakdown{
		BasePrice:     base,
		DistancePrice: distanceKm * ratePerKm,
	}

	vehicle, ok := c.cfg.VehicleTypes[vehicleType]
	if !ok {
		log.Warn("unknown vehicle type, no surcharge applied", "vehicle_type", vehicleType)
	}
	b.VehicleAdditionalPrice = vehicle

	b.CityPrice = c.cityPrice(city, isNight)
	if vipZone != "" {
		b.VipZonePrice = c.vipZonePrice(vipZone, distanceKm, isNight)
	}

	b.Total = b.BasePrice + b.DistancePrice + b.VehicleAdditionalPrice + b.CityPrice + b.VipZonePrice
	return b
}

func (c *Calculator) cityPrice(city string, isNight bool) float64 {
	rates, ok := c.cfg.Cities[city]
	if !ok {
		c.log.Action("cityPrice").Warn("unknown city, using default rates", "city", city)
		if isNight {
			return defaultCityNight
		}
		return defaultCityDay
	}
	if isNight {
		return rates.NightPrice
	}
	return rates.DayPrice
}

func (c *Calculator) vipZonePrice(zone string, distanceKm float64, isNight bool) float64 {
	rates, ok := c.cfg.VipZones[zone]
	if !ok {
		c.log.Action("vipZonePrice").Warn("unknown VIP zone, no surcharge applied", "zone", zone)
		return 0
	}

	price := rates.DayBasePrice
	if isNight {
		price = rates.NightBasePrice
	}

	// Pick the tier with the highest min_kilometers still covered by the
	// trip distance. No matching tier means base rate only.
	var best *config.VipKmRule
	for i := range rates.KmRules {
		r := &rates.KmRules[i]
		if r.MinKilometers > distanceKm {
			continue
		}
		if best == nil || r.MinKilometers > best.MinKilometers {
			best = r
		}
	}
	if best != nil {
		if isNight {
			price += distanceKm * best.NightPricePerKm
		} else {
			price += distanceKm * best.DayPricePerKm
		}
	}
	return price
}

// IsNightTime reports whether t falls in the night fare window. Both
// boundaries are inclusive: 22:00 exactly and 06:00 exactly are night.
func (c *Calculator) IsNightTime(t time.Time) bool {
	startHour := c.cfg.NightStartHour
	endHour := c.cfg.NightEndHour
	if startHour == 0 && endHour == 0 {
		startHour, endHour = 22, 6
	}

	clock := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	start := time.Duration(startHour) * time.Hour
	end := time.Duration(endHour) * time.Hour

	return clock >= start || clock <= end
}
