package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DB       *DBconfig       `yaml:"db"`
	RabbitMq *RabbitMqconfig `yaml:"rabbitmq"`
	Redis    *Redisconfig    `yaml:"redis"`
	Srv      *Serviceconfig  `yaml:"services"`
	App      *Appconfig      `yaml:"app"`
	Dispatch *Dispatchconfig `yaml:"dispatch"`
	Pricing  *Pricingconfig  `yaml:"pricing"`
	Payments *Paymentsconfig `yaml:"payments"`
	Log      *Loggerconfig   `yaml:"log"`
}

type DBconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMqconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type Redisconfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Serviceconfig struct {
	DispatchServicePort string `yaml:"dispatch_service"`
	AuthServicePort     string `yaml:"auth_service"`
	WalletServicePort   string `yaml:"wallet_service"`
}

type Appconfig struct {
	JwtSecret       string `yaml:"jwt_secret"`
	SessionTTLHours int    `yaml:"session_ttl_hours"`
	OtpTTLMinutes   int    `yaml:"otp_ttl_minutes"`
}

// Dispatchconfig tunes the driver matching loop.
type Dispatchconfig struct {
	SearchRadiusKm     float64 `yaml:"search_radius_km"`
	MaxRadiusKm        float64 `yaml:"max_radius_km"`
	RadiusStepKm       float64 `yaml:"radius_step_km"`
	MinCandidates      int     `yaml:"min_candidates"`
	OfferTimeoutSec    int     `yaml:"offer_timeout_sec"`
	BroadcastPeriodSec int     `yaml:"broadcast_period_sec"`
}

type Pricingconfig struct {
	BasePrice      float64                   `yaml:"base_price"`
	RatePerKm      float64                   `yaml:"rate_per_km"`
	NightStartHour int                       `yaml:"night_start_hour"`
	NightEndHour   int                       `yaml:"night_end_hour"`
	VehicleTypes   map[string]float64        `yaml:"vehicle_types"` // type -> additional price
	Cities         map[string]CityRates      `yaml:"cities"`
	VipZones       map[string]VipZoneRates   `yaml:"vip_zones"`
	WelcomeBonus   float64                   `yaml:"welcome_bonus"`
	ReferralBonus  float64                   `yaml:"referral_bonus"`
}

type CityRates struct {
	DayPrice   float64 `yaml:"day_price"`
	NightPrice float64 `yaml:"night_price"`
}

type VipZoneRates struct {
	DayBasePrice   float64       `yaml:"day_base_price"`
	NightBasePrice float64       `yaml:"night_base_price"`
	KmRules        []VipKmRule   `yaml:"km_rules"`
}

// VipKmRule applies when the trip distance is at least MinKilometers.
// The rule with the highest matching MinKilometers wins.
type VipKmRule struct {
	MinKilometers float64 `yaml:"min_kilometers"`
	DayPricePerKm float64 `yaml:"day_price_per_km"`
	NightPricePerKm float64 `yaml:"night_price_per_km"`
}

type Paymentsconfig struct {
	FreeMoPayBaseURL string `yaml:"freemopay_base_url"`
	FreeMoPayAppKey  string `yaml:"freemopay_app_key"`
	FreeMoPaySecret  string `yaml:"freemopay_secret"`
	PollIntervalSec  int    `yaml:"poll_interval_sec"`
	PollMaxAttempts  int    `yaml:"poll_max_attempts"`
}

type Loggerconfig struct {
	Level string `yaml:"level"`
}

func New() (*Config, error) {
	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			fmt.Printf("using default for %s: %v\n", key, def)
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			fmt.Printf("using default for %s: %v\n", key, def)
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			fmt.Printf("cannot parse %s, using default %v\n", key, def)
			return def
		}
		return val
	}

	cnf := &Config{
		DB: &DBconfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "vtc_user"),
			Password: getEnv("DB_PASSWORD", "vtc_pass"),
			Database: getEnv("DB_NAME", "vtc_db"),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
		},
		Redis: &Redisconfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Srv: &Serviceconfig{
			DispatchServicePort: getEnv("DISPATCH_SERVICE_PORT", "3000"),
			AuthServicePort:     getEnv("AUTH_SERVICE_PORT", "3001"),
			WalletServicePort:   getEnv("WALLET_SERVICE_PORT", "3002"),
		},
		App: &Appconfig{
			JwtSecret:       getEnv("JWT_SECRET", "dev-secret"),
			SessionTTLHours: getEnvInt("SESSION_TTL_HOURS", 72),
			OtpTTLMinutes:   getEnvInt("OTP_TTL_MINUTES", 5),
		},
		Dispatch: &Dispatchconfig{
			SearchRadiusKm:     5,
			MaxRadiusKm:        30,
			RadiusStepKm:       5,
			MinCandidates:      1,
			OfferTimeoutSec:    getEnvInt("OFFER_TIMEOUT_SEC", 30),
			BroadcastPeriodSec: 5,
		},
		Pricing:  DefaultPricing(),
		Payments: &Paymentsconfig{
			FreeMoPayBaseURL: getEnv("FREEMOPAY_BASE_URL", "https://api.freemopay.com/api/v2"),
			FreeMoPayAppKey:  getEnv("FREEMOPAY_APP_KEY", ""),
			FreeMoPaySecret:  getEnv("FREEMOPAY_SECRET", ""),
			PollIntervalSec:  5,
			PollMaxAttempts:  24,
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}

	// Optional YAML overlay for the parts that do not map well to env vars
	// (pricing tables mostly).
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cnf.mergeYAML(path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return cnf, nil
}

func (c *Config) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// DefaultPricing is the fallback rate table used when no config file is
// provided or a row is missing from it.
func DefaultPricing() *Pricingconfig {
	return &Pricingconfig{
		BasePrice:      500,
		RatePerKm:      100,
		NightStartHour: 22,
		NightEndHour:   6,
		VehicleTypes: map[string]float64{
			"STANDARD": 0,
			"CONFORT":  300,
			"VAN":      500,
		},
		Cities: map[string]CityRates{
			"DOUALA":  {DayPrice: 100, NightPrice: 200},
			"YAOUNDE": {DayPrice: 100, NightPrice: 200},
		},
		VipZones:      map[string]VipZoneRates{},
		WelcomeBonus:  500,
		ReferralBonus: 500,
	}
}
